package usage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/metatools/observe"
)

const (
	// DefaultMaxEntries bounds the retained history.
	DefaultMaxEntries = 1000

	// DefaultWindow is the Summary window used when none is given.
	DefaultWindow = 24 * time.Hour

	// DefaultRecent is the Recent count used when none is given.
	DefaultRecent = 10
)

// Entry is one recorded tool call.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Tool       string    `json:"tool"`
	Provider   string    `json:"provider,omitempty"`
	CacheHit   bool      `json:"cacheHit"`
	DurationMs float64   `json:"durationMs"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// UnmarshalJSON accepts timestamp either as RFC 3339 text or as a number of
// Unix milliseconds.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	var raw struct {
		plain
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry(raw.plain)

	ts := bytes.TrimSpace(raw.Timestamp)
	switch {
	case len(ts) == 0 || bytes.Equal(ts, []byte("null")):
		e.Timestamp = time.Time{}
	case ts[0] == '"':
		if err := json.Unmarshal(ts, &e.Timestamp); err != nil {
			return fmt.Errorf("usage entry timestamp: %w", err)
		}
	default:
		var ms float64
		if err := json.Unmarshal(ts, &ms); err != nil {
			return fmt.Errorf("usage entry timestamp: %w", err)
		}
		e.Timestamp = time.UnixMilli(int64(ms)).UTC()
	}
	return nil
}

// Summary aggregates entries inside a window.
type Summary struct {
	TotalCalls           int            `json:"totalCalls"`
	CacheHits            int            `json:"cacheHits"`
	CacheHitRate         float64        `json:"cacheHitRate"`
	ProviderCalls        map[string]int `json:"providerCalls"`
	AvgDurationMs        float64        `json:"avgDurationMs"`
	SuccessRate          float64        `json:"successRate"`
	EstimatedTokensSaved int            `json:"estimatedTokensSaved"`
}

// Options configures a Tracker.
type Options struct {
	// Path is the JSON persistence file. Empty keeps entries in memory only.
	// Entries are written with RFC 3339 timestamps; files holding Unix
	// millisecond timestamps are read as well.
	Path string

	// MaxEntries bounds retained entries. Default: DefaultMaxEntries.
	MaxEntries int

	Logger observe.Logger

	// Now is the tracker clock. Default: time.Now.
	Now func() time.Time
}

type fileFormat struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Entries     []Entry   `json:"entries"`
}

// Tracker records tool calls. It is safe for concurrent use.
type Tracker struct {
	opts Options

	mu      sync.Mutex
	loaded  bool
	entries []Entry
}

// NewTracker creates a Tracker. The persistence file is read on first use.
func NewTracker(opts Options) *Tracker {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Logger == nil {
		opts.Logger = observe.NopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{opts: opts}
}

// Record stores e, filling ID and Timestamp when empty, and returns the
// stored entry.
func (t *Tracker) Record(ctx context.Context, e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.opts.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.loadLocked(ctx)
	t.entries = append(t.entries, e)
	if over := len(t.entries) - t.opts.MaxEntries; over > 0 {
		t.entries = append(t.entries[:0:0], t.entries[over:]...)
	}
	t.saveLocked(ctx)
	return e
}

// Summary aggregates entries newer than window, restricted to tool when
// tool is non-empty. A non-positive window selects DefaultWindow.
func (t *Tracker) Summary(ctx context.Context, tool string, window time.Duration) Summary {
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := t.opts.Now().Add(-window)

	t.mu.Lock()
	t.loadLocked(ctx)
	var matched []Entry
	for _, e := range t.entries {
		if e.Timestamp.After(cutoff) && (tool == "" || e.Tool == tool) {
			matched = append(matched, e)
		}
	}
	t.mu.Unlock()

	s := Summary{ProviderCalls: map[string]int{}}
	if len(matched) == 0 {
		return s
	}

	var successes int
	var totalMs float64
	for _, e := range matched {
		if e.CacheHit {
			s.CacheHits++
			s.EstimatedTokensSaved += EstimatedTokens(e.Tool)
		}
		if e.Success {
			successes++
		}
		if e.Provider != "" {
			s.ProviderCalls[e.Provider]++
		}
		totalMs += e.DurationMs
	}

	n := float64(len(matched))
	s.TotalCalls = len(matched)
	s.CacheHitRate = float64(s.CacheHits) / n
	s.SuccessRate = float64(successes) / n
	s.AvgDurationMs = totalMs / n
	return s
}

// Recent returns up to n of the newest entries, oldest first. A
// non-positive n selects DefaultRecent.
func (t *Tracker) Recent(ctx context.Context, n int) []Entry {
	if n <= 0 {
		n = DefaultRecent
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.loadLocked(ctx)
	start := max(len(t.entries)-n, 0)
	out := make([]Entry, len(t.entries)-start)
	copy(out, t.entries[start:])
	return out
}

// Len returns the number of retained entries.
func (t *Tracker) Len(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked(ctx)
	return len(t.entries)
}

// Clear drops every entry and persists the empty history.
func (t *Tracker) Clear(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.loaded = true
	t.entries = nil
	t.saveLocked(ctx)
}

func (t *Tracker) loadLocked(ctx context.Context) {
	if t.loaded {
		return
	}
	t.loaded = true
	if t.opts.Path == "" {
		return
	}

	data, err := os.ReadFile(t.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		t.opts.Logger.Warn(ctx, "usage history unreadable", observe.F("path", t.opts.Path), observe.F("error", err))
		return
	}

	// lastUpdated is informational and may be in either timestamp form.
	var f struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		t.opts.Logger.Warn(ctx, "usage history corrupt, starting empty", observe.F("path", t.opts.Path), observe.F("error", err))
		return
	}
	t.entries = f.Entries
	if over := len(t.entries) - t.opts.MaxEntries; over > 0 {
		t.entries = t.entries[over:]
	}
}

func (t *Tracker) saveLocked(ctx context.Context) {
	if t.opts.Path == "" {
		return
	}
	if err := writeFileAtomic(t.opts.Path, fileFormat{LastUpdated: t.opts.Now().UTC(), Entries: t.entries}); err != nil {
		t.opts.Logger.Warn(ctx, "usage history not saved", observe.F("path", t.opts.Path), observe.F("error", err))
	}
}

func writeFileAtomic(path string, v fileFormat) error {
	if v.Entries == nil {
		v.Entries = []Entry{}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode usage history: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".usage-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
