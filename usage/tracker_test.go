package usage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/metatools/observe"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTracker_RecordFillsIDAndTimestamp(t *testing.T) {
	clock := newClock()
	tr := NewTracker(Options{Now: clock.Now})

	e := tr.Record(context.Background(), Entry{Tool: "l7_query", Provider: "supabase", Success: true})

	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), e.Timestamp)
	assert.Equal(t, 1, tr.Len(context.Background()))
}

func TestTracker_Summary(t *testing.T) {
	clock := newClock()
	tr := NewTracker(Options{Now: clock.Now})
	ctx := context.Background()

	tr.Record(ctx, Entry{Tool: "browser_snapshot", Provider: "browser", CacheHit: true, DurationMs: 2, Success: true})
	tr.Record(ctx, Entry{Tool: "browser_snapshot", Provider: "browser", DurationMs: 400, Success: true})
	tr.Record(ctx, Entry{Tool: "l7_query", Provider: "supabase", CacheHit: true, DurationMs: 6, Success: true})
	tr.Record(ctx, Entry{Tool: "feedly_stream", Provider: "feedly", DurationMs: 92, Success: false, Error: "feedly API error (502): bad gateway"})

	s := tr.Summary(ctx, "", 0)
	assert.Equal(t, 4, s.TotalCalls)
	assert.Equal(t, 2, s.CacheHits)
	assert.InDelta(t, 0.5, s.CacheHitRate, 1e-9)
	assert.InDelta(t, 0.75, s.SuccessRate, 1e-9)
	assert.InDelta(t, 125.0, s.AvgDurationMs, 1e-9)
	assert.Equal(t, map[string]int{"browser": 2, "supabase": 1, "feedly": 1}, s.ProviderCalls)
	assert.Equal(t, 2000+800, s.EstimatedTokensSaved)

	s = tr.Summary(ctx, "browser_snapshot", time.Hour)
	assert.Equal(t, 2, s.TotalCalls)
	assert.Equal(t, 2000, s.EstimatedTokensSaved)
}

func TestTracker_SummaryWindow(t *testing.T) {
	clock := newClock()
	tr := NewTracker(Options{Now: clock.Now})
	ctx := context.Background()

	tr.Record(ctx, Entry{Tool: "old", CacheHit: true, Success: true})
	clock.Advance(2 * time.Hour)
	tr.Record(ctx, Entry{Tool: "new", Success: true})

	s := tr.Summary(ctx, "", time.Hour)
	assert.Equal(t, 1, s.TotalCalls)
	assert.Equal(t, 0, s.CacheHits)

	clock.Advance(time.Hour)
	s = tr.Summary(ctx, "", time.Hour)
	assert.Equal(t, Summary{ProviderCalls: map[string]int{}}, s, "entry exactly at the cutoff is excluded")
}

func TestTracker_UnknownToolUsesDefaultEstimate(t *testing.T) {
	tr := NewTracker(Options{})
	ctx := context.Background()
	tr.Record(ctx, Entry{Tool: "gdrive_list", CacheHit: true, Success: true})

	assert.Equal(t, DefaultTokenEstimate, tr.Summary(ctx, "", 0).EstimatedTokensSaved)
}

func TestTracker_RetainsMostRecent(t *testing.T) {
	tr := NewTracker(Options{MaxEntries: 3})
	ctx := context.Background()
	for i := range 5 {
		tr.Record(ctx, Entry{Tool: fmt.Sprintf("t%d", i)})
	}

	recent := tr.Recent(ctx, 10)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"t2", "t3", "t4"}, tools(recent))
	assert.Equal(t, []string{"t3", "t4"}, tools(tr.Recent(ctx, 2)))
}

func TestTracker_Clear(t *testing.T) {
	tr := NewTracker(Options{})
	ctx := context.Background()
	tr.Record(ctx, Entry{Tool: "x"})
	tr.Clear(ctx)

	assert.Empty(t, tr.Recent(ctx, 0))
	assert.Equal(t, 0, tr.Summary(ctx, "", 0).TotalCalls)
}

func TestTracker_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "usage.json")
	clock := newClock()
	ctx := context.Background()

	first := NewTracker(Options{Path: path, Now: clock.Now})
	first.Record(ctx, Entry{Tool: "l7_query", Provider: "supabase", CacheHit: true, DurationMs: 3, Success: true})
	first.Record(ctx, Entry{Tool: "l7_insert", Provider: "supabase", DurationMs: 40, Success: true})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		LastUpdated time.Time `json:"lastUpdated"`
		Entries     []Entry   `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.True(t, doc.LastUpdated.Equal(clock.Now()))
	assert.Len(t, doc.Entries, 2)

	second := NewTracker(Options{Path: path, Now: clock.Now})
	assert.Equal(t, []string{"l7_query", "l7_insert"}, tools(second.Recent(ctx, 0)))
	assert.Equal(t, 1, second.Summary(ctx, "", 0).CacheHits)

	second.Clear(ctx)
	third := NewTracker(Options{Path: path, Now: clock.Now})
	assert.Equal(t, 0, third.Len(ctx))
}

func TestTracker_LoadsMillisecondTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")
	clock := newClock()
	ms := clock.Now().Add(-time.Hour).UnixMilli()
	doc := fmt.Sprintf(`{
  "lastUpdated": %d,
  "entries": [
    {"id": "a", "timestamp": %d, "tool": "l7_query", "provider": "supabase", "cacheHit": true, "durationMs": 2, "success": true},
    {"id": "b", "timestamp": "2026-03-01T11:30:00Z", "tool": "l7_insert", "provider": "supabase", "durationMs": 9, "success": true}
  ]
}`, ms, ms)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	var logs bytes.Buffer
	tr := NewTracker(Options{Path: path, Now: clock.Now, Logger: observe.NewLoggerWithWriter("warn", &logs)})
	ctx := context.Background()

	recent := tr.Recent(ctx, 0)
	require.Len(t, recent, 2)
	assert.Empty(t, logs.String())
	assert.True(t, recent[0].Timestamp.Equal(time.UnixMilli(ms)))
	assert.True(t, recent[1].Timestamp.Equal(time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC)))

	sum := tr.Summary(ctx, "", 2*time.Hour)
	assert.Equal(t, 2, sum.TotalCalls)
	assert.Equal(t, 1, sum.CacheHits)
}

func TestTracker_CorruptFileIsLoggedAndIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	var logs bytes.Buffer
	tr := NewTracker(Options{Path: path, Logger: observe.NewLoggerWithWriter("warn", &logs)})
	ctx := context.Background()

	assert.Equal(t, 0, tr.Len(ctx))
	assert.Contains(t, logs.String(), "usage history corrupt")

	tr.Record(ctx, Entry{Tool: "x", Success: true})
	assert.Equal(t, 1, NewTracker(Options{Path: path}).Len(ctx))
}

func TestTracker_SaveFailureDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	var logs bytes.Buffer
	tr := NewTracker(Options{Path: filepath.Join(blocker, "usage.json"), Logger: observe.NewLoggerWithWriter("warn", &logs)})

	e := tr.Record(context.Background(), Entry{Tool: "x"})
	assert.NotEmpty(t, e.ID)
	assert.Contains(t, logs.String(), "usage history not saved")
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker(Options{MaxEntries: 50})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 25 {
				tr.Record(ctx, Entry{Tool: fmt.Sprintf("t%d-%d", i, j), CacheHit: j%2 == 0})
				_ = tr.Summary(ctx, "", 0)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, tr.Len(ctx))
}

func tools(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Tool
	}
	return out
}
