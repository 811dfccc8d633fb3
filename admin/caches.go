package admin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/metatools/provider"
)

// CacheView describes one provider cache.
type CacheView struct {
	Name         string  `json:"name"`
	Size         int     `json:"size"`
	MaxSize      int     `json:"maxSize"`
	FillRatio    float64 `json:"fillRatio"`
	DefaultTTLMs int64   `json:"defaultTtlMs"`
}

func cacheView(name string, st provider.Store) CacheView {
	stats := st.Stats()
	return CacheView{
		Name:         name,
		Size:         stats.Size,
		MaxSize:      stats.MaxSize,
		FillRatio:    stats.FillRatio(),
		DefaultTTLMs: st.DefaultTTL().Milliseconds(),
	}
}

func (s *server) listCaches(w http.ResponseWriter, r *http.Request) {
	names := s.opts.Caches.Names()
	views := make([]CacheView, 0, len(names))
	for _, name := range names {
		st, err := s.opts.Caches.Lookup(name)
		if err != nil {
			continue
		}
		views = append(views, cacheView(name, st))
	}
	writeJSON(w, http.StatusOK, map[string]any{"caches": views})
}

func (s *server) getCache(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, err := s.opts.Caches.Lookup(name)
	if errors.Is(err, provider.ErrUnknownProvider) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cacheView(name, st))
}

func (s *server) clearCache(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.opts.Caches.Clear(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) clearAllCaches(w http.ResponseWriter, r *http.Request) {
	s.opts.Caches.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}
