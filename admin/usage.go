package admin

import (
	"net/http"
	"strconv"
	"time"
)

func (s *server) usageSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var window time.Duration
	if h := q.Get("hours"); h != "" {
		hours, err := strconv.ParseFloat(h, 64)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be a positive number")
			return
		}
		window = time.Duration(hours * float64(time.Hour))
	}

	writeJSON(w, http.StatusOK, s.opts.Usage.Summary(r.Context(), q.Get("tool"), window))
}

func (s *server) usageRecent(w http.ResponseWriter, r *http.Request) {
	var n int
	if c := r.URL.Query().Get("count"); c != "" {
		var err error
		n, err = strconv.Atoi(c)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.opts.Usage.Recent(r.Context(), n)})
}

func (s *server) clearUsage(w http.ResponseWriter, r *http.Request) {
	s.opts.Usage.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
