package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/metatools/provider"
)

const maxRelayBody = 1 << 20

func (s *server) relayCall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	relay, ok := s.opts.Relays[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider: "+name)
		return
	}

	var req provider.RelayRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRelayBody))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Tool == "" || req.Path == "" {
		writeError(w, http.StatusBadRequest, "tool and path are required")
		return
	}

	writeJSON(w, http.StatusOK, relay.Call(r.Context(), req))
}
