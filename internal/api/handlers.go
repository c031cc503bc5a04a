package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/flogvit/wikiportraits/internal/graph"
	"github.com/flogvit/wikiportraits/internal/pending"
	"github.com/flogvit/wikiportraits/internal/session"
	"github.com/flogvit/wikiportraits/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

// writeError maps engine errors onto HTTP status codes: validation 400,
// missing resources 404, graph outages 502.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation *pending.ErrValidation
		selection  *session.ErrInvalidSelection
		notFound   *session.ErrPendingNotFound
		graphDown  *graph.ErrGraphUnavailable
		missing    *graph.ErrNotFound
		stale      *session.ErrStaleSelection
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &selection):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &notFound), errors.As(err, &missing):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &stale):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &graphDown):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "soft": true})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
