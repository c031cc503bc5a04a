package api

import (
	"net/http"
	"strings"

	"github.com/flogvit/wikiportraits/internal/event"
)

func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	q := strings.TrimSpace(req.URL.Query().Get("q"))
	relevant := req.URL.Query().Get("relevant") == "1"

	result := r.searcher.Search(req.Context(), q, relevant)
	if result.Failed {
		r.publish(event.SearchFailed, map[string]any{"query": result.Query})
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"query":  result.Query,
			"failed": true,
			"soft":   true,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":      result.Query,
		"performers": result.Performers,
	})
}

func (r *Router) handleOrgSearch(w http.ResponseWriter, req *http.Request) {
	q := strings.TrimSpace(req.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	hits, err := r.graph.SearchEntities(req.Context(), q, 10, "en")
	if err != nil {
		r.publish(event.SearchFailed, map[string]any{"query": q, "error": err.Error()})
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "results": hits})
}

func (r *Router) publish(t event.Type, data map[string]any) {
	if r.bus != nil {
		r.bus.Publish(event.Event{Type: t, Data: data})
	}
}
