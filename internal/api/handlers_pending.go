package api

import (
	"encoding/json"
	"net/http"

	"github.com/flogvit/wikiportraits/internal/pending"
	"github.com/flogvit/wikiportraits/internal/roster"
)

func (r *Router) handleCreatePending(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Kind  pending.Kind  `json:"kind"`
		Attrs pending.Attrs `json:"attrs"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	e, err := r.session.AddPending(req.Context(), body.Kind, body.Attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (r *Router) handleListPending(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pending": r.session.Pending()})
}

func (r *Router) handleDeletePending(w http.ResponseWriter, req *http.Request) {
	localID := req.PathValue("localID")
	if err := r.session.RemovePending(req.Context(), localID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (r *Router) handlePromotePending(w http.ResponseWriter, req *http.Request) {
	localID := req.PathValue("localID")

	var body struct {
		OrgID     string           `json:"org_id"`
		Performer roster.Performer `json:"performer"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.OrgID == "" {
		body.OrgID, _ = r.session.Current()
	}

	view, err := r.session.Promote(req.Context(), body.OrgID, localID, body.Performer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
