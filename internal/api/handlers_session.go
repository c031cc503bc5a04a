package api

import (
	"encoding/json"
	"net/http"
)

func (r *Router) handleSelectOrg(w http.ResponseWriter, req *http.Request) {
	var body struct {
		OrgID string `json:"org_id"`
		Force bool   `json:"force"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	view, err := r.session.SelectOrg(req.Context(), body.OrgID, body.Force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.session.Roster())
}

func (r *Router) handleGetRoster(w http.ResponseWriter, req *http.Request) {
	view := r.session.Roster()
	writeJSON(w, http.StatusOK, map[string]any{
		"org_id":     view.OrgID,
		"performers": view.Performers,
		"partial":    view.Partial,
	})
}
