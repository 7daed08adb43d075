package handlers

import (
	"encoding/json"
	"net/http"
)

// State returns the current session snapshot.
func (a *App) State(w http.ResponseWriter, r *http.Request) {
	st := a.Sessions.Resolve(w, r)
	a.json(w, http.StatusOK, st.Snapshot())
}

type updateStateRequest struct {
	Description *string `json:"description"`
	SceneID     *string `json:"scene_id"`
	StyleID     *string `json:"style_id"`
}

// UpdateState applies selection changes so they survive a page reload. Only
// the fields present in the body are touched.
func (a *App) UpdateState(w http.ResponseWriter, r *http.Request) {
	st := a.Sessions.Resolve(w, r)
	var req updateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	snap := st.Snapshot()
	if req.Description != nil {
		snap = st.SetDescription(*req.Description)
	}
	if req.SceneID != nil {
		var err error
		if snap, err = st.SelectScene(*req.SceneID); err != nil {
			a.domainError(w, err)
			return
		}
	}
	if req.StyleID != nil {
		var err error
		if snap, err = st.SelectStyle(*req.StyleID); err != nil {
			a.domainError(w, err)
			return
		}
	}
	a.json(w, http.StatusOK, snap)
}

// Reset tears the session back to its initial state.
func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	st := a.Sessions.Resolve(w, r)
	a.json(w, http.StatusOK, st.Reset())
}
