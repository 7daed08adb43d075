package handlers

import (
	"encoding/json"
	"net/http"

	"scenestudio/internal/middleware"
)

type generateRequest struct {
	Description string `json:"description"`
	SceneID     string `json:"scene_id"`
	StyleID     string `json:"style_id"`
}

// Generate runs one image generation attempt and returns the refreshed
// snapshot.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	st := a.Sessions.Resolve(w, r)
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := st.GenerateImage(r.Context(), req.Description, req.SceneID, req.StyleID); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, st.Snapshot())
}

// Script derives the five-second clip script for the current result. Without
// a result there is nothing to do and the handler answers 204.
func (a *App) Script(w http.ResponseWriter, r *http.Request) {
	st := a.Sessions.Resolve(w, r)
	locale := middleware.LocaleFromContext(r.Context())
	ran, err := st.GenerateScript(r.Context(), locale)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if !ran {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	a.json(w, http.StatusOK, st.Snapshot())
}
