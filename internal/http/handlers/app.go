package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"scenestudio/internal/domain"
	"scenestudio/internal/infra"
	"scenestudio/internal/session"
)

// App bundles what the handlers need: the session resolver and the limits
// that shape request parsing.
type App struct {
	Sessions       *session.Manager
	Logger         infra.Logger
	MaxUploadBytes int64
}

func NewApp(sessions *session.Manager, logger infra.Logger, maxUploadBytes int64) *App {
	return &App{Sessions: sessions, Logger: logger, MaxUploadBytes: maxUploadBytes}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

// domainError maps an orchestrator error onto the API status scheme:
// conflicts 409, validation 422, missing things 404, upstream trouble 502.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOperationInFlight):
		a.error(w, http.StatusConflict, "operation_in_flight", err.Error())
	case domain.IsValidation(err):
		a.error(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNoResult), errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case domain.IsService(err):
		a.error(w, http.StatusBadGateway, "generation_failed", err.Error())
	default:
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
