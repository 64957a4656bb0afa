package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"creativegen/internal/domain"
	"creativegen/internal/infra"
	"creativegen/internal/ledger"
)

// App carries the dependencies of the HTTP handlers.
type App struct {
	Requests domain.RequestRepository
	// Spend reports month-to-date ledger totals.
	Spend     ledger.Store
	Budget    float64
	WarnRatio float64
	// Ping checks backing services for the health endpoint.
	Ping   func(ctx context.Context) error
	Now    func() time.Time
	Logger *infra.Logger
}

// logger prefers the request-scoped logger installed by the HTTP middleware.
func (a *App) logger(ctx context.Context) *infra.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if a.Logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		a.Logger = &l
	}
	return a.Logger
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string, details ...string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: message, Details: details}})
}

// domainError maps a classified error to an HTTP response.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		status := http.StatusInternalServerError
		switch derr.Kind {
		case domain.KindValidation:
			status = http.StatusBadRequest
		case domain.KindPolicyViolation:
			status = http.StatusUnprocessableEntity
		}
		a.error(w, status, string(derr.Kind), derr.Message, derr.Details...)
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	a.logger(r.Context()).Error().Err(err).Msg("http: internal error")
	a.error(w, http.StatusInternalServerError, "internal", "internal error")
}
