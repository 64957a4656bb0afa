package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"creativegen/internal/domain"
	"creativegen/internal/report"
)

const maxRequestBody = 64 << 10

type generationResponse struct {
	ID           string                   `json:"id"`
	Status       domain.RequestStatus     `json:"status"`
	Request      domain.GenerationRequest `json:"request"`
	Report       *domain.Report           `json:"report,omitempty"`
	ErrorCode    domain.Kind              `json:"error_code,omitempty"`
	ErrorMessage string                   `json:"error_message,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

func toResponse(q *domain.QueuedRequest) generationResponse {
	return generationResponse{
		ID:           q.ID,
		Status:       q.Status,
		Request:      q.Request,
		Report:       q.Report,
		ErrorCode:    q.ErrorCode,
		ErrorMessage: q.ErrorMessage,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}
}

// GenerationsCreate validates and enqueues a request for the worker.
func (a *App) GenerationsCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		a.domainError(w, r, err)
		return
	}
	queued, err := a.Requests.Enqueue(r.Context(), req)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.logger(r.Context()).Info().Str("generation_id", queued.ID).Int("count", req.Count).Msg("http: generation enqueued")
	w.Header().Set("Location", "/v1/generations/"+queued.ID)
	a.json(w, http.StatusAccepted, map[string]any{"id": queued.ID, "status": queued.Status})
}

// GenerationsGet returns a request's status and, once finished, its report.
func (a *App) GenerationsGet(w http.ResponseWriter, r *http.Request) {
	q, err := a.Requests.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toResponse(q))
}

// GenerationsReport serves a finished request's report as json, md, html or
// a zip bundle of all three.
func (a *App) GenerationsReport(w http.ResponseWriter, r *http.Request) {
	q, err := a.Requests.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if q.Status != domain.RequestStatusSucceeded || q.Report == nil {
		a.error(w, http.StatusConflict, "not_ready", "report is not available for status "+string(q.Status))
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "md"
	}
	if format == "zip" {
		body, err := report.Bundle(q.Report, q.UpdatedAt)
		if err != nil {
			a.domainError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="report-`+q.ID+`.zip"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	artifacts, err := report.Artifacts(q.Report)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	for _, art := range artifacts {
		if art.Name == "report."+format {
			w.Header().Set("Content-Type", art.ContentType)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(art.Data)
			return
		}
	}
	a.error(w, http.StatusBadRequest, "bad_request", "format must be one of json, md, html, zip")
}
