package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"creativegen/internal/domain"
	"creativegen/internal/infra"
	"creativegen/internal/sqlinline"
)

// RequestRepositoryPG implements domain.RequestRepository.
type RequestRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRequestRepository creates a request repository backed by PostgreSQL.
func NewRequestRepository(sql infra.SQLExecutor) *RequestRepositoryPG {
	return &RequestRepositoryPG{sql: sql}
}

// Enqueue stores req as QUEUED under a fresh id.
func (r *RequestRepositoryPG) Enqueue(ctx context.Context, req domain.GenerationRequest) (*domain.QueuedRequest, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("repo: encode request: %w", err)
	}
	q := &domain.QueuedRequest{ID: uuid.NewString(), Status: domain.RequestStatusQueued, Request: req}
	if err := r.sql.QueryRow(ctx, sqlinline.QInsertGenerationRequest, q.ID, raw).Scan(&q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, fmt.Errorf("repo: enqueue: %w", err)
	}
	return q, nil
}

// GetByID fetches a request; domain.ErrNotFound when absent.
func (r *RequestRepositoryPG) GetByID(ctx context.Context, id string) (*domain.QueuedRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	q, err := scanRequest(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationRequest, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: get request: %w", err)
	}
	return q, nil
}

func (r *RequestRepositoryPG) ClaimNext(ctx context.Context) (*domain.QueuedRequest, error) {
	q, err := scanRequest(r.sql.QueryRow(ctx, sqlinline.QClaimGenerationRequest))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: claim request: %w", err)
	}
	return q, nil
}

func (r *RequestRepositoryPG) Complete(ctx context.Context, id string, report *domain.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("repo: encode report: %w", err)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QCompleteGenerationRequest, id, raw); err != nil {
		return fmt.Errorf("repo: complete request: %w", err)
	}
	return nil
}

func (r *RequestRepositoryPG) Fail(ctx context.Context, id string, code domain.Kind, message string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QFailGenerationRequest, id, string(code), message); err != nil {
		return fmt.Errorf("repo: fail request: %w", err)
	}
	return nil
}

func (r *RequestRepositoryPG) FailOrphaned(ctx context.Context, message string) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailOrphanedGenerationRequests, message)
	if err != nil {
		return 0, fmt.Errorf("repo: fail orphaned requests: %w", err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.QueuedRequest, error) {
	var (
		q          domain.QueuedRequest
		status     string
		requestRaw []byte
		reportRaw  []byte
		errorCode  string
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&q.ID, &status, &requestRaw, &reportRaw, &errorCode, &q.ErrorMessage, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	q.Status = domain.RequestStatus(status)
	q.ErrorCode = domain.Kind(errorCode)
	q.CreatedAt, q.UpdatedAt = createdAt, updatedAt
	if err := json.Unmarshal(requestRaw, &q.Request); err != nil {
		return nil, fmt.Errorf("decode request_json: %w", err)
	}
	if len(reportRaw) > 0 {
		var report domain.Report
		if err := json.Unmarshal(reportRaw, &report); err != nil {
			return nil, fmt.Errorf("decode report_json: %w", err)
		}
		q.Report = &report
	}
	return &q, nil
}

var _ domain.RequestRepository = (*RequestRepositoryPG)(nil)
