package domain

import "context"

// RequestRepository persists queued generation requests for the API and the
// worker.
type RequestRepository interface {
	Enqueue(ctx context.Context, req GenerationRequest) (*QueuedRequest, error)
	GetByID(ctx context.Context, id string) (*QueuedRequest, error)
	// ClaimNext moves the oldest QUEUED request to RUNNING. It returns
	// ErrNotFound when the queue is empty.
	ClaimNext(ctx context.Context) (*QueuedRequest, error)
	Complete(ctx context.Context, id string, report *Report) error
	Fail(ctx context.Context, id string, code Kind, message string) error
	// FailOrphaned marks RUNNING requests as FAILED and returns how many
	// were changed.
	FailOrphaned(ctx context.Context, message string) (int64, error)
}
