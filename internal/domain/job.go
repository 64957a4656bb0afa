package domain

import "time"

// JobStatus enumerates the remote job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// InFlight reports whether the job still needs polling. Queued and
// processing are treated identically.
func (s JobStatus) InFlight() bool {
	return s == JobStatusQueued || s == JobStatusProcessing
}

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobResult is the payload of a completed job.
type JobResult struct {
	VideoURL   string `json:"video_url"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// GenerationJob tracks one remote asynchronous generation task.
type GenerationJob struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Progress  int        `json:"progress"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	Polls     int        `json:"polls"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
}

// RequestStatus enumerates the lifecycle of a queued generation request.
type RequestStatus string

const (
	RequestStatusQueued    RequestStatus = "QUEUED"
	RequestStatusRunning   RequestStatus = "RUNNING"
	RequestStatusSucceeded RequestStatus = "SUCCEEDED"
	RequestStatusFailed    RequestStatus = "FAILED"
)

// QueuedRequest is a generation request persisted for the worker.
type QueuedRequest struct {
	ID           string
	Status       RequestStatus
	Request      GenerationRequest
	Report       *Report
	ErrorCode    Kind
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
