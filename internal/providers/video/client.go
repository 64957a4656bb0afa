package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"creativegen/internal/domain"
	"creativegen/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("video: api key is required")

// Service is the remote asynchronous generation contract.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Status(ctx context.Context, jobID string) (*StatusResponse, error)
}

// Options configures the HTTP client for the generation service.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to the generation service over HTTP+JSON.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// SubmitRequest is the body of a job submission.
type SubmitRequest struct {
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
	Resolution  string `json:"resolution"`
	FrameRate   int    `json:"fps"`
	SourceMedia string `json:"source_media,omitempty"`
}

// StatusResponse is the body of a status query.
type StatusResponse struct {
	Status   domain.JobStatus `json:"status"`
	Progress *int             `json:"progress,omitempty"`
	Result   *Result          `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Result carries the media produced by a completed job.
type Result struct {
	VideoURL   string `json:"video_url"`
	PreviewURL string `json:"preview_url,omitempty"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient constructs a client. A missing API key is a configuration error
// raised before any network activity.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, domain.Wrap(domain.KindConfiguration, "video", ErrMissingAPIKey)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.video-gen.example.com/v1"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Submit creates a remote job and returns its identifier.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", domain.Errorf(domain.KindValidation, "video: submit", "prompt is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("video: encode request: %w", err)
	}
	var decoded submitResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/generations", body, &decoded); err != nil {
		return "", err
	}
	if strings.TrimSpace(decoded.ID) == "" {
		return "", domain.Errorf(domain.KindUnknownRemote, "video: submit", "empty job id")
	}
	c.logger.Debug().
		Str("job_id", decoded.ID).
		Str("aspect_ratio", req.AspectRatio).
		Str("resolution", req.Resolution).
		Msg("video: job submitted")
	return decoded.ID, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (*StatusResponse, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, domain.Errorf(domain.KindValidation, "video: status", "job id is required")
	}
	var decoded StatusResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/generations/"+url.PathEscape(jobID), nil, &decoded); err != nil {
		return nil, err
	}
	switch decoded.Status {
	case domain.JobStatusQueued, domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobStatusFailed:
	default:
		return nil, domain.Errorf(domain.KindUnknownRemote, "video: status", "unexpected job status %q", decoded.Status)
	}
	return &decoded, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("video: build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return domain.Wrap(domain.KindAPITimeout, "video: http request", err)
		}
		return domain.Wrap(domain.KindUnknownRemote, "video: http request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("video: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.Wrap(domain.KindUnknownRemote, "video: decode response", err)
	}
	return nil
}

// statusError maps a non-2xx response onto the error taxonomy.
func statusError(status int, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
		msg = detail.Message
		if detail.Code != "" {
			msg = fmt.Sprintf("%s (%s)", detail.Message, detail.Code)
		}
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	kind := domain.KindUnknownRemote
	switch status {
	case http.StatusTooManyRequests:
		kind = domain.KindRateLimitExceeded
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		kind = domain.KindAPITimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = domain.KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = domain.KindConfiguration
	}
	return domain.Errorf(kind, "video", "status %d: %s", status, msg)
}

var _ Service = (*Client)(nil)
