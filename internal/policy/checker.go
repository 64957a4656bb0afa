// Package policy gates a request on content policy before anything is
// generated.
package policy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"creativegen/internal/domain"
	"creativegen/internal/infra"
)

// Risk is the checker's overall verdict. Only RiskSafe lets a run proceed.
type Risk string

const (
	RiskSafe   Risk = "safe"
	RiskReview Risk = "review"
	RiskUnsafe Risk = "unsafe"
)

func (r Risk) rank() int {
	switch r {
	case RiskSafe:
		return 0
	case RiskReview:
		return 1
	default:
		return 2
	}
}

// Verdict is the structured result of a policy check.
type Verdict struct {
	Risk    Risk     `json:"risk"`
	Details []string `json:"details,omitempty"`
}

// Checker inspects a request. Detection internals are opaque to callers.
type Checker interface {
	Check(ctx context.Context, req domain.GenerationRequest) (Verdict, error)
}

// Static always returns the same verdict.
type Static struct {
	Verdict Verdict
}

func (s Static) Check(context.Context, domain.GenerationRequest) (Verdict, error) {
	if s.Verdict.Risk == "" {
		return Verdict{Risk: RiskSafe}, nil
	}
	return s.Verdict, nil
}

// Chain runs every checker and keeps the worst verdict, merging details.
type Chain []Checker

func (c Chain) Check(ctx context.Context, req domain.GenerationRequest) (Verdict, error) {
	out := Verdict{Risk: RiskSafe}
	for _, checker := range c {
		v, err := checker.Check(ctx, req)
		if err != nil {
			return Verdict{}, err
		}
		if v.Risk.rank() > out.Risk.rank() {
			out.Risk = v.Risk
		}
		out.Details = append(out.Details, v.Details...)
	}
	return out, nil
}

// ModerationOptions configures the OpenAI-backed checker.
type ModerationOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	// RequestOptions are appended after the key and base URL.
	RequestOptions []option.RequestOption
	Logger         *infra.Logger
}

// Moderation screens the request's free text (augmentations) with the
// OpenAI moderation endpoint. Any flagged input makes the verdict unsafe.
type Moderation struct {
	client openai.Client
	model  string
	logger *infra.Logger
}

var ErrMissingAPIKey = errors.New("policy: openai api key is required")

func NewModeration(opts ModerationOptions) (*Moderation, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, domain.Wrap(domain.KindConfiguration, "policy", ErrMissingAPIKey)
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	reqOpts = append(reqOpts, opts.RequestOptions...)
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "omni-moderation-latest"
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Moderation{client: openai.NewClient(reqOpts...), model: model, logger: logger}, nil
}

func (m *Moderation) Check(ctx context.Context, req domain.GenerationRequest) (Verdict, error) {
	if len(req.Augmentations) == 0 {
		return Verdict{Risk: RiskSafe}, nil
	}
	resp, err := m.client.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfStringArray: req.Augmentations},
		Model: openai.ModerationModel(m.model),
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("policy: moderation: %w", err)
	}
	out := Verdict{Risk: RiskSafe}
	for i, result := range resp.Results {
		if !result.Flagged || i >= len(req.Augmentations) {
			continue
		}
		out.Risk = RiskUnsafe
		out.Details = append(out.Details, fmt.Sprintf("augmentation %d flagged by moderation: %q", i+1, req.Augmentations[i]))
	}
	m.logger.Debug().Str("risk", string(out.Risk)).Int("inputs", len(req.Augmentations)).Msg("policy: moderation checked")
	return out, nil
}
