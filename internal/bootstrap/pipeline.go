// Package bootstrap assembles a pipeline.Orchestrator from process
// configuration for the worker and the one-shot CLI.
package bootstrap

import (
	"context"
	"fmt"

	"creativegen/internal/infra"
	"creativegen/internal/ledger"
	"creativegen/internal/media"
	"creativegen/internal/pipeline"
	"creativegen/internal/policy"
	"creativegen/internal/providers/video"
	"creativegen/internal/quality"
	"creativegen/internal/ratelimit"
	"creativegen/internal/retry"
)

// Keys are the resolved provider credentials.
type Keys struct {
	Video  string
	OpenAI string
}

// Deps overrides collaborators that would otherwise be built from Config.
type Deps struct {
	Service video.Service
	Scorer  quality.Scorer
	Store   ledger.Store
}

// Orchestrator builds the pipeline and seeds its ledger with month-to-date
// spend from deps.Store. The moderation checker is chained behind the static
// one only when an OpenAI key is present.
func Orchestrator(ctx context.Context, cfg *infra.Config, keys Keys, deps Deps, logger *infra.Logger) (*pipeline.Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}

	service := deps.Service
	if service == nil {
		client, err := video.NewClient(video.Options{
			APIKey:         keys.Video,
			BaseURL:        cfg.VideoBaseURL,
			RequestTimeout: cfg.VideoRequestTimeout,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: video client: %w", err)
		}
		service = client
	}

	checker := policy.Chain{policy.Static{}}
	if keys.OpenAI != "" {
		moderation, err := policy.NewModeration(policy.ModerationOptions{
			APIKey:  keys.OpenAI,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModerationModel,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: moderation: %w", err)
		}
		checker = append(checker, moderation)
	} else if logger != nil {
		logger.Warn().Msg("bootstrap: openai api key missing, moderation disabled")
	}

	scorer := deps.Scorer
	if scorer == nil {
		scorer = quality.Fixed{Overall: cfg.QualityFixedScore}
	}

	book := ledger.New(ledger.Options{
		Budget:    cfg.MonthlyBudget,
		WarnRatio: cfg.BudgetWarnRatio,
		Store:     deps.Store,
		Logger:    logger,
	})
	if err := book.Load(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	policyRetry := retry.DefaultPolicy()
	policyRetry.MaxRetries = cfg.RetryMax
	if cfg.RetryInitial > 0 {
		policyRetry.InitialDelay = cfg.RetryInitial
	}
	if cfg.RetryMaxDelay > 0 {
		policyRetry.MaxDelay = cfg.RetryMaxDelay
	}

	return pipeline.New(pipeline.Options{
		Service: service,
		Scorer:  scorer,
		Validator: media.Auto{
			Probe:  media.NewProbe(media.ProbeOptions{Binary: cfg.FFProbeBin, Logger: logger}),
			Remote: media.Remote{},
		},
		Policy: checker,
		Limiter: ratelimit.NewWindow(ratelimit.Options{
			Capacity: cfg.RateLimitPerWindow,
			Span:     cfg.RateLimitWindow,
			Logger:   logger,
		}),
		Ledger:       book,
		Retry:        policyRetry,
		PollInterval: cfg.PollInterval,
		PollTimeout:  cfg.JobTimeout,
		Concurrency:  cfg.BatchConcurrency,
		MinScore:     cfg.QualityMinScore,
		Logger:       logger,
	})
}
