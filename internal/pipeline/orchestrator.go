// Package pipeline runs a generation request end to end: validation, policy
// gate, plan build, rate-limited and retried remote generation, quality gate
// and cost accounting.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"creativegen/internal/batch"
	"creativegen/internal/clock"
	"creativegen/internal/domain"
	"creativegen/internal/infra"
	"creativegen/internal/ledger"
	"creativegen/internal/media"
	"creativegen/internal/plan"
	"creativegen/internal/policy"
	"creativegen/internal/poller"
	"creativegen/internal/providers/video"
	"creativegen/internal/quality"
	"creativegen/internal/ratelimit"
	"creativegen/internal/retry"
)

// DefaultConcurrency is the batch group size.
const DefaultConcurrency = 3

// Options wires an Orchestrator. Service and Scorer are required; every
// other zero field gets a private default, so two orchestrators never share
// a limiter or ledger unless the caller passes the same one to both.
type Options struct {
	Service   video.Service
	Scorer    quality.Scorer
	Validator media.Validator
	Policy    policy.Checker
	Renderer  plan.Renderer

	Limiter *ratelimit.Window
	Ledger  *ledger.Ledger
	Pricing ledger.Pricing

	Retry        retry.Policy
	PollInterval time.Duration
	PollTimeout  time.Duration
	Concurrency  int
	MinScore     float64

	Clock  clock.Clock
	Logger *infra.Logger
}

// Orchestrator owns the process-lifetime state of the pipeline.
type Orchestrator struct {
	service   video.Service
	scorer    quality.Scorer
	validator media.Validator
	policy    policy.Checker
	renderer  plan.Renderer

	limiter  *ratelimit.Window
	ledger   *ledger.Ledger
	pricing  ledger.Pricing
	executor *retry.Executor
	poller   *poller.Poller

	concurrency int
	minScore    float64
	clock       clock.Clock
	logger      *infra.Logger
}

// New validates the wiring. A missing service or scorer is a
// ConfigurationError.
func New(opts Options) (*Orchestrator, error) {
	if opts.Service == nil {
		return nil, domain.Errorf(domain.KindConfiguration, "pipeline", "generation service is required")
	}
	if opts.Scorer == nil {
		return nil, domain.Errorf(domain.KindConfiguration, "pipeline", "quality scorer is required")
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	validator := opts.Validator
	if validator == nil {
		validator = media.Auto{Probe: media.NewProbe(media.ProbeOptions{Logger: logger}), Remote: media.Remote{}}
	}
	checker := opts.Policy
	if checker == nil {
		checker = policy.Static{}
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = plan.TemplateRenderer{}
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewWindow(ratelimit.Options{Clock: clk, Logger: logger})
	}
	book := opts.Ledger
	if book == nil {
		book = ledger.New(ledger.Options{Clock: clk, Logger: logger})
	}
	pricing := opts.Pricing
	if len(pricing.PerSecond) == 0 {
		pricing = ledger.DefaultPricing()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = quality.DefaultMinScore
	}

	return &Orchestrator{
		service:     opts.Service,
		scorer:      opts.Scorer,
		validator:   validator,
		policy:      checker,
		renderer:    renderer,
		limiter:     limiter,
		ledger:      book,
		pricing:     pricing,
		executor:    retry.NewExecutor(retry.Options{Policy: opts.Retry, Clock: clk, Logger: logger}),
		poller:      poller.New(poller.Options{Fetcher: opts.Service, Interval: opts.PollInterval, Timeout: opts.PollTimeout, Clock: clk, Logger: logger}),
		concurrency: concurrency,
		minScore:    minScore,
		clock:       clk,
		logger:      logger,
	}, nil
}

// Ledger exposes the orchestrator's cost ledger.
func (o *Orchestrator) Ledger() *ledger.Ledger { return o.ledger }

type itemOutcome struct {
	job *domain.GenerationJob
	err error
}

// Generate runs req to completion. It returns an error only when the request
// fails validation or the policy gate, or when ctx ends; every other failure
// is reported per item in the returned Report.
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Report, error) {
	start := o.clock.Now()
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := o.validator.Validate(ctx, req.SourceMedia); err != nil {
		if domain.KindOf(err) != domain.KindValidation {
			err = domain.Wrap(domain.KindValidation, "pipeline: validate media", err)
		}
		return nil, err
	}

	verdict, err := o.policy.Check(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("pipeline: policy check: %w", err)
	}
	if verdict.Risk != policy.RiskSafe {
		o.logger.Warn().Str("risk", string(verdict.Risk)).Strs("details", verdict.Details).Msg("pipeline: policy gate rejected request")
		return nil, &domain.Error{
			Kind:    domain.KindPolicyViolation,
			Op:      "pipeline: policy",
			Message: fmt.Sprintf("risk level %s", verdict.Risk),
			Details: verdict.Details,
		}
	}

	plans, err := plan.Build(req, o.renderer)
	if err != nil {
		return nil, err
	}
	o.logger.Info().Int("items", len(plans)).Int("concurrency", o.concurrency).Msg("pipeline: generation started")

	outcomes, err := batch.RunAll(ctx, plans, o.concurrency, func(ctx context.Context, _ int, p domain.GenerationPlan) (itemOutcome, error) {
		job, err := o.generateItem(ctx, req, p)
		if err != nil && ctx.Err() != nil {
			return itemOutcome{}, ctx.Err()
		}
		return itemOutcome{job: job, err: err}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: generate: %w", err)
	}

	report := &domain.Report{Succeeded: []domain.SucceededItem{}, Failed: []domain.FailedItem{}}
	for i, out := range outcomes {
		o.settle(ctx, report, req, plans[i], out)
	}
	report.Duration = o.clock.Now().Sub(start)
	o.logger.Info().
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Float64("cost", report.TotalCost).
		Dur("duration", report.Duration).
		Msg("pipeline: generation finished")
	return report, nil
}

// generateItem submits one plan and polls it to a terminal state. Each
// attempt, retries included, takes a limiter slot. Only a poll timeout or a
// failed submit leads to a new submission; the poller absorbs transient
// status errors against the same job.
func (o *Orchestrator) generateItem(ctx context.Context, req domain.GenerationRequest, p domain.GenerationPlan) (*domain.GenerationJob, error) {
	label := fmt.Sprintf("item %d", p.Index)
	return retry.Do(ctx, o.executor, label, func(ctx context.Context) (*domain.GenerationJob, error) {
		if err := o.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		jobID, err := o.service.Submit(ctx, video.SubmitRequest{
			Prompt:      p.Prompt,
			Duration:    req.DurationSeconds,
			AspectRatio: p.AspectRatio,
			Resolution:  string(req.Resolution),
			FrameRate:   req.FrameRate,
			SourceMedia: req.SourceMedia,
		})
		if err != nil {
			return nil, err
		}
		o.logger.Debug().Str("label", label).Str("job_id", jobID).Msg("pipeline: submitted")
		return o.poller.Await(ctx, jobID)
	})
}

// settle applies the quality gate and cost accounting to one item and
// appends it to exactly one of the report lists.
func (o *Orchestrator) settle(ctx context.Context, report *domain.Report, req domain.GenerationRequest, p domain.GenerationPlan, out itemOutcome) {
	fail := func(code domain.Kind, reason string, score float64) {
		report.Failed = append(report.Failed, domain.FailedItem{Index: p.Index, Code: code, Reason: reason, Prompt: p.Prompt, Score: score})
		o.logger.Warn().Int("index", p.Index).Str("code", string(code)).Str("reason", reason).Msg("pipeline: item failed")
	}

	if out.err != nil {
		fail(itemCode(out.err), out.err.Error(), 0)
		return
	}

	score, err := o.scorer.Score(ctx, *out.job)
	if err != nil {
		fail(itemCode(err), fmt.Sprintf("quality scoring: %v", err), 0)
		return
	}
	if !score.Passes(o.minScore) {
		fail(domain.KindQualityTooLow, fmt.Sprintf("quality score %.1f below %.1f", score.Overall, o.minScore), score.Overall)
		return
	}

	cost, err := o.pricing.Cost(float64(req.DurationSeconds), req.Resolution)
	if err != nil {
		fail(itemCode(err), err.Error(), score.Overall)
		return
	}
	receipt, err := o.ledger.Record(ctx, cost, fmt.Sprintf("job %s item %d %s %ds", out.job.ID, p.Index, req.Resolution, req.DurationSeconds))
	if err != nil {
		o.logger.Error().Err(err).Int("index", p.Index).Msg("pipeline: ledger persistence failed")
	}
	// One budget warning per report; later receipts only repeat it.
	if receipt.Warning != "" && len(report.Warnings) == 0 {
		report.Warnings = append(report.Warnings, receipt.Warning)
	}
	report.TotalCost += cost
	report.Succeeded = append(report.Succeeded, domain.SucceededItem{Plan: p, Job: *out.job, Score: score.Overall, Cost: cost})
}

// itemCode is the machine-readable code recorded for a failed item. An
// exhausted retry unwraps to its last cause, so its kind is kept.
func itemCode(err error) domain.Kind {
	if kind := domain.KindOf(err); kind != domain.KindUnknown && kind != "" {
		return kind
	}
	return domain.KindGenerationFailed
}
