// Package retry runs operations with exponential-backoff retry.
package retry

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"

	"creativegen/internal/clock"
	"creativegen/internal/domain"
	"creativegen/internal/infra"
)

// Policy is immutable for the life of an executor.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Retryable    []domain.Kind
}

// DefaultPolicy retries rate-limit and timeout failures three times,
// starting at 30s and doubling up to 5m.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 30 * time.Second,
		MaxDelay:     300 * time.Second,
		Multiplier:   2,
		Retryable:    []domain.Kind{domain.KindRateLimitExceeded, domain.KindAPITimeout},
	}
}

// Delay returns the wait before the given retry; retry is 1-indexed and does
// not count the first try.
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(retry-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	// Without a cap, large retry indexes saturate instead of overflowing.
	if d >= math.MaxInt64 || math.IsInf(d, 1) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// IsRetryable reports whether err's kind is in the retryable set.
func (p Policy) IsRetryable(err error) bool {
	kind := domain.KindOf(err)
	for _, k := range p.Retryable {
		if k == kind {
			return true
		}
	}
	return false
}

// ExhaustedError is returned once every retry has failed.
type ExhaustedError struct {
	Label   string
	Retries int
	Last    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d retries: %v", e.Label, e.Retries, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Options configures an Executor.
type Options struct {
	Policy Policy
	Clock  clock.Clock
	Logger *infra.Logger
}

// Executor applies a Policy to operations.
type Executor struct {
	policy Policy
	clock  clock.Clock
	logger *infra.Logger
}

// NewExecutor builds an Executor. A zero Policy is replaced by DefaultPolicy.
func NewExecutor(opts Options) *Executor {
	policy := opts.Policy
	if policy.InitialDelay == 0 && policy.MaxRetries == 0 && len(policy.Retryable) == 0 {
		policy = DefaultPolicy()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Executor{policy: policy, clock: clk, logger: logger}
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy { return e.policy }

// Run calls op until it succeeds, fails with a non-retryable error, or the
// retries run out.
func (e *Executor) Run(ctx context.Context, label string, op func(ctx context.Context) error) error {
	_, err := Do(ctx, e, label, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is Run for operations that produce a value.
func Do[T any](ctx context.Context, e *Executor, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for retry := 0; ; retry++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !e.policy.IsRetryable(err) {
			return zero, err
		}
		if retry >= e.policy.MaxRetries {
			e.logger.Error().
				Err(err).
				Str("label", label).
				Int("retries", retry).
				Msg("retry: giving up")
			return zero, &ExhaustedError{Label: label, Retries: retry, Last: err}
		}
		delay := e.policy.Delay(retry + 1)
		e.logger.Warn().
			Err(err).
			Str("label", label).
			Str("kind", string(domain.KindOf(err))).
			Int("retry", retry+1).
			Int("max_retries", e.policy.MaxRetries).
			Dur("delay", delay).
			Msg("retry: retrying after error")
		if err := e.clock.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}
