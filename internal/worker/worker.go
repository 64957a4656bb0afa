// Package worker drains the queued generation requests written by the API.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/rs/zerolog"

	"creativegen/internal/clock"
	"creativegen/internal/domain"
	"creativegen/internal/infra"
	"creativegen/internal/report"
)

// DefaultIdleInterval is the wait between claims when the queue is empty.
const DefaultIdleInterval = 2 * time.Second

// OrphanedMessage is recorded on requests left RUNNING by a dead worker.
const OrphanedMessage = "worker restarted before the request finished"

// Generator runs one request through the pipeline.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Report, error)
}

// Options configures a Worker.
type Options struct {
	Requests  domain.RequestRepository
	Generator Generator
	// Artifacts receives report.json, report.md and report.html per request.
	// Nil skips artifact writing.
	Artifacts    report.Writer
	IdleInterval time.Duration
	Clock        clock.Clock
	Logger       *infra.Logger
}

// Worker claims one request at a time and records its outcome.
type Worker struct {
	requests  domain.RequestRepository
	generator Generator
	artifacts report.Writer
	idle      time.Duration
	clock     clock.Clock
	logger    *infra.Logger
}

func New(opts Options) (*Worker, error) {
	if opts.Requests == nil {
		return nil, domain.Errorf(domain.KindConfiguration, "worker", "request repository is required")
	}
	if opts.Generator == nil {
		return nil, domain.Errorf(domain.KindConfiguration, "worker", "generator is required")
	}
	idle := opts.IdleInterval
	if idle <= 0 {
		idle = DefaultIdleInterval
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
	return &Worker{
		requests:  opts.Requests,
		generator: opts.Generator,
		artifacts: opts.Artifacts,
		idle:      idle,
		clock:     clk,
		logger:    logger,
	}, nil
}

// Recover fails requests a previous worker left RUNNING. In-flight remote
// jobs are not resumed.
func (w *Worker) Recover(ctx context.Context) (int64, error) {
	n, err := w.requests.FailOrphaned(ctx, OrphanedMessage)
	if err != nil {
		return 0, fmt.Errorf("worker: recover: %w", err)
	}
	if n > 0 {
		w.logger.Warn().Int64("requests", n).Msg("worker: marked orphaned requests failed")
	}
	return n, nil
}

// Run processes requests until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Dur("idle_interval", w.idle).Msg("worker: started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		processed, err := w.ProcessNext(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("worker: failed to claim request")
		}
		if processed && err == nil {
			continue
		}
		if err := w.clock.Sleep(ctx, w.idle); err != nil {
			return err
		}
	}
}

// ProcessNext claims and handles one request. It reports false when the
// queue was empty.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	q, err := w.requests.ClaimNext(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("worker: claim: %w", err)
	}
	w.handle(ctx, q)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, q *domain.QueuedRequest) {
	log := w.logger.With().Str("request_id", q.ID).Logger()
	log.Info().Int("count", q.Request.Count).Msg("worker: picked request")

	rep, err := w.generator.Generate(ctx, q.Request)
	// Status updates must land even when shutdown cancelled the run.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err != nil {
		code := domain.KindOf(err)
		if code == domain.KindUnknown {
			code = domain.KindGenerationFailed
		}
		log.Error().Err(err).Str("code", string(code)).Msg("worker: request failed")
		if ferr := w.requests.Fail(writeCtx, q.ID, code, err.Error()); ferr != nil {
			log.Error().Err(ferr).Msg("worker: update status failed")
		}
		return
	}

	if w.artifacts != nil {
		keys, aerr := report.WriteArtifacts(writeCtx, w.artifacts, path.Join("requests", q.ID), rep)
		if aerr != nil {
			log.Error().Err(aerr).Msg("worker: write artifacts failed")
		} else {
			log.Debug().Strs("artifacts", keys).Msg("worker: artifacts written")
		}
	}
	if cerr := w.requests.Complete(writeCtx, q.ID, rep); cerr != nil {
		log.Error().Err(cerr).Msg("worker: update status failed")
		return
	}
	log.Info().
		Int("succeeded", len(rep.Succeeded)).
		Int("failed", len(rep.Failed)).
		Float64("total_cost", rep.TotalCost).
		Msg("worker: request completed")
}
