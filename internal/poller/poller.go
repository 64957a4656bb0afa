// Package poller drives one submitted job to a terminal state.
package poller

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"creativegen/internal/clock"
	"creativegen/internal/domain"
	"creativegen/internal/infra"
	"creativegen/internal/providers/video"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 300 * time.Second
)

// StatusFetcher is the slice of the remote service the poller needs.
type StatusFetcher interface {
	Status(ctx context.Context, jobID string) (*video.StatusResponse, error)
}

// Options configures a Poller.
type Options struct {
	Fetcher  StatusFetcher
	Interval time.Duration
	Timeout  time.Duration
	Clock    clock.Clock
	Logger   *infra.Logger
}

// Poller queries job status at a fixed interval until the job completes,
// fails, or the timeout elapses.
type Poller struct {
	fetcher  StatusFetcher
	interval time.Duration
	timeout  time.Duration
	clock    clock.Clock
	logger   *infra.Logger
}

// New builds a Poller with defaults for zero options.
func New(opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
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
	return &Poller{fetcher: opts.Fetcher, interval: interval, timeout: timeout, clock: clk, logger: logger}
}

// MaxPolls is the upper bound on status queries for one job.
func (p *Poller) MaxPolls() int {
	return int(p.timeout/p.interval) + 1
}

// Transient reports whether a failed status query should be repeated against
// the same job. Such failures count toward the poll budget.
func Transient(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindRateLimitExceeded, domain.KindAPITimeout:
		return true
	}
	return false
}

// Await polls jobID until it reaches a terminal state. A completed job is
// returned; a failed job yields a GenerationFailed error and an expired
// deadline yields an APITimeout error. Transient query errors are retried on
// the next tick; any other query error is returned as is.
func (p *Poller) Await(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	start := p.clock.Now()
	deadline := start.Add(p.timeout)
	job := &domain.GenerationJob{ID: jobID, Status: domain.JobStatusQueued, StartedAt: start}
	log := p.logger.With().Str("job_id", jobID).Logger()

	maxPolls := p.MaxPolls()
	for job.Polls < maxPolls {
		resp, err := p.fetcher.Status(ctx, jobID)
		job.Polls++
		if err != nil {
			if !Transient(err) {
				return job, err
			}
			// Query the same job again on the next tick.
			log.Warn().Err(err).Int("polls", job.Polls).Msg("poller: status query failed, retrying")
		} else {
			if resp.Progress != nil && *resp.Progress > job.Progress {
				job.Progress = *resp.Progress
				log.Info().Int("progress", job.Progress).Str("status", string(resp.Status)).Msg("poller: progress")
			}
			job.Status = resp.Status

			switch resp.Status {
			case domain.JobStatusCompleted:
				job.EndedAt = p.clock.Now()
				if resp.Result == nil || resp.Result.VideoURL == "" {
					job.Status = domain.JobStatusFailed
					job.Error = "completed without a result"
					return job, domain.Errorf(domain.KindGenerationFailed, "poller", "job %s completed without a result", jobID)
				}
				job.Result = &domain.JobResult{VideoURL: resp.Result.VideoURL, PreviewURL: resp.Result.PreviewURL}
				log.Info().Int("polls", job.Polls).Dur("elapsed", job.EndedAt.Sub(start)).Msg("poller: job completed")
				return job, nil
			case domain.JobStatusFailed:
				job.EndedAt = p.clock.Now()
				job.Error = resp.Error
				if job.Error == "" {
					job.Error = "remote generation failed"
				}
				log.Warn().Str("error", job.Error).Msg("poller: job failed")
				return job, domain.Errorf(domain.KindGenerationFailed, "poller", "job %s: %s", jobID, job.Error)
			}
		}

		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return job, err
		}
		if p.clock.Now().After(deadline) {
			break
		}
	}
	job.EndedAt = p.clock.Now()
	log.Warn().Int("polls", job.Polls).Dur("timeout", p.timeout).Msg("poller: job timed out")
	return job, domain.Errorf(domain.KindAPITimeout, "poller", "job %s not finished after %s", jobID, p.timeout)
}
