package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"creativegen/internal/clock"
	"creativegen/internal/domain"
	"creativegen/internal/providers/video"
)

type scriptedFetcher struct {
	responses []*video.StatusResponse
	errs      []error
	calls     int
}

func (s *scriptedFetcher) Status(ctx context.Context, jobID string) (*video.StatusResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.responses) {
		return s.responses[len(s.responses)-1], nil
	}
	return s.responses[i], nil
}

func inFlight(status domain.JobStatus, progress int) *video.StatusResponse {
	return &video.StatusResponse{Status: status, Progress: &progress}
}

func completed(url string) *video.StatusResponse {
	return &video.StatusResponse{
		Status: domain.JobStatusCompleted,
		Result: &video.Result{VideoURL: url, PreviewURL: url + ".jpg"},
	}
}

func TestAwaitCompletes(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	fetcher := &scriptedFetcher{responses: []*video.StatusResponse{
		inFlight(domain.JobStatusQueued, 0),
		inFlight(domain.JobStatusProcessing, 40),
		inFlight(domain.JobStatusProcessing, 30),
		completed("https://cdn/out.mp4"),
	}}
	p := New(Options{Fetcher: fetcher, Clock: clk})

	job, err := p.Await(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if job.Status != domain.JobStatusCompleted || job.Result == nil || job.Result.VideoURL != "https://cdn/out.mp4" {
		t.Fatalf("job = %+v", job)
	}
	if job.Polls != 4 {
		t.Fatalf("polls = %d, want 4", job.Polls)
	}
	if job.Progress != 40 {
		t.Fatalf("progress = %d, want 40 (regressions ignored)", job.Progress)
	}
	sleeps := clk.Sleeps()
	if len(sleeps) != 3 {
		t.Fatalf("sleeps = %v, want three 10s intervals", sleeps)
	}
	for _, s := range sleeps {
		if s != DefaultInterval {
			t.Fatalf("sleep = %s, want %s", s, DefaultInterval)
		}
	}
}

func TestAwaitFailedJob(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []*video.StatusResponse{
		inFlight(domain.JobStatusProcessing, 10),
		{Status: domain.JobStatusFailed, Error: "unsafe content"},
	}}
	p := New(Options{Fetcher: fetcher, Clock: clock.NewFake(time.Unix(0, 0))})
	job, err := p.Await(context.Background(), "job-2")
	if domain.KindOf(err) != domain.KindGenerationFailed {
		t.Fatalf("kind = %s, want GenerationFailed", domain.KindOf(err))
	}
	if job.Error != "unsafe content" {
		t.Fatalf("job error = %q", job.Error)
	}
}

func TestAwaitCompletedWithoutResult(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []*video.StatusResponse{{Status: domain.JobStatusCompleted}}}
	p := New(Options{Fetcher: fetcher, Clock: clock.NewFake(time.Unix(0, 0))})
	if _, err := p.Await(context.Background(), "job-3"); domain.KindOf(err) != domain.KindGenerationFailed {
		t.Fatalf("err = %v, want GenerationFailed", err)
	}
}

func TestAwaitTimesOutWithoutExtraQuery(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	fetcher := &scriptedFetcher{responses: []*video.StatusResponse{inFlight(domain.JobStatusProcessing, 5)}}
	p := New(Options{Fetcher: fetcher, Clock: clk})

	job, err := p.Await(context.Background(), "job-4")
	if domain.KindOf(err) != domain.KindAPITimeout {
		t.Fatalf("kind = %s, want APITimeout", domain.KindOf(err))
	}
	if fetcher.calls != p.MaxPolls() || fetcher.calls != 31 {
		t.Fatalf("calls = %d, want %d", fetcher.calls, p.MaxPolls())
	}
	if job.Polls != fetcher.calls {
		t.Fatalf("job.Polls = %d, calls = %d", job.Polls, fetcher.calls)
	}
	if elapsed := clk.Now().Sub(time.Unix(0, 0)); elapsed <= DefaultTimeout {
		t.Fatalf("elapsed = %s, want > %s", elapsed, DefaultTimeout)
	}
}

func TestAwaitShortTimeout(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	fetcher := &scriptedFetcher{responses: []*video.StatusResponse{inFlight(domain.JobStatusQueued, 0)}}
	p := New(Options{Fetcher: fetcher, Clock: clk, Interval: time.Second, Timeout: 3 * time.Second})
	if _, err := p.Await(context.Background(), "job-5"); domain.KindOf(err) != domain.KindAPITimeout {
		t.Fatalf("err = %v, want APITimeout", err)
	}
	if fetcher.calls != 4 {
		t.Fatalf("calls = %d, want 4", fetcher.calls)
	}
}

func TestAwaitRetriesTransientFetchErrorOnSameJob(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	limited := domain.Errorf(domain.KindRateLimitExceeded, "video", "status 429")
	slow := domain.Errorf(domain.KindAPITimeout, "video", "status request timed out")
	fetcher := &scriptedFetcher{
		responses: []*video.StatusResponse{
			inFlight(domain.JobStatusQueued, 0),
			nil,
			nil,
			completed("https://cdn/out.mp4"),
		},
		errs: []error{nil, limited, slow},
	}
	p := New(Options{Fetcher: fetcher, Clock: clk})

	job, err := p.Await(context.Background(), "job-6")
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if job.ID != "job-6" || job.Status != domain.JobStatusCompleted {
		t.Fatalf("job = %+v", job)
	}
	if fetcher.calls != 4 || job.Polls != 4 {
		t.Fatalf("calls = %d, polls = %d, want 4", fetcher.calls, job.Polls)
	}
	if got := len(clk.Sleeps()); got != 3 {
		t.Fatalf("sleeps = %d, want 3", got)
	}
}

func TestAwaitTransientErrorsCountTowardTimeout(t *testing.T) {
	limited := domain.Errorf(domain.KindRateLimitExceeded, "video", "status 429")
	fetcher := &scriptedFetcher{
		responses: []*video.StatusResponse{nil},
		errs:      []error{limited, limited, limited, limited, limited},
	}
	p := New(Options{Fetcher: fetcher, Clock: clock.NewFake(time.Unix(0, 0)), Interval: time.Second, Timeout: 3 * time.Second})
	_, err := p.Await(context.Background(), "job-7")
	if domain.KindOf(err) != domain.KindAPITimeout {
		t.Fatalf("err = %v, want APITimeout", err)
	}
	if fetcher.calls != 4 {
		t.Fatalf("calls = %d, want 4", fetcher.calls)
	}
}

func TestAwaitPropagatesPermanentFetchError(t *testing.T) {
	rejected := domain.Errorf(domain.KindUnknownRemote, "video", "status 404")
	fetcher := &scriptedFetcher{
		responses: []*video.StatusResponse{inFlight(domain.JobStatusQueued, 0)},
		errs:      []error{nil, rejected},
	}
	p := New(Options{Fetcher: fetcher, Clock: clock.NewFake(time.Unix(0, 0))})
	if _, err := p.Await(context.Background(), "job-8"); !errors.Is(err, rejected) {
		t.Fatalf("err = %v, want %v", err, rejected)
	}
	if fetcher.calls != 2 {
		t.Fatalf("calls = %d, want 2", fetcher.calls)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{domain.Errorf(domain.KindRateLimitExceeded, "video", "429"), true},
		{domain.Errorf(domain.KindAPITimeout, "video", "deadline"), true},
		{domain.Errorf(domain.KindUnknownRemote, "video", "500"), false},
		{errors.New("plain"), false},
	}
	for _, tc := range tests {
		if got := Transient(tc.err); got != tc.want {
			t.Fatalf("Transient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
