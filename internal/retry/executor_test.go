package retry

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"creativegen/internal/clock"
	"creativegen/internal/domain"
)

func TestPolicyDelaySequence(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{
		30 * time.Second,
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		300 * time.Second,
		300 * time.Second,
	}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Fatalf("Delay(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestPolicyDelayWithoutCapSaturates(t *testing.T) {
	p := Policy{InitialDelay: 30 * time.Second, Multiplier: 2}
	prev := time.Duration(0)
	for _, retry := range []int{1, 10, 40, 64, 100, 2000} {
		got := p.Delay(retry)
		if got <= 0 {
			t.Fatalf("Delay(%d) = %s, want positive", retry, got)
		}
		if got < prev {
			t.Fatalf("Delay(%d) = %s decreased from %s", retry, got, prev)
		}
		prev = got
	}
	if got := p.Delay(2000); got != time.Duration(math.MaxInt64) {
		t.Fatalf("Delay(2000) = %s, want saturated", got)
	}
}

func TestPolicyIsRetryableUsesKind(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", domain.Errorf(domain.KindAPITimeout, "poll", "job timed out"), true},
		{"rate limited", domain.Errorf(domain.KindRateLimitExceeded, "submit", "429"), true},
		{"wrapped timeout", fmtWrap(domain.Errorf(domain.KindAPITimeout, "poll", "slow")), true},
		{"generation failed", domain.Errorf(domain.KindGenerationFailed, "poll", "boom"), false},
		{"message mentions timeout", errors.New("APITimeout RateLimitExceeded"), false},
		{"validation", domain.Errorf(domain.KindValidation, "request", "bad"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.IsRetryable(tc.err); got != tc.want {
				t.Fatalf("IsRetryable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRunSucceedsAfterRetries(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	exec := NewExecutor(Options{Policy: DefaultPolicy(), Clock: clk})
	calls := 0
	err := exec.Run(context.Background(), "item-1", func(context.Context) error {
		calls++
		if calls < 3 {
			return domain.Errorf(domain.KindRateLimitExceeded, "submit", "slow down")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	sleeps := clk.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 30*time.Second || sleeps[1] != 60*time.Second {
		t.Fatalf("sleeps = %v, want [30s 1m0s]", sleeps)
	}
}

func TestRunStopsOnFatalError(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	exec := NewExecutor(Options{Policy: DefaultPolicy(), Clock: clk})
	fatal := domain.Errorf(domain.KindGenerationFailed, "poll", "content rejected")
	calls := 0
	err := exec.Run(context.Background(), "item-2", func(context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("err = %v, want the fatal error unchanged", err)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Fatalf("fatal error must not be wrapped as exhausted")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if len(clk.Sleeps()) != 0 {
		t.Fatalf("no delay expected for fatal errors")
	}
}

func TestRunExhaustsRetries(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	exec := NewExecutor(Options{Policy: DefaultPolicy(), Clock: clk})
	calls := 0
	_, err := Do(context.Background(), exec, "item-3", func(context.Context) (string, error) {
		calls++
		return "", domain.Errorf(domain.KindAPITimeout, "poll", "attempt %d timed out", calls)
	})
	if calls != 4 {
		t.Fatalf("calls = %d, want 4 (1 try + 3 retries)", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %T %v, want *ExhaustedError", err, err)
	}
	if exhausted.Retries != 3 || exhausted.Label != "item-3" {
		t.Fatalf("exhausted = %+v", exhausted)
	}
	msg := err.Error()
	for _, part := range []string{"item-3", "3 retries", "attempt 4 timed out"} {
		if !strings.Contains(msg, part) {
			t.Fatalf("error %q missing %q", msg, part)
		}
	}
	if domain.KindOf(err) != domain.KindAPITimeout {
		t.Fatalf("kind = %s, want APITimeout preserved through the wrapper", domain.KindOf(err))
	}
	sleeps := clk.Sleeps()
	want := []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Fatalf("sleeps = %v, want %v", sleeps, want)
		}
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	exec := NewExecutor(Options{Policy: DefaultPolicy(), Clock: clock.NewFake(time.Unix(0, 0))})
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := exec.Run(ctx, "item-4", func(context.Context) error {
		calls++
		cancel()
		return domain.Errorf(domain.KindAPITimeout, "poll", "slow")
	})
	if err == nil || calls != 1 {
		t.Fatalf("err = %v calls = %d, want error after one call", err, calls)
	}
}

func fmtWrap(err error) error {
	return &wrapped{err: err}
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "outer: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
