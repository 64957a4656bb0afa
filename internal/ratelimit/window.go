// Package ratelimit enforces a maximum number of events per rolling window.
package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"creativegen/internal/clock"
	"creativegen/internal/infra"
)

const (
	DefaultCapacity = 3
	DefaultSpan     = 60 * time.Second
)

// Options configures a Window.
type Options struct {
	Capacity int
	Span     time.Duration
	Clock    clock.Clock
	Logger   *infra.Logger
}

// Window is a sliding-window limiter: at most Capacity acquisitions in any
// trailing Span. Callers are admitted one at a time in arrival order; a
// caller that has to wait holds its turn while sleeping.
type Window struct {
	capacity int
	span     time.Duration
	clock    clock.Clock
	logger   *infra.Logger

	turn chan struct{}

	mu     sync.Mutex
	stamps []time.Time
}

// NewWindow builds a Window, applying defaults for zero options.
func NewWindow(opts Options) *Window {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	span := opts.Span
	if span <= 0 {
		span = DefaultSpan
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
	return &Window{
		capacity: capacity,
		span:     span,
		clock:    clk,
		logger:   logger,
		turn:     make(chan struct{}, 1),
		stamps:   make([]time.Time, 0, capacity),
	}
}

// Acquire blocks until a slot is free in the window, then records the
// acquisition. It returns ctx.Err() if the context ends first.
func (w *Window) Acquire(ctx context.Context) error {
	select {
	case w.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-w.turn }()

	for {
		wait := w.tryRecord()
		if wait <= 0 {
			return nil
		}
		w.logger.Debug().
			Dur("wait", wait).
			Int("capacity", w.capacity).
			Msg("ratelimit: window full, waiting for slot")
		if err := w.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// TryAcquire records an acquisition only if a slot is free right now. It
// does not queue behind Acquire callers; the window lock alone decides.
func (w *Window) TryAcquire() bool {
	return w.tryRecord() <= 0
}

// tryRecord appends now when capacity allows and returns zero; otherwise it
// returns how long until the oldest entry leaves the window.
func (w *Window) tryRecord() time.Duration {
	now := w.clock.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	if len(w.stamps) < w.capacity {
		w.stamps = append(w.stamps, now)
		return 0
	}
	wait := w.span - now.Sub(w.stamps[0])
	if wait <= 0 {
		// Oldest entry sits exactly on the boundary; drop it and take its slot.
		w.stamps = append(w.stamps[1:], now)
		return 0
	}
	return wait
}

func (w *Window) prune(now time.Time) {
	cut := 0
	for cut < len(w.stamps) && now.Sub(w.stamps[cut]) >= w.span {
		cut++
	}
	if cut > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[cut:]...)
	}
}

// Len returns the number of acquisitions still inside the window.
func (w *Window) Len() int {
	now := w.clock.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	return len(w.stamps)
}

// Capacity returns the configured window capacity.
func (w *Window) Capacity() int { return w.capacity }

// Reset forgets every recorded acquisition.
func (w *Window) Reset() {
	w.mu.Lock()
	w.stamps = w.stamps[:0]
	w.mu.Unlock()
}
