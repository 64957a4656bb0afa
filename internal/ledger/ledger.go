// Package ledger accounts for money spent on generated items.
package ledger

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"creativegen/internal/clock"
	"creativegen/internal/infra"
)

const (
	DefaultBudget    = 5000.0
	DefaultWarnRatio = 0.9
)

// Entry is one append-only ledger line.
type Entry struct {
	ID          string    `json:"id"`
	At          time.Time `json:"at"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
}

// Store persists entries beyond the life of the process.
type Store interface {
	Append(ctx context.Context, e Entry) error
	MonthTotal(ctx context.Context, month time.Time) (float64, error)
}

// Receipt describes the ledger state right after a Record call.
type Receipt struct {
	Entry       Entry
	Total       float64
	Utilization float64
	// Warning is non-empty once utilization reaches the warn ratio.
	Warning string
}

// Options configures a Ledger.
type Options struct {
	Budget    float64
	WarnRatio float64
	Store     Store
	Clock     clock.Clock
	Logger    *infra.Logger
}

// Ledger holds entries and a running total for the current calendar month
// (UTC). Budget exhaustion never blocks recording; it only produces warnings.
type Ledger struct {
	budget    float64
	warnRatio float64
	store     Store
	clock     clock.Clock
	logger    *infra.Logger

	mu      sync.Mutex
	entries []Entry
	total   float64
	month   time.Time
}

// New builds a Ledger with defaults for zero options.
func New(opts Options) *Ledger {
	budget := opts.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	ratio := opts.WarnRatio
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultWarnRatio
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
	return &Ledger{budget: budget, warnRatio: ratio, store: opts.Store, clock: clk, logger: logger, month: MonthStart(clk.Now())}
}

// Load seeds the running total with the store's month-to-date spend.
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	now := l.clock.Now()
	spent, err := l.store.MonthTotal(ctx, now)
	if err != nil {
		return fmt.Errorf("ledger: load month total: %w", err)
	}
	l.mu.Lock()
	l.total = spent
	l.month = MonthStart(now)
	l.mu.Unlock()
	l.logger.Info().Float64("month_to_date", spent).Float64("budget", l.budget).Msg("ledger: loaded")
	return nil
}

// rollover re-seeds the running total when now falls in a later month than
// the one being tracked. A store failure starts the new month at zero.
func (l *Ledger) rollover(ctx context.Context, now time.Time) {
	month := MonthStart(now)
	l.mu.Lock()
	current := l.month
	l.mu.Unlock()
	if !month.After(current) {
		return
	}
	var spent float64
	if l.store != nil {
		v, err := l.store.MonthTotal(ctx, now)
		if err != nil {
			l.logger.Error().Err(err).Time("month", month).Msg("ledger: reseed month total failed")
		} else {
			spent = v
		}
	}
	l.mu.Lock()
	if month.After(l.month) {
		l.month = month
		l.total = spent
		l.logger.Info().Time("month", month).Float64("month_to_date", spent).Msg("ledger: month rolled over")
	}
	l.mu.Unlock()
}

// Record appends an entry. The in-memory entry is kept even when the store
// fails; the store error is returned alongside the receipt.
func (l *Ledger) Record(ctx context.Context, amount float64, description string) (Receipt, error) {
	now := l.clock.Now()
	l.rollover(ctx, now)
	entry := Entry{
		ID:          uuid.NewString(),
		At:          now,
		Amount:      amount,
		Description: description,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.total += amount
	total := l.total
	l.mu.Unlock()

	receipt := Receipt{Entry: entry, Total: total, Utilization: total / l.budget}
	if receipt.Utilization >= l.warnRatio {
		receipt.Warning = fmt.Sprintf("budget utilization at %.1f%% (%.2f of %.2f)", receipt.Utilization*100, total, l.budget)
		l.logger.Warn().
			Float64("total", total).
			Float64("budget", l.budget).
			Float64("utilization", receipt.Utilization).
			Msg("ledger: budget warning threshold reached")
	}

	var storeErr error
	if l.store != nil {
		if err := l.store.Append(ctx, entry); err != nil {
			storeErr = fmt.Errorf("ledger: persist entry: %w", err)
			l.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("ledger: persist entry failed")
		}
	}
	return receipt, storeErr
}

// Month returns the first instant of the month the total belongs to.
func (l *Ledger) Month() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.month
}

// Total returns the running total for the tracked month.
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Budget returns the configured budget.
func (l *Ledger) Budget() float64 { return l.budget }

// Remaining returns budget minus total; it goes negative once overspent.
func (l *Ledger) Remaining() float64 {
	return l.budget - l.Total()
}

// Utilization returns total / budget.
func (l *Ledger) Utilization() float64 {
	return l.Total() / l.budget
}

// Entries returns a copy of the entries recorded by this process.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Reset clears entries and the running total. The store is untouched.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.entries = nil
	l.total = 0
	l.mu.Unlock()
}

// MonthStart returns the first instant of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
