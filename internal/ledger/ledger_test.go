package ledger

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"creativegen/internal/clock"
	"creativegen/internal/domain"
	"creativegen/internal/infra"
)

func TestPricingCost(t *testing.T) {
	p := DefaultPricing()
	tests := []struct {
		name    string
		seconds float64
		res     domain.Resolution
		want    float64
	}{
		{"short 1080p hits floor", 3, domain.Resolution1080p, 5},
		{"720p at floor", 10, domain.Resolution720p, 5},
		{"1080p above floor", 20, domain.Resolution1080p, 20},
		{"720p above floor", 30, domain.Resolution720p, 15},
		{"zero seconds", 0, domain.Resolution720p, 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.Cost(tc.seconds, tc.res)
			if err != nil {
				t.Fatalf("Cost: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Cost(%v, %s) = %v, want %v", tc.seconds, tc.res, got, tc.want)
			}
		})
	}
}

func TestPricingCostUnknownResolution(t *testing.T) {
	if _, err := DefaultPricing().Cost(10, "4k"); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestLedgerRecordAndTotals(t *testing.T) {
	l := New(Options{Budget: 100, Clock: clock.NewFake(time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC))})
	ctx := context.Background()

	for _, amount := range []float64{5, 20, 15} {
		if _, err := l.Record(ctx, amount, "item"); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if got := l.Total(); got != 40 {
		t.Fatalf("Total = %v, want 40", got)
	}
	if got := l.Remaining(); got != 60 {
		t.Fatalf("Remaining = %v, want 60", got)
	}
	if got := l.Utilization(); got != 0.4 {
		t.Fatalf("Utilization = %v, want 0.4", got)
	}
	entries := l.Entries()
	if len(entries) != 3 || entries[1].Amount != 20 || entries[0].ID == "" {
		t.Fatalf("entries = %+v", entries)
	}
	entries[0].Amount = 999
	if l.Entries()[0].Amount != 5 {
		t.Fatal("Entries must return a copy")
	}

	l.Reset()
	if l.Total() != 0 || len(l.Entries()) != 0 {
		t.Fatalf("after reset total=%v entries=%d", l.Total(), len(l.Entries()))
	}
}

func TestLedgerWarnsAtThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := infra.Logger(zerolog.New(&buf))
	l := New(Options{Budget: 100, Logger: &logger})
	ctx := context.Background()

	r, _ := l.Record(ctx, 89, "below")
	if r.Warning != "" {
		t.Fatalf("warning at 89%%: %q", r.Warning)
	}
	r, _ = l.Record(ctx, 1, "at")
	if r.Warning == "" {
		t.Fatal("expected warning at 90%")
	}
	if !strings.Contains(buf.String(), "budget warning threshold reached") {
		t.Fatalf("log = %s", buf.String())
	}

	// Overspending is recorded, never refused.
	r, err := l.Record(ctx, 50, "over")
	if err != nil || r.Total != 140 || l.Remaining() != -40 {
		t.Fatalf("receipt = %+v err = %v remaining = %v", r, err, l.Remaining())
	}
}

func TestLedgerConcurrentRecord(t *testing.T) {
	l := New(Options{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(context.Background(), 2, "c")
		}()
	}
	wg.Wait()
	if l.Total() != 100 || len(l.Entries()) != 50 {
		t.Fatalf("total = %v entries = %d", l.Total(), len(l.Entries()))
	}
	if l.Budget() != DefaultBudget {
		t.Fatalf("budget = %v", l.Budget())
	}
}

type memoryStore struct {
	entries   []Entry
	monthSeed float64
	appendErr error
}

func (m *memoryStore) Append(_ context.Context, e Entry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryStore) MonthTotal(context.Context, time.Time) (float64, error) {
	return m.monthSeed, nil
}

func TestLedgerLoadAndPersist(t *testing.T) {
	store := &memoryStore{monthSeed: 4400}
	l := New(Options{Store: store})
	ctx := context.Background()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	r, err := l.Record(ctx, 100, "item")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if r.Total != 4500 || r.Warning == "" {
		t.Fatalf("receipt = %+v, want total 4500 with warning", r)
	}
	if len(store.entries) != 1 || store.entries[0].ID != r.Entry.ID {
		t.Fatalf("store entries = %+v", store.entries)
	}
}

func TestLedgerStoreFailureKeepsEntry(t *testing.T) {
	boom := errors.New("disk full")
	l := New(Options{Store: &memoryStore{appendErr: boom}})
	_, err := l.Record(context.Background(), 7, "item")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if l.Total() != 7 || len(l.Entries()) != 1 {
		t.Fatalf("total = %v entries = %d", l.Total(), len(l.Entries()))
	}
}

func TestSQLiteStoreMonthTotal(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	march := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	for _, e := range []Entry{
		{ID: "a", At: march, Amount: 5},
		{ID: "b", At: march.Add(24 * time.Hour), Amount: 12.5},
		{ID: "c", At: time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC), Amount: 100},
		{ID: "d", At: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), Amount: 100},
	} {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := store.MonthTotal(ctx, march)
	if err != nil {
		t.Fatalf("MonthTotal: %v", err)
	}
	if math.Abs(got-17.5) > 1e-9 {
		t.Fatalf("MonthTotal = %v, want 17.5", got)
	}
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(time.Date(2026, 7, 31, 23, 0, 0, 0, time.FixedZone("x", -3*3600)))
	if want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("MonthStart = %s, want %s", got, want)
	}
}

func TestLedgerMonthRollover(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	clk := clock.NewFake(time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC))
	l := New(Options{Budget: 100, Store: store, Clock: clk})
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	r, err := l.Record(ctx, 95, "january item")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if r.Warning == "" {
		t.Fatalf("expected january warning, receipt = %+v", r)
	}

	clk.Advance(2 * time.Hour)
	r, err = l.Record(ctx, 5, "february item")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if r.Total != 5 || r.Warning != "" {
		t.Fatalf("february receipt = %+v, want total 5 without warning", r)
	}
	if want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC); !l.Month().Equal(want) {
		t.Fatalf("Month() = %s, want %s", l.Month(), want)
	}
	if len(l.Entries()) != 2 {
		t.Fatalf("entries = %d, want 2", len(l.Entries()))
	}
}

func TestLedgerMonthRolloverWithoutStore(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC))
	l := New(Options{Budget: 100, Clock: clk})
	if _, err := l.Record(context.Background(), 40, "march"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	clk.Advance(24 * time.Hour)
	r, _ := l.Record(context.Background(), 10, "april")
	if r.Total != 10 || l.Total() != 10 {
		t.Fatalf("total = %v, want 10 after rollover", r.Total)
	}
}
