package ledger

import (
	"context"
	"fmt"
	"time"

	"creativegen/internal/infra"
	"creativegen/internal/sqlinline"
)

// PostgresStore keeps entries in the ledger_entries table.
type PostgresStore struct {
	db infra.SQLExecutor
}

func NewPostgresStore(db infra.SQLExecutor) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	if _, err := s.db.Exec(ctx, sqlinline.QInsertLedgerEntry, e.ID, e.Amount, e.Description, e.At.UTC()); err != nil {
		return fmt.Errorf("ledger: insert entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) MonthTotal(ctx context.Context, month time.Time) (float64, error) {
	start := MonthStart(month)
	var total float64
	if err := s.db.QueryRow(ctx, sqlinline.QSelectLedgerMonthTotal, start, start.AddDate(0, 1, 0)).Scan(&total); err != nil {
		return 0, fmt.Errorf("ledger: month total: %w", err)
	}
	return total, nil
}

var _ Store = (*PostgresStore)(nil)
