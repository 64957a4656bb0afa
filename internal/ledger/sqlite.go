package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
create table if not exists ledger_entries (
	id text primary key,
	amount real not null,
	description text not null,
	recorded_at integer not null
);
create index if not exists ledger_entries_recorded_at on ledger_entries(recorded_at);
`

// SQLiteStore keeps entries in a local SQLite file for single-host runs.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the ledger database at path. Use ":memory:"
// for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`insert into ledger_entries(id, amount, description, recorded_at) values (?, ?, ?, ?)`,
		e.ID, e.Amount, e.Description, e.At.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("ledger: insert entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MonthTotal(ctx context.Context, month time.Time) (float64, error) {
	start := MonthStart(month)
	var total float64
	err := s.db.QueryRowContext(ctx,
		`select coalesce(sum(amount), 0) from ledger_entries where recorded_at >= ? and recorded_at < ?`,
		start.UnixNano(), start.AddDate(0, 1, 0).UnixNano()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ledger: month total: %w", err)
	}
	return total, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
