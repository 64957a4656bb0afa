package infra

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLExecutor is what repositories depend on. Every query must start with a
// "--sql <uuid>" marker line that identifies it in logs.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ErrSQLMarker is returned for queries without a valid marker line.
var ErrSQLMarker = errors.New("infra: sql marker missing or invalid")

// SQLRunner checks the marker, strips it and logs each statement by marker
// with its duration. *pgxpool.Pool satisfies the wrapped executor.
type SQLRunner struct {
	db     SQLExecutor
	logger Logger
}

func NewSQLRunner(db SQLExecutor, logger Logger) *SQLRunner {
	return &SQLRunner{db: db, logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, body, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.db.Exec(ctx, body, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("sql", marker).Str("op", "exec").Dur("elapsed", time.Since(start)).Msg("sql: failed")
		return tag, err
	}
	r.logger.Debug().Str("sql", marker).Str("op", "exec").Int64("rows", tag.RowsAffected()).Dur("elapsed", time.Since(start)).Msg("sql: ok")
	return tag, nil
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, body, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return loggingRow{row: r.db.QueryRow(ctx, body, args...), logger: r.logger, marker: marker, start: time.Now()}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, body, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.db.Query(ctx, body, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("sql", marker).Str("op", "query").Dur("elapsed", time.Since(start)).Msg("sql: failed")
		return nil, err
	}
	return &loggingRows{Rows: rows, logger: r.logger, marker: marker, start: start}, nil
}

type loggingRow struct {
	row    pgx.Row
	logger Logger
	marker string
	start  time.Time
}

// Scan logs no-rows at debug; callers treat it as a normal outcome.
func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	switch {
	case err == nil:
		l.logger.Debug().Str("sql", l.marker).Str("op", "query_row").Dur("elapsed", time.Since(l.start)).Msg("sql: ok")
	case IsNoRows(err):
		l.logger.Debug().Str("sql", l.marker).Str("op", "query_row").Msg("sql: no rows")
	default:
		l.logger.Error().Err(err).Str("sql", l.marker).Str("op", "query_row").Msg("sql: failed")
	}
	return err
}

type loggingRows struct {
	pgx.Rows
	logger Logger
	marker string
	start  time.Time
	seen   int
}

func (l *loggingRows) Next() bool {
	ok := l.Rows.Next()
	if ok {
		l.seen++
	}
	return ok
}

func (l *loggingRows) Close() {
	l.Rows.Close()
	if err := l.Rows.Err(); err != nil {
		l.logger.Error().Err(err).Str("sql", l.marker).Str("op", "query").Int("rows", l.seen).Msg("sql: failed")
		return
	}
	l.logger.Debug().Str("sql", l.marker).Str("op", "query").Int("rows", l.seen).Dur("elapsed", time.Since(l.start)).Msg("sql: ok")
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(...any) error {
	return e.err
}

// extractMarker returns the marker uuid and the query without its marker line.
func extractMarker(query string) (string, string, error) {
	first, rest, _ := strings.Cut(strings.TrimSpace(query), "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return "", "", fmt.Errorf("%w: empty query", ErrSQLMarker)
	}
	if !markerRegexp.MatchString(first) {
		return "", "", ErrSQLMarker
	}
	return strings.TrimPrefix(first, "--sql "), rest, nil
}

var _ SQLExecutor = (*SQLRunner)(nil)

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
