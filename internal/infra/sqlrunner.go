package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor is what repositories run their statements through.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// DefaultSlowStatement is the latency above which a statement is logged at warn.
const DefaultSlowStatement = 250 * time.Millisecond

// SQLRunner executes sqlinline statements. Every statement must start with a
// "--sql <uuid>" marker line; the marker tags the log lines of that statement.
type SQLRunner struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
	Slow   time.Duration
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{Pool: pool, Logger: logger, Slow: DefaultSlowStatement}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, body, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.Pool.Exec(ctx, body, args...)
	r.observe(marker, "exec", start, err)
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, body, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return timedRow{row: r.Pool.QueryRow(ctx, body, args...), runner: r, marker: marker, start: time.Now()}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, body, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.Pool.Query(ctx, body, args...)
	if err != nil {
		r.observe(marker, "query", start, err)
		return nil, err
	}
	return &timedRows{Rows: rows, runner: r, marker: marker, start: start}, nil
}

// observe logs one statement. No-rows results are an outcome, not a failure.
func (r *SQLRunner) observe(marker, op string, start time.Time, err error) {
	elapsed := time.Since(start)
	var ev *zerolog.Event
	switch {
	case err != nil && !IsNoRows(err):
		ev = r.Logger.Error().Err(err)
	case r.Slow > 0 && elapsed > r.Slow:
		ev = r.Logger.Warn().Bool("slow", true)
	default:
		ev = r.Logger.Debug()
	}
	ev.Str("sql", marker).Str("op", op).Dur("elapsed", elapsed).Msg("statement")
}

type timedRow struct {
	row    pgx.Row
	runner *SQLRunner
	marker string
	start  time.Time
}

func (t timedRow) Scan(dest ...any) error {
	err := t.row.Scan(dest...)
	t.runner.observe(t.marker, "query_row", t.start, err)
	return err
}

type timedRows struct {
	pgx.Rows
	runner *SQLRunner
	marker string
	start  time.Time
	closed bool
}

func (t *timedRows) Close() {
	t.Rows.Close()
	if !t.closed {
		t.closed = true
		t.runner.observe(t.marker, "query", t.start, t.Rows.Err())
	}
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

// extractMarker splits a statement into its marker id and the SQL sent to
// Postgres.
func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", errors.New("empty query")
	}
	first, rest, _ := strings.Cut(trimmed, "\n")
	first = strings.TrimSpace(first)
	if !markerRegexp.MatchString(first) {
		return "", "", errors.New("sql marker missing or invalid")
	}
	return strings.TrimPrefix(first, "--sql "), rest, nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
