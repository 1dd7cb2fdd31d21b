package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"
)

type loggedQuerier struct {
	next      TxQuerier
	logger    *zap.Logger
	threshold time.Duration
}

func (q *loggedQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := q.next.ExecContext(ctx, query, args...)
	q.observe(query, len(args), time.Since(start))
	return res, err
}

func (q *loggedQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := q.next.QueryContext(ctx, query, args...)
	q.observe(query, len(args), time.Since(start))
	return rows, err
}

func (q *loggedQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := q.next.QueryRowContext(ctx, query, args...)
	q.observe(query, len(args), time.Since(start))
	return row
}

func (q *loggedQuerier) observe(query string, argc int, elapsed time.Duration) {
	if q.threshold <= 0 || elapsed < q.threshold {
		return
	}
	q.logger.Warn("slow query",
		zap.String("sql", compactSQL(query)),
		zap.Int("args", argc),
		zap.Duration("duration", elapsed))
}

// compactSQL collapses whitespace so multi-line queries log on one line.
func compactSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
