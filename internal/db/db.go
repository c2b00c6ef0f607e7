// Package db provides PostgreSQL-backed repository implementations for the
// trip guardian. Repositories accept a DBTX interface satisfied by both
// *pgxpool.Pool (normal queries) and pgx.Tx (transactional execution).
//
// The persistence model is one row per monitored trip: queryable scheduling
// fields (status, next_scheduled_check, window) live in plain columns while
// the embedded documents (itinerary, history, alerts, plans, notifications)
// live in JSONB columns. The worker's concurrency model requires only that
// Save of a single row is atomic, which a single UPSERT statement provides.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
