// Package postgres implements the repositories on a pgx connection pool.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/pkg/database"
)

type txKey struct{}

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager implements port.TransactionManager over a pgx pool
type TxManager struct {
	db *database.PostgresDB
}

// NewTxManager creates a TxManager
func NewTxManager(db *database.PostgresDB) *TxManager {
	return &TxManager{db: db}
}

// WithTransaction runs fn in a transaction; nested calls reuse the outer one
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return m.db.InTransaction(ctx, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// querier returns the transaction carried by ctx, or the pool
func querier(ctx context.Context, db *database.PostgresDB) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db.Pool
}

var _ port.TransactionManager = (*TxManager)(nil)
