package storage

import (
	"context"
	"database/sql"

	"callpay-platform/pkg/utils"
)

// TxRunner executes a function as one atomic unit of work. Every mutating
// ledger or call-session operation runs inside InTx; partial commits are not
// possible. Calls are reentrant: an InTx inside an InTx joins the ambient unit
// instead of opening a nested one, so composed operations (e.g. ending a call
// and debiting the caller) commit or roll back together.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Querier is the subset of *sql.DB / *sql.Tx the repositories use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// TxFrom returns the ambient transaction, if any.
func TxFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// QuerierFrom returns the ambient transaction when present, else the pool.
// Repositories call this so reads inside a unit of work see its writes.
func QuerierFrom(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return db
}

// SQLRunner is the Postgres-backed TxRunner.
type SQLRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner { return &SQLRunner{db: db} }

func (r *SQLRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFrom(ctx); ok {
		return fn(ctx)
	}
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
