// Package tx carries a SQL transaction through context so that every store
// touched by one service operation shares the same transaction, and exposes
// the Runner abstraction services use to demarcate atomic work.
package tx

import (
	"context"
	"database/sql"
	"errors"

	"gradegate/pkg/platform/sentinel"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner runs a function inside a single store transaction. Services wrap
// every mutating operation in RunInTx so that uniqueness checks, upserts and
// cascade deletes commit or roll back wholesale.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner demarcates transactions on a *sql.DB and stashes the transaction
// in context for the stores to pick up.
type SQLRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return sentinel.ErrUnavailable
		}
		return err
	}
	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

// PassthroughRunner is the Runner for stores that serialize internally (the
// in-memory implementations). It adds no transaction semantics.
type PassthroughRunner struct{}

func NewPassthroughRunner() PassthroughRunner {
	return PassthroughRunner{}
}

func (PassthroughRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
