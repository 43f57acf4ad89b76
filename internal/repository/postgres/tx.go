package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"eventboard/internal/domain"
)

type txKey struct{}

// querier is the subset of *sql.DB / *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction bound to ctx if WithinTransaction is active,
// otherwise the plain connection pool.
func q(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

type transactor struct {
	db *sql.DB
}

// NewTransactor returns a domain.Transactor backed by database/sql
// transactions. Repositories called with the context passed to fn run their
// statements on that transaction; combined with SELECT ... FOR UPDATE on the
// event row this serializes all capacity-counter mutation per event.
func NewTransactor(db *sql.DB) domain.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
