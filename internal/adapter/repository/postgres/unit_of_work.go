package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// txContextKey is the unexported key type for carrying *sql.Tx in a context
type txContextKey struct{}

// txFromContext extracts the transaction carried by the context, if any
func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx
}

// unitOfWork implements domain.UnitOfWork over a single sql.Tx carried
// through the context, so every repository call inside fn joins the same
// transaction
type unitOfWork struct {
	db *DB
}

// NewUnitOfWork creates a new transactional unit of work
func NewUnitOfWork(db *DB) domain.UnitOfWork {
	return &unitOfWork{db: db}
}

// Do runs fn inside one transaction. A nested Do joins the enclosing
// transaction rather than opening a second one.
func (u *unitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
