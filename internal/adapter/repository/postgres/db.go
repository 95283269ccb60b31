package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// DB wraps the database connection together with the monetary drift
// tolerance applied when persisted amounts are rehydrated
type DB struct {
	*sql.DB
	tolerance decimal.Decimal
}

// NewDB creates a new database connection.
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=taskmanager sslmode=disable".
// A non-positive tolerance falls back to the default.
func NewDB(connectionString string, tolerance decimal.Decimal) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = domain.DefaultBaseTolerance
	}

	return &DB{DB: db, tolerance: tolerance}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx so repositories run
// unchanged inside or outside a unit of work
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction carried by the context when present, otherwise
// the plain connection
func (db *DB) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db.DB
}
