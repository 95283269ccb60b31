package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// earningsRepository implements domain.EarningsRepository.
// The ledger is append-only: this type deliberately has no UPDATE or DELETE
// statement.
type earningsRepository struct {
	db *DB
}

// NewEarningsRepository creates a new earnings ledger repository
func NewEarningsRepository(db *DB) domain.EarningsRepository {
	return &earningsRepository{db: db}
}

const earningsColumns = `id, worker_id, task_id, stage_name, kind, reverses_id,
	amount_original, amount_currency, amount_rate, amount_base, amount_source,
	created_at`

// Append inserts one ledger row
func (r *earningsRepository) Append(ctx context.Context, entry *domain.EarningsLogEntry) error {
	query := `
		INSERT INTO earnings_log (` + earningsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var reverses uuid.NullUUID
	if entry.ReversesID != nil {
		reverses = uuid.NullUUID{UUID: *entry.ReversesID, Valid: true}
	}

	args := []any{
		entry.ID,
		entry.WorkerID,
		entry.TaskID,
		string(entry.StageName),
		string(entry.Kind),
		reverses,
	}
	args = append(args, moneyArgs(entry.Amount)...)
	args = append(args, entry.CreatedAt)

	if _, err := r.db.q(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append earnings entry: %w", err)
	}

	return nil
}

// GetByID retrieves a single ledger row
func (r *earningsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.EarningsLogEntry, error) {
	query := `
		SELECT ` + earningsColumns + `
		FROM earnings_log
		WHERE id = $1
	`

	entry, err := scanEarningsEntry(r.db.q(ctx).QueryRowContext(ctx, query, id), r.db.tolerance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("earnings entry %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get earnings entry: %w", err)
	}

	return entry, nil
}

// ListByWorker retrieves all ledger rows for a worker
func (r *earningsRepository) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*domain.EarningsLogEntry, error) {
	query := `
		SELECT ` + earningsColumns + `
		FROM earnings_log
		WHERE worker_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.q(ctx).QueryContext(ctx, query, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list earnings entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.EarningsLogEntry
	for rows.Next() {
		entry, err := scanEarningsEntry(rows, r.db.tolerance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan earnings entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate earnings entries: %w", err)
	}

	return entries, nil
}

// LastCompletion retrieves the most recent stage-completion row for a
// (worker, task, stage) triple
func (r *earningsRepository) LastCompletion(ctx context.Context, workerID, taskID uuid.UUID, name domain.StageName) (*domain.EarningsLogEntry, error) {
	query := `
		SELECT ` + earningsColumns + `
		FROM earnings_log
		WHERE worker_id = $1 AND task_id = $2 AND stage_name = $3 AND kind = $4
		ORDER BY created_at DESC
		LIMIT 1
	`

	entry, err := scanEarningsEntry(r.db.q(ctx).QueryRowContext(ctx, query,
		workerID, taskID, string(name), string(domain.EarningsStageCompletion)), r.db.tolerance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("completion entry for stage %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get completion entry: %w", err)
	}

	return entry, nil
}

// SumBaseByWorker returns the sum of base amounts over a worker's rows
func (r *earningsRepository) SumBaseByWorker(ctx context.Context, workerID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount_base), 0)
		FROM earnings_log
		WHERE worker_id = $1
	`

	var sumStr string
	if err := r.db.q(ctx).QueryRowContext(ctx, query, workerID).Scan(&sumStr); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to sum earnings: %w", err)
	}

	sum, err := decimal.NewFromString(sumStr)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse earnings sum: %w", err)
	}

	return sum, nil
}

// HasReversalOf reports whether a compensating row already negates the
// given entry
func (r *earningsRepository) HasReversalOf(ctx context.Context, entryID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM earnings_log WHERE reverses_id = $1)`

	var exists bool
	if err := r.db.q(ctx).QueryRowContext(ctx, query, entryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for reversal: %w", err)
	}

	return exists, nil
}

// scanEarningsEntry scans a single ledger row, enforcing the monetary
// invariants on the rehydrated amount
func scanEarningsEntry(row rowScanner, tolerance decimal.Decimal) (*domain.EarningsLogEntry, error) {
	var entry domain.EarningsLogEntry
	var stageName, kind string
	var reverses uuid.NullUUID
	var amount moneyRow

	dest := []any{&entry.ID, &entry.WorkerID, &entry.TaskID, &stageName, &kind, &reverses}
	dest = append(dest, amount.fields()...)
	dest = append(dest, &entry.CreatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	parsed, err := amount.toDomain(tolerance)
	if err != nil {
		return nil, err
	}

	entry.StageName = domain.StageName(stageName)
	entry.Kind = domain.EarningsEntryKind(kind)
	entry.Amount = parsed
	if reverses.Valid {
		entry.ReversesID = &reverses.UUID
	}
	return &entry, nil
}
