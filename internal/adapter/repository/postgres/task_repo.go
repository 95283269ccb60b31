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

// taskRepository implements domain.TaskRepository
type taskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) domain.TaskRepository {
	return &taskRepository{db: db}
}

// snapshotColumns lists the monetary snapshot columns in the fixed order
// deal, certificate, worker, customs (five columns each) followed by the
// customs reference/multiplier/surcharge triple
const snapshotColumns = `
	deal_original, deal_currency, deal_rate, deal_base, deal_source,
	cert_original, cert_currency, cert_rate, cert_base, cert_source,
	worker_original, worker_currency, worker_rate, worker_base, worker_source,
	customs_original, customs_currency, customs_rate, customs_base, customs_source,
	customs_reference, customs_multiplier, customs_surcharge`

// GetByID retrieves a task with its snapshot fields
func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, client_id, branch_id, status, created_at, ` + snapshotColumns + `
		FROM tasks
		WHERE id = $1
	`

	var task domain.Task
	var taskStatus string
	var deal, cert, worker, customs moneyRow
	var reference, multiplier, surcharge string

	dest := []any{&task.ID, &task.ClientID, &task.BranchID, &taskStatus, &task.CreatedAt}
	dest = append(dest, deal.fields()...)
	dest = append(dest, cert.fields()...)
	dest = append(dest, worker.fields()...)
	dest = append(dest, customs.fields()...)
	dest = append(dest, &reference, &multiplier, &surcharge)

	err := r.db.q(ctx).QueryRowContext(ctx, query, id).Scan(dest...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task.Status = domain.TaskStatus(taskStatus)

	snapshot, err := buildSnapshot(deal, cert, worker, customs, reference, multiplier, surcharge, r.db.tolerance)
	if err != nil {
		return nil, err
	}
	task.Snapshot = snapshot

	return &task, nil
}

// Create persists a new task and its snapshot
func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (id, client_id, branch_id, status, created_at, ` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25,
			$26, $27, $28)
	`

	args := []any{task.ID, task.ClientID, task.BranchID, string(task.Status), task.CreatedAt}
	args = append(args, snapshotArgs(&task.Snapshot)...)

	if _, err := r.db.q(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// UpdateStatus writes the derived overall status
func (r *taskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error {
	query := `UPDATE tasks SET status = $2 WHERE id = $1`

	result, err := r.db.q(ctx).ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return requireAffected(result, id)
}

// UpdateSnapshot rewrites the snapshot fields after one of the two
// permitted recomputation paths
func (r *taskRepository) UpdateSnapshot(ctx context.Context, id uuid.UUID, snapshot *domain.TaskSnapshot) error {
	query := `
		UPDATE tasks SET
			deal_original = $2, deal_currency = $3, deal_rate = $4, deal_base = $5, deal_source = $6,
			cert_original = $7, cert_currency = $8, cert_rate = $9, cert_base = $10, cert_source = $11,
			worker_original = $12, worker_currency = $13, worker_rate = $14, worker_base = $15, worker_source = $16,
			customs_original = $17, customs_currency = $18, customs_rate = $19, customs_base = $20, customs_source = $21,
			customs_reference = $22, customs_multiplier = $23, customs_surcharge = $24
		WHERE id = $1
	`

	args := append([]any{id}, snapshotArgs(snapshot)...)

	result, err := r.db.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}
	return requireAffected(result, id)
}

// UpdateBranch rewrites the governing branch reference
func (r *taskRepository) UpdateBranch(ctx context.Context, id uuid.UUID, branchID uuid.UUID) error {
	query := `UPDATE tasks SET branch_id = $2 WHERE id = $1`

	result, err := r.db.q(ctx).ExecContext(ctx, query, id, branchID)
	if err != nil {
		return fmt.Errorf("failed to update branch: %w", err)
	}
	return requireAffected(result, id)
}

// ListIDs returns all task IDs for batch recomputation
func (r *taskRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.q(ctx).QueryContext(ctx, `SELECT id FROM tasks ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list task IDs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task IDs: %w", err)
	}

	return ids, nil
}

// snapshotArgs returns the snapshot exec arguments in column order
func snapshotArgs(s *domain.TaskSnapshot) []any {
	args := moneyArgs(s.DealAmount)
	args = append(args, moneyArgs(s.CertificatePayment)...)
	args = append(args, moneyArgs(s.WorkerPayment)...)
	args = append(args, moneyArgs(s.CustomsPayment)...)
	args = append(args,
		s.CustomsReference.String(),
		s.CustomsMultiplier.String(),
		s.CustomsSurcharge.String(),
	)
	return args
}

// buildSnapshot parses the scanned snapshot columns, validating each
// rehydrated amount against the monetary invariants
func buildSnapshot(deal, cert, worker, customs moneyRow, reference, multiplier, surcharge string, tolerance decimal.Decimal) (domain.TaskSnapshot, error) {
	var snapshot domain.TaskSnapshot
	var err error

	if snapshot.DealAmount, err = deal.toDomain(tolerance); err != nil {
		return domain.TaskSnapshot{}, err
	}
	if snapshot.CertificatePayment, err = cert.toDomain(tolerance); err != nil {
		return domain.TaskSnapshot{}, err
	}
	if snapshot.WorkerPayment, err = worker.toDomain(tolerance); err != nil {
		return domain.TaskSnapshot{}, err
	}
	if snapshot.CustomsPayment, err = customs.toDomain(tolerance); err != nil {
		return domain.TaskSnapshot{}, err
	}

	if snapshot.CustomsReference, err = decimal.NewFromString(reference); err != nil {
		return domain.TaskSnapshot{}, fmt.Errorf("failed to parse customs_reference: %w", err)
	}
	if snapshot.CustomsMultiplier, err = decimal.NewFromString(multiplier); err != nil {
		return domain.TaskSnapshot{}, fmt.Errorf("failed to parse customs_multiplier: %w", err)
	}
	if snapshot.CustomsSurcharge, err = decimal.NewFromString(surcharge); err != nil {
		return domain.TaskSnapshot{}, fmt.Errorf("failed to parse customs_surcharge: %w", err)
	}

	return snapshot, nil
}

// requireAffected converts a zero-row update into ErrNotFound
func requireAffected(result sql.Result, id uuid.UUID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
