package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// stageRepository implements domain.StageRepository
type stageRepository struct {
	db *DB
}

// NewStageRepository creates a new stage repository
func NewStageRepository(db *DB) domain.StageRepository {
	return &stageRepository{db: db}
}

const stageColumns = `id, task_id, name, order_index, status, started_at, completed_at, assignee_id`

// ListByTask retrieves the full ordered stage set of a task
func (r *stageRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stages
		WHERE task_id = $1
		ORDER BY order_index
	`

	rows, err := r.db.q(ctx).QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	return scanStages(rows)
}

// GetByTaskAndName retrieves a single stage of a task
func (r *stageRepository) GetByTaskAndName(ctx context.Context, taskID uuid.UUID, name domain.StageName) (*domain.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stages
		WHERE task_id = $1 AND name = $2
	`

	stage, err := scanStage(r.db.q(ctx).QueryRowContext(ctx, query, taskID, string(name)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("stage %s of task %s: %w", name, taskID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}

	return stage, nil
}

// CreateAll persists the fixed stage set created with a task
func (r *stageRepository) CreateAll(ctx context.Context, stages []*domain.Stage) error {
	query := `
		INSERT INTO stages (` + stageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, stage := range stages {
		_, err := r.db.q(ctx).ExecContext(ctx, query,
			stage.ID,
			stage.TaskID,
			string(stage.Name),
			stage.OrderIndex,
			string(stage.Status),
			stage.StartedAt,
			stage.CompletedAt,
			stage.AssigneeID,
		)
		if err != nil {
			return fmt.Errorf("failed to create stage %s: %w", stage.Name, err)
		}
	}

	return nil
}

// Update rewrites a single stage row
func (r *stageRepository) Update(ctx context.Context, stage *domain.Stage) error {
	query := `
		UPDATE stages
		SET status = $2, started_at = $3, completed_at = $4, assignee_id = $5
		WHERE id = $1
	`

	result, err := r.db.q(ctx).ExecContext(ctx, query,
		stage.ID,
		string(stage.Status),
		stage.StartedAt,
		stage.CompletedAt,
		stage.AssigneeID,
	)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("stage %s: %w", stage.ID, domain.ErrNotFound)
	}

	return nil
}

// ListDoneByAssignee retrieves every DONE stage completed by a worker
func (r *stageRepository) ListDoneByAssignee(ctx context.Context, workerID uuid.UUID) ([]*domain.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stages
		WHERE assignee_id = $1 AND status = $2
		ORDER BY completed_at
	`

	rows, err := r.db.q(ctx).QueryContext(ctx, query, workerID, string(domain.StageDone))
	if err != nil {
		return nil, fmt.Errorf("failed to list stages by assignee: %w", err)
	}
	defer rows.Close()

	return scanStages(rows)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanStage scans a single stage row
func scanStage(row rowScanner) (*domain.Stage, error) {
	var stage domain.Stage
	var name, status string
	var startedAt, completedAt sql.NullTime
	var assigneeID sql.NullString

	err := row.Scan(
		&stage.ID,
		&stage.TaskID,
		&name,
		&stage.OrderIndex,
		&status,
		&startedAt,
		&completedAt,
		&assigneeID,
	)
	if err != nil {
		return nil, err
	}

	stage.Name = domain.StageName(name)
	stage.Status = domain.StageStatus(status)
	if startedAt.Valid {
		stage.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		stage.CompletedAt = &completedAt.Time
	}
	if assigneeID.Valid {
		id, err := uuid.Parse(assigneeID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse assignee_id: %w", err)
		}
		stage.AssigneeID = &id
	}

	return &stage, nil
}

// scanStages scans all stage rows of a result set
func scanStages(rows *sql.Rows) ([]*domain.Stage, error) {
	var stages []*domain.Stage
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, stage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stages: %w", err)
	}
	return stages, nil
}
