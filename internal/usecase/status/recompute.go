package status

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// RecomputeService re-derives the overall status for many tasks, isolating
// failures per item so one task's error never aborts the batch.
type RecomputeService struct {
	TaskRepo  domain.TaskRepository
	StageRepo domain.StageRepository
	Logger    *slog.Logger
}

// NewRecomputeService creates a new RecomputeService instance
func NewRecomputeService(taskRepo domain.TaskRepository, stageRepo domain.StageRepository, logger *slog.Logger) *RecomputeService {
	return &RecomputeService{
		TaskRepo:  taskRepo,
		StageRepo: stageRepo,
		Logger:    logger,
	}
}

// ItemError reports one failed item of a batch
type ItemError struct {
	TaskID uuid.UUID
	Err    error
}

// RecomputeOne re-derives and persists the status of a single task
func (s *RecomputeService) RecomputeOne(ctx context.Context, taskID uuid.UUID) error {
	stages, err := s.StageRepo.ListByTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to load stages for task %s: %w", taskID, err)
	}

	derived := Derive(stages)
	if err := s.TaskRepo.UpdateStatus(ctx, taskID, derived); err != nil {
		return fmt.Errorf("failed to update status for task %s: %w", taskID, err)
	}

	return nil
}

// RecomputeAll re-derives the status of every task. Per-item errors are
// collected and logged; unrelated items are never rolled back.
func (s *RecomputeService) RecomputeAll(ctx context.Context) ([]ItemError, error) {
	taskIDs, err := s.TaskRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var failures []ItemError
	for _, taskID := range taskIDs {
		if err := s.RecomputeOne(ctx, taskID); err != nil {
			failures = append(failures, ItemError{TaskID: taskID, Err: err})
			s.Logger.Error("status recompute failed for task",
				slog.String("task_id", taskID.String()),
				slog.Any("error", err),
			)
		}
	}

	return failures, nil
}
