package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/earnings"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/snapshot"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/status"
)

// Service orchestrates stage mutations. A stage edit, the resulting status
// re-derivation and its earnings ledger row commit as one unit of work, so
// a reader never observes one without the others.
type Service struct {
	UoW       domain.UnitOfWork
	TaskRepo  domain.TaskRepository
	StageRepo domain.StageRepository
	Earnings  *earnings.Service
	Snapshot  *snapshot.Service

	// Now is overridable in tests; defaults to time.Now
	Now func() time.Time
}

// NewService creates a new workflow Service instance
func NewService(
	uow domain.UnitOfWork,
	taskRepo domain.TaskRepository,
	stageRepo domain.StageRepository,
	earningsService *earnings.Service,
	snapshotService *snapshot.Service,
) *Service {
	return &Service{
		UoW:       uow,
		TaskRepo:  taskRepo,
		StageRepo: stageRepo,
		Earnings:  earningsService,
		Snapshot:  snapshotService,
		Now:       time.Now,
	}
}

// CreateTask creates a task with its frozen monetary snapshot and the fixed
// pipeline stage set
func (s *Service) CreateTask(ctx context.Context, clientID, branchID uuid.UUID) (*domain.Task, error) {
	now := s.Now()

	snap, err := s.Snapshot.Capture(ctx, clientID, branchID, now)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		ID:        uuid.New(),
		ClientID:  clientID,
		BranchID:  branchID,
		Status:    domain.TaskNotStarted,
		Snapshot:  snap,
		CreatedAt: now,
	}

	err = s.UoW.Do(ctx, func(ctx context.Context) error {
		if err := s.TaskRepo.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		if err := s.StageRepo.CreateAll(ctx, domain.NewPipeline(task.ID)); err != nil {
			return fmt.Errorf("failed to create pipeline stages: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return task, nil
}

// CompleteStage marks a stage DONE for a worker, re-derives the overall
// status from the full stage set and appends the compensation ledger row,
// all atomically
func (s *Service) CompleteStage(ctx context.Context, taskID uuid.UUID, name domain.StageName, workerID uuid.UUID) error {
	return s.UoW.Do(ctx, func(ctx context.Context) error {
		stage, err := s.StageRepo.GetByTaskAndName(ctx, taskID, name)
		if err != nil {
			return err
		}

		if stage.IsDone() {
			return fmt.Errorf("stage %s of task %s is already done: %w", name, taskID, domain.ErrValidation)
		}

		now := s.Now()
		if stage.StartedAt == nil {
			stage.StartedAt = &now
		}
		stage.Status = domain.StageDone
		stage.CompletedAt = &now
		stage.AssigneeID = &workerID

		if err := s.StageRepo.Update(ctx, stage); err != nil {
			return fmt.Errorf("failed to update stage: %w", err)
		}

		if err := s.rederiveStatus(ctx, taskID); err != nil {
			return err
		}

		if _, err := s.Earnings.RecordCompletion(ctx, stage); err != nil {
			return err
		}

		return nil
	})
}

// RevertStage returns a DONE stage to NOT_STARTED. Only the assignee who
// completed the stage may revert it. The compensating ledger row and the
// status re-derivation commit with the stage edit.
func (s *Service) RevertStage(ctx context.Context, taskID uuid.UUID, name domain.StageName, workerID uuid.UUID) error {
	return s.UoW.Do(ctx, func(ctx context.Context) error {
		stage, err := s.StageRepo.GetByTaskAndName(ctx, taskID, name)
		if err != nil {
			return err
		}

		if !stage.IsDone() {
			return fmt.Errorf("stage %s of task %s is not done: %w", name, taskID, domain.ErrValidation)
		}

		if stage.AssigneeID == nil || *stage.AssigneeID != workerID {
			return fmt.Errorf("stage %s of task %s belongs to another worker: %w", name, taskID, domain.ErrUnauthorized)
		}

		if _, err := s.Earnings.RecordReversal(ctx, stage); err != nil {
			return err
		}

		stage.Status = domain.StageNotStarted
		stage.CompletedAt = nil
		stage.AssigneeID = nil

		if err := s.StageRepo.Update(ctx, stage); err != nil {
			return fmt.Errorf("failed to update stage: %w", err)
		}

		return s.rederiveStatus(ctx, taskID)
	})
}

// OverrideStatus accepts an externally decided status write, used by the
// document-validation gate at the boundary
func (s *Service) OverrideStatus(ctx context.Context, taskID uuid.UUID, overridden domain.TaskStatus) error {
	if overridden == "" {
		return fmt.Errorf("override status cannot be empty: %w", domain.ErrValidation)
	}
	return s.TaskRepo.UpdateStatus(ctx, taskID, overridden)
}

// SetCustomsMultiplier applies the declaration-stage customs multiplier to
// the task's snapshot inside one unit of work
func (s *Service) SetCustomsMultiplier(ctx context.Context, taskID uuid.UUID, multiplier decimal.Decimal) error {
	return s.UoW.Do(ctx, func(ctx context.Context) error {
		task, err := s.TaskRepo.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		return s.Snapshot.ApplyMultiplier(ctx, task, multiplier)
	})
}

// ReassignBranch moves the task under a new governing branch, recomputing
// only the fee-schedule snapshot fields
func (s *Service) ReassignBranch(ctx context.Context, taskID uuid.UUID, branchID uuid.UUID) error {
	return s.UoW.Do(ctx, func(ctx context.Context) error {
		task, err := s.TaskRepo.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		return s.Snapshot.ReassignBranch(ctx, task, branchID)
	})
}

// rederiveStatus recomputes the overall status from the full stage set
func (s *Service) rederiveStatus(ctx context.Context, taskID uuid.UUID) error {
	stages, err := s.StageRepo.ListByTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to list stages: %w", err)
	}
	derived := status.Derive(stages)
	if err := s.TaskRepo.UpdateStatus(ctx, taskID, derived); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return nil
}
