package earnings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// WorkerTotals summarizes a worker's compensation position, in base currency
type WorkerTotals struct {
	Earned  decimal.Decimal
	Paid    decimal.Decimal
	Pending decimal.Decimal
}

// Aggregator computes compensation totals from the ledger, disbursement
// records and per-task snapshots
type Aggregator struct {
	EarningsRepo  domain.EarningsRepository
	StageRepo     domain.StageRepository
	TaskRepo      domain.TaskRepository
	Disbursements domain.DisbursementSource
	Workers       domain.WorkerDirectory
	Pipeline      *domain.PipelineDefinition
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(
	earningsRepo domain.EarningsRepository,
	stageRepo domain.StageRepository,
	taskRepo domain.TaskRepository,
	disbursements domain.DisbursementSource,
	workers domain.WorkerDirectory,
	pipeline *domain.PipelineDefinition,
) *Aggregator {
	return &Aggregator{
		EarningsRepo:  earningsRepo,
		StageRepo:     stageRepo,
		TaskRepo:      taskRepo,
		Disbursements: disbursements,
		Workers:       workers,
		Pipeline:      pipeline,
	}
}

// Totals returns earned, paid and pending figures for a worker.
// Earned sums the worker's ledger rows; paid comes from the external
// disbursement records; pending is earned minus paid.
func (a *Aggregator) Totals(ctx context.Context, workerID uuid.UUID) (*WorkerTotals, error) {
	earned, err := a.EarningsRepo.SumBaseByWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger for worker %s: %w", workerID, err)
	}

	paid, err := a.Disbursements.TotalPaid(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read disbursements for worker %s: %w", workerID, err)
	}

	return &WorkerTotals{
		Earned:  earned,
		Paid:    paid,
		Pending: earned.Sub(paid),
	}, nil
}

// AdminEarned computes the administrator figure: over every DONE stage
// assigned to the administrator, the owning task's worker-price snapshot
// times the fixed percentage for that stage name. Returned in base currency.
func (a *Aggregator) AdminEarned(ctx context.Context, adminID uuid.UUID) (decimal.Decimal, error) {
	isAdmin, err := a.Workers.IsAdmin(ctx, adminID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !isAdmin {
		return decimal.Decimal{}, fmt.Errorf("worker %s is not an administrator: %w", adminID, domain.ErrValidation)
	}

	stages, err := a.StageRepo.ListDoneByAssignee(ctx, adminID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to list stages for admin %s: %w", adminID, err)
	}

	total := decimal.Zero
	hundred := decimal.NewFromInt(100)

	for _, stage := range stages {
		percent, ok := a.Pipeline.PercentFor(stage.Name)
		if !ok {
			continue
		}

		task, err := a.TaskRepo.GetByID(ctx, stage.TaskID)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("failed to load task %s: %w", stage.TaskID, err)
		}

		share := task.Snapshot.WorkerPayment.BaseAmount.Mul(percent).Div(hundred)
		total = total.Add(share)
	}

	return total, nil
}
