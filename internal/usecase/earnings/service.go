package earnings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/conversion"
)

// DefaultGraceWindow bounds how long after creation a manual correction may
// still be compensated away. Overridable through configuration.
const DefaultGraceWindow = 48 * time.Hour

// Service appends rows to the worker compensation ledger. History is never
// rewritten: reversals and correction edits are new compensating rows.
type Service struct {
	EarningsRepo domain.EarningsRepository
	Engine       *conversion.Engine
	Pipeline     *domain.PipelineDefinition
	GraceWindow  time.Duration

	// Now is overridable in tests; defaults to time.Now
	Now func() time.Time
}

// NewService creates a new earnings Service instance
func NewService(
	earningsRepo domain.EarningsRepository,
	engine *conversion.Engine,
	pipeline *domain.PipelineDefinition,
	graceWindow time.Duration,
) *Service {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	return &Service{
		EarningsRepo: earningsRepo,
		Engine:       engine,
		Pipeline:     pipeline,
		GraceWindow:  graceWindow,
		Now:          time.Now,
	}
}

// RecordCompletion appends one ledger row for a completed stage: the fixed
// USD price for the stage name, converted at the rate as of completion time.
// Stages without a known assignee or without a price produce no row.
func (s *Service) RecordCompletion(ctx context.Context, stage *domain.Stage) (*domain.EarningsLogEntry, error) {
	if stage.AssigneeID == nil {
		return nil, nil
	}

	price, ok := s.Pipeline.PriceFor(stage.Name)
	if !ok {
		return nil, nil
	}

	completedAt := s.Now()
	if stage.CompletedAt != nil {
		completedAt = *stage.CompletedAt
	}

	rate, err := s.Engine.ResolveRate(ctx, completedAt, domain.CurrencyUSD, domain.CurrencyUZS)
	if err != nil {
		return nil, err
	}

	amount, err := domain.NewMonetaryAmount(price, domain.CurrencyUSD, rate, domain.RateSourceOfficial)
	if err != nil {
		return nil, err
	}

	entry := &domain.EarningsLogEntry{
		ID:        uuid.New(),
		WorkerID:  *stage.AssigneeID,
		TaskID:    stage.TaskID,
		StageName: stage.Name,
		Kind:      domain.EarningsStageCompletion,
		Amount:    amount,
		CreatedAt: s.Now(),
	}

	if err := s.EarningsRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append earnings entry: %w", err)
	}

	return entry, nil
}

// RecordReversal appends a compensating row negating the most recent
// completion row for the same worker/task/stage. The original row is kept.
// The negation reuses the original entry's stored rate, so the worker's
// balance returns exactly to its pre-completion value.
func (s *Service) RecordReversal(ctx context.Context, stage *domain.Stage) (*domain.EarningsLogEntry, error) {
	if stage.AssigneeID == nil {
		return nil, nil
	}

	original, err := s.EarningsRepo.LastCompletion(ctx, *stage.AssigneeID, stage.TaskID, stage.Name)
	if err != nil {
		// An unpriced stage appended no completion row; there is nothing
		// to negate and the revert itself must still go through.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	entry := &domain.EarningsLogEntry{
		ID:         uuid.New(),
		WorkerID:   original.WorkerID,
		TaskID:     original.TaskID,
		StageName:  original.StageName,
		Kind:       domain.EarningsStageReversal,
		Amount:     original.Amount.Negated(),
		ReversesID: &original.ID,
		CreatedAt:  s.Now(),
	}

	if err := s.EarningsRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append reversal entry: %w", err)
	}

	return entry, nil
}

// Correct records a manual deduction against a worker for a task/stage as
// its own ledger row. The deduction amount is a positive USD figure; the
// stored row is negative.
func (s *Service) Correct(ctx context.Context, workerID, taskID uuid.UUID, name domain.StageName, deduction decimal.Decimal) (*domain.EarningsLogEntry, error) {
	if deduction.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("deduction must be positive: %w", domain.ErrValidation)
	}

	now := s.Now()
	rate, err := s.Engine.ResolveRate(ctx, now, domain.CurrencyUSD, domain.CurrencyUZS)
	if err != nil {
		return nil, err
	}

	amount, err := domain.NewMonetaryAmount(deduction, domain.CurrencyUSD, rate, domain.RateSourceManual)
	if err != nil {
		return nil, err
	}

	entry := &domain.EarningsLogEntry{
		ID:        uuid.New(),
		WorkerID:  workerID,
		TaskID:    taskID,
		StageName: name,
		Kind:      domain.EarningsCorrection,
		Amount:    amount.Negated(),
		CreatedAt: now,
	}

	if err := s.EarningsRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append correction entry: %w", err)
	}

	return entry, nil
}

// ReverseCorrection undoes a manual correction by appending its inverse,
// at most once per correction. Permitted only within the grace window of
// the correction's creation; afterwards the correction is as immutable as
// any other ledger row.
func (s *Service) ReverseCorrection(ctx context.Context, correctionID uuid.UUID) (*domain.EarningsLogEntry, error) {
	original, err := s.EarningsRepo.GetByID(ctx, correctionID)
	if err != nil {
		return nil, err
	}

	if original.Kind != domain.EarningsCorrection {
		return nil, fmt.Errorf("entry %s is not a correction: %w", correctionID, domain.ErrValidation)
	}

	if s.Now().After(original.CreatedAt.Add(s.GraceWindow)) {
		return nil, fmt.Errorf("correction %s is outside its grace window: %w", correctionID, domain.ErrImmutabilityViolation)
	}

	reversed, err := s.EarningsRepo.HasReversalOf(ctx, correctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing reversal: %w", err)
	}
	if reversed {
		return nil, fmt.Errorf("correction %s is already reversed: %w", correctionID, domain.ErrValidation)
	}

	entry := &domain.EarningsLogEntry{
		ID:         uuid.New(),
		WorkerID:   original.WorkerID,
		TaskID:     original.TaskID,
		StageName:  original.StageName,
		Kind:       domain.EarningsCorrectionReversal,
		Amount:     original.Amount.Negated(),
		ReversesID: &original.ID,
		CreatedAt:  s.Now(),
	}

	if err := s.EarningsRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append correction reversal: %w", err)
	}

	return entry, nil
}
