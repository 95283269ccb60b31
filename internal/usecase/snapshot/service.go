package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/conversion"
)

// Multiplier bounds for the declaration-stage customs adjustment
var (
	MinCustomsMultiplier = decimal.NewFromFloat(0.5)
	MaxCustomsMultiplier = decimal.NewFromFloat(4.0)
)

// Service captures and selectively recomputes the frozen monetary snapshot
// of a task. The governing client/branch records are only ever read; values
// are copied forward into the task's own fields and frozen there.
type Service struct {
	Clients  domain.ClientDirectory
	Branches domain.BranchDirectory
	Engine   *conversion.Engine
	TaskRepo domain.TaskRepository
}

// NewService creates a new snapshot Service instance
func NewService(
	clients domain.ClientDirectory,
	branches domain.BranchDirectory,
	engine *conversion.Engine,
	taskRepo domain.TaskRepository,
) *Service {
	return &Service{
		Clients:  clients,
		Branches: branches,
		Engine:   engine,
		TaskRepo: taskRepo,
	}
}

// Capture copies the current deal amount from the governing client record
// and the current fee-schedule amounts from the governing branch record,
// each resolved to a MonetaryAmount at the given creation time.
// The result is frozen on the task thereafter.
func (s *Service) Capture(ctx context.Context, clientID, branchID uuid.UUID, at time.Time) (domain.TaskSnapshot, error) {
	client, err := s.Clients.GetClient(ctx, clientID)
	if err != nil {
		return domain.TaskSnapshot{}, fmt.Errorf("failed to read client record: %w", err)
	}

	schedule, err := s.Branches.GetFeeSchedule(ctx, branchID)
	if err != nil {
		return domain.TaskSnapshot{}, fmt.Errorf("failed to read branch fee schedule: %w", err)
	}

	dealAmount, err := s.capture(ctx, client.DealAmount, client.Currency, at)
	if err != nil {
		return domain.TaskSnapshot{}, err
	}

	fees, err := s.captureFees(ctx, schedule, at)
	if err != nil {
		return domain.TaskSnapshot{}, err
	}

	fees.DealAmount = dealAmount
	return fees, nil
}

// ApplyMultiplier recomputes the customs-payment snapshot from a bounded
// multiplier of the captured customs reference and adjusts the deal amount
// by the delta between the previous and new surcharge components.
// Adjusting by delta keeps repeated edits from compounding rounding error.
func (s *Service) ApplyMultiplier(ctx context.Context, task *domain.Task, multiplier decimal.Decimal) error {
	if multiplier.LessThan(MinCustomsMultiplier) || multiplier.GreaterThan(MaxCustomsMultiplier) {
		return fmt.Errorf("customs multiplier %s outside [%s, %s]: %w",
			multiplier.String(), MinCustomsMultiplier.String(), MaxCustomsMultiplier.String(), domain.ErrValidation)
	}

	snap := task.Snapshot

	newSurcharge := multiplier.Sub(decimal.NewFromInt(1)).Mul(snap.CustomsReference)
	delta := newSurcharge.Sub(snap.CustomsSurcharge)

	// Customs payment derives from the reference and the multiplier alone,
	// priced at the rate frozen at capture time.
	customsOriginal := snap.CustomsReference.Mul(multiplier)
	customsPayment, err := domain.NewMonetaryAmount(
		customsOriginal,
		snap.CustomsPayment.OriginalCurrency,
		snap.CustomsPayment.ExchangeRate,
		snap.CustomsPayment.RateSource,
	)
	if err != nil {
		return err
	}

	// The delta is denominated in the customs currency; route it through the
	// base currency at the customs snapshot's stored rate before folding it
	// into the deal, which may be stored in either currency.
	baseDelta, err := conversion.Convert(delta,
		snap.CustomsPayment.OriginalCurrency,
		domain.CurrencyUZS,
		snap.CustomsPayment.ExchangeRate,
	)
	if err != nil {
		return err
	}

	dealDelta, err := conversion.Convert(baseDelta,
		domain.CurrencyUZS,
		snap.DealAmount.OriginalCurrency,
		snap.DealAmount.ExchangeRate,
	)
	if err != nil {
		return err
	}

	dealAmount, err := domain.NewMonetaryAmount(
		snap.DealAmount.OriginalAmount.Add(dealDelta),
		snap.DealAmount.OriginalCurrency,
		snap.DealAmount.ExchangeRate,
		snap.DealAmount.RateSource,
	)
	if err != nil {
		return err
	}

	snap.CustomsPayment = customsPayment
	snap.DealAmount = dealAmount
	snap.CustomsMultiplier = multiplier
	snap.CustomsSurcharge = newSurcharge

	if err := s.TaskRepo.UpdateSnapshot(ctx, task.ID, &snap); err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}

	task.Snapshot = snap
	return nil
}

// ReassignBranch recomputes only the fee-schedule-derived snapshot fields
// from the new branch's schedule, priced as of the task's original creation
// time. The deal-amount snapshot is untouched.
func (s *Service) ReassignBranch(ctx context.Context, task *domain.Task, newBranchID uuid.UUID) error {
	schedule, err := s.Branches.GetFeeSchedule(ctx, newBranchID)
	if err != nil {
		return fmt.Errorf("failed to read branch fee schedule: %w", err)
	}

	fees, err := s.captureFees(ctx, schedule, task.CreatedAt)
	if err != nil {
		return err
	}

	// Re-apply the current multiplier against the new reference.
	fees.DealAmount = task.Snapshot.DealAmount
	snap := fees
	if !task.Snapshot.CustomsMultiplier.Equal(decimal.NewFromInt(1)) {
		multiplier := task.Snapshot.CustomsMultiplier
		customsPayment, err := domain.NewMonetaryAmount(
			snap.CustomsReference.Mul(multiplier),
			snap.CustomsPayment.OriginalCurrency,
			snap.CustomsPayment.ExchangeRate,
			snap.CustomsPayment.RateSource,
		)
		if err != nil {
			return err
		}
		snap.CustomsPayment = customsPayment
		snap.CustomsMultiplier = multiplier
		snap.CustomsSurcharge = multiplier.Sub(decimal.NewFromInt(1)).Mul(snap.CustomsReference)
	}

	if err := s.TaskRepo.UpdateSnapshot(ctx, task.ID, &snap); err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}
	if err := s.TaskRepo.UpdateBranch(ctx, task.ID, newBranchID); err != nil {
		return fmt.Errorf("failed to update branch: %w", err)
	}

	task.Snapshot = snap
	task.BranchID = newBranchID
	return nil
}

// captureFees resolves the three fee-schedule amounts at the given time
func (s *Service) captureFees(ctx context.Context, schedule *domain.FeeSchedule, at time.Time) (domain.TaskSnapshot, error) {
	certificate, err := s.capture(ctx, schedule.CertificatePayment, schedule.Currency, at)
	if err != nil {
		return domain.TaskSnapshot{}, err
	}
	worker, err := s.capture(ctx, schedule.WorkerPayment, schedule.Currency, at)
	if err != nil {
		return domain.TaskSnapshot{}, err
	}
	customs, err := s.capture(ctx, schedule.CustomsPayment, schedule.Currency, at)
	if err != nil {
		return domain.TaskSnapshot{}, err
	}

	return domain.TaskSnapshot{
		CertificatePayment: certificate,
		WorkerPayment:      worker,
		CustomsPayment:     customs,
		CustomsReference:   schedule.CustomsPayment,
		CustomsMultiplier:  decimal.NewFromInt(1),
		CustomsSurcharge:   decimal.Zero,
	}, nil
}

// capture resolves one amount to a MonetaryAmount at the given time
func (s *Service) capture(ctx context.Context, amount decimal.Decimal, currency domain.Currency, at time.Time) (domain.MonetaryAmount, error) {
	rate, err := s.Engine.ResolveRate(ctx, at, currency, domain.CurrencyUZS)
	if err != nil {
		return domain.MonetaryAmount{}, err
	}
	return domain.NewMonetaryAmount(amount, currency, rate, domain.RateSourceOfficial)
}
