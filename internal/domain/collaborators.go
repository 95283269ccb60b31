package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientRecord is the governing client data read once at snapshot time
type ClientRecord struct {
	ID         uuid.UUID
	DealAmount decimal.Decimal
	Currency   Currency
}

// FeeSchedule is the governing branch fee data read once at snapshot time
// and again only on branch reassignment
type FeeSchedule struct {
	BranchID           uuid.UUID
	CertificatePayment decimal.Decimal
	WorkerPayment      decimal.Decimal
	CustomsPayment     decimal.Decimal
	Currency           Currency
}

// ClientDirectory provides read-only access to governing client records
type ClientDirectory interface {
	GetClient(ctx context.Context, id uuid.UUID) (*ClientRecord, error)
}

// BranchDirectory provides read-only access to governing branch fee schedules
type BranchDirectory interface {
	GetFeeSchedule(ctx context.Context, branchID uuid.UUID) (*FeeSchedule, error)
}

// DisbursementSource reports amounts already paid out to a worker.
// Disbursement records live outside this engine.
type DisbursementSource interface {
	TotalPaid(ctx context.Context, workerID uuid.UUID) (decimal.Decimal, error)
}

// WorkerDirectory answers identity questions about workers
type WorkerDirectory interface {
	IsAdmin(ctx context.Context, workerID uuid.UUID) (bool, error)
}

// PipelineDefinition is the static per-stage pricing configuration:
// a fixed USD price per completed stage and, for administrator identities,
// the percentage of the task's worker-price snapshot earned per stage.
type PipelineDefinition struct {
	StagePrices   map[StageName]decimal.Decimal
	AdminPercents map[StageName]decimal.Decimal
}

// PriceFor returns the fixed USD price for a stage name, or ok=false when
// the stage carries no price.
func (p *PipelineDefinition) PriceFor(name StageName) (decimal.Decimal, bool) {
	price, ok := p.StagePrices[name]
	return price, ok
}

// PercentFor returns the administrator percentage for a stage name.
func (p *PipelineDefinition) PercentFor(name StageName) (decimal.Decimal, bool) {
	percent, ok := p.AdminPercents[name]
	return percent, ok
}
