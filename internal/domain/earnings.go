package domain

import (
	"time"

	"github.com/google/uuid"
)

// EarningsEntryKind classifies why a ledger row was appended
type EarningsEntryKind string

const (
	EarningsStageCompletion    EarningsEntryKind = "STAGE_COMPLETION"
	EarningsStageReversal      EarningsEntryKind = "STAGE_REVERSAL"
	EarningsCorrection         EarningsEntryKind = "CORRECTION"
	EarningsCorrectionReversal EarningsEntryKind = "CORRECTION_REVERSAL"
)

// EarningsLogEntry is one row of the append-only worker compensation ledger.
// Negative amounts represent reversals and deductions. Rows are never
// updated or deleted; corrections are new compensating rows.
type EarningsLogEntry struct {
	ID        uuid.UUID
	WorkerID  uuid.UUID
	TaskID    uuid.UUID
	StageName StageName
	Kind      EarningsEntryKind
	Amount    MonetaryAmount
	// ReversesID links a compensating row to the entry it negates; nil for
	// completion and correction rows
	ReversesID *uuid.UUID
	CreatedAt  time.Time
}
