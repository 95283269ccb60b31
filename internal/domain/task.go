package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaskStatus is the derived lifecycle status of a task.
// It is never set directly except through stage mutations or an external
// override accepted at the boundary (document-validation gate).
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "NOT_STARTED"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReady      TaskStatus = "READY"
	TaskVerified   TaskStatus = "VERIFIED"
	TaskHandedOver TaskStatus = "HANDED_OVER"
	TaskCompleted  TaskStatus = "COMPLETED"

	// TaskDocumentsPending is reachable only through the external
	// document-validation gate; it is accepted as an override input, never
	// derived from the stage set.
	TaskDocumentsPending TaskStatus = "DOCUMENTS_PENDING"
)

// Task represents a customs declaration job moving through the pipeline
type Task struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	BranchID  uuid.UUID
	Status    TaskStatus
	Snapshot  TaskSnapshot
	CreatedAt time.Time
}

// TaskSnapshot holds the monetary fields captured once at task creation and
// frozen against later edits to the governing client/branch records.
// Only two recomputation paths may touch it: the customs multiplier
// adjustment and a branch reassignment.
type TaskSnapshot struct {
	DealAmount         MonetaryAmount
	CertificatePayment MonetaryAmount
	WorkerPayment      MonetaryAmount
	CustomsPayment     MonetaryAmount

	// CustomsReference is the governing customs fee the multiplier applies
	// to. CustomsMultiplier is the bounded multiplier last applied through
	// the declaration stage, and CustomsSurcharge the surcharge component
	// it produced. The surcharge is kept so repeated edits adjust the deal
	// amount by delta instead of recomputing from scratch, which would
	// compound rounding drift.
	CustomsReference  decimal.Decimal
	CustomsMultiplier decimal.Decimal
	CustomsSurcharge  decimal.Decimal
}
