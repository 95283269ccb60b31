package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeRateRepository defines the interface for exchange rate persistence.
// Records are keyed by (currency, day).
type ExchangeRateRepository interface {
	// GetOnOrBefore retrieves the latest record with a date at or before
	// the given day. Returns ErrNotFound when no such record exists.
	GetOnOrBefore(ctx context.Context, currency Currency, day time.Time) (*ExchangeRateRecord, error)

	// GetLatest retrieves the single most recent record of any date.
	// Returns ErrNotFound when the ledger is empty.
	GetLatest(ctx context.Context, currency Currency) (*ExchangeRateRecord, error)

	// Upsert creates or overwrites the record for the record's
	// (currency, day) key. Immutability of past days is enforced by the
	// rates service, not here.
	Upsert(ctx context.Context, record *ExchangeRateRecord) error
}

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	// GetByID retrieves a task with its snapshot fields
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)

	// Create persists a new task and its snapshot
	Create(ctx context.Context, task *Task) error

	// UpdateStatus writes the derived overall status
	UpdateStatus(ctx context.Context, id uuid.UUID, status TaskStatus) error

	// UpdateSnapshot rewrites the snapshot fields after one of the two
	// permitted recomputation paths
	UpdateSnapshot(ctx context.Context, id uuid.UUID, snapshot *TaskSnapshot) error

	// UpdateBranch rewrites the governing branch reference
	UpdateBranch(ctx context.Context, id uuid.UUID, branchID uuid.UUID) error

	// ListIDs returns all task IDs, used by batch status recomputation
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StageRepository defines the interface for stage persistence
type StageRepository interface {
	// ListByTask retrieves the full ordered stage set of a task
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*Stage, error)

	// GetByTaskAndName retrieves a single stage of a task
	GetByTaskAndName(ctx context.Context, taskID uuid.UUID, name StageName) (*Stage, error)

	// CreateAll persists the fixed stage set created with a task
	CreateAll(ctx context.Context, stages []*Stage) error

	// Update rewrites a single stage row
	Update(ctx context.Context, stage *Stage) error

	// ListDoneByAssignee retrieves every DONE stage completed by a worker,
	// across all tasks
	ListDoneByAssignee(ctx context.Context, workerID uuid.UUID) ([]*Stage, error)
}

// EarningsRepository defines the interface for the append-only compensation
// ledger. There is deliberately no update or delete operation.
type EarningsRepository interface {
	// Append inserts one ledger row
	Append(ctx context.Context, entry *EarningsLogEntry) error

	// GetByID retrieves a single ledger row
	GetByID(ctx context.Context, id uuid.UUID) (*EarningsLogEntry, error)

	// ListByWorker retrieves all ledger rows for a worker
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*EarningsLogEntry, error)

	// LastCompletion retrieves the most recent stage-completion row for a
	// (worker, task, stage) triple, used to price its reversal
	LastCompletion(ctx context.Context, workerID, taskID uuid.UUID, name StageName) (*EarningsLogEntry, error)

	// SumBaseByWorker returns the sum of base amounts over a worker's rows
	SumBaseByWorker(ctx context.Context, workerID uuid.UUID) (decimal.Decimal, error)

	// HasReversalOf reports whether a compensating row already negates the
	// given entry
	HasReversalOf(ctx context.Context, entryID uuid.UUID) (bool, error)
}

// UnitOfWork runs fn inside one atomic transaction. A stage mutation, its
// status re-derivation and its ledger entry commit together or not at all.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
