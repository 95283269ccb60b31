package domain

import (
	"time"

	"github.com/google/uuid"
)

// StageName identifies one unit of work in the fixed pipeline template
type StageName string

const (
	StageDocumentCollection StageName = "document_collection"
	StageApplication        StageName = "application"
	StageTransportDocument  StageName = "transport_document"
	StageCertificate        StageName = "certificate"
	StageDeclaration        StageName = "declaration"
	StageVerification       StageName = "verification"
	StageHandover           StageName = "handover"
	StageDispatch           StageName = "dispatch" // terminal stage
)

// PipelineTemplate returns the ordered stage names every task is created
// with. The stage set of a task is fixed at creation and never changes
// cardinality.
func PipelineTemplate() []StageName {
	return []StageName{
		StageDocumentCollection,
		StageApplication,
		StageTransportDocument,
		StageCertificate,
		StageDeclaration,
		StageVerification,
		StageHandover,
		StageDispatch,
	}
}

// EarlyStages are the preparation stages whose completion alone only moves a
// task to IN_PROGRESS.
func EarlyStages() []StageName {
	return []StageName{
		StageDocumentCollection,
		StageApplication,
		StageTransportDocument,
		StageCertificate,
	}
}

// StageStatus represents the completion state of a single stage
type StageStatus string

const (
	StageNotStarted StageStatus = "NOT_STARTED"
	StageDone       StageStatus = "DONE"
)

// Stage represents one unit of work in a task's pipeline
type Stage struct {
	ID          uuid.UUID
	TaskID      uuid.UUID
	Name        StageName
	OrderIndex  int
	Status      StageStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	AssigneeID  *uuid.UUID // worker who last completed the stage
}

// IsDone reports whether the stage has been completed
func (s *Stage) IsDone() bool {
	return s.Status == StageDone
}

// NewPipeline creates the fixed stage set for a freshly created task
func NewPipeline(taskID uuid.UUID) []*Stage {
	template := PipelineTemplate()
	stages := make([]*Stage, 0, len(template))
	for i, name := range template {
		stages = append(stages, &Stage{
			ID:         uuid.New(),
			TaskID:     taskID,
			Name:       name,
			OrderIndex: i,
			Status:     StageNotStarted,
		})
	}
	return stages
}
