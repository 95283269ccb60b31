package status

import (
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// Rule is one (predicate, result) pair of the derivation table.
// Rules are evaluated top-down over the full stage set; the first match wins.
type Rule struct {
	Name    string
	Applies func(stages []*domain.Stage) bool
	Result  domain.TaskStatus
}

// Rules returns the ordered derivation table. The whole stage set is
// re-inspected on every mutation rather than diffed, so concurrent
// single-stage updates converge without locking.
//
// No sequential gate is enforced: a downstream stage may be DONE while an
// upstream one is still NOT_STARTED, and the highest-priority completed
// stage alone decides the status.
func Rules() []Rule {
	return []Rule{
		{
			Name:    "all stages untouched",
			Applies: noneDone,
			Result:  domain.TaskNotStarted,
		},
		{
			Name:    "terminal dispatch done",
			Applies: stageDone(domain.StageDispatch),
			Result:  domain.TaskCompleted,
		},
		{
			Name:    "handover done",
			Applies: stageDone(domain.StageHandover),
			Result:  domain.TaskHandedOver,
		},
		{
			Name:    "verification done",
			Applies: stageDone(domain.StageVerification),
			Result:  domain.TaskVerified,
		},
		{
			Name:    "declaration done",
			Applies: stageDone(domain.StageDeclaration),
			Result:  domain.TaskReady,
		},
		{
			Name:    "any early stage done",
			Applies: anyDone(domain.EarlyStages()...),
			Result:  domain.TaskInProgress,
		},
		{
			Name:    "anything at all done",
			Applies: anythingDone,
			Result:  domain.TaskInProgress,
		},
	}
}

// Derive computes the overall task status from the full stage set.
// Pure: same stage set, same status, every time.
func Derive(stages []*domain.Stage) domain.TaskStatus {
	for _, rule := range Rules() {
		if rule.Applies(stages) {
			return rule.Result
		}
	}
	return domain.TaskNotStarted
}

// noneDone reports whether every stage is still NOT_STARTED
func noneDone(stages []*domain.Stage) bool {
	for _, stage := range stages {
		if stage.IsDone() {
			return false
		}
	}
	return true
}

// anythingDone reports whether any stage at all is DONE
func anythingDone(stages []*domain.Stage) bool {
	return !noneDone(stages)
}

// stageDone builds a predicate matching one named stage being DONE
func stageDone(name domain.StageName) func(stages []*domain.Stage) bool {
	return func(stages []*domain.Stage) bool {
		for _, stage := range stages {
			if stage.Name == name && stage.IsDone() {
				return true
			}
		}
		return false
	}
}

// anyDone builds a predicate matching any of the named stages being DONE
func anyDone(names ...domain.StageName) func(stages []*domain.Stage) bool {
	set := make(map[domain.StageName]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return func(stages []*domain.Stage) bool {
		for _, stage := range stages {
			if set[stage.Name] && stage.IsDone() {
				return true
			}
		}
		return false
	}
}
