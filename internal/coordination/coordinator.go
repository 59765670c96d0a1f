package coordination

import (
	"sync"

	"github.com/pimesh/crew/internal/fileutil"
)

// Coordinator owns the process-wide autonomous, planning, and
// pending-auto-work state described in spec §9's "process-wide mutable
// state" design note. One Coordinator is constructed per invocation by
// internal/cli's router() and threaded through the action router and wave scheduler instead of
// package-level mutable globals.
type Coordinator struct {
	projectRoot string

	mu          sync.Mutex
	autonomous  AutonomousState
	planning    PlanningState
	pendingWork PendingAutoWork
	intents     AutoOpenIntents
	cancelled   bool

	concurrencyMu sync.Mutex
	concurrencyCh chan struct{}
}

// New returns a Coordinator rooted at projectRoot, with zero-value state —
// callers restore prior state with RestorePlanningState/RestoreAutonomousState.
func New(projectRoot string) *Coordinator {
	return &Coordinator{
		projectRoot:   projectRoot,
		planning:      PlanningState{Phase: PhaseIdle},
		concurrencyCh: make(chan struct{}),
		intents: AutoOpenIntents{
			dismissedRunIDs: map[string]bool{},
		},
	}
}

func (c *Coordinator) saveAutonomous() error {
	return fileutil.AtomicWriteJSON(fileutil.AutonomousStatePath(c.projectRoot), &c.autonomous)
}

func (c *Coordinator) savePlanning() error {
	return fileutil.AtomicWriteJSON(fileutil.PlanningStatePath(c.projectRoot), &c.planning)
}
