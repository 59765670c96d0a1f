package coordination

import (
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pimesh/crew/internal/fileutil"
	"github.com/pimesh/crew/internal/mesh"
)

// StartPlanningRun assigns a fresh runId, stamps the current process id,
// and persists the result. Per invariant (iv), only one planning run is
// active per project at a time; callers must check Planning().Active first.
func (c *Coordinator) StartPlanningRun(cwd string, maxPasses int) (PlanningState, error) {
	canonCwd, err := fileutil.CanonicalPath(cwd)
	if err != nil {
		canonCwd = cwd
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.planning = PlanningState{
		Active:    true,
		Cwd:       canonCwd,
		RunID:     uuid.NewString(),
		Pass:      0,
		MaxPasses: maxPasses,
		Phase:     PhaseReadPRD,
		UpdatedAt: time.Now().UTC(),
		PID:       os.Getpid(),
	}
	c.cancelled = false
	if err := c.savePlanning(); err != nil {
		return c.planning, err
	}
	return c.planning, nil
}

// SetPlanningPhase updates the phase (and pass, when pass > 0) and
// persists. A no-op once cancellation has been signalled.
func (c *Coordinator) SetPlanningPhase(phase PlanningPhase, pass int) (PlanningState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return c.planning, nil
	}
	c.planning.Phase = phase
	if pass > 0 {
		c.planning.Pass = pass
	}
	c.planning.UpdatedAt = time.Now().UTC()
	if err := c.savePlanning(); err != nil {
		return c.planning, err
	}
	return c.planning, nil
}

// FinishPlanningRun marks the run inactive with phase completed. A no-op
// once cancellation has been signalled.
func (c *Coordinator) FinishPlanningRun() (PlanningState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return c.planning, nil
	}
	c.planning.Active = false
	c.planning.Phase = PhaseCompleted
	c.planning.UpdatedAt = time.Now().UTC()
	if err := c.savePlanning(); err != nil {
		return c.planning, err
	}
	return c.planning, nil
}

// CancelPlanning raises the process-wide one-shot cancellation flag.
// Subsequent SetPlanningPhase/FinishPlanningRun calls become no-ops until
// the next StartPlanningRun resets it.
func (c *Coordinator) CancelPlanning() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

// IsCancelled reports the current cancellation flag.
func (c *Coordinator) IsCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Planning returns a copy of the current planning state.
func (c *Coordinator) Planning() PlanningState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.planning
}

// RestorePlanningState reads the persisted planning state. If the stored
// pid is not alive, the in-memory state is cleared to idle/inactive and
// staleCleared is reported true, per spec §4.6 and seed test 6.
func (c *Coordinator) RestorePlanningState() (state PlanningState, staleCleared bool) {
	var stored PlanningState
	if !fileutil.ReadJSON(fileutil.PlanningStatePath(c.projectRoot), &stored) {
		return PlanningState{Phase: PhaseIdle}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if stored.Active && !mesh.IsAlive(stored.PID) {
		c.planning = PlanningState{Phase: PhaseIdle}
		_ = c.savePlanning()
		return c.planning, true
	}
	c.planning = stored
	return c.planning, false
}
