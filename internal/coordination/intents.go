package coordination

// AutoOpenIntents tracks the two independent overlay-open intents the UI
// collaborator polls for: autonomous-work pending, and per-planning-run
// overlay pending (dismissible, keyed by runId so a dismissed run is never
// queued again), per spec §4.6.
type AutoOpenIntents struct {
	autonomousPending bool
	planningRunID     string
	planningPending   bool
	dismissedRunIDs   map[string]bool
}

// QueueAutonomousOpen raises the autonomous-work-pending intent.
func (c *Coordinator) QueueAutonomousOpen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intents.autonomousPending = true
}

// ConsumeAutonomousOpen reports and clears the autonomous-work-pending intent.
func (c *Coordinator) ConsumeAutonomousOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.intents.autonomousPending
	c.intents.autonomousPending = false
	return pending
}

// QueuePlanningOverlay raises the overlay intent for runID, unless that run
// was already dismissed.
func (c *Coordinator) QueuePlanningOverlay(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.intents.dismissedRunIDs[runID] {
		return
	}
	c.intents.planningRunID = runID
	c.intents.planningPending = true
}

// DismissPlanningOverlay clears the overlay intent for runID and remembers
// it so it is never queued again.
func (c *Coordinator) DismissPlanningOverlay(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.intents.dismissedRunIDs == nil {
		c.intents.dismissedRunIDs = map[string]bool{}
	}
	c.intents.dismissedRunIDs[runID] = true
	if c.intents.planningRunID == runID {
		c.intents.planningPending = false
	}
}

// ConsumePlanningOverlay reports and clears the pending planning overlay
// intent, returning its runId.
func (c *Coordinator) ConsumePlanningOverlay() (runID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.intents.planningPending {
		return "", false
	}
	runID = c.intents.planningRunID
	c.intents.planningPending = false
	return runID, true
}
