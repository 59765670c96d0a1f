package coordination

import (
	"time"

	"github.com/pimesh/crew/internal/fileutil"
)

// StartAutonomous stamps a fresh autonomous run at wave 1 with the given
// concurrency and queues the overlay auto-open intent, per spec §4.6.
func (c *Coordinator) StartAutonomous(cwd string, concurrency int) (AutonomousState, error) {
	canonCwd, err := fileutil.CanonicalPath(cwd)
	if err != nil {
		canonCwd = cwd
	}
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.autonomous = AutonomousState{
		Active:             true,
		Cwd:                canonCwd,
		WaveNumber:         1,
		StartedAt:          &now,
		Concurrency:        concurrency,
		AutoOverlayPending: true,
	}
	if err := c.saveAutonomous(); err != nil {
		return c.autonomous, err
	}
	return c.autonomous, nil
}

// StopAutonomous marks the run inactive with the given reason; further wave
// progression is suppressed by callers checking Active.
func (c *Coordinator) StopAutonomous(reason StopReason) (AutonomousState, error) {
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.autonomous.Active = false
	c.autonomous.StoppedAt = &now
	c.autonomous.StopReason = reason
	if err := c.saveAutonomous(); err != nil {
		return c.autonomous, err
	}
	return c.autonomous, nil
}

// RecordWave advances the wave number and appends a summary to the wave
// history, persisting the result.
func (c *Coordinator) RecordWave(summary string) (AutonomousState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autonomous.WaveNumber++
	c.autonomous.WaveHistory = append(c.autonomous.WaveHistory, summary)
	if err := c.saveAutonomous(); err != nil {
		return c.autonomous, err
	}
	return c.autonomous, nil
}

// Autonomous returns a copy of the current autonomous state.
func (c *Coordinator) Autonomous() AutonomousState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autonomous
}

// RestoreAutonomousState reads the persisted autonomous state into the
// coordinator, returning false if no state file exists.
func (c *Coordinator) RestoreAutonomousState() bool {
	var state AutonomousState
	if !fileutil.ReadJSON(fileutil.AutonomousStatePath(c.projectRoot), &state) {
		return false
	}
	c.mu.Lock()
	c.autonomous = state
	c.mu.Unlock()
	return true
}

// ConsumeAutoOverlayPending reports and clears the autonomous run's
// overlay-auto-open flag.
func (c *Coordinator) ConsumeAutoOverlayPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.autonomous.AutoOverlayPending
	c.autonomous.AutoOverlayPending = false
	return pending
}

// AdjustConcurrency sets the effective concurrency bound and wakes any
// waiter blocked on a ConcurrencySignal channel. Per spec §4.6, adjustments
// signal a single-slot wake: the most recent waiter wins and earlier
// waiters fall back to whatever timeout semantics their caller applies.
func (c *Coordinator) AdjustConcurrency(value float64, configMax int) int {
	bound := ConcurrencyBound(value, configMax)

	c.mu.Lock()
	c.autonomous.Concurrency = bound
	_ = c.saveAutonomous()
	c.mu.Unlock()

	c.concurrencyMu.Lock()
	close(c.concurrencyCh)
	c.concurrencyCh = make(chan struct{})
	c.concurrencyMu.Unlock()

	return bound
}

// ConcurrencySignal returns a channel that closes on the next
// AdjustConcurrency call, for callers that want to wake on a change. Each
// call installs a fresh channel, so only the most recent caller is woken;
// channels handed out earlier are never closed.
func (c *Coordinator) ConcurrencySignal() <-chan struct{} {
	c.concurrencyMu.Lock()
	defer c.concurrencyMu.Unlock()
	c.concurrencyCh = make(chan struct{})
	return c.concurrencyCh
}
