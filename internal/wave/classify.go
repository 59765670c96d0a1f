// Package wave implements the wave scheduler described in spec §4.10: one
// call to Work binds the ready task set to lobby workers and fresh
// spawns, classifies each worker's exit against the final task status,
// and drives the autonomous continuation loop.
package wave

import "github.com/pimesh/crew/internal/taskstore"

// Outcome is the per-task result of one wave, per spec §4.10 step 8.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeFailed    Outcome = "failed"
)

// classify maps a worker's exit to an Outcome given the task's final
// status, per spec §4.10 step 8's table. It is a pure function so the
// classification table can be exercised without spawning real processes.
// Callers apply the store-side effects (reset to todo, append progress,
// block with a reason) that accompany OutcomeFailed/OutcomeBlocked; this
// function only decides which one applies.
func classify(exitCode int, gracefullyShutdown bool, autonomous bool, taskStatus taskstore.Status) Outcome {
	switch {
	case exitCode == 0 && taskStatus == taskstore.StatusDone:
		return OutcomeSucceeded
	case exitCode == 0 && taskStatus == taskstore.StatusBlocked:
		return OutcomeBlocked
	case exitCode == 0 && taskStatus == taskstore.StatusInProgress:
		return OutcomeFailed
	case gracefullyShutdown && taskStatus == taskstore.StatusDone:
		return OutcomeSucceeded
	case gracefullyShutdown && taskStatus == taskstore.StatusBlocked:
		return OutcomeBlocked
	case gracefullyShutdown && taskStatus == taskstore.StatusInProgress:
		return OutcomeFailed
	case !gracefullyShutdown && exitCode != 0 && autonomous && taskStatus == taskstore.StatusInProgress:
		return OutcomeBlocked
	default:
		return OutcomeFailed
	}
}
