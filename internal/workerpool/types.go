// Package workerpool manages lobby workers: pre-warmed worker subprocesses
// that sit idle in a project's lobby until assigned a task, per spec §4.8.
// A lobby worker's liveness is tracked the way the teacher tracks its
// daemon process: a keep-alive sentinel file under the crew directory,
// written on spawn and removed the moment the worker is handed a task or
// is removed or shut down through the pool, mirroring internal/engine/runner.go's WritePID/RemovePID/IsAlive
// trio.
package workerpool

import (
	"time"

	"github.com/pimesh/crew/internal/config"
	"github.com/pimesh/crew/internal/runner"
)

// TokenBudget returns the message-token ceiling for a coordination level,
// per spec §4.8: the four levels form a strict N0 < N1 < N2 < N3 order so
// a chattier level is never cheaper than a quieter one.
func TokenBudget(level config.CoordinationLevel, budgets config.MessageBudgets) int {
	switch level {
	case config.CoordinationNone:
		return budgets.None
	case config.CoordinationMinimal:
		return budgets.Minimal
	case config.CoordinationModerate:
		return budgets.Moderate
	case config.CoordinationChatty:
		return budgets.Chatty
	default:
		return budgets.None
	}
}

// LobbyWorker is one pre-warmed, unassigned worker subprocess waiting in
// the lobby.
type LobbyWorker struct {
	ID           string
	Name         string
	Level        config.CoordinationLevel
	TokenBudget  int
	SpawnedAt    time.Time
	AssignedTask string // empty until AssignTask claims this worker

	handle *runner.Handle
}

// ExitOutcome classifies what should happen to a task after its worker
// process exits, per spec §4.8 "Exit handling".
type ExitOutcome string

const (
	ExitRetry  ExitOutcome = "retry"  // reset to todo, attempt budget remains
	ExitBlock  ExitOutcome = "block"  // max attempts exhausted
	ExitDone   ExitOutcome = "done"   // worker completed the task itself
)
