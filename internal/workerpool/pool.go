package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pimesh/crew/internal/config"
	"github.com/pimesh/crew/internal/fileutil"
	"github.com/pimesh/crew/internal/mesh"
	"github.com/pimesh/crew/internal/runner"
	"github.com/pimesh/crew/internal/taskstore"
)

// Pool spawns and tracks a project's lobby workers.
type Pool struct {
	ProjectRoot string
	Spawner     *runner.Spawner
	Inbox       *mesh.Inbox
	Themes      *mesh.Themes
	Logger      *zap.Logger

	mu    sync.Mutex
	lobby []*LobbyWorker
}

func (p *Pool) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// New returns a Pool rooted at projectRoot.
func New(projectRoot string, spawner *runner.Spawner, inbox *mesh.Inbox, themes *mesh.Themes) *Pool {
	return &Pool{ProjectRoot: projectRoot, Spawner: spawner, Inbox: inbox, Themes: themes}
}

// SpawnLobbyWorker starts an idle worker subprocess and writes its
// keep-alive sentinel, per spec §4.8. The worker waits on its own inbox
// for an assignment message; it is not yet bound to any task.
func (p *Pool) SpawnLobbyWorker(ctx context.Context, agent runner.AgentDef, level config.CoordinationLevel, budgets config.MessageBudgets, model, thinking string, truncation config.TruncationLimits) (*LobbyWorker, error) {
	p.mu.Lock()
	existing := make(map[string]bool, len(p.lobby))
	for _, w := range p.lobby {
		existing[w.Name] = true
	}
	p.mu.Unlock()

	name := p.Themes.Generate("default", existing)
	id := uuid.NewString()

	h, err := p.Spawner.Spawn(ctx, runner.SpawnRequest{
		Agent:         agent,
		Role:          runner.RoleWorker,
		Name:          name,
		Cwd:           p.ProjectRoot,
		Prompt:        lobbyWaitPrompt(level),
		Model:         model,
		Thinking:      thinking,
		TruncateBytes: truncation.Bytes,
		TruncateLines: truncation.Lines,
	})
	if err != nil {
		p.logger().Warn("lobby worker spawn failed", zap.Error(err))
		return nil, fmt.Errorf("spawning lobby worker: %w", err)
	}

	if err := fileutil.AtomicWriteFile(fileutil.LobbyAlivePath(p.ProjectRoot, id), []byte(name+"\n"), 0644); err != nil {
		_ = p.Spawner.Shutdown(ctx, h, 0)
		return nil, fmt.Errorf("writing lobby keep-alive: %w", err)
	}
	p.logger().Info("lobby worker spawned", zap.String("name", name), zap.String("level", string(level)))

	lw := &LobbyWorker{
		ID:          id,
		Name:        name,
		Level:       level,
		TokenBudget: TokenBudget(level, budgets),
		SpawnedAt:   time.Now().UTC(),
		handle:      h,
	}

	p.mu.Lock()
	p.lobby = append(p.lobby, lw)
	p.mu.Unlock()

	return lw, nil
}

func lobbyWaitPrompt(level config.CoordinationLevel) string {
	return fmt.Sprintf("Wait in the lobby for a task assignment. Coordination level: %s.", level)
}

// LobbyWorkers returns a snapshot of the current lobby.
func (p *Pool) LobbyWorkers() []*LobbyWorker {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*LobbyWorker, len(p.lobby))
	copy(out, p.lobby)
	return out
}

// AssignTask hands a lobby worker a task: its keep-alive sentinel is
// removed first (so a liveness sweep never treats an assigned worker as
// idle-and-stale), then the assignment is delivered over its inbox. If
// delivery fails, the keep-alive file is restored so the worker is not
// silently orphaned — an atomic delete/send/mark sequence with rollback
// on the middle step, per spec §4.8.
func (p *Pool) AssignTask(worker *LobbyWorker, taskID, prompt string) error {
	alivePath := fileutil.LobbyAlivePath(p.ProjectRoot, worker.ID)
	nameBytes := []byte(worker.Name + "\n")

	if err := removeKeepAlive(alivePath); err != nil {
		return fmt.Errorf("removing keep-alive for %s: %w", worker.Name, err)
	}

	if err := p.Inbox.Send(worker.Name, mesh.InboxMessage{Text: prompt}); err != nil {
		if writeErr := fileutil.AtomicWriteFile(alivePath, nameBytes, 0644); writeErr != nil {
			return fmt.Errorf("assigning %s: send failed (%v) and rollback failed (%w)", worker.Name, err, writeErr)
		}
		return fmt.Errorf("sending assignment to %s: %w", worker.Name, err)
	}

	p.mu.Lock()
	worker.AssignedTask = taskID
	p.mu.Unlock()
	p.logger().Info("lobby worker assigned", zap.String("name", worker.Name), zap.String("task", taskID))
	return nil
}

func removeKeepAlive(path string) error {
	return fileutil.RemoveIfExists(path)
}

// UnassignedLobbyCount returns how many lobby workers are currently
// waiting for an assignment.
func (p *Pool) UnassignedLobbyCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, w := range p.lobby {
		if w.AssignedTask == "" {
			n++
		}
	}
	return n
}

// ClaimLobbyHandle removes taskID's lobby worker from the lobby and
// hands back its subprocess handle, once AssignTask has already bound
// it to that task. Lets the wave scheduler wait on a lobby-bound task's
// worker the same way it waits on a freshly spawned one.
func (p *Pool) ClaimLobbyHandle(taskID string) (*runner.Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.lobby {
		if w.AssignedTask == taskID {
			h := w.handle
			p.lobby = append(p.lobby[:i], p.lobby[i+1:]...)
			return h, true
		}
	}
	return nil, false
}

// SpawnWorkerForTask starts a fresh, task-bound worker subprocess outside
// the lobby, used for tasks the lobby bind phase left unassigned.
func (p *Pool) SpawnWorkerForTask(ctx context.Context, agent runner.AgentDef, taskID, prompt, model, thinking string, truncation config.TruncationLimits) (*runner.Handle, error) {
	h, err := p.Spawner.Spawn(ctx, runner.SpawnRequest{
		Agent:         agent,
		Role:          runner.RoleWorker,
		Name:          "task-" + taskID,
		Cwd:           p.ProjectRoot,
		Prompt:        prompt,
		Model:         model,
		Thinking:      thinking,
		TaskID:        taskID,
		TruncateBytes: truncation.Bytes,
		TruncateLines: truncation.Lines,
	})
	if err != nil {
		return nil, fmt.Errorf("spawning worker for %s: %w", taskID, err)
	}
	return h, nil
}

// ShutdownHandle gracefully stops a single task-bound worker handle,
// escalating from inbox request to SIGTERM to SIGKILL over grace. Used by
// the wave scheduler's mid-wave abort path, where the handle was either
// spawned by SpawnWorkerForTask or taken out of the lobby by
// ClaimLobbyHandle, and so isn't tracked in p.lobby.
func (p *Pool) ShutdownHandle(ctx context.Context, h *runner.Handle, grace time.Duration) runner.Result {
	return p.Spawner.Shutdown(ctx, h, grace)
}

// RemoveLobbyWorkerByIndex shuts down and removes the lobby worker at
// index i.
func (p *Pool) RemoveLobbyWorkerByIndex(ctx context.Context, i int) error {
	p.mu.Lock()
	if i < 0 || i >= len(p.lobby) {
		p.mu.Unlock()
		return fmt.Errorf("lobby index %d out of range", i)
	}
	w := p.lobby[i]
	p.lobby = append(p.lobby[:i], p.lobby[i+1:]...)
	p.mu.Unlock()

	_ = removeKeepAlive(fileutil.LobbyAlivePath(p.ProjectRoot, w.ID))
	if w.handle != nil {
		_ = p.Spawner.Shutdown(ctx, w.handle, 2*time.Second)
	}
	p.logger().Info("lobby worker removed", zap.String("name", w.Name))
	return nil
}

// KillLobbyWorkerForTask shuts down the lobby worker currently assigned
// to taskID, if any.
func (p *Pool) KillLobbyWorkerForTask(ctx context.Context, taskID string) error {
	p.mu.Lock()
	idx := -1
	for i, w := range p.lobby {
		if w.AssignedTask == taskID {
			idx = i
			break
		}
	}
	p.mu.Unlock()
	if idx < 0 {
		return nil
	}
	return p.RemoveLobbyWorkerByIndex(ctx, idx)
}

// ShutdownLobbyWorkers gracefully stops every lobby worker.
func (p *Pool) ShutdownLobbyWorkers(ctx context.Context, grace time.Duration) {
	p.mu.Lock()
	workers := make([]*LobbyWorker, len(p.lobby))
	copy(workers, p.lobby)
	p.lobby = nil
	p.mu.Unlock()

	for _, w := range workers {
		_ = removeKeepAlive(fileutil.LobbyAlivePath(p.ProjectRoot, w.ID))
		if w.handle != nil {
			_ = p.Spawner.Shutdown(ctx, w.handle, grace)
		}
	}
	if len(workers) > 0 {
		p.logger().Info("lobby workers shut down", zap.Int("count", len(workers)))
	}
}

// HandleExit decides what happens to taskID after its worker process
// exits with exitCode, given the task's current attempt count and the
// configured per-task attempt ceiling, per spec §4.8 "Exit handling": a
// task already marked done is left alone whatever exitCode is, otherwise
// the task is reset to todo unless its attempt budget is exhausted, in
// which case it is blocked.
func HandleExit(task *taskstore.Task, exitCode int, maxAttempts int) ExitOutcome {
	if task.Status == taskstore.StatusDone {
		return ExitDone
	}
	if task.AttemptCount >= maxAttempts {
		return ExitBlock
	}
	return ExitRetry
}
