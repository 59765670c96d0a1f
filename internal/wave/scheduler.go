package wave

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pimesh/crew/internal/config"
	"github.com/pimesh/crew/internal/coordination"
	"github.com/pimesh/crew/internal/feed"
	"github.com/pimesh/crew/internal/metrics"
	"github.com/pimesh/crew/internal/runner"
	"github.com/pimesh/crew/internal/taskstore"
	"github.com/pimesh/crew/internal/workerpool"
)

// Scheduler runs one project's waves: binding ready tasks to lobby
// workers and fresh spawns, then classifying results and driving
// autonomous continuation, per spec §4.10.
type Scheduler struct {
	ProjectRoot string
	Store       *taskstore.Store
	Pool        *workerpool.Pool
	Coord       *coordination.Coordinator
	Feed        *feed.Feed
}

// New returns a Scheduler for one project.
func New(projectRoot string, store *taskstore.Store, pool *workerpool.Pool, coord *coordination.Coordinator, f *feed.Feed) *Scheduler {
	return &Scheduler{ProjectRoot: projectRoot, Store: store, Pool: pool, Coord: coord, Feed: f}
}

// WorkRequest parameterizes one Work call, per spec §4.10.
type WorkRequest struct {
	Autonomous  bool
	Concurrency int // 0 means unset, falls through the priority chain
	Model       string
	Abort       <-chan struct{}
}

// TaskResult records one task's outcome for the wave.
type TaskResult struct {
	TaskID  string
	Outcome Outcome
}

// WorkResult is the outcome of one Work call, per spec §4.10 steps 9-10.
type WorkResult struct {
	Diagnostic string
	Results    []TaskResult
	Stopped    bool
	StopReason coordination.StopReason
	WaveNumber int
	NextReady  []string
}

// Work runs exactly one wave: binding the ready task set to workers,
// waiting for them to finish, classifying the results, and deciding
// whether autonomous work continues, per spec §4.10 steps 1-10.
func (s *Scheduler) Work(ctx context.Context, cfg *config.Config, req WorkRequest) (*WorkResult, error) {
	if !s.Store.HasPlan() {
		return nil, fmt.Errorf("work: no_plan")
	}
	workerAgent, ok := cfg.Crew.Agents.Agent("worker")
	if !ok {
		return nil, fmt.Errorf("work: no_worker")
	}

	if _, err := s.Store.AutoCompleteMilestones(); err != nil {
		return nil, fmt.Errorf("auto-completing milestones: %w", err)
	}

	ready, err := s.Store.ReadyTasks(taskstore.DependencyMode(cfg.Crew.Dependencies))
	if err != nil {
		return nil, fmt.Errorf("computing ready set: %w", err)
	}

	var blockedNow []string
	var runnable []taskstore.Task
	for _, t := range ready {
		if t.AttemptCount >= cfg.Crew.Work.MaxAttemptsPerTask {
			if _, err := s.Store.BlockTask(t.ID, "Max attempts reached"); err != nil {
				return nil, fmt.Errorf("blocking %s: %w", t.ID, err)
			}
			blockedNow = append(blockedNow, t.ID)
			continue
		}
		runnable = append(runnable, t)
	}

	if len(runnable) == 0 {
		return &WorkResult{Diagnostic: diagnose(s.Store, blockedNow)}, nil
	}

	metrics.WavesStarted.Inc()
	k := s.effectiveConcurrency(cfg, req)

	if req.Autonomous && !s.Coord.Autonomous().Active {
		if _, err := s.Coord.StartAutonomous(s.ProjectRoot, k); err != nil {
			return nil, fmt.Errorf("starting autonomous run: %w", err)
		}
	}

	s.prewarmLobby(ctx, cfg, workerAgent, k)

	assigned := map[string]bool{}
	spawning := map[string]bool{}

	// Step 6: lobby bind phase.
	for _, lw := range s.Pool.LobbyWorkers() {
		if lw.AssignedTask != "" {
			continue
		}
		next := firstUnassigned(runnable, assigned)
		if next == nil {
			break
		}
		task, err := s.Store.StartTask(next.ID, lw.Name, "")
		if err != nil {
			continue
		}
		prompt := fmt.Sprintf("TASK ASSIGNMENT\n\n%s is already started and assigned to you; do not call task.start for it.\n\n%s", task.ID, workerPrompt(*task))
		if err := s.Pool.AssignTask(lw, task.ID, prompt); err != nil {
			_ = s.Store.ResetTask(task.ID, false)
			continue
		}
		assigned[task.ID] = true
	}

	// Step 7: spawn phase for whatever remains unassigned. Spawns run
	// concurrently, bounded to K in flight at once by a semaphore, per
	// spec §4.10 step 7 / §5's wave concurrency guarantee.
	var toSpawn []taskstore.Task
	for _, t := range runnable {
		if !assigned[t.ID] {
			toSpawn = append(toSpawn, t)
		}
	}
	for _, t := range toSpawn {
		started, err := s.Store.StartTask(t.ID, "worker", "")
		if err != nil {
			continue
		}
		assigned[started.ID] = true
		spawning[started.ID] = true
	}

	waveBefore := s.Coord.Autonomous().WaveNumber
	autonomousActive := s.Coord.Autonomous().Active

	sem := make(chan struct{}, max(k, 1))
	var resultsMu sync.Mutex
	var results []TaskResult
	group, gctx := errgroup.WithContext(ctx)
	for id := range assigned {
		taskID := id
		lobbyBound := !spawning[taskID]
		group.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			task, ok := s.Store.GetTask(taskID)
			if !ok {
				return nil
			}

			var h *runner.Handle
			if lobbyBound {
				claimed, ok := s.Pool.ClaimLobbyHandle(taskID)
				if !ok {
					_ = s.Store.ResetTask(taskID, false)
					return nil
				}
				h = claimed
			} else {
				model := resolveModel(task.Model, req.Model, cfg.Crew.Models.Worker, workerAgent.Model)
				spawned, err := s.Pool.SpawnWorkerForTask(gctx, toRunnerAgent(workerAgent), taskID, workerPrompt(*task), model, cfg.Crew.Thinking["worker"], cfg.Crew.Truncation["worker"])
				if err != nil {
					_ = s.Store.ResetTask(taskID, false)
					return nil
				}
				h = spawned
			}
			metrics.TasksInProgress.Inc()

			waitCh := make(chan runner.Result, 1)
			go func() { waitCh <- h.Wait() }()

			var res runner.Result
			var aborted bool
			select {
			case res = <-waitCh:
			case <-req.Abort:
				aborted = true
				grace := time.Duration(cfg.Crew.Work.ShutdownGracePeriodMs) * time.Millisecond
				res = s.Pool.ShutdownHandle(gctx, h, grace)
			}
			metrics.TasksInProgress.Dec()

			final, ok := s.Store.GetTask(taskID)
			if !ok {
				return nil
			}

			if aborted {
				if final.Status == taskstore.StatusInProgress {
					_ = s.Store.AppendProgress(taskID, "worker", "Task interrupted (shutdown), reset to todo")
					_ = s.Store.ResetTask(taskID, false)
				}
				resultsMu.Lock()
				results = append(results, TaskResult{TaskID: taskID, Outcome: OutcomeFailed})
				resultsMu.Unlock()
				return nil
			}

			outcome := classify(res.ExitCode, res.WasGracefullyShutdown, autonomousActive, final.Status)
			switch outcome {
			case OutcomeFailed:
				if final.Status == taskstore.StatusInProgress {
					_ = s.Store.AppendProgress(taskID, "worker", "Worker exited without completing task")
					_ = s.Store.ResetTask(taskID, false)
				}
			case OutcomeBlocked:
				if final.Status == taskstore.StatusInProgress {
					_ = s.Store.BlockTask(taskID, "Worker process crashed")
				}
			}

			resultsMu.Lock()
			results = append(results, TaskResult{TaskID: taskID, Outcome: outcome})
			resultsMu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].TaskID < results[j].TaskID })

	if err := s.Store.ReconcileCompletedCount(); err != nil {
		return nil, fmt.Errorf("reconciling completed count: %w", err)
	}

	// Step 9: wave accounting.
	if autonomousActive {
		summary := summarizeResults(results)
		if _, err := s.Coord.RecordWave(summary); err != nil {
			return nil, fmt.Errorf("recording wave: %w", err)
		}
	}

	return s.continuation(req, waveBefore, results, blockedNow)
}

// prewarmLobby tops the lobby up to k unassigned workers before the bind
// phase, per spec §4.8's auto-refill: a wave should find lobby workers
// already waiting rather than paying spawn latency on every task.
func (s *Scheduler) prewarmLobby(ctx context.Context, cfg *config.Config, workerAgent config.AgentConfig, k int) {
	need := k - s.Pool.UnassignedLobbyCount()
	for i := 0; i < need; i++ {
		model := resolveModel("", "", cfg.Crew.Models.Worker, workerAgent.Model)
		_, err := s.Pool.SpawnLobbyWorker(ctx, toRunnerAgent(workerAgent), cfg.Crew.Coordination, cfg.Crew.MessageBudgets, model, cfg.Crew.Thinking["worker"], cfg.Crew.Truncation["worker"])
		if err != nil {
			break
		}
	}
}

// continuation implements step 10: deciding whether autonomous work
// stops or continues, and which feed event to emit.
func (s *Scheduler) continuation(req WorkRequest, waveBefore int, results []TaskResult, blockedNow []string) (*WorkResult, error) {
	wr := &WorkResult{Results: results, WaveNumber: waveBefore}

	select {
	case <-req.Abort:
		if _, err := s.Coord.StopAutonomous(coordination.StopManual); err != nil {
			return nil, err
		}
		wr.Stopped = true
		wr.StopReason = coordination.StopManual
		return wr, nil
	default:
	}

	tasks, err := s.Store.ListTasks()
	if err != nil {
		return nil, err
	}
	allDone := true
	anyReady := false
	for _, t := range tasks {
		if t.Status != taskstore.StatusDone {
			allDone = false
		}
		if t.Status == taskstore.StatusTodo && !t.Milestone {
			anyReady = true
		}
	}

	if allDone {
		if s.Coord.Autonomous().Active {
			if _, err := s.Coord.StopAutonomous(coordination.StopCompleted); err != nil {
				return nil, err
			}
		}
		wr.Stopped = true
		wr.StopReason = coordination.StopCompleted
		metrics.WavesCompleted.Inc()
		s.emitFeed(feed.EventWaveComplete, "")
		return wr, nil
	}

	if !anyReady {
		if s.Coord.Autonomous().Active {
			if _, err := s.Coord.StopAutonomous(coordination.StopBlocked); err != nil {
				return nil, err
			}
		}
		wr.Stopped = true
		wr.StopReason = coordination.StopBlocked
		metrics.WavesBlocked.Inc()
		s.emitFeed(feed.EventWaveBlocked, strings.Join(blockedTaskIDs(results, blockedNow), ","))
		return wr, nil
	}

	next, err := s.Store.ReadyTasks(taskstore.DependencyStrict)
	if err == nil {
		for _, t := range next {
			wr.NextReady = append(wr.NextReady, t.ID)
		}
	}
	s.emitFeed(feed.EventWaveContinue, strings.Join(wr.NextReady, ","))
	return wr, nil
}

func (s *Scheduler) emitFeed(t feed.EventType, target string) {
	if s.Feed == nil {
		return
	}
	_ = s.Feed.Append(feed.Event{TS: time.Now().UTC(), Type: t, Target: target})
}

func (s *Scheduler) effectiveConcurrency(cfg *config.Config, req WorkRequest) int {
	if req.Concurrency > 0 {
		return coordination.ConcurrencyBound(float64(req.Concurrency), cfg.Crew.Concurrency.Max)
	}
	if s.Coord.Autonomous().Active {
		return coordination.ConcurrencyBound(float64(s.Coord.Autonomous().Concurrency), cfg.Crew.Concurrency.Max)
	}
	return coordination.ConcurrencyBound(float64(cfg.Crew.Concurrency.Workers), cfg.Crew.Concurrency.Max)
}

func firstUnassigned(tasks []taskstore.Task, assigned map[string]bool) *taskstore.Task {
	for i := range tasks {
		if !assigned[tasks[i].ID] {
			return &tasks[i]
		}
	}
	return nil
}

func resolveModel(taskModel, paramModel, configWorkerModel, agentModel string) string {
	for _, m := range []string{taskModel, paramModel, configWorkerModel, agentModel} {
		if m != "" {
			return m
		}
	}
	return ""
}

func workerPrompt(t taskstore.Task) string {
	return fmt.Sprintf("Work on task %s: %s", t.ID, t.Title)
}

func toRunnerAgent(ac config.AgentConfig) runner.AgentDef {
	return runner.AgentDef{
		Command:       ac.Command,
		BaseArgs:      ac.Args,
		Tools:         ac.Tools,
		ExtensionPath: ac.ExtensionPath,
		Extensions:    ac.Extensions,
		SystemPrompt:  ac.SystemPrompt,
	}
}

func diagnose(store *taskstore.Store, blockedNow []string) string {
	tasks, err := store.ListTasks()
	if err != nil || len(tasks) == 0 {
		return "all done"
	}
	var done, inProgress, blocked, unmet int
	for _, t := range tasks {
		switch t.Status {
		case taskstore.StatusDone:
			done++
		case taskstore.StatusInProgress:
			inProgress++
		case taskstore.StatusBlocked:
			blocked++
		case taskstore.StatusTodo:
			unmet++
		}
	}
	switch {
	case len(blockedNow) > 0:
		return fmt.Sprintf("blocked: %s", strings.Join(blockedNow, ", "))
	case inProgress > 0:
		return "in-progress pending"
	case blocked > 0:
		return fmt.Sprintf("blocked: %d task(s)", blocked)
	case unmet > 0:
		return "dependencies unmet"
	default:
		return "all done"
	}
}

// blockedTaskIDs collects the task ids blocked by this wave: both
// attempt-ceiling blocks applied before dispatch and OutcomeBlocked
// worker results, for the crew_wave_blocked feed event's target.
func blockedTaskIDs(results []TaskResult, blockedNow []string) []string {
	ids := append([]string{}, blockedNow...)
	for _, r := range results {
		if r.Outcome == OutcomeBlocked {
			ids = append(ids, r.TaskID)
		}
	}
	return ids
}

func summarizeResults(results []TaskResult) string {
	var succeeded, failed, blocked int
	for _, r := range results {
		switch r.Outcome {
		case OutcomeSucceeded:
			succeeded++
		case OutcomeFailed:
			failed++
		case OutcomeBlocked:
			blocked++
		}
	}
	return fmt.Sprintf("%d succeeded, %d failed, %d blocked", succeeded, failed, blocked)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
