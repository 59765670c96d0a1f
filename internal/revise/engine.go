// Package revise drives the single-task and subtree revision flows of
// spec §4.11. Both spawn the planner agent synchronously and parse a
// fenced block out of its output, so the package leans on
// internal/planner's fence-extraction primitive rather than inventing a
// second parser, and on internal/taskstore's lifecycle helpers for the
// reset-on-apply step. Grounded the same way internal/planner is: the
// teacher's precondition-checking style for guarding against overlapping
// runs, generalized to a narrower single-process guard since a revision
// is one synchronous spawn-and-wait with no restart-survival requirement,
// unlike the disk-persisted planning/autonomous state in
// internal/coordination.
package revise

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pimesh/crew/internal/config"
	"github.com/pimesh/crew/internal/coordination"
	"github.com/pimesh/crew/internal/feed"
	"github.com/pimesh/crew/internal/runner"
	"github.com/pimesh/crew/internal/taskstore"
)

// Engine drives revisions for one project.
type Engine struct {
	ProjectRoot string
	Store       *taskstore.Store
	Spawner     *runner.Spawner
	Coord       *coordination.Coordinator
	Feed        *feed.Feed

	mu     sync.Mutex
	active bool
}

// New returns an Engine for one project.
func New(projectRoot string, store *taskstore.Store, spawner *runner.Spawner, coord *coordination.Coordinator, f *feed.Feed) *Engine {
	return &Engine{ProjectRoot: projectRoot, Store: store, Spawner: spawner, Coord: coord, Feed: f}
}

// Request parameterizes one Revise or ReviseTree call.
type Request struct {
	TaskID string
	Prompt string

	PlannerAgent runner.AgentDef
	Model        string
	Thinking     string
	Truncation   config.TruncationLimits
}

// Result is the outcome of one Revise or ReviseTree call.
type Result struct {
	TaskID         string
	UpdatedTaskIDs []string
	NewTaskIDs     []string
	ResetTaskIDs   []string
}

func (e *Engine) tryAcquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return false
	}
	e.active = true
	return true
}

func (e *Engine) release() {
	e.mu.Lock()
	e.active = false
	e.mu.Unlock()
}

func (e *Engine) checkNotBusy() error {
	if e.Coord.Planning().Active {
		return errPlanningActive
	}
	if e.Coord.Autonomous().Active {
		return errActiveWorker
	}
	return nil
}

// Revise implements the single-task revision flow of spec §4.11.
func (e *Engine) Revise(ctx context.Context, req Request) (*Result, error) {
	task, ok := e.Store.GetTask(req.TaskID)
	if !ok {
		return nil, fmt.Errorf("task %s not found", req.TaskID)
	}
	if task.Status == taskstore.StatusInProgress {
		return nil, errInvalidStatus
	}
	if !e.tryAcquire() {
		return nil, errActiveWorker
	}
	defer e.release()
	if err := e.checkNotBusy(); err != nil {
		return nil, err
	}
	if req.PlannerAgent.Command == "" {
		return nil, errNoPlanner
	}

	spec := e.Store.GetSpec(req.TaskID)
	progress := progressLog(e.ProjectRoot, req.TaskID)
	block := blockContext(e.ProjectRoot, req.TaskID)
	prd := prdExcerpt(e.ProjectRoot, e.Store)
	prompt := buildRevisePrompt(task, spec, progress, block, prd, req.Prompt)

	h, err := e.Spawner.Spawn(ctx, runner.SpawnRequest{
		Agent:         req.PlannerAgent,
		Role:          runner.RolePlanner,
		Name:          "reviser",
		Cwd:           e.ProjectRoot,
		Prompt:        prompt,
		Model:         req.Model,
		Thinking:      req.Thinking,
		TaskID:        req.TaskID,
		TruncateBytes: req.Truncation.Bytes,
		TruncateLines: req.Truncation.Lines,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRevisionFailed, err)
	}
	res := h.Wait()
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: exit code %d", errRevisionFailed, res.ExitCode)
	}

	rt, ok := parseRevisedTask(res.Output)
	if !ok {
		return nil, fmt.Errorf("%w: no valid revised-task block", errRevisionFailed)
	}

	if rt.Title != "" {
		if _, err := e.Store.UpdateTask(req.TaskID, func(t *taskstore.Task) { t.Title = rt.Title }); err != nil {
			return nil, err
		}
	}
	if err := e.Store.SetSpec(req.TaskID, rt.Spec); err != nil {
		return nil, err
	}
	if err := e.Store.AppendProgress(req.TaskID, "reviser", "revised: "+req.Prompt); err != nil {
		return nil, err
	}
	e.emitFeed(feed.EventTaskRevise, req.TaskID)

	return &Result{TaskID: req.TaskID, UpdatedTaskIDs: []string{req.TaskID}}, nil
}

// ReviseTree implements the subtree revision flow of spec §4.11.
func (e *Engine) ReviseTree(ctx context.Context, req Request) (*Result, error) {
	target, ok := e.Store.GetTask(req.TaskID)
	if !ok {
		return nil, fmt.Errorf("task %s not found", req.TaskID)
	}
	dependentIDs, err := e.Store.TransitiveDependents(req.TaskID)
	if err != nil {
		return nil, err
	}
	subtreeIDs := append([]string{req.TaskID}, dependentIDs...)
	subtreeSet := make(map[string]bool, len(subtreeIDs))
	subtree := make([]taskstore.Task, 0, len(subtreeIDs))
	subtree = append(subtree, *target)
	subtreeSet[target.ID] = true
	for _, id := range dependentIDs {
		t, ok := e.Store.GetTask(id)
		if !ok {
			continue
		}
		subtree = append(subtree, *t)
		subtreeSet[id] = true
	}

	for _, t := range subtree {
		if t.Status == taskstore.StatusInProgress || t.AssignedTo != "" {
			return nil, errActiveWorker
		}
	}

	if !e.tryAcquire() {
		return nil, errActiveWorker
	}
	defer e.release()
	if err := e.checkNotBusy(); err != nil {
		return nil, err
	}
	if req.PlannerAgent.Command == "" {
		return nil, errNoPlanner
	}

	specs := make(map[string]string, len(subtree))
	for _, t := range subtree {
		specs[t.ID] = e.Store.GetSpec(t.ID)
	}
	prd := prdExcerpt(e.ProjectRoot, e.Store)
	prompt := buildReviseTreePrompt(subtree, specs, prd, req.Prompt)

	h, err := e.Spawner.Spawn(ctx, runner.SpawnRequest{
		Agent:         req.PlannerAgent,
		Role:          runner.RolePlanner,
		Name:          "reviser",
		Cwd:           e.ProjectRoot,
		Prompt:        prompt,
		Model:         req.Model,
		Thinking:      req.Thinking,
		TaskID:        req.TaskID,
		TruncateBytes: req.Truncation.Bytes,
		TruncateLines: req.Truncation.Lines,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRevisionFailed, err)
	}
	res := h.Wait()
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: exit code %d", errRevisionFailed, res.ExitCode)
	}

	entries, ok := parseTreeEntries(res.Output)
	if !ok {
		return nil, fmt.Errorf("%w: no valid tasks-json block", errRevisionFailed)
	}

	maxNew := 2 * len(subtree)
	if maxNew < 5 {
		maxNew = 5
	}
	newCount := 0
	for _, entry := range entries {
		if entry.ID == "" {
			newCount++
			continue
		}
		if !subtreeSet[entry.ID] {
			return nil, fmt.Errorf("%w: entry id %q outside subtree", errRevisionFailed, entry.ID)
		}
	}
	if newCount > maxNew {
		return nil, fmt.Errorf("%w: %d new tasks exceeds bound of %d", errRevisionFailed, newCount, maxNew)
	}

	allTasks, err := e.Store.ListTasks()
	if err != nil {
		return nil, err
	}
	titleMap := make(map[string]string, len(allTasks)*2)
	for _, t := range allTasks {
		titleMap[strings.ToLower(t.Title)] = t.ID
		titleMap[strings.ToLower(t.ID)] = t.ID
	}

	var updatedIDs, newIDs []string
	for _, entry := range entries {
		if entry.ID != "" || entry.Title == "" {
			continue
		}
		created, err := e.Store.CreateTask(entry.Title, entry.Description, nil, entry.Milestone)
		if err != nil {
			return nil, fmt.Errorf("creating task %q: %w", entry.Title, err)
		}
		newIDs = append(newIDs, created.ID)
		titleMap[strings.ToLower(entry.Title)] = created.ID
		titleMap[strings.ToLower(created.ID)] = created.ID
	}

	idx := 0
	for _, entry := range entries {
		if entry.ID == "" {
			id := ""
			if idx < len(newIDs) {
				id = newIDs[idx]
				idx++
			}
			if id == "" {
				continue
			}
			deps := resolveSubtreeDeps(entry.DependsOn, titleMap, id)
			if len(deps) > 0 {
				if _, err := e.Store.UpdateTask(id, func(t *taskstore.Task) { t.DependsOn = deps }); err != nil {
					return nil, err
				}
			}
			continue
		}

		if entry.Title != "" {
			if _, err := e.Store.UpdateTask(entry.ID, func(t *taskstore.Task) { t.Title = entry.Title }); err != nil {
				return nil, err
			}
		}
		if entry.Description != "" {
			if err := e.Store.SetSpec(entry.ID, entry.Description); err != nil {
				return nil, err
			}
		}
		if len(entry.DependsOn) > 0 {
			deps := resolveSubtreeDeps(entry.DependsOn, titleMap, entry.ID)
			if _, err := e.Store.UpdateTask(entry.ID, func(t *taskstore.Task) { t.DependsOn = deps }); err != nil {
				return nil, err
			}
		}
		updatedIDs = append(updatedIDs, entry.ID)
	}

	allIDs := make([]string, 0, len(allTasks)+len(newIDs))
	for _, t := range allTasks {
		allIDs = append(allIDs, t.ID)
	}
	allIDs = append(allIDs, newIDs...)
	if err := e.Store.PruneTransitiveDeps(allIDs); err != nil {
		return nil, fmt.Errorf("pruning transitive deps: %w", err)
	}

	var resetIDs []string
	for _, t := range subtree {
		if t.Status == taskstore.StatusDone {
			continue
		}
		if err := e.Store.ResetTask(t.ID, false); err != nil {
			return nil, err
		}
		resetIDs = append(resetIDs, t.ID)
	}

	e.emitFeed(feed.EventTaskReviseTree, req.TaskID)

	return &Result{
		TaskID:         req.TaskID,
		UpdatedTaskIDs: updatedIDs,
		NewTaskIDs:     newIDs,
		ResetTaskIDs:   resetIDs,
	}, nil
}

// resolveSubtreeDeps maps dependsOn references through titleMap,
// dropping unresolved references and any reference to selfID.
func resolveSubtreeDeps(refs []string, titleMap map[string]string, selfID string) []string {
	var out []string
	for _, r := range refs {
		id, ok := titleMap[strings.ToLower(strings.TrimSpace(r))]
		if !ok || id == selfID {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (e *Engine) emitFeed(t feed.EventType, target string) {
	if e.Feed == nil {
		return
	}
	_ = e.Feed.Append(feed.Event{TS: time.Now().UTC(), Type: t, Target: target})
}
