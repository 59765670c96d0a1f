package taskstore

import (
	"fmt"
	"os"
	"time"

	"github.com/pimesh/crew/internal/fileutil"
)

// StartTask transitions id from todo to in_progress. It is permitted only
// from todo; it stamps started_at, base_commit (resolved by the caller and
// passed in, since resolution is best-effort local-VCS and taskstore has
// no git dependency), assigned_to, and increments attempt_count.
func (s *Store) StartTask(id, assignedTo, baseCommit string) (*Task, error) {
	task, ok := s.GetTask(id)
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	if task.Status != StatusTodo {
		return nil, fmt.Errorf("startTask %s: invalid_status (have %s, want todo)", id, task.Status)
	}
	if task.Milestone {
		return nil, fmt.Errorf("startTask %s: milestone_not_startable", id)
	}
	now := time.Now().UTC()
	return s.UpdateTask(id, func(t *Task) {
		t.Status = StatusInProgress
		t.StartedAt = &now
		t.BaseCommit = baseCommit
		t.AssignedTo = assignedTo
		t.AttemptCount++
	})
}

// CompleteTask transitions id from in_progress to done. Requires a
// non-empty summary per invariant (ii).
func (s *Store) CompleteTask(id, summary, evidence string) (*Task, error) {
	task, ok := s.GetTask(id)
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	if task.Status != StatusInProgress {
		return nil, fmt.Errorf("completeTask %s: invalid_status (have %s, want in_progress)", id, task.Status)
	}
	if summary == "" {
		return nil, fmt.Errorf("completeTask %s: missing_summary", id)
	}
	now := time.Now().UTC()
	updated, err := s.UpdateTask(id, func(t *Task) {
		t.Status = StatusDone
		t.CompletedAt = &now
		t.Summary = summary
		t.Evidence = evidence
		t.AssignedTo = ""
	})
	if err != nil {
		return nil, err
	}
	if err := s.reconcileCompletedCount(); err != nil {
		return nil, err
	}
	return updated, nil
}

// completeMilestone transitions a milestone straight from todo to done,
// bypassing the in_progress requirement that applies to worker-run tasks
// — milestones never run directly (spec §4.5).
func (s *Store) completeMilestone(id string) (*Task, error) {
	now := time.Now().UTC()
	updated, err := s.UpdateTask(id, func(t *Task) {
		t.Status = StatusDone
		t.CompletedAt = &now
		t.Summary = "All subtasks completed"
	})
	if err != nil {
		return nil, err
	}
	if err := s.reconcileCompletedCount(); err != nil {
		return nil, err
	}
	return updated, nil
}

// BlockTask transitions id from in_progress to blocked, writing a block
// context file with reason and timestamp.
func (s *Store) BlockTask(id, reason string) (*Task, error) {
	task, ok := s.GetTask(id)
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	if task.Status != StatusInProgress {
		return nil, fmt.Errorf("blockTask %s: invalid_status (have %s, want in_progress)", id, task.Status)
	}
	now := time.Now().UTC()
	content := fmt.Sprintf("# Blocked: %s\n\n%s\n\n_at %s_\n", id, reason, now.Format(time.RFC3339))
	if err := fileutil.AtomicWriteFile(fileutil.BlockPath(s.ProjectRoot, id), []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write block context: %w", err)
	}
	return s.UpdateTask(id, func(t *Task) {
		t.Status = StatusBlocked
		t.BlockedReason = reason
		t.AssignedTo = ""
	})
}

// UnblockTask transitions id from blocked to todo.
func (s *Store) UnblockTask(id string) (*Task, error) {
	task, ok := s.GetTask(id)
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	if task.Status != StatusBlocked {
		return nil, fmt.Errorf("unblockTask %s: invalid_status (have %s, want blocked)", id, task.Status)
	}
	_ = removeBlockFile(s.ProjectRoot, id)
	return s.UpdateTask(id, func(t *Task) {
		t.Status = StatusTodo
		t.BlockedReason = ""
	})
}

// ResetTask returns id to todo from any status, clearing lifecycle fields
// but preserving attempt_count. When cascade is true it recursively
// resets every task that transitively depends on id.
func (s *Store) ResetTask(id string, cascade bool) error {
	if _, ok := s.GetTask(id); !ok {
		return fmt.Errorf("task %s not found", id)
	}
	if err := s.resetOne(id); err != nil {
		return err
	}
	if !cascade {
		return nil
	}
	dependents, err := s.transitiveDependents(id)
	if err != nil {
		return err
	}
	for _, depID := range dependents {
		if err := s.resetOne(depID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) resetOne(id string) error {
	_ = removeBlockFile(s.ProjectRoot, id)
	_, err := s.UpdateTask(id, func(t *Task) {
		t.Status = StatusTodo
		t.StartedAt = nil
		t.CompletedAt = nil
		t.AssignedTo = ""
		t.Summary = ""
		t.Evidence = ""
		t.BlockedReason = ""
	})
	if err != nil {
		return err
	}
	return s.reconcileCompletedCount()
}

func removeBlockFile(projectRoot, id string) error {
	path := fileutil.BlockPath(projectRoot, id)
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// TransitiveDependents returns every task id that transitively depends on
// id, in no particular order. Exposed for callers, like the revise
// engine, that need the subtree membership without also resetting it.
func (s *Store) TransitiveDependents(id string) ([]string, error) {
	return s.transitiveDependents(id)
}

// transitiveDependents returns every task id that transitively depends on
// id, in no particular order.
func (s *Store) transitiveDependents(id string) ([]string, error) {
	tasks, err := s.ListTasks()
	if err != nil {
		return nil, err
	}
	dependents := make(map[string][]string) // depId -> []dependerId
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	var result []string
	visited := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dependent := range dependents[cur] {
			if visited[dependent] {
				continue
			}
			visited[dependent] = true
			result = append(result, dependent)
			queue = append(queue, dependent)
		}
	}
	return result, nil
}

// ReconcileCompletedCount recomputes plan.completed_count from the actual
// set of done tasks. Exposed for callers, like the wave scheduler, that
// mutate task status outside the lifecycle methods that already
// reconcile as part of their own transition.
func (s *Store) ReconcileCompletedCount() error {
	return s.reconcileCompletedCount()
}

// reconcileCompletedCount recomputes plan.completed_count from the actual
// set of done tasks, per invariant (ii).
func (s *Store) reconcileCompletedCount() error {
	tasks, err := s.ListTasks()
	if err != nil {
		return err
	}
	done := 0
	for _, t := range tasks {
		if t.Status == StatusDone {
			done++
		}
	}
	_, err = s.UpdatePlan(func(p *Plan) { p.CompletedCount = done })
	return err
}
