package taskstore

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pimesh/crew/internal/fileutil"
)

// SpecPendingSentinel is the placeholder spec body for a task with no
// content yet, per spec §3.
const SpecPendingSentinel = "*Spec pending*"

// Store owns the plan and task files for a single project root.
type Store struct {
	ProjectRoot string
}

// New returns a Store rooted at projectRoot.
func New(projectRoot string) *Store {
	return &Store{ProjectRoot: projectRoot}
}

// HasPlan reports whether a plan record exists for the project.
func (s *Store) HasPlan() bool {
	return fileutil.Exists(fileutil.PlanPath(s.ProjectRoot))
}

// GetPlan reads the current plan, or nil if absent.
func (s *Store) GetPlan() (*Plan, bool) {
	var plan Plan
	if !fileutil.ReadJSON(fileutil.PlanPath(s.ProjectRoot), &plan) {
		return nil, false
	}
	return &plan, true
}

// CreatePlan writes a new plan record, overwriting any existing one. Per
// invariant (i), exactly one plan exists per project at a time.
func (s *Store) CreatePlan(prd, prompt string) (*Plan, error) {
	now := time.Now().UTC()
	plan := &Plan{PRD: prd, Prompt: prompt, CreatedAt: now, UpdatedAt: now}
	if err := s.savePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// UpdatePlan applies mutate to the current plan and persists it.
func (s *Store) UpdatePlan(mutate func(*Plan)) (*Plan, error) {
	plan, ok := s.GetPlan()
	if !ok {
		return nil, fmt.Errorf("no plan for project")
	}
	mutate(plan)
	plan.UpdatedAt = time.Now().UTC()
	if err := s.savePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Store) savePlan(plan *Plan) error {
	return fileutil.AtomicWriteJSON(fileutil.PlanPath(s.ProjectRoot), plan)
}

// DeletePlan removes the plan record, the plan spec, every task's files,
// and every block file, per spec §4.5.
func (s *Store) DeletePlan() error {
	tasks, err := s.ListTasks()
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if err := s.deleteTaskFiles(task.ID); err != nil {
			return err
		}
	}
	_ = os.Remove(fileutil.PlanPath(s.ProjectRoot))
	_ = os.Remove(fileutil.PlanSpecPath(s.ProjectRoot))
	return nil
}

// WipeTasks deletes every task's files but preserves the plan record,
// used by the planner's re-plan-with-prompt precondition path (spec §4.9
// step 1, "wipe tasks (not plan), preserving progress notes" — the
// progress file referenced there is planning-progress.md, not the
// per-task progress logs, which are deleted along with their tasks).
func (s *Store) WipeTasks() error {
	tasks, err := s.ListTasks()
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if err := s.deleteTaskFiles(task.ID); err != nil {
			return err
		}
	}
	_, err = s.UpdatePlan(func(p *Plan) {
		p.TaskCount = 0
		p.CompletedCount = 0
	})
	return err
}

// NextTaskID allocates the next monotonic task-N id: max(existing)+1,
// at least 1, tolerant of gaps from deletions.
func (s *Store) NextTaskID() (string, error) {
	tasks, err := s.ListTasks()
	if err != nil {
		return "", err
	}
	max := 0
	for _, task := range tasks {
		n, ok := parseTaskNumber(task.ID)
		if ok && n > max {
			max = n
		}
	}
	return fmt.Sprintf("task-%d", max+1), nil
}

func parseTaskNumber(id string) (int, bool) {
	const prefix = "task-"
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

// CreateTask allocates the next id, writes the task record and spec file,
// and increments the plan's task_count.
func (s *Store) CreateTask(title, description string, dependsOn []string, milestone bool) (*Task, error) {
	id, err := s.NextTaskID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	task := &Task{
		ID:        id,
		Title:     title,
		Status:    StatusTodo,
		DependsOn: dependsOn,
		CreatedAt: now,
		UpdatedAt: now,
		Milestone: milestone,
	}
	if err := s.saveTask(task); err != nil {
		return nil, err
	}
	spec := description
	if spec == "" {
		spec = SpecPendingSentinel
	}
	if err := fileutil.AtomicWriteFile(fileutil.TaskSpecPath(s.ProjectRoot, id), []byte(spec), 0644); err != nil {
		return nil, fmt.Errorf("write task spec: %w", err)
	}
	if _, err := s.UpdatePlan(func(p *Plan) { p.TaskCount++ }); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask reads a single task record.
func (s *Store) GetTask(id string) (*Task, bool) {
	var task Task
	if !fileutil.ReadJSON(fileutil.TaskJSONPath(s.ProjectRoot, id), &task) {
		return nil, false
	}
	return &task, true
}

// GetSpec reads a task's specification markdown.
func (s *Store) GetSpec(id string) string {
	data, err := os.ReadFile(fileutil.TaskSpecPath(s.ProjectRoot, id))
	if err != nil {
		return SpecPendingSentinel
	}
	return string(data)
}

// SetSpec overwrites a task's specification markdown.
func (s *Store) SetSpec(id, spec string) error {
	return fileutil.AtomicWriteFile(fileutil.TaskSpecPath(s.ProjectRoot, id), []byte(spec), 0644)
}

// ListTasks returns every task in the project, ordered by numeric id.
func (s *Store) ListTasks() ([]Task, error) {
	dir := fileutil.TasksDir(s.ProjectRoot)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list tasks dir: %w", err)
	}
	var tasks []Task
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		task, ok := s.GetTask(id)
		if !ok {
			continue
		}
		tasks = append(tasks, *task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		ni, _ := parseTaskNumber(tasks[i].ID)
		nj, _ := parseTaskNumber(tasks[j].ID)
		return ni < nj
	})
	return tasks, nil
}

// UpdateTask applies mutate to task id and persists it.
func (s *Store) UpdateTask(id string, mutate func(*Task)) (*Task, error) {
	task, ok := s.GetTask(id)
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	mutate(task)
	task.UpdatedAt = time.Now().UTC()
	if err := s.saveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Store) saveTask(task *Task) error {
	return fileutil.AtomicWriteJSON(fileutil.TaskJSONPath(s.ProjectRoot, task.ID), task)
}

// DeleteTask removes all of id's files, strips id from every other task's
// depends_on, and decrements task_count.
func (s *Store) DeleteTask(id string) error {
	if err := s.deleteTaskFiles(id); err != nil {
		return err
	}
	tasks, err := s.ListTasks()
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if !contains(task.DependsOn, id) {
			continue
		}
		if _, err := s.UpdateTask(task.ID, func(t *Task) {
			t.DependsOn = remove(t.DependsOn, id)
		}); err != nil {
			return err
		}
	}
	_, err = s.UpdatePlan(func(p *Plan) {
		if p.TaskCount > 0 {
			p.TaskCount--
		}
	})
	return err
}

func (s *Store) deleteTaskFiles(id string) error {
	_ = os.Remove(fileutil.TaskJSONPath(s.ProjectRoot, id))
	_ = os.Remove(fileutil.TaskSpecPath(s.ProjectRoot, id))
	_ = os.Remove(fileutil.TaskProgressPath(s.ProjectRoot, id))
	_ = os.Remove(fileutil.BlockPath(s.ProjectRoot, id))
	return nil
}

// AppendProgress appends one "[ISO] (agent) message" line to a task's
// progress log, creating it if absent.
func (s *Store) AppendProgress(id, agent, message string) error {
	path := fileutil.TaskProgressPath(s.ProjectRoot, id)
	if err := fileutil.EnsureDir(fileutil.TasksDir(s.ProjectRoot)); err != nil {
		return err
	}
	line := fmt.Sprintf("[%s] (%s) %s\n", time.Now().UTC().Format(time.RFC3339), agent, message)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open progress log: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
