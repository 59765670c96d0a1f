package taskstore

import (
	"fmt"

	"github.com/pimesh/crew/internal/fileutil"
)

// Validate returns validation errors (dangling depends_on ids, cycles) and
// warnings (empty specs, task_count/completed_count drift, missing plan
// spec), per spec §4.5.
func (s *Store) Validate() (errors, warnings []string) {
	plan, hasPlan := s.GetPlan()
	tasks, err := s.ListTasks()
	if err != nil {
		return []string{fmt.Sprintf("list tasks: %s", err)}, nil
	}

	byID := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	for _, t := range tasks {
		if t.ID == "" {
			continue
		}
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				errors = append(errors, fmt.Sprintf("%s: depends on itself", t.ID))
				continue
			}
			if _, ok := byID[dep]; !ok {
				errors = append(errors, fmt.Sprintf("%s: dangling dependency %s", t.ID, dep))
			}
		}
	}

	if cycleErr := detectCycle(tasks); cycleErr != "" {
		errors = append(errors, cycleErr)
	}

	for _, t := range tasks {
		if s.GetSpec(t.ID) == SpecPendingSentinel {
			warnings = append(warnings, fmt.Sprintf("%s: spec is empty", t.ID))
		}
	}

	if hasPlan {
		done := 0
		for _, t := range tasks {
			if t.Status == StatusDone {
				done++
			}
		}
		if plan.CompletedCount != done {
			warnings = append(warnings, fmt.Sprintf("plan.completed_count=%d but %d tasks are done", plan.CompletedCount, done))
		}
		if plan.TaskCount != len(tasks) {
			warnings = append(warnings, fmt.Sprintf("plan.task_count=%d but %d tasks exist", plan.TaskCount, len(tasks)))
		}
		if !fileutil.Exists(fileutil.PlanSpecPath(s.ProjectRoot)) {
			warnings = append(warnings, "missing plan spec (plan.md)")
		}
	} else {
		warnings = append(warnings, "no plan exists")
	}

	return errors, warnings
}

// detectCycle runs a DFS with a recursion stack over the dependency graph,
// mirroring the teacher's white/gray/black cycle detection for concern
// chains, generalized from concern-watch edges to task depends_on edges.
func detectCycle(tasks []Task) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	adj := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		adj[t.ID] = t.DependsOn
	}
	color := make(map[string]int, len(tasks))

	var visit func(node string) string
	visit = func(node string) string {
		color[node] = gray
		for _, dep := range adj[node] {
			if color[dep] == gray {
				return fmt.Sprintf("cycle detected: %s -> %s", node, dep)
			}
			if color[dep] == white {
				if msg := visit(dep); msg != "" {
					return msg
				}
			}
		}
		color[node] = black
		return ""
	}

	for _, t := range tasks {
		if color[t.ID] == white {
			if msg := visit(t.ID); msg != "" {
				return msg
			}
		}
	}
	return ""
}
