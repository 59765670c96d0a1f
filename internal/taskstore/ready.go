package taskstore

// ReadyTasks returns the tasks eligible to start in the given dependency
// mode. In strict mode a todo, non-milestone task is ready only once every
// dependency is done; in advisory mode dependencies are informational and
// every todo, non-milestone task is ready. Milestones are never ready,
// per spec §4.5.
func (s *Store) ReadyTasks(mode DependencyMode) ([]Task, error) {
	tasks, err := s.ListTasks()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var ready []Task
	for _, t := range tasks {
		if t.Status != StatusTodo || t.Milestone {
			continue
		}
		if mode == DependencyStrict && !allDepsDone(t, byID) {
			continue
		}
		ready = append(ready, t)
	}
	return ready, nil
}

func allDepsDone(t Task, byID map[string]Task) bool {
	for _, depID := range t.DependsOn {
		dep, ok := byID[depID]
		if !ok || dep.Status != StatusDone {
			return false
		}
	}
	return true
}

// AutoCompleteMilestones transitions every milestone whose dependencies
// are all done to done, repeating until a full pass makes no change (so a
// chain of milestones completes in one call), per spec §4.5.
func (s *Store) AutoCompleteMilestones() ([]string, error) {
	var completed []string
	for {
		tasks, err := s.ListTasks()
		if err != nil {
			return completed, err
		}
		byID := make(map[string]Task, len(tasks))
		for _, t := range tasks {
			byID[t.ID] = t
		}

		changed := false
		for _, t := range tasks {
			if !t.Milestone || t.Status == StatusDone {
				continue
			}
			if !allDepsDone(t, byID) {
				continue
			}
			if _, err := s.completeMilestone(t.ID); err != nil {
				return completed, err
			}
			completed = append(completed, t.ID)
			changed = true
		}
		if !changed {
			break
		}
	}
	return completed, nil
}
