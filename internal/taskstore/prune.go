package taskstore

// PruneTransitiveDeps drops, for every named task with two or more direct
// dependencies, any direct dependency that is also reachable through
// another direct dependency. The surviving ids' relative order is
// preserved. Applying this twice to the same id set is idempotent, since
// a pruned graph has no redundant edges left to remove.
func (s *Store) PruneTransitiveDeps(ids []string) error {
	tasks, err := s.ListTasks()
	if err != nil {
		return err
	}
	depsByID := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		depsByID[t.ID] = t.DependsOn
	}

	reachable := memoReachability(depsByID)

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	for _, id := range ids {
		direct := depsByID[id]
		if len(direct) < 2 {
			continue
		}
		pruned := make([]string, 0, len(direct))
		for i, dep := range direct {
			redundant := false
			for j, other := range direct {
				if i == j {
					continue
				}
				if reachable(other, dep) {
					redundant = true
					break
				}
			}
			if !redundant {
				pruned = append(pruned, dep)
			}
		}
		if len(pruned) != len(direct) {
			if _, err := s.UpdateTask(id, func(t *Task) { t.DependsOn = pruned }); err != nil {
				return err
			}
		}
	}
	return nil
}

// memoReachability returns a function reporting whether to is reachable
// from from by following depends_on edges, memoizing per-from-node DFS
// results across calls.
func memoReachability(deps map[string][]string) func(from, to string) bool {
	cache := make(map[string]map[string]bool)
	return func(from, to string) bool {
		set, ok := cache[from]
		if !ok {
			set = map[string]bool{}
			visited := map[string]bool{from: true}
			queue := []string{from}
			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				for _, next := range deps[cur] {
					if visited[next] {
						continue
					}
					visited[next] = true
					set[next] = true
					queue = append(queue, next)
				}
			}
			cache[from] = set
		}
		return set[to]
	}
}
