package revise

import (
	"encoding/json"
	"strings"

	"github.com/pimesh/crew/internal/planner"
)

// revisedTask is the single-task shape the planner emits inside a
// ```revised-task fence for Revise: a required non-empty spec and an
// optional new title.
type revisedTask struct {
	Title string `json:"title"`
	Spec  string `json:"spec"`
}

// parseRevisedTask extracts the ```revised-task fence and decodes it.
// Returns ok=false if the fence is missing, malformed, or spec is empty.
func parseRevisedTask(output string) (revisedTask, bool) {
	fence := planner.ExtractFence(output, "revised-task")
	if fence == "" {
		return revisedTask{}, false
	}
	var rt revisedTask
	if err := json.Unmarshal([]byte(fence), &rt); err != nil {
		return revisedTask{}, false
	}
	if strings.TrimSpace(rt.Spec) == "" {
		return revisedTask{}, false
	}
	return rt, true
}

// treeEntry is one element of the ```tasks-json fence ReviseTree expects.
// An entry with a non-empty ID updates an existing task inside the
// subtree; an entry with no ID creates a new task.
type treeEntry struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DependsOn   []string `json:"dependsOn"`
	Milestone   bool     `json:"milestone"`
}

// parseTreeEntries extracts and decodes the ```tasks-json fence for
// ReviseTree. Returns ok=false if the fence is missing or malformed.
func parseTreeEntries(output string) ([]treeEntry, bool) {
	fence := planner.ExtractFence(output, "tasks-json")
	if fence == "" {
		return nil, false
	}
	var entries []treeEntry
	if err := json.Unmarshal([]byte(fence), &entries); err != nil {
		return nil, false
	}
	return entries, true
}
