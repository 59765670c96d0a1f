package revise

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pimesh/crew/internal/fileutil"
	"github.com/pimesh/crew/internal/taskstore"
)

// maxPRDExcerpt bounds how much of the original PRD/spec source is folded
// into a revise prompt; revise only needs enough context to judge whether
// a proposed change still fits the source, not the whole document.
const maxPRDExcerpt = 20000

func prdExcerpt(projectRoot string, store *taskstore.Store) string {
	plan, ok := store.GetPlan()
	if !ok {
		return ""
	}
	var content string
	if plan.PRD == taskstore.PromptOnlySentinel {
		content = plan.Prompt
	} else {
		path := plan.PRD
		if !filepath.IsAbs(path) {
			path = filepath.Join(projectRoot, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		content = string(data)
	}
	if len(content) > maxPRDExcerpt {
		content = content[:maxPRDExcerpt]
	}
	return content
}

func blockContext(projectRoot, taskID string) string {
	data, err := os.ReadFile(fileutil.BlockPath(projectRoot, taskID))
	if err != nil {
		return ""
	}
	return string(data)
}

func progressLog(projectRoot, taskID string) string {
	lines, _ := fileutil.ReadLines(fileutil.TaskProgressPath(projectRoot, taskID))
	return strings.Join(lines, "\n")
}

// buildRevisePrompt composes the single-task revision prompt per spec
// §4.11: current spec, progress log, block context, a bounded PRD
// excerpt, and the revision instructions.
func buildRevisePrompt(task *taskstore.Task, spec, progress, block, prd, instructions string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are revising task %s: %s\n\n", task.ID, task.Title)
	fmt.Fprintf(&b, "## Current spec\n\n%s\n\n", spec)
	if progress != "" {
		fmt.Fprintf(&b, "## Progress log\n\n%s\n\n", progress)
	}
	if block != "" {
		fmt.Fprintf(&b, "## Block context\n\n%s\n\n", block)
	}
	if prd != "" {
		fmt.Fprintf(&b, "## Source excerpt\n\n%s\n\n", prd)
	}
	fmt.Fprintf(&b, "## Revision instructions\n\n%s\n\n", instructions)
	b.WriteString("Respond with exactly one ```revised-task fenced JSON block: " +
		`{"title": "optional new title", "spec": "full revised spec, required, non-empty"}` + "\n")
	return b.String()
}

// buildReviseTreePrompt composes the subtree revision prompt per spec
// §4.11: every task in the subtree (id, title, spec), a bounded PRD
// excerpt, and the revision instructions.
func buildReviseTreePrompt(subtree []taskstore.Task, specs map[string]string, prd, instructions string) string {
	var b strings.Builder
	b.WriteString("You are revising a subtree of dependent tasks.\n\n## Subtree\n\n")
	for _, t := range subtree {
		fmt.Fprintf(&b, "### %s: %s (status: %s)\n\n%s\n\n", t.ID, t.Title, t.Status, specs[t.ID])
	}
	if prd != "" {
		fmt.Fprintf(&b, "## Source excerpt\n\n%s\n\n", prd)
	}
	fmt.Fprintf(&b, "## Revision instructions\n\n%s\n\n", instructions)
	b.WriteString("Respond with exactly one ```tasks-json fenced JSON array. Entries with an " +
		`"id" update that task (id must be one of the subtree ids above); entries with no "id" ` +
		"create a new task. Each entry may carry title, description, dependsOn (titles or ids), " +
		"and milestone.\n")
	return b.String()
}
