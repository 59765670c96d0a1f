package planner

import (
	"bufio"
	"encoding/json"
	"strconv"
	"strings"
)

// ParsedTask is one task extracted from a planner pass, before ids are
// assigned in the store. DependsOn holds raw references (titles, "task N",
// or already-resolved ids) to be resolved through the alias table built by
// buildAliasTable.
type ParsedTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DependsOn   []string `json:"dependsOn"`
	Milestone   bool     `json:"milestone"`
}

type jsonTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DependsOn   []string `json:"dependsOn"`
	Milestone   bool     `json:"milestone"`
}

// ParseTasksJSON extracts the ```tasks-json fenced block from a planner
// pass's output and decodes it as a JSON array of tasks. Returns ok=false
// if no such block is present or it fails to decode.
func ParseTasksJSON(output string) ([]ParsedTask, bool) {
	fence := ExtractFence(output, "tasks-json")
	if fence == "" {
		return nil, false
	}
	var raw []jsonTask
	if err := json.Unmarshal([]byte(fence), &raw); err != nil {
		return nil, false
	}
	tasks := make([]ParsedTask, len(raw))
	for i, t := range raw {
		tasks[i] = ParsedTask{
			Title:       t.Title,
			Description: t.Description,
			DependsOn:   t.DependsOn,
			Milestone:   t.Milestone,
		}
	}
	return tasks, true
}

// ExtractFence returns the contents of the first ``` fenced code block
// whose info string equals lang (case-insensitively), or "" if absent.
// The pack carries no structured-markdown parsing library (goldmark
// appears only for rendering elsewhere), so this is a direct line scan.
// Exported so internal/revise can reuse it for the revised-task and
// tasks-json fences it parses out of planner output.
func ExtractFence(output, lang string) string {
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var inFence bool
	var body strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if !inFence {
			if strings.HasPrefix(trimmed, "```") {
				info := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
				if info == strings.ToLower(lang) {
					inFence = true
				}
			}
			continue
		}
		if trimmed == "```" {
			return body.String()
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	return ""
}

// taskHeaderPrefix is the one markdown-fallback task header form this
// parser recognizes at the start of a trimmed line.
const taskHeaderPrefix = "### Task "

// ParseTasksMarkdownFallback extracts tasks from a `### Task N: Title`
// markdown structure when no tasks-json fence parsed cleanly, per spec
// §4.9 step 5's fallback path. Each task's body runs until the next
// `### Task` header or end of output; a leading "Depends on:" or
// "Dependencies:" line (comma-separated, with "none"/"n/a"/"-" treated as
// empty) is extracted from the body and the remainder becomes the
// description.
func ParseTasksMarkdownFallback(output string) []ParsedTask {
	lines := strings.Split(output, "\n")
	var tasks []ParsedTask
	var curTitle string
	var curBody []string
	haveTask := false

	flush := func() {
		if !haveTask {
			return
		}
		deps, desc := extractDeps(curBody)
		tasks = append(tasks, ParsedTask{Title: curTitle, Description: desc, DependsOn: deps})
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, taskHeaderPrefix) {
			flush()
			rest := trimmed[len(taskHeaderPrefix):]
			if idx := strings.Index(rest, ":"); idx >= 0 {
				curTitle = strings.TrimSpace(rest[idx+1:])
			} else if idx := strings.Index(rest, " "); idx >= 0 {
				curTitle = strings.TrimSpace(rest[idx+1:])
			} else {
				curTitle = ""
			}
			curBody = nil
			haveTask = true
			continue
		}
		if haveTask {
			curBody = append(curBody, line)
		}
	}
	flush()
	return tasks
}

func extractDeps(body []string) (deps []string, description string) {
	var descLines []string
	consumed := false
	for _, line := range body {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if !consumed && (strings.HasPrefix(lower, "depends on:") || strings.HasPrefix(lower, "dependencies:")) {
			idx := strings.Index(trimmed, ":")
			raw := strings.TrimSpace(trimmed[idx+1:])
			deps = splitDeps(raw)
			consumed = true
			continue
		}
		descLines = append(descLines, line)
	}
	return deps, strings.TrimSpace(strings.Join(descLines, "\n"))
}

func splitDeps(raw string) []string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" || lower == "none" || lower == "n/a" || lower == "-" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var deps []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		deps = append(deps, p)
	}
	return deps
}

// buildAliasTable maps the ways a task may be referenced in another
// task's dependsOn list to its assigned store id: the lowercased title,
// "task N" (1-indexed position in tasks), and "task-N".
func buildAliasTable(tasks []ParsedTask, ids []string) map[string]string {
	alias := make(map[string]string, len(tasks)*3)
	for i, t := range tasks {
		id := ids[i]
		n := i + 1
		alias[strings.ToLower(t.Title)] = id
		alias[taskNAlias(n)] = id
		alias[taskDashNAlias(n)] = id
		alias[strings.ToLower(id)] = id
	}
	return alias
}

func taskNAlias(n int) string {
	return "task " + strconv.Itoa(n)
}

func taskDashNAlias(n int) string {
	return "task-" + strconv.Itoa(n)
}

// resolveDeps maps each raw dependency reference in refs through alias,
// lowercasing for lookup, dropping references that resolve to nothing.
func resolveDeps(refs []string, alias map[string]string) []string {
	var out []string
	for _, r := range refs {
		id, ok := alias[strings.ToLower(strings.TrimSpace(r))]
		if !ok {
			continue
		}
		out = append(out, id)
	}
	return out
}
