// Package runner spawns planner, reviewer, and worker subprocesses, parses
// their JSONL event stream, and drives graceful-then-forceful shutdown, per
// spec §4.7. Spawning is grounded on the teacher's engine.invokeAgent,
// generalized from a single fixed argv to the spec's richer per-role
// argument contract; it reads stdout and stderr over plain pipes, with no
// PTY and no stdin input.
package runner

import "time"

// Role names the kind of agent being spawned, used for model-routing and
// output-truncation lookups.
type Role string

const (
	RolePlanner  Role = "planner"
	RoleWorker   Role = "worker"
	RoleReviewer Role = "reviewer"
	RoleAnalyst  Role = "analyst"
)

// AgentDef names the coding-agent binary and its fixed capabilities,
// analogous to the teacher's config.Agent but generalized across roles.
type AgentDef struct {
	Command       string
	BaseArgs      []string
	Tools         []string
	ExtensionPath string
	Extensions    []string
	SystemPrompt  string
}

// SpawnRequest carries everything needed to build one subprocess's argv
// and environment.
type SpawnRequest struct {
	Agent    AgentDef
	Role     Role
	Name     string // mesh identity injected into the subprocess environment
	Cwd      string
	Prompt   string
	Model    string // already resolved by the caller's priority chain
	Thinking string // effort level, suppressed when Model already has a ":level" suffix
	Env      map[string]string
	TaskID   string

	TruncateBytes int
	TruncateLines int
}

// StreamEvent is one parsed line of the subprocess's JSONL event stream,
// per spec §6's three event kinds.
type StreamEvent struct {
	Type        string // tool_execution_start | tool_execution_end | message_end
	ToolName    string
	ArgsPreview string
	Usage       Usage
	ErrorText   string
}

// Usage accumulates token counts reported on message_end events.
type Usage struct {
	Input      int
	Output     int
	CacheRead  int
	CacheWrite int
}

// Result is the terminal outcome of one subprocess run, per spec §4.7
// "Termination".
type Result struct {
	ExitCode              int
	Output                string
	Truncated             bool
	RecentTools           []string
	ToolCallCount         int
	TotalTokens           int
	Error                 string
	TaskID                string
	WasGracefullyShutdown bool
	Duration              time.Duration
}

const recentToolsCap = 10
