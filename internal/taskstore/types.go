// Package taskstore owns the plan and task files under a project's crew
// directory: CRUD, the task lifecycle state machine, readiness
// computation, milestone auto-completion, validation, and transitive
// dependency pruning, per spec §4.5.
package taskstore

import "time"

// Status is a task's lifecycle state.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

// DependencyMode selects how ReadyTasks interprets depends_on.
type DependencyMode string

const (
	DependencyAdvisory DependencyMode = "advisory"
	DependencyStrict   DependencyMode = "strict"
)

// PromptOnlySentinel marks a Plan whose spec lives entirely in prompt
// rather than a discovered PRD file, per spec §3.
const PromptOnlySentinel = "(prompt)"

// Plan is the single per-project plan record at crew/plan.json.
type Plan struct {
	PRD            string    `json:"prd"`
	Prompt         string    `json:"prompt,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	TaskCount      int       `json:"task_count"`
	CompletedCount int       `json:"completed_count"`
}

// Task is one task record at crew/tasks/<id>.json, field-for-field per
// spec §3.
type Task struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Status        Status    `json:"status"`
	DependsOn     []string  `json:"depends_on,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	AttemptCount  int       `json:"attempt_count"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	BaseCommit    string    `json:"base_commit,omitempty"`
	AssignedTo    string    `json:"assigned_to,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	Evidence      string    `json:"evidence,omitempty"`
	BlockedReason string    `json:"blocked_reason,omitempty"`
	Milestone     bool      `json:"milestone,omitempty"`
	LastReview    string    `json:"last_review,omitempty"`
	Model         string    `json:"model,omitempty"`
}
