// Package coordination owns the process-wide mutable state the spec calls
// out in its "process-wide mutable state" design note: autonomous run state,
// planning run state, and the one-slot pending-auto-work flag. Autonomous
// and planning state persist to disk under the project's crew directory so
// a restarted process can tell whether a prior run is still alive, per
// spec §4.6; the pending-auto-work flag is held in memory only.
package coordination

import "time"

// StopReason explains why an autonomous run ended.
type StopReason string

const (
	StopCompleted StopReason = "completed"
	StopBlocked   StopReason = "blocked"
	StopManual    StopReason = "manual"
)

// AutonomousState is the single process-wide autonomous-run record,
// persisted to crew/autonomous-state.json, field-for-field per spec §3.
type AutonomousState struct {
	Active             bool       `json:"active"`
	Cwd                string     `json:"cwd"`
	WaveNumber         int        `json:"waveNumber"`
	WaveHistory        []string   `json:"waveHistory,omitempty"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	StoppedAt          *time.Time `json:"stoppedAt,omitempty"`
	StopReason         StopReason `json:"stopReason,omitempty"`
	Concurrency        int        `json:"concurrency"`
	AutoOverlayPending bool       `json:"autoOverlayPending"`
}

// PlanningPhase is one step of the planner/reviewer pass loop.
type PlanningPhase string

const (
	PhaseIdle           PlanningPhase = "idle"
	PhaseReadPRD        PlanningPhase = "read-prd"
	PhaseScanCode       PlanningPhase = "scan-code"
	PhaseGapAnalysis    PlanningPhase = "gap-analysis"
	PhaseReviewPass     PlanningPhase = "review-pass"
	PhaseBuildTaskGraph PlanningPhase = "build-task-graph"
	PhaseBuildSteps     PlanningPhase = "build-steps"
	PhaseFinalizing     PlanningPhase = "finalizing"
	PhaseCompleted      PlanningPhase = "completed"
)

// PlanningState is the single process-wide planning-run record, persisted
// to crew/planning-state.json on every change, field-for-field per spec §3.
type PlanningState struct {
	Active    bool          `json:"active"`
	Cwd       string        `json:"cwd"`
	RunID     string        `json:"runId"`
	Pass      int           `json:"pass"`
	MaxPasses int           `json:"maxPasses"`
	Phase     PlanningPhase `json:"phase"`
	UpdatedAt time.Time     `json:"updatedAt"`
	PID       int           `json:"pid"`
}
