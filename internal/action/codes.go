package action

// Code is the closed error-code vocabulary of spec §7, returned in a
// Result's Details.Error rather than as a distinguishable Go error type:
// every handler returns a value, never panics or bubbles a raw error to
// the caller.
type Code string

const (
	CodeNotRegistered        Code = "not_registered"
	CodeMissingValue         Code = "missing_value"
	CodeMissingName          Code = "missing_name"
	CodeMissingPaths         Code = "missing_paths"
	CodeMissingID            Code = "missing_id"
	CodeMissingReason        Code = "missing_reason"
	CodeMissingMessage       Code = "missing_message"
	CodeMissingOperation     Code = "missing_operation"
	CodeMissingTitle         Code = "missing_title"
	CodeMissingSpec          Code = "missing_spec"
	CodeInvalidStatus        Code = "invalid_status"
	CodeMilestoneNotStart    Code = "milestone_not_startable"
	CodeUnmetDependencies    Code = "unmet_dependencies"
	CodeActiveWorker         Code = "active_worker"
	CodePlanExists           Code = "plan_exists"
	CodePlanningActive       Code = "planning_active"
	CodeTasksInProgress      Code = "tasks_in_progress"
	CodeNoPlan               Code = "no_plan"
	CodeNoPRD                Code = "no_prd"
	CodePRDNotFound          Code = "prd_not_found"
	CodeNoWorker             Code = "no_worker"
	CodeNoPlanner            Code = "no_planner"
	CodePlannerFailed        Code = "planner_failed"
	CodeParserFailed         Code = "parser_failed"
	CodeRevisionFailed       Code = "revision_failed"
	CodeResetFailed          Code = "reset_failed"
	CodeBlockFailed          Code = "block_failed"
	CodeUnblockFailed        Code = "unblock_failed"
	CodeStartFailed          Code = "start_failed"
	CodeDeleteFailed         Code = "delete_failed"
	CodeCompleteFailed       Code = "complete_failed"
	CodeDependencyNotFound   Code = "dependency_not_found"
	CodeInsufficientSubtasks Code = "insufficient_subtasks"
	CodeInvalidSubtaskTitle  Code = "invalid_subtask_title"
	CodeAlreadyDone          Code = "already_done"
	CodeAlreadyMilestone     Code = "already_milestone"
	CodeHandlerError         Code = "handler_error"
	CodeUnknownAction        Code = "unknown_action"
	CodeUnknownOperation     Code = "unknown_operation"
	CodeCancelled            Code = "cancelled"
	CodeWriteConflict        Code = "write_conflict"
)
