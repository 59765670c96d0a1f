package revise

import "errors"

var (
	errInvalidStatus  = errors.New("invalid_status")
	errActiveWorker   = errors.New("active_worker")
	errPlanningActive = errors.New("planning_active")
	errNoPlanner      = errors.New("no_planner")
	errRevisionFailed = errors.New("revision_failed")
)
