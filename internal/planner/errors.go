package planner

import "errors"

var (
	errPlanExists      = errors.New("plan_exists")
	errPlanningActive  = errors.New("planning_active")
	errTasksInProgress = errors.New("tasks_in_progress")
	errNoSource        = errors.New("no_prd")
	errNoPlanner       = errors.New("no_planner")
	errPlannerFailed   = errors.New("planner_failed")
)
