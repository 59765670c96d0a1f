package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/pimesh/crew/internal/planner"
)

func (r *Router) handlePlan(ctx context.Context, req Request, state *State) Result {
	plannerAgent, _ := r.Config.Crew.Agents.Agent("planner")
	reviewerAgent, hasReviewer := r.Config.Crew.Agents.Agent("reviewer")

	plannerModel := req.Model
	if plannerModel == "" {
		plannerModel = r.Config.Crew.Models.ModelFor("planner")
	}

	res, err := r.Planner.Plan(ctx, planner.PlanRequest{
		PRD:              req.PRD,
		Prompt:           req.Prompt,
		AutoWork:         req.AutoWork,
		PlannerAgent:     toAgentDef(plannerAgent),
		ReviewerAgent:    toAgentDef(reviewerAgent),
		HasReviewer:      hasReviewer && reviewerAgent.Command != "",
		PlannerModel:     plannerModel,
		ReviewerModel:    r.Config.Crew.Models.ModelFor("reviewer"),
		PlannerThinking:  r.Config.Crew.Thinking["planner"],
		ReviewerThinking: r.Config.Crew.Thinking["reviewer"],
		MaxPasses:        r.Config.Crew.Planning.MaxPasses,
		ReviewEnabled:    r.Config.Crew.Review.Enabled,
		TruncatePlanner:  r.Config.Crew.Truncation["planner"],
		TruncateReviewer: r.Config.Crew.Truncation["reviewer"],
	})
	if err != nil {
		return errResult("error", planErrorCode(err))
	}
	if res.Cancelled {
		return errResult("cancelled", CodeCancelled)
	}
	return okText("ok", fmt.Sprintf("planned %d tasks", res.TaskCount), res)
}

func (r *Router) handlePlanCancel() Result {
	r.Coord.CancelPlanning()
	return okText("ok", "cancellation requested", nil)
}

var planSentinelCodes = map[string]Code{
	"plan_exists":       CodePlanExists,
	"planning_active":   CodePlanningActive,
	"tasks_in_progress": CodeTasksInProgress,
	"no_prd":            CodeNoPRD,
	"no_planner":        CodeNoPlanner,
	"planner_failed":    CodePlannerFailed,
}

func planErrorCode(err error) Code {
	msg := err.Error()
	for prefix, code := range planSentinelCodes {
		if strings.HasPrefix(msg, prefix) {
			return code
		}
	}
	return CodeHandlerError
}
