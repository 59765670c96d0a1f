package action

import (
	"context"
	"strings"

	"github.com/pimesh/crew/internal/feed"
	"github.com/pimesh/crew/internal/revise"
	"github.com/pimesh/crew/internal/taskstore"
)

// dispatchTask handles every task.<op> action.
func (r *Router) dispatchTask(ctx context.Context, op string, req Request, state *State) Result {
	switch op {
	case "create":
		return r.handleTaskCreate(req)
	case "start":
		return r.handleTaskStart(req, state)
	case "complete":
		return r.handleTaskComplete(req)
	case "block":
		return r.handleTaskBlock(req)
	case "unblock":
		return r.handleTaskUnblock(req)
	case "reset":
		return r.handleTaskReset(req)
	case "delete":
		return r.handleTaskDelete(req)
	case "get":
		return r.handleTaskGet(req)
	case "list":
		return r.handleTaskList()
	case "revise":
		return r.handleTaskRevise(ctx, req)
	case "revise-tree":
		return r.handleTaskReviseTree(ctx, req)
	default:
		return errResult("error", CodeUnknownOperation)
	}
}

func (r *Router) handleTaskCreate(req Request) Result {
	if req.Title == "" {
		return errResult("error", CodeMissingTitle)
	}
	task, err := r.Store.CreateTask(req.Title, req.Spec, req.DependsOn, req.Type == "milestone")
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	r.emitFeed(feed.EventTaskStart, "", task.ID)
	return okText("ok", "created "+task.ID, task)
}

func (r *Router) handleTaskStart(req Request, state *State) Result {
	if req.TaskID == "" {
		return errResult("error", CodeMissingID)
	}
	task, ok := r.Store.GetTask(req.TaskID)
	if !ok {
		return errResult("error", CodeDependencyNotFound)
	}
	if !unmetDependencies(r.Store, task) {
		return errResult("error", CodeUnmetDependencies)
	}
	updated, err := r.Store.StartTask(req.TaskID, state.Name, "")
	if err != nil {
		return errResult("error", CodeStartFailed)
	}
	r.emitFeed(feed.EventTaskStart, state.Name, req.TaskID)
	return okText("ok", "started "+req.TaskID, updated)
}

func unmetDependencies(store *taskstore.Store, task *taskstore.Task) bool {
	for _, dep := range task.DependsOn {
		depTask, ok := store.GetTask(dep)
		if !ok || depTask.Status != taskstore.StatusDone {
			return false
		}
	}
	return true
}

func (r *Router) handleTaskComplete(req Request) Result {
	if req.TaskID == "" {
		return errResult("error", CodeMissingID)
	}
	if req.Summary == "" {
		return errResult("error", CodeMissingValue)
	}
	task, err := r.Store.CompleteTask(req.TaskID, req.Summary, req.Evidence)
	if err != nil {
		return errResult("error", CodeCompleteFailed)
	}
	r.emitFeed(feed.EventTaskDone, "", req.TaskID)
	return okText("ok", "completed "+req.TaskID, task)
}

func (r *Router) handleTaskBlock(req Request) Result {
	if req.TaskID == "" {
		return errResult("error", CodeMissingID)
	}
	if req.Reason == "" {
		return errResult("error", CodeMissingReason)
	}
	task, err := r.Store.BlockTask(req.TaskID, req.Reason)
	if err != nil {
		return errResult("error", CodeBlockFailed)
	}
	r.emitFeed(feed.EventTaskBlock, "", req.TaskID)
	return okText("ok", "blocked "+req.TaskID, task)
}

func (r *Router) handleTaskUnblock(req Request) Result {
	if req.TaskID == "" {
		return errResult("error", CodeMissingID)
	}
	task, err := r.Store.UnblockTask(req.TaskID)
	if err != nil {
		return errResult("error", CodeUnblockFailed)
	}
	r.emitFeed(feed.EventTaskUnblock, "", req.TaskID)
	return okText("ok", "unblocked "+req.TaskID, task)
}

func (r *Router) handleTaskReset(req Request) Result {
	if req.TaskID == "" {
		return errResult("error", CodeMissingID)
	}
	if err := r.Store.ResetTask(req.TaskID, req.Cascade); err != nil {
		return errResult("error", CodeResetFailed)
	}
	r.emitFeed(feed.EventTaskReset, "", req.TaskID)
	return okText("ok", "reset "+req.TaskID, nil)
}

func (r *Router) handleTaskDelete(req Request) Result {
	if req.TaskID == "" {
		return errResult("error", CodeMissingID)
	}
	if err := r.Store.DeleteTask(req.TaskID); err != nil {
		return errResult("error", CodeDeleteFailed)
	}
	r.emitFeed(feed.EventTaskDelete, "", req.TaskID)
	return okText("ok", "deleted "+req.TaskID, nil)
}

func (r *Router) handleTaskGet(req Request) Result {
	if req.TaskID == "" {
		return errResult("error", CodeMissingID)
	}
	task, ok := r.Store.GetTask(req.TaskID)
	if !ok {
		return errResult("error", CodeDependencyNotFound)
	}
	return ok("ok", task)
}

func (r *Router) handleTaskList() Result {
	tasks, err := r.Store.ListTasks()
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	return ok("ok", tasks)
}

func (r *Router) handleTaskRevise(ctx context.Context, req Request) Result {
	if req.TaskID == "" {
		return errResult("error", CodeMissingID)
	}
	res, err := r.Revise.Revise(ctx, r.reviseRequest(req))
	return r.reviseResult(res, err)
}

func (r *Router) handleTaskReviseTree(ctx context.Context, req Request) Result {
	if req.TaskID == "" {
		return errResult("error", CodeMissingID)
	}
	res, err := r.Revise.ReviseTree(ctx, r.reviseRequest(req))
	return r.reviseResult(res, err)
}

func (r *Router) reviseRequest(req Request) revise.Request {
	agent, _ := r.Config.Crew.Agents.Agent("planner")
	model := req.Model
	if model == "" {
		model = r.Config.Crew.Models.ModelFor("planner")
	}
	return revise.Request{
		TaskID:       req.TaskID,
		Prompt:       req.Prompt,
		PlannerAgent: toAgentDef(agent),
		Model:        model,
		Thinking:     r.Config.Crew.Thinking["planner"],
		Truncation:   r.Config.Crew.Truncation["planner"],
	}
}

func (r *Router) reviseResult(res *revise.Result, err error) Result {
	if err != nil {
		return errResult("error", reviseErrorCode(err))
	}
	return ok("ok", res)
}

// reviseSentinelCodes maps revise's sentinel error strings to their §7
// code. Revision failures carry a wrapped detail suffix (e.g. "revision_
// failed: exit code 1"), so this matches on prefix.
var reviseSentinelCodes = map[string]Code{
	"invalid_status":  CodeInvalidStatus,
	"active_worker":   CodeActiveWorker,
	"planning_active": CodePlanningActive,
	"no_planner":      CodeNoPlanner,
	"revision_failed": CodeRevisionFailed,
}

func reviseErrorCode(err error) Code {
	msg := err.Error()
	for prefix, code := range reviseSentinelCodes {
		if strings.HasPrefix(msg, prefix) {
			return code
		}
	}
	return CodeHandlerError
}
