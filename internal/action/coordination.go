package action

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pimesh/crew/internal/feed"
	"github.com/pimesh/crew/internal/mesh"
	"github.com/pimesh/crew/internal/metrics"
	"github.com/pimesh/crew/internal/reservation"
)

func (r *Router) logWriteConflict(self string, c reservation.Conflict) {
	r.logger().Warn("write blocked by reservation conflict",
		zap.String("self", self),
		zap.String("path", c.Path),
		zap.String("peer", c.Peer),
		zap.String("reason", c.Reason),
	)
}

func (r *Router) handleJoin(req Request, state *State) Result {
	if req.Name == "" {
		return errResult("error", CodeMissingName)
	}
	reg := mesh.AgentRegistration{
		Name:    req.Name,
		Cwd:     r.ProjectRoot,
		IsHuman: req.Type == "human",
		Model:   req.Model,
		Spec:    req.Spec,
	}
	if err := r.Registry.Register(reg); err != nil {
		return errResult("error", CodeHandlerError)
	}
	state.Registered = true
	state.Name = req.Name
	state.Cwd = r.ProjectRoot
	r.emitFeed(feed.EventJoin, req.Name, "")
	return okText("ok", "joined as "+req.Name, reg)
}

func (r *Router) handleAutoRegisterPath(req Request) Result {
	if req.AutoRegisterPath == "" {
		return errResult("error", CodeMissingPaths)
	}
	return okText("ok", "recorded auto-register path", req.AutoRegisterPath)
}

func (r *Router) handleStatus(state *State) Result {
	reg, ok := r.Registry.Get(state.Name)
	if !ok {
		return errResult("error", CodeNotRegistered)
	}
	return ok("ok", reg)
}

func (r *Router) handleList(req Request, state *State) Result {
	peers, err := r.Registry.ActivePeers(true, state.Cwd)
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	return ok("ok", peers)
}

func (r *Router) handleWhois(req Request) Result {
	if req.Name == "" {
		return errResult("error", CodeMissingName)
	}
	reg, found := r.Registry.Get(req.Name)
	if !found {
		return errResult("error", CodeDependencyNotFound)
	}
	return ok("ok", reg)
}

func (r *Router) handleSetStatus(req Request, state *State) Result {
	if req.Message == "" {
		return errResult("error", CodeMissingMessage)
	}
	err := r.Registry.Refresh(state.Name, func(reg *mesh.AgentRegistration) {
		reg.StatusMessage = req.Message
	})
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	return okText("ok", "status set", nil)
}

func (r *Router) handleFeed(req Request) Result {
	events, err := r.Feed.Read(req.Limit)
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	return ok("ok", events)
}

func (r *Router) handleSpec(req Request, state *State) Result {
	if req.Spec == "" {
		return errResult("error", CodeMissingSpec)
	}
	err := r.Registry.Refresh(state.Name, func(reg *mesh.AgentRegistration) {
		reg.Spec = req.Spec
	})
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	return okText("ok", "spec set", nil)
}

func (r *Router) handleSend(req Request, state *State) Result {
	if req.To == "" {
		return errResult("error", CodeMissingName)
	}
	if req.Message == "" {
		return errResult("error", CodeMissingMessage)
	}
	msg := mesh.InboxMessage{From: state.Name, To: req.To, Text: req.Message, ReplyTo: req.ReplyTo}
	if err := r.Inbox.Send(req.To, msg); err != nil {
		return errResult("error", CodeHandlerError)
	}
	r.emitFeed(feed.EventMessage, state.Name, req.To)
	return okText("ok", fmt.Sprintf("sent to %s", req.To), nil)
}

func (r *Router) handleBroadcast(req Request, state *State) Result {
	if req.Message == "" {
		return errResult("error", CodeMissingMessage)
	}
	err := r.Inbox.Broadcast(r.Registry, r.Feed, state.Name, req.Message, req.ReplyTo, true, state.Cwd)
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	return okText("ok", "broadcast sent", nil)
}

func (r *Router) handleReserve(req Request, state *State) Result {
	if len(req.Paths) == 0 {
		return errResult("error", CodeMissingPaths)
	}
	for _, path := range req.Paths {
		if err := r.Reserve.Reserve(state.Name, path, req.Reason); err != nil {
			return errResult("error", CodeHandlerError)
		}
	}
	r.emitFeed(feed.EventReserve, state.Name, "")
	return okText("ok", "reserved", req.Paths)
}

// handleCheckWrite is the hook a worker's own write-like tool call
// (edit/write) calls back into before proceeding, per spec §4.4: a
// non-empty conflict blocks the operation with a structured reason
// naming the first conflicting peer, their folder, branch, and reason.
func (r *Router) handleCheckWrite(req Request, state *State) Result {
	if req.Target == "" {
		return errResult("error", CodeMissingPaths)
	}
	conflict, err := r.Reserve.CheckWrite(req.Target, state.Name, r.Config.Mesh.ScopeToFolder, state.Cwd)
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	if conflict != nil {
		r.logWriteConflict(state.Name, *conflict)
		return Result{Text: conflict.Error(), Details: Details{Mode: "error", Error: CodeWriteConflict, Data: conflict}}
	}
	return okText("ok", "write allowed", nil)
}

func (r *Router) handleRelease(req Request, state *State) Result {
	if len(req.Paths) == 0 && !req.Cascade {
		return errResult("error", CodeMissingPaths)
	}
	if err := r.Reserve.Release(state.Name, req.Paths, req.Cascade); err != nil {
		return errResult("error", CodeHandlerError)
	}
	r.emitFeed(feed.EventRelease, state.Name, "")
	return okText("ok", "released", nil)
}

func (r *Router) handleRename(req Request, state *State) Result {
	if req.Name == "" {
		return errResult("error", CodeMissingName)
	}
	if err := r.Registry.Rename(state.Name, req.Name); err != nil {
		return errResult("error", CodeHandlerError)
	}
	state.Name = req.Name
	return okText("ok", "renamed to "+req.Name, nil)
}

func (r *Router) handleSwarm(state *State) Result {
	peers, err := r.Registry.ActivePeers(true, state.Cwd)
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	return ok("ok", peers)
}

func (r *Router) handleClaim(req Request, state *State) Result {
	return r.handleTaskStart(req, state)
}

func (r *Router) handleUnclaim(req Request, state *State) Result {
	if req.TaskID == "" {
		return errResult("error", CodeMissingID)
	}
	if err := r.Store.ResetTask(req.TaskID, false); err != nil {
		return errResult("error", CodeResetFailed)
	}
	return okText("ok", "unclaimed "+req.TaskID, nil)
}

func (r *Router) handleCompleteSelf(req Request, state *State) Result {
	return r.handleTaskComplete(req)
}

func (r *Router) handleReview(req Request, state *State) Result {
	return errResult("error", CodeUnknownOperation)
}

// handleMetrics backs `crew status --metrics`: it gathers the
// process-local Prometheus registry and returns the plain text exposition
// format directly, since no HTTP server is wired for scraping.
func (r *Router) handleMetrics() Result {
	dump, err := metrics.Dump()
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	return okText("ok", dump, nil)
}

func (r *Router) handleSync(state *State) Result {
	peers, err := r.Registry.ActivePeers(true, state.Cwd)
	if err != nil {
		return errResult("error", CodeHandlerError)
	}
	return ok("ok", peers)
}

func (r *Router) dispatchCrew(op string, req Request, state *State) Result {
	switch op {
	case "config":
		return ok("ok", r.Config.Crew)
	default:
		return errResult("error", CodeUnknownOperation)
	}
}
