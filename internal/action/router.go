package action

import (
	"context"
	"strings"

	"github.com/pimesh/crew/internal/config"
	"github.com/pimesh/crew/internal/coordination"
	"github.com/pimesh/crew/internal/feed"
	"github.com/pimesh/crew/internal/mesh"
	"github.com/pimesh/crew/internal/planner"
	"github.com/pimesh/crew/internal/reservation"
	"github.com/pimesh/crew/internal/revise"
	"github.com/pimesh/crew/internal/runner"
	"github.com/pimesh/crew/internal/taskstore"
	"github.com/pimesh/crew/internal/wave"

	"go.uber.org/zap"
)

// Router is the single entry point described in spec §4.12. It owns no
// mutable request state itself; State travels with each Execute call so
// one Router can serve every peer's session in a shared process.
type Router struct {
	ProjectRoot string
	HomeBase    string

	Store    *taskstore.Store
	Coord    *coordination.Coordinator
	Feed     *feed.Feed
	Registry *mesh.Registry
	Inbox    *mesh.Inbox
	Reserve  *reservation.Engine
	Planner  *planner.Loop
	Wave     *wave.Scheduler
	Revise   *revise.Engine
	Config   *config.Config
	Logger   *zap.Logger
}

// logger returns r.Logger, falling back to a no-op so handlers never need
// a nil check before logging.
func (r *Router) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// joinActions are permitted before state.Registered is true.
const (
	actionJoin             = "join"
	actionAutoRegisterPath = "auto_register_path"
)

// Execute parses action.Action into group.op, short-circuits the two
// pre-registration actions, enforces the registration gate, and
// delegates to the matching group handler.
func (r *Router) Execute(ctx context.Context, req Request, state *State) Result {
	if req.Action == "" {
		return errResult("error", CodeUnknownAction)
	}
	if req.Action == actionJoin {
		return r.handleJoin(req, state)
	}
	if req.Action == actionAutoRegisterPath {
		return r.handleAutoRegisterPath(req)
	}
	if state == nil || !state.Registered {
		return errResult("error", CodeNotRegistered)
	}

	group, op, hasDot := strings.Cut(req.Action, ".")

	switch {
	case group == "task" && hasDot:
		return r.dispatchTask(ctx, op, req, state)
	case req.Action == "plan":
		return r.handlePlan(ctx, req, state)
	case req.Action == "plan.cancel":
		return r.handlePlanCancel()
	case req.Action == "work":
		return r.handleWork(ctx, req, state)
	case req.Action == "review":
		return r.handleReview(req, state)
	case req.Action == "sync":
		return r.handleSync(state)
	case group == "crew" && hasDot:
		return r.dispatchCrew(op, req, state)
	default:
		return r.dispatchBareVerb(req, state)
	}
}

func (r *Router) dispatchBareVerb(req Request, state *State) Result {
	switch req.Action {
	case "status":
		return r.handleStatus(state)
	case "list":
		return r.handleList(req, state)
	case "whois":
		return r.handleWhois(req)
	case "set_status":
		return r.handleSetStatus(req, state)
	case "feed":
		return r.handleFeed(req)
	case "spec":
		return r.handleSpec(req, state)
	case "send":
		return r.handleSend(req, state)
	case "broadcast":
		return r.handleBroadcast(req, state)
	case "reserve":
		return r.handleReserve(req, state)
	case "release":
		return r.handleRelease(req, state)
	case "check_write":
		return r.handleCheckWrite(req, state)
	case "rename":
		return r.handleRename(req, state)
	case "swarm":
		return r.handleSwarm(state)
	case "claim":
		return r.handleClaim(req, state)
	case "unclaim":
		return r.handleUnclaim(req, state)
	case "complete":
		return r.handleCompleteSelf(req, state)
	case "metrics":
		return r.handleMetrics()
	default:
		return errResult("error", CodeUnknownAction)
	}
}

// toAgentDef converts a resolved role AgentConfig into the subprocess
// runner's narrower AgentDef, the same field subset wave.toRunnerAgent
// carries for worker spawns.
func toAgentDef(ac config.AgentConfig) runner.AgentDef {
	return runner.AgentDef{
		Command:       ac.Command,
		BaseArgs:      ac.Args,
		Tools:         ac.Tools,
		ExtensionPath: ac.ExtensionPath,
		Extensions:    ac.Extensions,
		SystemPrompt:  ac.SystemPrompt,
	}
}
