// Package action implements the single dotted-action entry point of spec
// §4.12: it parses "group.op" out of a tagged request, gates everything
// but join/auto-register behind session registration, and delegates to
// the task store, planner, wave scheduler, revise engine, mesh registry,
// reservation engine, and coordination state. Grounded on the teacher's
// internal/cli/root.go flat command-registration pattern, mapped onto a
// single dynamic dispatch table rather than cobra subcommands, since the
// router's input is a data request (one JSON-shaped action field) and not
// a terminal invocation.
package action

import (
	"time"

	"github.com/pimesh/crew/internal/feed"
)

// Request is the tagged request of spec §6 "Request surface": one
// dotted action plus the union of every optional field any handler
// might read. Handlers read only the fields relevant to their op.
type Request struct {
	Action string

	PRD      string
	Prompt   string
	ID       string
	TaskID   string
	Title    string
	DependsOn []string
	Target   string
	Summary  string
	Evidence string
	Content  string
	Count    int
	Subtasks []string
	Type     string

	AutoWork    *bool
	Autonomous  bool
	Concurrency int
	Model       string
	Cascade     bool
	Limit       int
	Paths       []string
	Name        string
	Spec        string
	Notes       string

	To               string
	Message          string
	ReplyTo          string
	Reason           string
	AutoRegisterPath string

	// Abort is closed by the caller to request a mid-wave graceful
	// shutdown; handleWork passes it straight through to wave.Work. Left
	// nil outside of "work", which is the only op that blocks long
	// enough for a shutdown signal to matter.
	Abort <-chan struct{}
}

// Details is the structured half of every Result, per spec §6: a mode
// tag, an optional error code, and handler-specific data.
type Details struct {
	Mode  string `json:"mode"`
	Error Code   `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Result pairs the human-readable response spec §7 requires with its
// machine-readable Details. Errors are values carried in Details.Error,
// never a returned Go error — handlers cannot panic the router.
type Result struct {
	Text    string
	Details Details
}

func ok(mode string, data any) Result {
	return Result{Details: Details{Mode: mode, Data: data}}
}

func okText(mode, text string, data any) Result {
	return Result{Text: text, Details: Details{Mode: mode, Data: data}}
}

func errResult(mode string, code Code) Result {
	return Result{Text: string(code), Details: Details{Mode: mode, Error: code}}
}

// State is the caller's session state: whether it has completed join,
// and under what name/cwd.
type State struct {
	Registered bool
	Name       string
	Cwd        string
}

// emitFeed appends one feed event, tolerating a nil Feed for routers
// constructed without one (unit tests exercising handlers in isolation).
func (r *Router) emitFeed(t feed.EventType, agent, target string) {
	if r.Feed == nil {
		return
	}
	_ = r.Feed.Append(feed.Event{TS: time.Now().UTC(), Type: t, Agent: agent, Target: target})
}
