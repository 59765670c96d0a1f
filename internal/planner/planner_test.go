package planner

import (
	"testing"

	"github.com/pimesh/crew/internal/coordination"
	"github.com/pimesh/crew/internal/runner"
	"github.com/pimesh/crew/internal/taskstore"
)

func newTestLoop(t *testing.T) (*Loop, string) {
	t.Helper()
	dir := t.TempDir()
	store := taskstore.New(dir)
	coord := coordination.New(dir)
	return &Loop{ProjectRoot: dir, Store: store, Coord: coord}, dir
}

func agentReq() PlanRequest {
	return PlanRequest{PlannerAgent: runner.AgentDef{Command: "claude"}}
}

func TestCheckPreconditionsNoPlannerAgent(t *testing.T) {
	l, _ := newTestLoop(t)
	if err := l.checkPreconditions(PlanRequest{}); err != errNoPlanner {
		t.Errorf("err = %v, want errNoPlanner", err)
	}
}

func TestCheckPreconditionsFreshProjectOK(t *testing.T) {
	l, _ := newTestLoop(t)
	if err := l.checkPreconditions(agentReq()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheckPreconditionsPlanExistsNoPrompt(t *testing.T) {
	l, _ := newTestLoop(t)
	if _, err := l.Store.CreatePlan("PRD.md", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Store.CreateTask("task one", "", nil, false); err != nil {
		t.Fatal(err)
	}
	req := agentReq()
	if err := l.checkPreconditions(req); err != errPlanExists {
		t.Errorf("err = %v, want errPlanExists", err)
	}
}

func TestCheckPreconditionsPlanExistsWithPromptBypassesGate(t *testing.T) {
	l, _ := newTestLoop(t)
	if _, err := l.Store.CreatePlan("PRD.md", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Store.CreateTask("task one", "", nil, false); err != nil {
		t.Fatal(err)
	}
	req := agentReq()
	req.Prompt = "replan this"
	if err := l.checkPreconditions(req); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	tasks, err := l.Store.ListTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected tasks wiped, got %d remaining", len(tasks))
	}
}

func TestCheckPreconditionsPlanningActive(t *testing.T) {
	l, dir := newTestLoop(t)
	if _, err := l.Coord.StartPlanningRun(dir, 3); err != nil {
		t.Fatal(err)
	}
	if err := l.checkPreconditions(agentReq()); err != errPlanningActive {
		t.Errorf("err = %v, want errPlanningActive", err)
	}
}

func TestCheckPreconditionsTasksInProgressWithPrompt(t *testing.T) {
	l, _ := newTestLoop(t)
	if _, err := l.Store.CreatePlan("PRD.md", ""); err != nil {
		t.Fatal(err)
	}
	task, err := l.Store.CreateTask("task one", "", nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Store.StartTask(task.ID, "worker-1", ""); err != nil {
		t.Fatal(err)
	}
	req := agentReq()
	req.Prompt = "replan this"
	if err := l.checkPreconditions(req); err != errTasksInProgress {
		t.Errorf("err = %v, want errTasksInProgress", err)
	}
}

func TestParseAndMaterializeCreatesTasksAndResolvesDeps(t *testing.T) {
	l, _ := newTestLoop(t)
	if _, err := l.Store.CreatePlan("PRD.md", ""); err != nil {
		t.Fatal(err)
	}
	output := "1. Scope\n\n```tasks-json\n" +
		`[{"title":"Scaffold project","description":"init repo"},` +
		`{"title":"Add handler","description":"wire routes","dependsOn":["Scaffold project"]}]` +
		"\n```\n"
	tasks, err := l.parseAndMaterialize(output)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	stored, err := l.Store.ListTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Fatalf("got %d stored tasks, want 2", len(stored))
	}
	var handler *taskstore.Task
	for i := range stored {
		if stored[i].Title == "Add handler" {
			handler = &stored[i]
		}
	}
	if handler == nil {
		t.Fatal("handler task not found")
	}
	if len(handler.DependsOn) != 1 || handler.DependsOn[0] != stored[0].ID {
		t.Errorf("handler.DependsOn = %v, want [%s]", handler.DependsOn, stored[0].ID)
	}
}
