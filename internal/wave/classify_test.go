package wave

import (
	"testing"

	"github.com/pimesh/crew/internal/taskstore"
)

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		name       string
		exitCode   int
		graceful   bool
		autonomous bool
		status     taskstore.Status
		want       Outcome
	}{
		{"clean exit done", 0, false, false, taskstore.StatusDone, OutcomeSucceeded},
		{"clean exit blocked", 0, false, false, taskstore.StatusBlocked, OutcomeBlocked},
		{"clean exit still in progress", 0, false, false, taskstore.StatusInProgress, OutcomeFailed},
		{"graceful nonzero done", 1, true, false, taskstore.StatusDone, OutcomeSucceeded},
		{"graceful nonzero blocked", 1, true, false, taskstore.StatusBlocked, OutcomeBlocked},
		{"graceful still in progress", 1, true, false, taskstore.StatusInProgress, OutcomeFailed},
		{"ungraceful crash autonomous in progress", 1, false, true, taskstore.StatusInProgress, OutcomeBlocked},
		{"ungraceful crash non-autonomous in progress", 1, false, false, taskstore.StatusInProgress, OutcomeFailed},
		{"ungraceful crash outside the table falls to failed", 1, false, false, taskstore.StatusDone, OutcomeFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.exitCode, tc.graceful, tc.autonomous, tc.status)
			if got != tc.want {
				t.Errorf("classify(%d, %v, %v, %s) = %s, want %s",
					tc.exitCode, tc.graceful, tc.autonomous, tc.status, got, tc.want)
			}
		})
	}
}

func TestResolveModelPriority(t *testing.T) {
	if got := resolveModel("task-model", "param-model", "config-model", "agent-model"); got != "task-model" {
		t.Errorf("resolveModel = %q, want task-model", got)
	}
	if got := resolveModel("", "param-model", "config-model", "agent-model"); got != "param-model" {
		t.Errorf("resolveModel = %q, want param-model", got)
	}
	if got := resolveModel("", "", "config-model", "agent-model"); got != "config-model" {
		t.Errorf("resolveModel = %q, want config-model", got)
	}
	if got := resolveModel("", "", "", "agent-model"); got != "agent-model" {
		t.Errorf("resolveModel = %q, want agent-model", got)
	}
	if got := resolveModel("", "", "", ""); got != "" {
		t.Errorf("resolveModel = %q, want empty", got)
	}
}

func TestSummarizeResults(t *testing.T) {
	results := []TaskResult{
		{TaskID: "task-1", Outcome: OutcomeSucceeded},
		{TaskID: "task-2", Outcome: OutcomeFailed},
		{TaskID: "task-3", Outcome: OutcomeBlocked},
		{TaskID: "task-4", Outcome: OutcomeSucceeded},
	}
	got := summarizeResults(results)
	if got != "2 succeeded, 1 failed, 1 blocked" {
		t.Errorf("summarizeResults = %q", got)
	}
}
