package coordination

import (
	"math"
	"os"
	"testing"
)

func TestConcurrencyBound(t *testing.T) {
	cases := []struct {
		name      string
		value     float64
		configMax int
		want      int
	}{
		{"within range", 4, 0, 4},
		{"below minimum", -3, 0, 1},
		{"above hard max", 50, 0, 10},
		{"capped by config max", 8, 5, 5},
		{"fractional truncates toward zero", 4.9, 0, 4},
		{"nan clamps to minimum", math.NaN(), 0, 1},
		{"+inf clamps to minimum", math.Inf(1), 0, 1},
		{"-inf clamps to minimum", math.Inf(-1), 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ConcurrencyBound(tc.value, tc.configMax)
			if got != tc.want {
				t.Errorf("ConcurrencyBound(%v, %d) = %d, want %d", tc.value, tc.configMax, got, tc.want)
			}
		})
	}
}

func TestAutonomousRunLifecycle(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)

	state, err := c.StartAutonomous(dir, 3)
	if err != nil {
		t.Fatalf("StartAutonomous: %v", err)
	}
	if !state.Active || state.WaveNumber != 1 || !state.AutoOverlayPending {
		t.Fatalf("unexpected initial state: %+v", state)
	}
	if !c.ConsumeAutoOverlayPending() {
		t.Error("ConsumeAutoOverlayPending: want true on first call")
	}
	if c.ConsumeAutoOverlayPending() {
		t.Error("ConsumeAutoOverlayPending: want false once consumed")
	}

	if _, err := c.RecordWave("wave 1: 2 succeeded"); err != nil {
		t.Fatalf("RecordWave: %v", err)
	}
	if got := c.Autonomous().WaveNumber; got != 2 {
		t.Errorf("WaveNumber after RecordWave = %d, want 2", got)
	}

	stopped, err := c.StopAutonomous(StopBlocked)
	if err != nil {
		t.Fatalf("StopAutonomous: %v", err)
	}
	if stopped.Active || stopped.StopReason != StopBlocked || stopped.StoppedAt == nil {
		t.Errorf("unexpected stopped state: %+v", stopped)
	}

	fresh := New(dir)
	if ok := fresh.RestoreAutonomousState(); !ok {
		t.Fatal("RestoreAutonomousState: want true, state was persisted")
	}
	if fresh.Autonomous().StopReason != StopBlocked {
		t.Errorf("restored StopReason = %s, want blocked", fresh.Autonomous().StopReason)
	}
}

func TestPlanningRunLifecycle(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)

	state, err := c.StartPlanningRun(dir, 3)
	if err != nil {
		t.Fatalf("StartPlanningRun: %v", err)
	}
	if state.RunID == "" || state.PID != os.Getpid() || state.Phase != PhaseReadPRD {
		t.Fatalf("unexpected start state: %+v", state)
	}

	if _, err := c.SetPlanningPhase(PhaseGapAnalysis, 1); err != nil {
		t.Fatalf("SetPlanningPhase: %v", err)
	}
	if got := c.Planning().Phase; got != PhaseGapAnalysis {
		t.Errorf("Phase = %s, want gap-analysis", got)
	}

	if _, err := c.FinishPlanningRun(); err != nil {
		t.Fatalf("FinishPlanningRun: %v", err)
	}
	if c.Planning().Active {
		t.Error("Active after FinishPlanningRun, want false")
	}
}

func TestPlanningCancellationIsOneShot(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	if _, err := c.StartPlanningRun(dir, 3); err != nil {
		t.Fatalf("StartPlanningRun: %v", err)
	}
	c.CancelPlanning()
	if !c.IsCancelled() {
		t.Fatal("IsCancelled: want true after CancelPlanning")
	}

	before := c.Planning()
	if _, err := c.SetPlanningPhase(PhaseFinalizing, 5); err != nil {
		t.Fatalf("SetPlanningPhase: %v", err)
	}
	after := c.Planning()
	if before.Phase != after.Phase || before.Pass != after.Pass {
		t.Errorf("phase/pass changed after cancellation: before=%+v after=%+v", before, after)
	}
}

func TestRestorePlanningStateClearsStaleRun(t *testing.T) {
	dir := t.TempDir()
	writer := New(dir)
	if _, err := writer.StartPlanningRun(dir, 3); err != nil {
		t.Fatalf("StartPlanningRun: %v", err)
	}

	// Overwrite the persisted pid with one guaranteed not to be alive.
	writer.mu.Lock()
	writer.planning.PID = 999999
	_ = writer.savePlanning()
	writer.mu.Unlock()

	fresh := New(dir)
	state, staleCleared := fresh.RestorePlanningState()
	if !staleCleared {
		t.Fatal("RestorePlanningState: want staleCleared=true for a dead pid")
	}
	if state.Active || state.Phase != PhaseIdle {
		t.Errorf("restored state = %+v, want inactive/idle", state)
	}
}

func TestRestorePlanningStateKeepsLiveRun(t *testing.T) {
	dir := t.TempDir()
	writer := New(dir)
	started, err := writer.StartPlanningRun(dir, 4)
	if err != nil {
		t.Fatalf("StartPlanningRun: %v", err)
	}

	fresh := New(dir)
	state, staleCleared := fresh.RestorePlanningState()
	if staleCleared {
		t.Fatal("RestorePlanningState: want staleCleared=false, pid is this live process")
	}
	if state.RunID != started.RunID || state.MaxPasses != 4 {
		t.Errorf("restored state = %+v, want matching runId/maxPasses", state)
	}
}

func TestAutoOpenIntents(t *testing.T) {
	c := New(t.TempDir())

	if _, ok := c.ConsumePlanningOverlay(); ok {
		t.Fatal("ConsumePlanningOverlay: want false before any QueuePlanningOverlay")
	}

	c.QueuePlanningOverlay("run-1")
	runID, ok := c.ConsumePlanningOverlay()
	if !ok || runID != "run-1" {
		t.Fatalf("ConsumePlanningOverlay = (%s, %v), want (run-1, true)", runID, ok)
	}
	if _, ok := c.ConsumePlanningOverlay(); ok {
		t.Fatal("ConsumePlanningOverlay: want false once consumed")
	}

	c.DismissPlanningOverlay("run-2")
	c.QueuePlanningOverlay("run-2")
	if _, ok := c.ConsumePlanningOverlay(); ok {
		t.Fatal("ConsumePlanningOverlay: want false for a dismissed run id")
	}

	c.QueueAutonomousOpen()
	if !c.ConsumeAutonomousOpen() {
		t.Error("ConsumeAutonomousOpen: want true after QueueAutonomousOpen")
	}
	if c.ConsumeAutonomousOpen() {
		t.Error("ConsumeAutonomousOpen: want false once consumed")
	}
}

func TestPendingAutoWork(t *testing.T) {
	c := New(t.TempDir())
	if _, ok := c.ConsumePendingAutoWork(); ok {
		t.Fatal("ConsumePendingAutoWork: want false before SetPendingAutoWork")
	}
	c.SetPendingAutoWork("/repo")
	cwd, ok := c.ConsumePendingAutoWork()
	if !ok || cwd != "/repo" {
		t.Fatalf("ConsumePendingAutoWork = (%s, %v), want (/repo, true)", cwd, ok)
	}
	if _, ok := c.ConsumePendingAutoWork(); ok {
		t.Fatal("ConsumePendingAutoWork: want false once consumed")
	}
}

func TestAdjustConcurrencyWakesWaiter(t *testing.T) {
	c := New(t.TempDir())
	signal := c.ConcurrencySignal()

	done := make(chan struct{})
	go func() {
		<-signal
		close(done)
	}()

	c.AdjustConcurrency(7, 0)
	<-done

	if got := c.Autonomous().Concurrency; got != 7 {
		t.Errorf("Concurrency after AdjustConcurrency = %d, want 7", got)
	}
}
