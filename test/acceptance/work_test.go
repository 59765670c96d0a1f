package acceptance_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pimesh/crew/internal/taskstore"
)

// seedThreeTaskChain creates a plan with task-1 (A), task-2 (B, depends on
// A), task-3 (C, no deps) — the shape seed test 2 drives directly against
// the store, the same way crew doctor's tests exercise coordination state
// without spawning a planner.
func seedThreeTaskChain(repoDir string) *taskstore.Store {
	store := taskstore.New(repoDir)
	_, err := store.CreatePlan(taskstore.PromptOnlySentinel, "")
	Expect(err).NotTo(HaveOccurred())

	a, err := store.CreateTask("A", "Do A", nil, false)
	Expect(err).NotTo(HaveOccurred())
	_, err = store.CreateTask("B", "Do B", []string{a.ID}, false)
	Expect(err).NotTo(HaveOccurred())
	_, err = store.CreateTask("C", "Do C", nil, false)
	Expect(err).NotTo(HaveOccurred())
	return store
}

// writeSelfCompletingWorker writes a fake worker that extracts its own
// task id out of its "-p" prompt argument (workerPrompt embeds it as
// "Work on task <id>: <title>") and completes that task through the real
// binary, rather than doing any actual work. A lobby-bound worker starts
// with no task id in its prompt at all, so it falls back to polling its
// own inbox for the TASK ASSIGNMENT message AssignTask sends once bound.
func writeSelfCompletingWorker(path string) {
	writeScript(path, `#!/bin/sh
TASK_ID=$(echo "$*" | grep -o 'task-[0-9]*' | head -1)
if [ -z "$TASK_ID" ]; then
  for i in $(seq 1 50); do
    TASK_ID=$(cat "$CREW_HOME/inbox/$CREW_AGENT_NAME"/*.json 2>/dev/null | grep -o 'task-[0-9]*' | head -1)
    [ -n "$TASK_ID" ] && break
    sleep 0.1
  done
fi
exec "`+binaryPath+`" --as worker task complete "$TASK_ID" --summary "done"
`)
}

func writeWorkerConfig(repoDir, workerScript string) {
	writeFile(filepath.Join(repoDir, ".pi", "messenger", "crew", "config.json"), `{
  "work": {"maxAttemptsPerTask": 3, "maxWaves": 25, "shutdownGracePeriodMs": 300},
  "agents": {
    "worker": {"command": "`+workerScript+`"}
  }
}`)
}

var _ = Describe("crew work in strict mode", func() {
	var tmpDir, repoDir, home string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "crew-test-*")
		Expect(err).NotTo(HaveOccurred())
		repoDir = filepath.Join(tmpDir, "repo")
		Expect(os.MkdirAll(repoDir, 0755)).To(Succeed())
		home = newCrewHome(tmpDir)

		seedThreeTaskChain(repoDir)

		workerScript := filepath.Join(tmpDir, "fake-worker.sh")
		writeSelfCompletingWorker(workerScript)
		writeWorkerConfig(repoDir, workerScript)
	})

	AfterEach(func() { cleanupTestRepo(repoDir, tmpDir) })

	It("runs task-1 and task-3 first, then task-2 once its dependency clears", func() {
		cmd := crewCmd(repoDir, home, "--as", "tester", "work", "--concurrency", "2")
		out1, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "wave 1 output: %s", string(out1))

		store := taskstore.New(repoDir)
		a, _ := store.GetTask("task-1")
		b, _ := store.GetTask("task-2")
		c, _ := store.GetTask("task-3")
		Expect(a.Status).To(Equal(taskstore.StatusDone))
		Expect(c.Status).To(Equal(taskstore.StatusDone))
		Expect(b.Status).To(Equal(taskstore.StatusTodo))

		cmd2 := crewCmd(repoDir, home, "--as", "tester", "work", "--concurrency", "2")
		out2, err := cmd2.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "wave 2 output: %s", string(out2))

		b, _ = store.GetTask("task-2")
		Expect(b.Status).To(Equal(taskstore.StatusDone))

		plan, ok := store.GetPlan()
		Expect(ok).To(BeTrue())
		Expect(plan.CompletedCount).To(Equal(3))
		Expect(plan.TaskCount).To(Equal(3))
	})
})
