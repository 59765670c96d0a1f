package acceptance_test

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pimesh/crew/internal/coordination"
	"github.com/pimesh/crew/internal/fileutil"
	"github.com/pimesh/crew/internal/taskstore"
)

var _ = Describe("crew work graceful shutdown", func() {
	var tmpDir, repoDir, home string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "crew-test-*")
		Expect(err).NotTo(HaveOccurred())
		repoDir = filepath.Join(tmpDir, "repo")
		Expect(os.MkdirAll(repoDir, 0755)).To(Succeed())
		home = newCrewHome(tmpDir)

		store := taskstore.New(repoDir)
		_, err = store.CreatePlan(taskstore.PromptOnlySentinel, "")
		Expect(err).NotTo(HaveOccurred())
		_, err = store.CreateTask("A", "Do A", nil, false)
		Expect(err).NotTo(HaveOccurred())

		// Waits for SHUTDOWN REQUESTED to land in its own inbox, then
		// exits cleanly on its own rather than needing SIGTERM, so the
		// scenario exercises the cooperative inbox path of Shutdown.
		workerScript := filepath.Join(tmpDir, "fake-worker.sh")
		writeScript(workerScript, `#!/bin/sh
for i in $(seq 1 100); do
  if ls "$CREW_HOME/inbox/$CREW_AGENT_NAME"/*.json >/dev/null 2>&1; then
    exit 1
  fi
  sleep 0.1
done
exit 1
`)
		writeFile(filepath.Join(repoDir, ".pi", "messenger", "crew", "config.json"), `{
  "work": {"maxAttemptsPerTask": 3, "maxWaves": 25, "shutdownGracePeriodMs": 2000},
  "agents": {
    "worker": {"command": "`+workerScript+`"}
  }
}`)
	})

	AfterEach(func() { cleanupTestRepo(repoDir, tmpDir) })

	It("delivers a shutdown request, resets the in-progress task, and records a manual stop", func() {
		cmd := crewCmd(repoDir, home, "--as", "tester", "work", "--autonomous", "--concurrency", "1")
		Expect(cmd.Start()).To(Succeed())

		time.Sleep(400 * time.Millisecond)
		Expect(cmd.Process.Signal(syscall.SIGTERM)).To(Succeed())
		Expect(cmd.Wait()).To(Succeed())

		// The task's worker may have been bound via a fresh spawn (named
		// "task-task-1") or a pre-warmed lobby worker (a themed name), so
		// the shutdown message is looked for across every peer's inbox
		// rather than one assumed directory.
		inboxRoot := filepath.Join(home, "inbox")
		peerDirs, err := os.ReadDir(inboxRoot)
		Expect(err).NotTo(HaveOccurred())

		var sawShutdown bool
		for _, peerDir := range peerDirs {
			entries, err := os.ReadDir(filepath.Join(inboxRoot, peerDir.Name()))
			Expect(err).NotTo(HaveOccurred())
			for _, e := range entries {
				data, err := os.ReadFile(filepath.Join(inboxRoot, peerDir.Name(), e.Name()))
				Expect(err).NotTo(HaveOccurred())
				if strings.Contains(string(data), "SHUTDOWN REQUESTED") {
					sawShutdown = true
				}
			}
		}
		Expect(sawShutdown).To(BeTrue())

		store := taskstore.New(repoDir)
		a, ok := store.GetTask("task-1")
		Expect(ok).To(BeTrue())
		Expect(a.Status).To(Equal(taskstore.StatusTodo))

		progress, err := os.ReadFile(fileutil.TaskProgressPath(repoDir, "task-1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(progress)).To(ContainSubstring("Task interrupted (shutdown), reset to todo"))

		coord := coordination.New(repoDir)
		Expect(coord.RestoreAutonomousState()).To(BeTrue())
		auto := coord.Autonomous()
		Expect(auto.Active).To(BeFalse())
		Expect(auto.StopReason).To(Equal(coordination.StopManual))
	})
})
