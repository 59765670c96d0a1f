package acceptance_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pimesh/crew/internal/coordination"
	"github.com/pimesh/crew/internal/feed"
	"github.com/pimesh/crew/internal/taskstore"
)

var _ = Describe("crew work --autonomous", func() {
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
		_, err = store.CreateTask("B", "Do B", nil, false)
		Expect(err).NotTo(HaveOccurred())

		workerScript := filepath.Join(tmpDir, "fake-worker.sh")
		writeScript(workerScript, `#!/bin/sh
TASK_ID=$(echo "$*" | grep -o 'task-[0-9]*' | head -1)
if [ -z "$TASK_ID" ]; then
  for i in $(seq 1 50); do
    TASK_ID=$(cat "$CREW_HOME/inbox/$CREW_AGENT_NAME"/*.json 2>/dev/null | grep -o 'task-[0-9]*' | head -1)
    [ -n "$TASK_ID" ] && break
    sleep 0.1
  done
fi
if [ "$TASK_ID" = "task-2" ]; then
  exit 1
fi
exec "`+binaryPath+`" --as worker task complete "$TASK_ID" --summary "done"
`)
		writeWorkerConfig(repoDir, workerScript)
	})

	AfterEach(func() { cleanupTestRepo(repoDir, tmpDir) })

	It("stops the autonomous run when a worker crashes without completing its task", func() {
		cmd := crewCmd(repoDir, home, "--as", "tester", "work", "--autonomous", "--concurrency", "2")
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))

		store := taskstore.New(repoDir)
		b, ok := store.GetTask("task-2")
		Expect(ok).To(BeTrue())
		Expect(b.Status).To(Equal(taskstore.StatusBlocked))
		Expect(b.BlockedReason).To(ContainSubstring("Worker"))

		a, _ := store.GetTask("task-1")
		Expect(a.Status).To(Equal(taskstore.StatusDone))

		coord := coordination.New(repoDir)
		Expect(coord.RestoreAutonomousState()).To(BeTrue())
		auto := coord.Autonomous()
		Expect(auto.Active).To(BeFalse())
		Expect(auto.StopReason).To(Equal(coordination.StopBlocked))
		Expect(auto.WaveHistory).NotTo(BeEmpty())

		f := feed.New(repoDir)
		events, err := f.Read(0)
		Expect(err).NotTo(HaveOccurred())
		found := false
		for _, ev := range events {
			if ev.Type == feed.EventWaveBlocked {
				found = true
				Expect(strings.Split(ev.Target, ",")).To(ContainElement("task-2"))
			}
		}
		Expect(found).To(BeTrue())
	})
})
