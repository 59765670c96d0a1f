package acceptance_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pimesh/crew/internal/taskstore"
)

var _ = Describe("crew revise-tree", func() {
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

		a, err := store.CreateTask("A", "Do A", nil, false)
		Expect(err).NotTo(HaveOccurred())
		b, err := store.CreateTask("B", "Do B", []string{a.ID}, false)
		Expect(err).NotTo(HaveOccurred())
		_, err = store.CreateTask("C", "Do C", []string{b.ID}, false)
		Expect(err).NotTo(HaveOccurred())

		_, err = store.StartTask(a.ID, "worker", "")
		Expect(err).NotTo(HaveOccurred())
		_, err = store.CompleteTask(a.ID, "done", "")
		Expect(err).NotTo(HaveOccurred())

		// B is task-2, referenced by id to update its spec and add a new
		// dependent D (no id) depending on it.
		plannerScript := filepath.Join(tmpDir, "fake-reviser.sh")
		writeScript(plannerScript, `#!/bin/sh
cat <<'EOF'
`+"```tasks-json"+`
[
  {"id": "task-2", "title": "B", "description": "Do B, revised"},
  {"title": "D", "description": "Do D", "dependsOn": ["task-2"]}
]
`+"```"+`
EOF
`)
		writeFile(filepath.Join(repoDir, ".pi", "messenger", "crew", "config.json"), `{
  "agents": {
    "planner": {"command": "`+plannerScript+`"}
  }
}`)
	})

	AfterEach(func() { cleanupTestRepo(repoDir, tmpDir) })

	It("updates B's spec, creates D, and resets B and C while leaving A done", func() {
		cmd := crewCmd(repoDir, home, "--as", "tester", "revise-tree", "task-1", "--prompt", "split the remaining work")
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))

		store := taskstore.New(repoDir)

		a, ok := store.GetTask("task-1")
		Expect(ok).To(BeTrue())
		Expect(a.Status).To(Equal(taskstore.StatusDone))

		b, ok := store.GetTask("task-2")
		Expect(ok).To(BeTrue())
		Expect(b.Status).To(Equal(taskstore.StatusTodo))
		Expect(store.GetSpec("task-2")).To(Equal("Do B, revised"))

		c, ok := store.GetTask("task-3")
		Expect(ok).To(BeTrue())
		Expect(c.Status).To(Equal(taskstore.StatusTodo))

		tasks, err := store.ListTasks()
		Expect(err).NotTo(HaveOccurred())
		var d *taskstore.Task
		for i := range tasks {
			if tasks[i].Title == "D" {
				d = &tasks[i]
			}
		}
		Expect(d).NotTo(BeNil())
		Expect(d.DependsOn).To(Equal([]string{"task-2"}))
	})
})
