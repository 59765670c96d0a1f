package acceptance_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pimesh/crew/internal/feed"
	"github.com/pimesh/crew/internal/taskstore"
)

var _ = Describe("crew plan", func() {
	var tmpDir, repoDir, home string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "crew-test-*")
		Expect(err).NotTo(HaveOccurred())
		repoDir = filepath.Join(tmpDir, "repo")
		Expect(os.MkdirAll(repoDir, 0755)).To(Succeed())
		home = newCrewHome(tmpDir)

		writeFile(filepath.Join(repoDir, "docs", "PRD.md"), "Build a thing.\n")

		plannerScript := filepath.Join(tmpDir, "fake-planner.sh")
		writeScript(plannerScript, `#!/bin/sh
cat <<'EOF'
1. Summary: build a thing
2. Existing code: none
3. Gaps: everything
4. Outline: A, B, C
`+"```tasks-json"+`
[
  {"title": "A", "description": "Do A", "dependsOn": []},
  {"title": "B", "description": "Do B", "dependsOn": ["A"]},
  {"title": "C", "description": "Do C", "dependsOn": ["A", "B"]}
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

	It("materializes the planner's task graph with transitive deps pruned", func() {
		cmd := crewCmd(repoDir, home, "--as", "tester", "plan")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		store := taskstore.New(repoDir)
		tasks, err := store.ListTasks()
		Expect(err).NotTo(HaveOccurred())
		Expect(tasks).To(HaveLen(3))

		byTitle := map[string]taskstore.Task{}
		for _, t := range tasks {
			byTitle[t.Title] = t
		}
		Expect(byTitle).To(HaveKey("A"))
		Expect(byTitle).To(HaveKey("B"))
		Expect(byTitle).To(HaveKey("C"))
		Expect(byTitle["A"].ID).To(Equal("task-1"))
		Expect(byTitle["B"].ID).To(Equal("task-2"))
		Expect(byTitle["C"].ID).To(Equal("task-3"))

		// Transitive pruning: C depends on A and B, but A is already
		// implied through B, so only B remains.
		Expect(byTitle["C"].DependsOn).To(Equal([]string{"task-2"}))

		plan, ok := store.GetPlan()
		Expect(ok).To(BeTrue())
		Expect(plan.TaskCount).To(Equal(3))
	})

	It("appends the plan lifecycle to the feed", func() {
		cmd := crewCmd(repoDir, home, "--as", "tester", "plan")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		f := feed.New(repoDir)
		events, err := f.Read(0)
		Expect(err).NotTo(HaveOccurred())

		var types []feed.EventType
		for _, ev := range events {
			types = append(types, ev.Type)
		}
		Expect(types).To(ContainElement(feed.EventPlanStart))
		Expect(types).To(ContainElement(feed.EventPlanPassStart))
		Expect(types).To(ContainElement(feed.EventPlanPassDone))
		Expect(types).To(ContainElement(feed.EventPlanDone))
	})
})
