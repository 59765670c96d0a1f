package acceptance_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pimesh/crew/internal/coordination"
	"github.com/pimesh/crew/internal/fileutil"
)

var _ = Describe("crew doctor", func() {
	var tmpDir, repoDir, home string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "crew-test-*")
		Expect(err).NotTo(HaveOccurred())
		repoDir = filepath.Join(tmpDir, "repo")
		Expect(os.MkdirAll(repoDir, 0755)).To(Succeed())
		home = newCrewHome(tmpDir)

		// pid 999999 is never a live process, so restorePlanningState must
		// treat this state as stale and clear it.
		stale := coordination.PlanningState{
			Active:    true,
			Cwd:       repoDir,
			RunID:     "stale-run",
			Pass:      1,
			MaxPasses: 3,
			Phase:     coordination.PhaseScanCode,
			UpdatedAt: time.Now().UTC(),
			PID:       999999,
		}
		data, err := json.Marshal(stale)
		Expect(err).NotTo(HaveOccurred())
		writeFile(fileutil.PlanningStatePath(repoDir), string(data))
	})

	AfterEach(func() { cleanupTestRepo(repoDir, tmpDir) })

	It("clears stale planning state left behind by a dead process", func() {
		cmd := crewCmd(repoDir, home, "doctor")
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))
		Expect(string(out)).To(ContainSubstring("planning: cleared stale planning state"))

		coord := coordination.New(repoDir)
		state, staleCleared := coord.RestorePlanningState()
		Expect(staleCleared).To(BeFalse(), "already cleared on disk by the prior doctor run")
		Expect(state.Active).To(BeFalse())
		Expect(state.Phase).To(Equal(coordination.PhaseIdle))
	})
})
