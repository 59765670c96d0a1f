package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pimesh/crew/internal/fileutil"
	"github.com/pimesh/crew/internal/mesh"
)

// doctorCmd is the startup-repair path implied by spec §7's "stale
// planning state... detected and cleared at session startup" and §4.3's
// "dead entries are pruned best effort", surfaced as its own command so
// it can also be run by hand after a crash, the way the teacher's daemon
// self-heals on every poll rather than only at process start.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Prune dead registry entries, stale planning state, and orphaned lobby sentinels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}

		// ActivePeers enumerates registry/<name>.json and unregisters any
		// entry whose pid is no longer alive as a side effect.
		peers, err := r.Registry.ActivePeers(false, r.ProjectRoot)
		if err != nil {
			return fmt.Errorf("sweeping registry: %w", err)
		}
		fmt.Printf("registry: %d live peer(s) remain\n", len(peers))

		if _, staleCleared := r.Coord.RestorePlanningState(); staleCleared {
			fmt.Println("planning: cleared stale planning state")
		} else {
			fmt.Println("planning: no stale state found")
		}

		swept, err := sweepLobbySentinels(r.ProjectRoot, r.Registry)
		if err != nil {
			return fmt.Errorf("sweeping lobby sentinels: %w", err)
		}
		fmt.Printf("lobby: removed %d orphaned keep-alive file(s)\n", swept)

		return nil
	},
}

// sweepLobbySentinels removes lobby-*.alive files under the project's crew
// directory (<project>/.pi/messenger/crew) whose recorded worker name is no longer a live process. The keep-alive
// files are written by workerpool.SpawnLobbyWorker and are plain
// "<name>\n" text, not JSON, so liveness is checked through the registry
// rather than parsing a pid out of the file itself.
func sweepLobbySentinels(projectRoot string, registry *mesh.Registry) (int, error) {
	dir := fileutil.CrewDir(projectRoot)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "lobby-") || !strings.HasSuffix(e.Name(), ".alive") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(raw))
		reg, ok := registry.Get(name)
		if !ok || !mesh.IsAlive(reg.PID) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
