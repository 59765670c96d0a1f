// Package cli wires the crew mesh's dotted-action router into a cobra
// command tree, grounded on the teacher's cmd-per-concern cobra layout
// (internal/cli/root.go's flat init()-time registration) generalized to
// one router.Execute call per command instead of one engine.Run per
// concern.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pimesh/crew/internal/action"
	"github.com/pimesh/crew/internal/config"
	"github.com/pimesh/crew/internal/coordination"
	"github.com/pimesh/crew/internal/feed"
	"github.com/pimesh/crew/internal/fileutil"
	"github.com/pimesh/crew/internal/logging"
	"github.com/pimesh/crew/internal/mesh"
	"github.com/pimesh/crew/internal/planner"
	"github.com/pimesh/crew/internal/reservation"
	"github.com/pimesh/crew/internal/revise"
	"github.com/pimesh/crew/internal/runner"
	"github.com/pimesh/crew/internal/taskstore"
	"github.com/pimesh/crew/internal/wave"
	"github.com/pimesh/crew/internal/workerpool"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	verbose   bool
	sessName  string
	sessState = &action.State{}
)

var rootCmd = &cobra.Command{
	Use:   "crew",
	Short: "Coordinate multi-agent task planning and execution",
	Long: `crew plans a PRD into a task graph, runs waves of worker agents
against the ready set, and lets a peer mesh of agents and humans join,
message, and reserve files alongside it.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&sessName, "as", "", "Agent name to act as (defaults to the mesh registration for this process)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(doctorCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("crew %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// router builds a Router wired to the current working directory's project
// state and the shared mesh home base, per spec §9's single-process
// wiring. Each cobra RunE calls this fresh: the router itself is
// stateless across invocations, and every on-disk store is opened
// lazily by its own constructor.
func router() (*action.Router, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cwd, err = filepath.Abs(cwd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: logger init failed: %s\n", err)
		logger = logging.Nop()
	}

	home := fileutil.HomeBase()
	store := taskstore.New(cwd)
	coord := coordination.New(cwd)
	f := feed.New(cwd)
	registry := mesh.NewRegistry(home)
	inbox := mesh.NewInbox(home)
	inbox.Logger = logger
	themes := mesh.NewThemes(cfg.Mesh.NameTheme, cfg.Mesh.NameWords)
	spawner := runner.NewSpawner(inbox)
	pool := workerpool.New(cwd, spawner, inbox, themes)
	pool.Logger = logger
	reserve := reservation.New(registry)
	planLoop := planner.New(cwd, store, spawner, coord, f)
	scheduler := wave.New(cwd, store, pool, coord, f)
	reviseEngine := revise.New(cwd, store, spawner, coord, f)

	return &action.Router{
		ProjectRoot: cwd,
		HomeBase:    home,
		Store:       store,
		Coord:       coord,
		Feed:        f,
		Registry:    registry,
		Inbox:       inbox,
		Reserve:     reserve,
		Planner:     planLoop,
		Wave:        scheduler,
		Revise:      reviseEngine,
		Config:      cfg,
		Logger:      logger,
	}, nil
}

// restoreSession loads this process's mesh name from the registry if
// --as wasn't given but a prior join already registered this cwd+pid
// under some name — mirrors the teacher's "one daemon per repo" cwd
// binding, generalized to "one session per process".
func restoreSession(r *action.Router) {
	if sessName != "" {
		sessState.Registered = true
		sessState.Name = sessName
		sessState.Cwd = r.ProjectRoot
		return
	}
	pid := os.Getpid()
	peers, err := r.Registry.ActivePeers(false, r.ProjectRoot)
	if err != nil {
		return
	}
	for _, p := range peers {
		if p.PID == pid && p.Cwd == r.ProjectRoot {
			sessState.Registered = true
			sessState.Name = p.Name
			sessState.Cwd = r.ProjectRoot
			return
		}
	}
}

// printResult renders a Result the way the teacher prints command
// output: human text to stdout, a non-zero exit via the returned error
// when Details.Error is set.
func printResult(res action.Result) error {
	if res.Text != "" {
		fmt.Println(res.Text)
	}
	if res.Details.Error != "" {
		return fmt.Errorf("%s", res.Details.Error)
	}
	return nil
}
