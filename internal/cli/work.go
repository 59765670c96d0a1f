package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pimesh/crew/internal/action"
)

var (
	workAutonomous  bool
	workConcurrency int
	workModel       string
)

func init() {
	workCmd.Flags().BoolVar(&workAutonomous, "autonomous", false, "Keep dispatching waves until the plan is done or blocked")
	workCmd.Flags().IntVar(&workConcurrency, "concurrency", 0, "Worker concurrency for this run (0 uses the configured default)")
	workCmd.Flags().StringVar(&workModel, "model", "", "Model override for spawned workers")
	rootCmd.AddCommand(workCmd)
}

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Dispatch one wave of worker agents against the ready task set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		abort := make(chan struct{})
		go func() {
			if _, ok := <-sigCh; ok {
				close(abort)
			}
		}()

		res := r.Execute(cmd.Context(), action.Request{
			Action:      "work",
			Autonomous:  workAutonomous,
			Concurrency: workConcurrency,
			Model:       workModel,
			Abort:       abort,
		}, sessState)
		return printResult(res)
	},
}
