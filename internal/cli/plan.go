package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pimesh/crew/internal/action"
)

var (
	planPRD      string
	planPrompt   string
	planAutoWork bool
)

func init() {
	planCmd.Flags().StringVar(&planPRD, "prd", "", "Path to a PRD file to plan from")
	planCmd.Flags().StringVar(&planPrompt, "prompt", "", "Inline planning prompt, used when --prd is not given")
	planCmd.Flags().BoolVar(&planAutoWork, "auto-work", false, "Start autonomous work immediately after planning")
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(planCancelCmd)
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Turn a PRD (or prompt) into a task graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		autoWork := planAutoWork
		res := r.Execute(cmd.Context(), action.Request{
			Action:   "plan",
			PRD:      planPRD,
			Prompt:   planPrompt,
			AutoWork: &autoWork,
		}, sessState)
		return printResult(res)
	},
}

var planCancelCmd = &cobra.Command{
	Use:   "plan-cancel",
	Short: "Request cancellation of an in-progress planning run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(context.Background(), action.Request{Action: "plan.cancel"}, sessState)
		return printResult(res)
	},
}
