package cli

import (
	"github.com/spf13/cobra"

	"github.com/pimesh/crew/internal/action"
)

var revisePrompt string

func init() {
	reviseCmd.Flags().StringVar(&revisePrompt, "prompt", "", "Instructions for how the task should be revised")
	reviseTreeCmd.Flags().StringVar(&revisePrompt, "prompt", "", "Instructions for how the subtree should be revised")
	rootCmd.AddCommand(reviseCmd, reviseTreeCmd)
}

var reviseCmd = &cobra.Command{
	Use:   "revise <task-id>",
	Short: "Re-plan a single task's title and spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "task.revise", TaskID: args[0], Prompt: revisePrompt}, sessState)
		return printResult(res)
	},
}

var reviseTreeCmd = &cobra.Command{
	Use:   "revise-tree <task-id>",
	Short: "Re-plan a task and every transitive dependent as one subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "task.revise-tree", TaskID: args[0], Prompt: revisePrompt}, sessState)
		return printResult(res)
	},
}
