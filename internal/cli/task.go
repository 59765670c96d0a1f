package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/pimesh/crew/internal/action"
)

var (
	taskTitle     string
	taskSpec      string
	taskDependsOn string
	taskMilestone bool
	taskReason    string
	taskSummary   string
	taskEvidence  string
	taskCascade   bool
)

func init() {
	taskCreateCmd.Flags().StringVar(&taskTitle, "title", "", "Task title")
	taskCreateCmd.Flags().StringVar(&taskSpec, "spec", "", "Task description")
	taskCreateCmd.Flags().StringVar(&taskDependsOn, "depends-on", "", "Comma-separated task IDs this task depends on")
	taskCreateCmd.Flags().BoolVar(&taskMilestone, "milestone", false, "Create a milestone task")

	taskCompleteCmd.Flags().StringVar(&taskSummary, "summary", "", "Completion summary")
	taskCompleteCmd.Flags().StringVar(&taskEvidence, "evidence", "", "Evidence of completion")

	taskBlockCmd.Flags().StringVar(&taskReason, "reason", "", "Reason the task is blocked")
	taskResetCmd.Flags().BoolVar(&taskCascade, "cascade", false, "Also reset every transitive dependent")

	taskCmd.AddCommand(taskCreateCmd, taskStartCmd, taskCompleteCmd, taskBlockCmd,
		taskUnblockCmd, taskResetCmd, taskDeleteCmd, taskGetCmd, taskListCmd)
	rootCmd.AddCommand(taskCmd)
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks in the current project's plan",
}

func splitDependsOn(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		typ := ""
		if taskMilestone {
			typ = "milestone"
		}
		res := r.Execute(cmd.Context(), action.Request{
			Action:    "task.create",
			Title:     taskTitle,
			Spec:      taskSpec,
			DependsOn: splitDependsOn(taskDependsOn),
			Type:      typ,
		}, sessState)
		return printResult(res)
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Claim and start a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "task.start", TaskID: args[0]}, sessState)
		return printResult(res)
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{
			Action:   "task.complete",
			TaskID:   args[0],
			Summary:  taskSummary,
			Evidence: taskEvidence,
		}, sessState)
		return printResult(res)
	},
}

var taskBlockCmd = &cobra.Command{
	Use:   "block <task-id>",
	Short: "Mark a task blocked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "task.block", TaskID: args[0], Reason: taskReason}, sessState)
		return printResult(res)
	},
}

var taskUnblockCmd = &cobra.Command{
	Use:   "unblock <task-id>",
	Short: "Clear a task's blocked status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "task.unblock", TaskID: args[0]}, sessState)
		return printResult(res)
	},
}

var taskResetCmd = &cobra.Command{
	Use:   "reset <task-id>",
	Short: "Reset a task back to todo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "task.reset", TaskID: args[0], Cascade: taskCascade}, sessState)
		return printResult(res)
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "task.delete", TaskID: args[0]}, sessState)
		return printResult(res)
	},
}

var taskGetCmd = &cobra.Command{
	Use:   "get <task-id>",
	Short: "Print a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "task.get", TaskID: args[0]}, sessState)
		return printResult(res)
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every task in the plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "task.list"}, sessState)
		return printResult(res)
	},
}
