package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/pimesh/crew/internal/action"
)

var (
	whoisName    string
	setStatusMsg string
	feedLimit    int
	specText     string
	sendTo       string
	sendMsg      string
	sendReplyTo  string
	broadcastMsg string
	reservePaths string
	reserveWhy   string
	releasePaths string
	releaseAll    bool
	statusMetrics bool
)

func init() {
	statusCmd.Flags().BoolVar(&statusMetrics, "metrics", false, "Print the process's Prometheus metrics instead of this peer's registration")
	feedCmd.Flags().IntVar(&feedLimit, "limit", 50, "Maximum number of feed events to print")

	sendCmd.Flags().StringVar(&sendReplyTo, "reply-to", "", "ID of the message this replies to")

	reserveCmd.Flags().StringVar(&reservePaths, "paths", "", "Comma-separated paths to reserve")
	reserveCmd.Flags().StringVar(&reserveWhy, "reason", "", "Reason for the reservation")

	releaseCmd.Flags().StringVar(&releasePaths, "paths", "", "Comma-separated paths to release")
	releaseCmd.Flags().BoolVar(&releaseAll, "all", false, "Release every reservation held by this peer")

	rootCmd.AddCommand(statusCmd, listCmd, whoisCmd, setStatusCmd, feedCmd, specCmd,
		sendCmd, broadcastCmd, reserveCmd, releaseCmd, renameCmd, swarmCmd)
}

func splitPaths(s string) []string {
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

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print this peer's own registration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		act := "status"
		if statusMetrics {
			act = "metrics"
		}
		res := r.Execute(cmd.Context(), action.Request{Action: act}, sessState)
		return printResult(res)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active peers in this project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "list"}, sessState)
		return printResult(res)
	},
}

var whoisCmd = &cobra.Command{
	Use:   "whois <name>",
	Short: "Print a specific peer's registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "whois", Name: args[0]}, sessState)
		return printResult(res)
	},
}

var setStatusCmd = &cobra.Command{
	Use:   "set-status <message>",
	Short: "Set this peer's status message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "set_status", Message: args[0]}, sessState)
		return printResult(res)
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print recent mesh feed events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "feed", Limit: feedLimit}, sessState)
		return printResult(res)
	},
}

var specCmd = &cobra.Command{
	Use:   "spec <text>",
	Short: "Set this peer's one-line spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "spec", Spec: args[0]}, sessState)
		return printResult(res)
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <to> <message>",
	Short: "Send a direct message to another peer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{
			Action:  "send",
			To:      args[0],
			Message: args[1],
			ReplyTo: sendReplyTo,
		}, sessState)
		return printResult(res)
	},
}

var broadcastCmd = &cobra.Command{
	Use:   "broadcast <message>",
	Short: "Send a message to every active peer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "broadcast", Message: args[0]}, sessState)
		return printResult(res)
	},
}

var reserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Reserve one or more paths for exclusive editing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{
			Action: "reserve",
			Paths:  splitPaths(reservePaths),
			Reason: reserveWhy,
		}, sessState)
		return printResult(res)
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Release reservations held by this peer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{
			Action:  "release",
			Paths:   splitPaths(releasePaths),
			Cascade: releaseAll,
		}, sessState)
		return printResult(res)
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <new-name>",
	Short: "Rename this peer's registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "rename", Name: args[0]}, sessState)
		return printResult(res)
	},
}

var swarmCmd = &cobra.Command{
	Use:   "swarm",
	Short: "List active peers across every project sharing this mesh",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		restoreSession(r)
		res := r.Execute(cmd.Context(), action.Request{Action: "swarm"}, sessState)
		return printResult(res)
	},
}
