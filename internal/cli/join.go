package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pimesh/crew/internal/action"
	"github.com/pimesh/crew/internal/mesh"
)

var (
	joinAsHuman bool
	joinModel   string
	joinSpec    string
)

func init() {
	joinCmd.Flags().BoolVar(&joinAsHuman, "human", false, "Register as a human peer instead of an agent")
	joinCmd.Flags().StringVar(&joinModel, "model", "", "Model identifier to record in the registration")
	joinCmd.Flags().StringVar(&joinSpec, "spec", "", "One-line description of what this peer is working on")
	rootCmd.AddCommand(joinCmd)
}

var joinCmd = &cobra.Command{
	Use:   "join <name>",
	Short: "Register this process as a mesh peer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := router()
		if err != nil {
			return err
		}
		typ := "agent"
		if joinAsHuman {
			typ = "human"
		}
		res := r.Execute(context.Background(), action.Request{
			Action: "join",
			Name:   args[0],
			Type:   typ,
			Model:  joinModel,
			Spec:   joinSpec,
		}, sessState)
		if err := printResult(res); err != nil {
			return err
		}
		if !joinAsHuman {
			return nil
		}
		return watchInbox(r.Inbox, args[0])
	},
}

// watchInbox keeps a human peer's process alive, printing inbox messages
// as they arrive, until interrupted. This is the one production call
// site that exercises Inbox.Watch end to end: agent peers never block
// here since their own subprocess reads its inbox itself.
func watchInbox(ib *mesh.Inbox, self string) error {
	stop, err := ib.Watch(self, func(msg mesh.InboxMessage) {
		fmt.Printf("[%s] %s\n", msg.From, msg.Text)
	})
	if err != nil {
		return err
	}
	defer stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	return nil
}
