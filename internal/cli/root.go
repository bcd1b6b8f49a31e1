/*
Package cli wires the marketrelay commands together.
*/
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the marketrelay command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "marketrelay",
		Short: "Real-time market data relay",
		Long: `marketrelay fans market data events out to WebSocket subscribers.

Subscribers connect to /ws, send {"action":"subscribe","subject":"..."}
and receive every event whose subject matches exactly, or every event when
subscribed to "*". Events come from a synthetic trade generator or from a
NATS subject.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newPublishCmd(), newTapeCmd())
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}
