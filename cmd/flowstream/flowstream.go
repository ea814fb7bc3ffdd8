// Package flowstreamcmder is the root flowstream command.
package flowstreamcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/flowstream/cmd/flowstream/chat"
	checkcmder "github.com/papercomputeco/flowstream/cmd/flowstream/check"
	configcmder "github.com/papercomputeco/flowstream/cmd/flowstream/config"
	initcmder "github.com/papercomputeco/flowstream/cmd/flowstream/init"
	servecmder "github.com/papercomputeco/flowstream/cmd/flowstream/serve"
	statuscmder "github.com/papercomputeco/flowstream/cmd/flowstream/status"
	versioncmder "github.com/papercomputeco/flowstream/cmd/version"
)

const flowstreamLongDesc string = `flowstream supervises streamed chat responses.

Every response runs as a supervised session that ends exactly once, as
completed, cancelled, timed out or failed.

Run the server and talk to it using:
  flowstream serve     Run the streaming API server
  flowstream chat      Chat with a running server
  flowstream status    Show the conversation chat will continue
  flowstream check     Check configuration and environment`

const flowstreamShortDesc string = "flowstream - supervised response streaming"

func NewFlowstreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "flowstream",
		Short:        flowstreamShortDesc,
		Long:         flowstreamLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .flowstream/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(checkcmder.NewCheckCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
