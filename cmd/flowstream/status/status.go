// Package statuscmder provides the status command for displaying the chat
// thread saved in the local .flowstream directory.
package statuscmder

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/flowstream/pkg/cliui"
	"github.com/papercomputeco/flowstream/pkg/dotdir"
	"github.com/papercomputeco/flowstream/pkg/utils"
)

const statusLongDesc string = `Show the saved chat thread.

Reads the local .flowstream/ directory (or ~/.flowstream/) to display the
thread that "flowstream chat --continue" resumes, including its message
history.

If no thread is saved, indicates that the next chat will start a new
conversation.

Examples:
  flowstream status`

const statusShortDesc string = "Show the saved chat thread"

const previewLen = 72

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runStatus(w io.Writer, configDir string) error {
	state, err := dotdir.NewManager().LoadThread(configDir)
	if err != nil {
		return fmt.Errorf("loading thread state: %w", err)
	}

	if state == nil {
		fmt.Fprintf(w, "  %s No saved thread. Next chat will start a new conversation.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintf(w, "\n  %s  %s\n", cliui.KeyStyle.Render("Thread:  "), cliui.IDStyle.Render(state.ThreadID))
	fmt.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render("Messages:"), cliui.NameStyle.Render(strconv.Itoa(len(state.Messages))))

	for i, msg := range state.Messages {
		fmt.Fprintf(w, "  %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.RoleStyle.Render("["+msg.Role+"]"),
			cliui.PreviewStyle.Render(utils.Truncate(msg.Content, previewLen)),
		)
	}

	fmt.Fprintln(w)
	return nil
}
