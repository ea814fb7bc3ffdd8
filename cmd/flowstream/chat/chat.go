// Package chatcmder provides the chat command for talking to a running
// flowstream server.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/flowstream/pkg/client"
	"github.com/papercomputeco/flowstream/pkg/cliui"
	"github.com/papercomputeco/flowstream/pkg/config"
	"github.com/papercomputeco/flowstream/pkg/dotdir"
	"github.com/papercomputeco/flowstream/pkg/logger"
	"github.com/papercomputeco/flowstream/pkg/utils"
	"github.com/papercomputeco/flowstream/pkg/workflow"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

const chatLongDesc string = `Chat with a running flowstream server.

Each message is streamed back as it is produced. Pass a message as arguments
for a single exchange, or run without arguments for an interactive session.

The conversation is saved in the .flowstream/ directory after every reply.
Use --continue to pick up the saved thread, and "flowstream status" to see it.

When a plan needs review the available options are listed; answer with one
of the option values (for example "accepted") to resume the run.

Examples:
  flowstream chat "what is quantum computing?"
  flowstream chat --continue
  flowstream chat --render --api-target http://localhost:8000`

const chatShortDesc string = "Chat with a running flowstream server"

type chatCommander struct {
	apiTarget string
	resume    bool
	render    bool
	raw       bool
	autoPlan  bool
	debug     bool
	configDir string

	in     io.Reader
	out    io.Writer
	client *client.Client
	logger *slog.Logger

	state     *dotdir.ThreadState
	interrupt []workflow.InterruptOption
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			if !cmd.Flags().Changed(config.Flags[config.FlagAPITarget].Name) {
				v, err := config.InitViper(cmder.configDir)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				cfg, err := config.FromViper(v)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVarP(&cmder.resume, "continue", "c", false, "Continue the saved thread")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render replies as markdown once complete (terminal only)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the raw SSE stream")
	cmd.Flags().BoolVar(&cmder.autoPlan, "auto-accept-plan", false, "Accept research plans without review")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, message string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.logger == nil {
		c.logger = logger.New(logger.WithDebug(c.debug), logger.WithFormat(logger.FormatPretty), logger.WithComponent("chat"), logger.WithWriter(os.Stderr))
	}
	if c.client == nil {
		c.client = client.New(c.apiTarget, nil)
	}

	if err := c.loadThread(); err != nil {
		return err
	}

	if message != "" {
		return c.send(ctx, message)
	}

	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Server:"), cliui.NameStyle.Render(c.apiTarget))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit, /new to start over."))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/new":
			c.state = &dotdir.ThreadState{ThreadID: workflow.DefaultThreadID}
			c.interrupt = nil
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		}

		if err := c.send(ctx, input); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) loadThread() error {
	c.state = &dotdir.ThreadState{ThreadID: workflow.DefaultThreadID}
	if !c.resume {
		return nil
	}

	state, err := dotdir.NewManager().LoadThread(c.configDir)
	if err != nil {
		return fmt.Errorf("loading thread state: %w", err)
	}
	if state == nil {
		fmt.Fprintf(c.out, "  %s No saved thread, starting a new conversation\n", cliui.DimStyle.Render("●"))
		return nil
	}

	c.state = state
	fmt.Fprintf(c.out, "  %s Continuing %s %s\n",
		cliui.SuccessMark,
		cliui.IDStyle.Render(utils.Truncate(state.ThreadID, 16)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(state.Messages))),
	)
	return nil
}

// send streams one exchange and records it in the thread state.
func (c *chatCommander) send(ctx context.Context, input string) error {
	req := c.request(input)

	c.logger.Debug("sending chat request",
		"api_target", c.apiTarget,
		"thread_id", req.ThreadID,
		"message_count", len(req.Messages),
	)

	reply := &client.Reply{}
	streaming := !c.render && !c.raw
	if streaming {
		fmt.Fprint(c.out, assistantPrompt)
		reply.OnChunk = func(s string) { fmt.Fprint(c.out, s) }
	}

	var raw io.Writer
	if c.raw {
		raw = c.out
	}

	stream := func() error {
		return c.client.StreamChat(ctx, req, reply.Handle, raw)
	}

	var err error
	if c.render {
		err = cliui.Step(c.out, "Waiting for reply", stream)
	} else {
		err = stream()
	}
	if streaming {
		fmt.Fprintln(c.out)
	}
	if err != nil {
		return err
	}

	if c.render {
		c.printRendered(reply.Content())
	}

	if reply.Error != "" {
		return errors.New(reply.Error)
	}

	if reply.ThreadID != "" {
		c.state.ThreadID = reply.ThreadID
	}
	c.state.Messages = append(c.state.Messages,
		dotdir.ThreadMessage{Role: "user", Content: input},
		dotdir.ThreadMessage{Role: "assistant", Content: reply.Content()},
	)
	if err := dotdir.NewManager().SaveThread(c.state, c.configDir); err != nil {
		c.logger.Warn("failed to save thread", "error", err)
	}

	c.interrupt = reply.Interrupt
	if len(c.interrupt) > 0 {
		c.printInterrupt()
	}

	fmt.Fprintln(c.out)
	return nil
}

// request builds the next chat request. After a plan interrupt an input that
// matches an option value is sent as feedback instead of a new message.
func (c *chatCommander) request(input string) workflow.ChatRequest {
	req := workflow.NewChatRequest()
	req.ThreadID = c.state.ThreadID
	req.AutoAcceptedPlan = c.autoPlan
	req.Messages = []workflow.Message{{Role: "user", Content: input}}

	for _, opt := range c.interrupt {
		if strings.EqualFold(input, opt.Value) {
			req.InterruptFeedback = opt.Value
			req.AutoAcceptedPlan = false
			break
		}
	}
	c.interrupt = nil

	return req
}

func (c *chatCommander) printRendered(content string) {
	width := 80
	if f, ok := c.out.(*os.File); ok {
		if !cliui.IsTerminal(f) {
			fmt.Fprintln(c.out, content)
			return
		}
		width = cliui.TerminalWidth(f, width)
	}

	rendered, err := cliui.RenderMarkdown(content, width)
	if err != nil {
		c.logger.Debug("markdown rendering failed", "error", err)
	}
	fmt.Fprint(c.out, rendered)
}

func (c *chatCommander) printInterrupt() {
	fmt.Fprintf(c.out, "\n  %s Plan review:", cliui.WarnMark)
	for _, opt := range c.interrupt {
		fmt.Fprintf(c.out, " %s %s", cliui.KeyStyle.Render(opt.Value), cliui.DimStyle.Render("("+opt.Text+")"))
	}
	fmt.Fprintln(c.out)
}
