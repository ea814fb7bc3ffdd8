// Package checkcmder provides the check command, which inspects the local
// deployment before "flowstream serve" is started.
package checkcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/flowstream/pkg/check"
	"github.com/papercomputeco/flowstream/pkg/cliui"
	"github.com/papercomputeco/flowstream/pkg/config"
	"github.com/papercomputeco/flowstream/pkg/dotdir"
)

// ErrCheckFailed is returned when a required check does not pass.
var ErrCheckFailed = errors.New("deployment check failed")

const checkLongDesc string = `Check the deployment configuration.

Looks for the .env files the server loads, validates config.toml, checks
STREAM_TIMEOUT_SECONDS, and verifies that the upstream engine has the model
settings it needs.

Exits non-zero when a required check fails.

Examples:
  flowstream check
  flowstream check --dir ./deploy`

const checkShortDesc string = "Check configuration and environment"

type checkCommander struct {
	dir       string
	configDir string
}

func NewCheckCmd() *cobra.Command {
	cmder := &checkCommander{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: checkShortDesc,
		Long:  checkLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.dir, "dir", "", "Deployment directory holding .env files (default: working directory)")

	return cmd
}

func (c *checkCommander) run(w io.Writer) error {
	dir := c.dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		dir = cwd
	}

	target, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}

	// A config that fails to load is reported by the checks themselves, so
	// fall back to defaults for the engine section.
	var cfg *config.Config
	if v, err := config.InitViper(c.configDir); err == nil {
		cfg, _ = config.FromViper(v)
	}

	report := check.Run(check.Options{
		Dir:        dir,
		ConfigPath: filepath.Join(target, config.FileName),
		Config:     cfg,
	})

	render(w, report)

	if !report.OK() {
		return ErrCheckFailed
	}
	return nil
}

func render(w io.Writer, report *check.Report) {
	fmt.Fprintln(w)
	for _, section := range report.Sections {
		fmt.Fprintf(w, "  %s\n", cliui.KeyStyle.Render(section.Title))
		for _, res := range section.Results {
			fmt.Fprintf(w, "    %s %s %s\n", mark(res), cliui.NameStyle.Render(res.Name), cliui.DimStyle.Render(res.Detail))
		}
		fmt.Fprintln(w)
	}

	if report.OK() {
		fmt.Fprintf(w, "  %s Ready to serve\n\n", cliui.SuccessMark)
	} else {
		fmt.Fprintf(w, "  %s Fix the failed checks above before serving\n\n", cliui.FailMark)
	}
}

func mark(res check.Result) string {
	switch {
	case res.OK:
		return cliui.SuccessMark
	case res.Required:
		return cliui.FailMark
	default:
		return cliui.WarnMark
	}
}
