// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devlayer/devlayer/internal/config"
	"github.com/devlayer/devlayer/internal/issue"
)

func newInitCommand(app *App) *cobra.Command {
	var modes []string
	for _, m := range config.Modes() {
		modes = append(modes, m.String())
	}

	return &cobra.Command{
		Use:       "init <mode>",
		Short:     "Select the development mode of this machine",
		Long:      "Select the development mode of this machine. The mode is written to the system configuration scope, so init must run as root.",
		Args:      usageArgs(cobra.ExactArgs(1)),
		ValidArgs: modes,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runInit(app, config.Mode(args[0])); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}
}

func runInit(app *App, mode config.Mode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	if app.geteuid() != 0 {
		return issue.NewErrorContext().
			WithOperation("initialize devlayer").
			WithSuggestion("Re-run with sudo: sudo devlayer init " + mode.String()).
			WithIssue(issue.PermissionDeniedId).
			Wrap(errors.New("init writes the system configuration and must run as root")).
			BuildError()
	}

	overlay, err := config.SetKey(nil, "environment.mode", mode.String())
	if err != nil {
		return err
	}
	if err := config.Update(app.paths(), config.ScopeSystem, overlay); err != nil {
		return err
	}

	path, _ := app.paths().For(config.ScopeSystem)
	fmt.Fprintf(app.stdout, "%s Environment mode set to %s in %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(mode.String()), path)
	return nil
}
