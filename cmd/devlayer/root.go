// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/devlayer/devlayer/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the devlayer command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "devlayer",
		Short: "Layered Docker development environments",
		Long: TitleStyle.Render("devlayer") + SubtitleStyle.Render(" - Layered Docker development environments") + `

devlayer composes a development image from a set of environment keys such
as noble, ros2_jazzy and realsense. Each key combination maps to a layer
definition (Dockerfile.<keys>) found in the configured search directories;
the layers are built with docker buildx bake and reused from registries
whenever a stage with the same content was built before.

` + SubtitleStyle.Render("Examples:") + `
  devlayer plan -i noble.ros2_jazzy     Show the bake file for a key set
  devlayer build -i noble -i ros2_jazzy Build the stages that are missing
  devlayer run --env noble,ros2_jazzy   Start or attach to a dev container
  sudo devlayer init docker             Enable the docker mode machine wide
  devlayer activate                     Launch the configured environment`,
	}

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&app.configDir, "config-dir", "", "user configuration directory (default is $XDG_CONFIG_HOME/devlayer)")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: types.ExitUsage, Err: err}
	})

	root.AddCommand(
		newInitCommand(app),
		newActivateCommand(app),
		newCommitCommand(app),
		newRunCommand(app),
		newBuildCommand(app),
		newPlanCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command tree and exits with the resulting code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(types.ExitFailure))
	}
}

// usageArgs turns a positional argument validation failure into a usage
// error.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &ExitError{Code: types.ExitUsage, Err: err}
		}
		return nil
	}
}
