// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devlayer/devlayer/internal/config"
	"github.com/devlayer/devlayer/internal/devenv"
	"github.com/devlayer/devlayer/internal/issue"
)

func newActivateCommand(app *App) *cobra.Command {
	var flags imageFlags

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Enter the configured development environment",
		Long: `Enter the configured development environment.

In docker mode the development container is started, or attached to, with
the image keys and run settings of the merged configuration. A custom image
set with 'devlayer commit --set-default' takes precedence over the keys.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return app.fail(cmd, err)
			}

			switch cfg.Environment.Mode {
			case config.ModeDocker:
				req, err := activateRequest(cfg, app.getenv)
				if err != nil {
					return app.fail(cmd, err)
				}
				flags.apply(&req)
				return app.launch(ctx, cmd, cfg, req, layerFlags{})
			default:
				return app.fail(cmd, notInitialized(cfg.Environment.Mode))
			}
		},
	}
	flags.register(cmd)

	return cmd
}

// activateRequest builds the launch request of the docker mode from cfg.
// The workspace is $DEVLAYER_DIR, else $DEVLAYER_WS.
func activateRequest(cfg *config.Config, getenv func(string) string) (devenv.Request, error) {
	dir := getenv(config.EnvDir)
	if dir == "" {
		dir = getenv(config.EnvWorkspace)
	}
	if dir == "" {
		return devenv.Request{}, issue.NewErrorContext().
			WithOperation("activate docker environment").
			WithSuggestion("Set " + config.EnvDir + " to the directory to mount in the container").
			WithIssue(issue.EnvironmentNotInitializedId).
			Wrap(fmt.Errorf("neither %s nor %s is set", config.EnvDir, config.EnvWorkspace)).
			BuildError()
	}

	return devenv.Request{
		Keys:           cfg.ImageKeys(),
		ContainerName:  containerName(cfg, getenv),
		Platform:       cfg.Docker.Run.Platform,
		Dir:            dir,
		WorkspaceMount: cfg.Docker.Run.WorkspaceMount,
		CustomImage:    cfg.Docker.Image.CustomImage,
	}, nil
}

func notInitialized(mode config.Mode) error {
	return issue.NewErrorContext().
		WithOperation("activate environment").
		WithResource("environment.mode").
		WithSuggestion("Run 'sudo devlayer init docker' to develop in a container").
		WithIssue(issue.EnvironmentNotInitializedId).
		Wrap(fmt.Errorf("environment mode is %q", mode)).
		BuildError()
}
