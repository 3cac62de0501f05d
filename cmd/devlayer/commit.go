// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devlayer/devlayer/internal/config"
)

func newCommitCommand(app *App) *cobra.Command {
	var setDefault bool

	cmd := &cobra.Command{
		Use:   "commit [image]",
		Short: "Save the development container as an image",
		Long: `Save the development container as an image.

The image defaults to <container>_custom:latest. With --set-default the
image is recorded as docker.image.custom_image in the user configuration,
so that 'devlayer activate' launches it from then on.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return app.fail(cmd, err)
			}

			name := containerName(cfg, app.getenv)
			image := commitImage(name, args)

			if err := app.Engine.Ping(ctx); err != nil {
				return app.fail(cmd, err)
			}
			app.Logger().Info("committing container", "container", name, "image", image)
			if err := app.Engine.Commit(ctx, name, image); err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintf(app.stdout, "%s Saved %s as %s\n", SuccessStyle.Render("✓"), name, CmdStyle.Render(image))

			if !setDefault {
				return nil
			}
			overlay, err := config.SetKey(nil, "docker.image.custom_image", image)
			if err != nil {
				return app.fail(cmd, err)
			}
			if err := config.Update(app.paths(), config.ScopeUser, overlay); err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintf(app.stdout, "%s %s is now the default image\n", SuccessStyle.Render("✓"), CmdStyle.Render(image))
			return nil
		},
	}
	cmd.Flags().BoolVar(&setDefault, "set-default", false, "launch this image from now on")

	return cmd
}

// commitImage returns the image reference to commit to. A name without a tag
// gets ":latest".
func commitImage(containerName string, args []string) string {
	image := containerName + "_custom"
	if len(args) > 0 && args[0] != "" {
		image = args[0]
	}
	if !hasTag(image) {
		image += ":latest"
	}
	return image
}

func hasTag(image string) bool {
	if strings.Contains(image, "@") {
		return true
	}
	last := image[strings.LastIndex(image, "/")+1:]
	return strings.Contains(last, ":")
}
