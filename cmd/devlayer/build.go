// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devlayer/devlayer/internal/imagebuild"
)

type (
	// keyFlags select and parameterize the layer chain. They are shared by
	// build and plan.
	keyFlags struct {
		keys       []string
		buildArgs  []string
		imageName  string
		platform   string
		baseImage  string
		contextDir string
		registry   string
		layers     layerFlags
	}

	buildOptions struct {
		keyFlags
		noCache           bool
		skipRegistryCheck bool
		buildLocal        bool
		push              bool
	}
)

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.keys, "image-key", "i", nil, "environment key, repeatable; dots separate several keys (noble.ros2_jazzy)")
	cmd.Flags().StringArrayVarP(&f.buildArgs, "build-arg", "b", nil, "KEY=VALUE build argument added to every stage")
	cmd.Flags().StringVarP(&f.imageName, "image-name", "n", "", "tag the last stage as this image")
	cmd.Flags().StringVarP(&f.layers.layersFile, "config-file", "c", "", "layers file")
	cmd.Flags().StringVarP(&f.platform, "platform", "p", "", "x86_64 or aarch64 (default: host)")
	cmd.Flags().StringVar(&f.baseImage, "base-image", "", "base image of the first stage")
	cmd.Flags().StringVar(&f.contextDir, "context-dir", "", "directory searched first and used as the build context")
	cmd.Flags().StringVar(&f.registry, "registry", "", "registry of the stage tags (default: first cache_from_registry_names entry)")
}

func (f keyFlags) request() imagebuild.Request {
	return imagebuild.Request{
		Keys:       f.keys,
		ImageName:  f.imageName,
		BuildArgs:  imagebuild.ParseBuildArgs(f.buildArgs),
		Platform:   f.platform,
		Registry:   f.registry,
		BaseImage:  f.baseImage,
		ContextDir: f.contextDir,
	}
}

func newBuildCommand(app *App) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the layered image of a key set",
		Long: `Build the layered image of a key set.

The keys are ordered by build.image_key_order and resolved to layer
definitions. Stages whose tags already exist in the registry are skipped
unless --no-cache or --skip-registry-check is given.`,
		Example: `  devlayer build -i noble -i ros2_jazzy
  devlayer build -i noble.ros2_jazzy.realsense -n ros:dev --build-local
  devlayer build -i noble -b UBUNTU_MIRROR=http://mirror --push`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return app.fail(cmd, err)
			}
			settings, err := app.buildSettings(ctx, cfg, opts.layers)
			if err != nil {
				return app.fail(cmd, err)
			}

			req := opts.request()
			req.NoCache = opts.noCache
			req.SkipRegistryCheck = opts.skipRegistryCheck
			req.BuildLocal = opts.buildLocal
			req.Push = opts.push

			if err := app.Engine.Ping(ctx); err != nil {
				return app.fail(cmd, err)
			}
			checkRegistry := !opts.noCache && !opts.skipRegistryCheck
			result, err := app.builder(settings, checkRegistry).Build(ctx, req)
			if err != nil {
				return app.fail(cmd, err)
			}

			if len(result.Skipped) > 0 {
				fmt.Fprintf(app.stdout, "%s Reused %s\n", SubtitleStyle.Render("-"), strings.Join(result.Skipped, ", "))
			}
			for _, target := range result.Built {
				fmt.Fprintf(app.stdout, "%s Built %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(target))
			}
			if opts.imageName != "" {
				fmt.Fprintf(app.stdout, "%s Image %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(opts.imageName))
			}
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "build every stage without cache")
	cmd.Flags().BoolVar(&opts.skipRegistryCheck, "skip-registry-check", false, "build every stage even if its tag exists")
	cmd.Flags().BoolVar(&opts.buildLocal, "build-local", false, "build on this machine even without a remote builder")
	cmd.Flags().BoolVar(&opts.push, "push", false, "push the stages to the registry")

	return cmd
}
