// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/devlayer/devlayer/internal/config"
	"github.com/devlayer/devlayer/internal/devenv"
	"github.com/devlayer/devlayer/pkg/types"
)

// defaultRunKeys is the environment started by run without --env.
var defaultRunKeys = []string{"noble", "ros2_jazzy", "realsense"}

type (
	// imageFlags select how the development image is obtained.
	imageFlags struct {
		build          bool
		buildLocal     bool
		push           bool
		noCache        bool
		useCachedImage bool
	}

	runOptions struct {
		keys          []string
		extraKeys     []string
		containerName string
		platform      string
		dir           string
		registry      string
		layers        layerFlags
		image         imageFlags
	}
)

func (f *imageFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.build, "build", false, "build the image if it cannot be pulled")
	cmd.Flags().BoolVar(&f.buildLocal, "build-local", false, "build the image on this machine if it cannot be pulled")
	cmd.Flags().BoolVar(&f.push, "push", false, "push built stages to the cache registry")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "build without cache and keep the image local")
	cmd.Flags().BoolVarP(&f.useCachedImage, "use-cached-build-image", "b", false, "run the image of the last launch")
}

func newRunCommand(app *App) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start or attach to a development container",
		Long: `Start or attach to a development container.

If a container with the same name is running, a shell is opened in it.
Otherwise the development image for the environment keys is pulled, or
built with --build/--build-local, and a new container is started with the
directory given by --dir mounted as the workspace.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDev(cmd, app, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.keys, "env", defaultRunKeys, "environment keys")
	cmd.Flags().StringSliceVar(&opts.extraKeys, "extra-env", nil, "environment keys added to --env")
	cmd.Flags().StringVar(&opts.containerName, "container-name", "", "container name (default from docker.run.container_name)")
	cmd.Flags().StringVar(&opts.platform, "platform", "", "x86_64 or aarch64 (default from docker.run.platform)")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "host directory mounted as the workspace (default $"+config.EnvDir+" or the current directory)")
	cmd.Flags().StringVar(&opts.registry, "registry", "", "registry of the development image")
	cmd.Flags().StringVarP(&opts.layers.layersFile, "config-file", "c", "", "layers file")
	opts.image.register(cmd)

	return cmd
}

func runDev(cmd *cobra.Command, app *App, opts runOptions) error {
	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(cmd, err)
	}

	dir := opts.dir
	if dir == "" {
		dir = app.getenv(config.EnvDir)
	}
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return app.fail(cmd, err)
		}
	}

	req := devenv.Request{
		Keys:          append(append([]string{}, opts.keys...), opts.extraKeys...),
		ContainerName: opts.containerName,
		Platform:      opts.platform,
		Dir:           dir,
		Registry:      opts.registry,
	}
	opts.image.apply(&req)
	return app.launch(ctx, cmd, cfg, req, opts.layers)
}

func (f imageFlags) apply(req *devenv.Request) {
	req.Build = f.build
	req.BuildLocal = f.buildLocal
	req.Push = f.push
	req.NoCache = f.noCache
	req.UseCachedImage = f.useCachedImage
}

// launch fills the request gaps from cfg and runs the launcher. A non-zero
// shell status becomes the process exit code.
func (app *App) launch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, req devenv.Request, lf layerFlags) error {
	if req.ContainerName == "" {
		req.ContainerName = containerName(cfg, app.getenv)
	}
	if req.Platform == "" {
		req.Platform = cfg.Docker.Run.Platform
	}
	if req.WorkspaceMount == "" {
		req.WorkspaceMount = cfg.Docker.Run.WorkspaceMount
	}

	settings, err := app.buildSettings(ctx, cfg, lf)
	if err != nil {
		return app.fail(cmd, err)
	}
	code, err := app.launcher(settings).Launch(ctx, req)
	if err != nil {
		return app.fail(cmd, err)
	}
	if code != 0 {
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: types.FromStatus(code)}
	}
	return nil
}

// containerName is the configured container name with the
// CONFIG_CONTAINER_NAME_SUFFIX appended.
func containerName(cfg *config.Config, getenv func(string) string) string {
	name := cfg.Docker.Run.ContainerName
	if suffix := getenv(config.EnvContainerNameSuffix); suffix != "" {
		name += "-" + suffix
	}
	return name
}
