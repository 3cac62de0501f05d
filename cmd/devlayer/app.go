// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/devlayer/devlayer/internal/config"
	"github.com/devlayer/devlayer/internal/container"
	"github.com/devlayer/devlayer/internal/devenv"
	"github.com/devlayer/devlayer/internal/imagebuild"
	"github.com/devlayer/devlayer/internal/issue"
	"github.com/devlayer/devlayer/internal/registry"
	"github.com/devlayer/devlayer/pkg/types"
)

type (
	// Engine is the docker surface used by the commands.
	Engine interface {
		container.Engine
		container.BakeEngine
	}

	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reads its services from it.
	App struct {
		Config   config.Provider
		Engine   Engine
		Registry registry.Checker

		scopePaths config.Paths
		getenv     func(string) string
		geteuid    func() int
		stdin      io.Reader
		stdout     io.Writer
		stderr     io.Writer
		logger     *log.Logger

		verbose   bool
		configDir string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   config.Provider
		Engine   Engine
		Registry registry.Checker
		// Paths replaces the standard scope locations when non-zero.
		Paths   config.Paths
		Getenv  func(string) string
		Geteuid func() int
		Stdin   io.Reader
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// layerFlags are the build setting inputs shared by build, plan and run.
	layerFlags struct {
		layersFile string
		searchDirs []string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Engine == nil {
		deps.Engine = container.NewDockerEngine()
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if deps.Geteuid == nil {
		deps.Geteuid = os.Geteuid
	}

	return &App{
		Config:     deps.Config,
		Engine:     deps.Engine,
		Registry:   deps.Registry,
		scopePaths: deps.Paths,
		getenv:     deps.Getenv,
		geteuid:    deps.Geteuid,
		stdin:      deps.Stdin,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

// Logger returns the CLI logger, at debug level with --verbose.
func (app *App) Logger() *log.Logger {
	if app.logger == nil {
		level := log.InfoLevel
		if app.verbose {
			level = log.DebugLevel
		}
		app.logger = log.NewWithOptions(app.stderr, log.Options{
			Prefix: config.AppName,
			Level:  level,
		})
	}
	return app.logger
}

// paths returns the scope file locations, honoring --config-dir.
func (app *App) paths() config.Paths {
	p := app.scopePaths
	if p == (config.Paths{}) {
		p = config.DefaultPaths(app.getenv)
	}
	return p.WithUserDir(app.configDir)
}

func (app *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return app.Config.Load(ctx, config.LoadOptions{Paths: app.paths()})
}

// buildSettings folds the shell common config, the layers file (the
// explicit one or the first candidate found), the scoped build section and
// the --search-dir flags.
func (app *App) buildSettings(ctx context.Context, cfg *config.Config, lf layerFlags) (config.BuildSettings, error) {
	binDir := executableDir()
	src := config.BuildSources{Scoped: cfg}

	if p, ok := config.FindFirst(config.DefaultCandidates(config.ShellConfigName, app.getenv, binDir)); ok {
		app.Logger().Debug("shell config", "path", p)
		src.ShellConfig = p
	}
	src.LayersFile = lf.layersFile
	if src.LayersFile == "" {
		if p, ok := config.FindFirst(config.DefaultCandidates(config.LayersFileName, app.getenv, binDir)); ok {
			src.LayersFile = p
		}
	}
	if src.LayersFile != "" {
		app.Logger().Debug("layers file", "path", src.LayersFile)
	}
	if len(lf.searchDirs) > 0 {
		src.Extra = append(src.Extra, config.BuildLayer{DockerSearchDirs: lf.searchDirs})
	}
	return config.LoadBuildSettings(ctx, src)
}

// builder creates the image build orchestrator. The registry checker is
// only used when checkRegistry is set.
func (app *App) builder(settings config.BuildSettings, checkRegistry bool) *imagebuild.Builder {
	opts := []imagebuild.Option{
		imagebuild.WithLogger(app.Logger()),
		imagebuild.WithOutput(app.stderr),
		imagebuild.WithDebug(app.verbose),
	}
	if checkRegistry {
		checker := app.Registry
		if checker == nil {
			checker = registry.NewRemote(registry.WithLogger(app.Logger()))
		}
		opts = append(opts, imagebuild.WithRegistryChecker(checker))
	}
	return imagebuild.New(app.Engine, settings, opts...)
}

func (app *App) launcher(settings config.BuildSettings) *devenv.Launcher {
	home, _ := os.UserHomeDir()
	return devenv.New(app.Engine, app.builder(settings, true), settings,
		devenv.WithLogger(app.Logger()),
		devenv.WithGetenv(app.getenv),
		devenv.WithDockerArgsFiles(devenv.DockerArgsCandidates(app.getenv, home, executableDir())...),
		devenv.WithIO(app.stdin, app.stdout, app.stderr),
	)
}

// fail prints err with its suggestions and troubleshooting page, then
// returns an ExitError so the exit code survives fang.
func (app *App) fail(cmd *cobra.Command, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, app.verbose))

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if page := ae.CatalogIssue(); page != nil {
			if rendered, renderErr := page.Render(""); renderErr == nil {
				fmt.Fprint(app.stderr, rendered)
			}
		}
	}
	return &ExitError{Code: types.ExitFailure, Err: err}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// include their suggestions, and the cause chain in verbose mode.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
