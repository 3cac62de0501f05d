// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devlayer/devlayer/internal/config"
)

// newConfigCommand creates the `devlayer config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage devlayer configuration",
		Long: `Manage devlayer configuration.

Configuration is merged from four YAML files, lowest precedence first:
  - read-only: /usr/share/devlayer/config.yaml
  - system:    /etc/devlayer/config.yaml
  - user:      $XDG_CONFIG_HOME/devlayer/config.yaml
  - workspace: $DEVLAYER_WS/.devlayer/config.yaml

DEVLAYER_* environment variables override every file
(DEVLAYER_DOCKER_RUN_PLATFORM sets docker.run.platform).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the merged configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := showConfig(cmd, app); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file of every scope",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			showConfigPaths(app)
			return nil
		},
	})

	var scope string
	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in one scope.

The key is a dotted path such as docker.run.platform. The value is read as
YAML, so "[noble, ros2_jazzy]" is a list and "true" a boolean.`,
		Example: `  devlayer config set docker.run.platform aarch64
  devlayer config set docker.image.additional_image_keys "[realsense, zed]"
  sudo devlayer config set --scope system build.docker_search_dirs "[/opt/docker]"`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setConfigValue(app, scope, args[0], args[1]); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}
	setCmd.Flags().StringVar(&scope, "scope", config.ScopeUser.String(), "scope to write: system, user or workspace")
	cfgCmd.AddCommand(setCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the merged configuration as YAML",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			out, err := cfg.YAML()
			if err != nil {
				return app.fail(cmd, err)
			}
			_, err = app.stdout.Write(out)
			return err
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s:\n", keyStyle.Render("environment"))
	fmt.Fprintf(w, "  mode: %s\n", valueStyle.Render(cfg.Environment.Mode.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("docker.image"))
	fmt.Fprintf(w, "  base_image_keys: %s\n", valueStyle.Render(listValue(cfg.Docker.Image.BaseImageKeys)))
	fmt.Fprintf(w, "  additional_image_keys: %s\n", valueStyle.Render(listValue(cfg.Docker.Image.AdditionalImageKeys)))
	if cfg.Docker.Image.CustomImage != "" {
		fmt.Fprintf(w, "  custom_image: %s\n", valueStyle.Render(cfg.Docker.Image.CustomImage))
	} else {
		fmt.Fprintf(w, "  custom_image: %s\n", SubtitleStyle.Render("(none)"))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("docker.run"))
	fmt.Fprintf(w, "  container_name: %s\n", valueStyle.Render(cfg.Docker.Run.ContainerName))
	fmt.Fprintf(w, "  platform: %s\n", valueStyle.Render(cfg.Docker.Run.Platform))
	fmt.Fprintf(w, "  workspace_mount: %s\n", valueStyle.Render(cfg.Docker.Run.WorkspaceMount))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("build"))
	fmt.Fprintf(w, "  image_key_order: %s\n", valueStyle.Render(listValue(cfg.Build.ImageKeyOrder)))
	fmt.Fprintf(w, "  docker_search_dirs: %s\n", valueStyle.Render(listValue(cfg.Build.DockerSearchDirs)))
	fmt.Fprintf(w, "  cache_from_registry_names: %s\n", valueStyle.Render(listValue(cfg.Build.CacheFromRegistryNames)))
	fmt.Fprintf(w, "  cache_to_registry_names: %s\n", valueStyle.Render(listValue(cfg.Build.CacheToRegistryNames)))
	for _, platform := range slices.Sorted(maps.Keys(cfg.Build.RemoteBuilder)) {
		fmt.Fprintf(w, "  remote_builder.%s: %s\n", platform, valueStyle.Render(cfg.Build.RemoteBuilder[platform]))
	}

	return nil
}

func showConfigPaths(app *App) {
	paths := app.paths()
	for _, scope := range config.Scopes() {
		path, err := paths.For(scope)
		switch {
		case err != nil:
			fmt.Fprintf(app.stdout, "%-10s %s\n", scope.String()+":", SubtitleStyle.Render("(not available)"))
		case fileExists(path):
			fmt.Fprintf(app.stdout, "%-10s %s\n", scope.String()+":", path)
		default:
			fmt.Fprintf(app.stdout, "%-10s %s %s\n", scope.String()+":", path, SubtitleStyle.Render("(missing)"))
		}
	}
}

func setConfigValue(app *App, scopeName, key, raw string) error {
	scope, err := config.ParseScope(scopeName)
	if err != nil {
		return err
	}
	value, err := config.ParseValue(raw)
	if err != nil {
		return err
	}
	overlay, err := config.SetKey(nil, key, value)
	if err != nil {
		return err
	}
	if err := config.Update(app.paths(), scope, overlay); err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "%s Set %s = %s (%s)\n", SuccessStyle.Render("✓"), key, raw, scope)
	return nil
}

func listValue(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	return "[" + strings.Join(values, ", ") + "]"
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
