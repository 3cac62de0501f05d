// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/devlayer/devlayer/internal/issue"
	"github.com/devlayer/devlayer/pkg/cueutil"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ModeUninitialized is the mode of a machine that never ran init.
	ModeUninitialized Mode = "uninitialized"
	// ModeDocker develops inside a Docker container.
	ModeDocker Mode = "docker"

	// PlatformAuto selects the host platform.
	PlatformAuto = "auto"

	envPrefix = "DEVLAYER"
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid environment mode")

type (
	// Mode selects how the development environment is provided.
	Mode string

	// InvalidModeError is returned when a Mode value is not recognized.
	InvalidModeError struct {
		Value Mode
	}

	// Config is the merged configuration of every scope.
	Config struct {
		Environment EnvironmentConfig `mapstructure:"environment" yaml:"environment"`
		Docker      DockerConfig      `mapstructure:"docker" yaml:"docker"`
		Build       BuildConfig       `mapstructure:"build" yaml:"build"`
	}

	// EnvironmentConfig holds machine-level settings written by init.
	EnvironmentConfig struct {
		Mode Mode `mapstructure:"mode" yaml:"mode"`
	}

	// DockerConfig configures the Docker development mode.
	DockerConfig struct {
		Image ImageConfig `mapstructure:"image" yaml:"image"`
		Run   RunConfig   `mapstructure:"run" yaml:"run"`
	}

	// ImageConfig selects the development image.
	ImageConfig struct {
		BaseImageKeys       []string `mapstructure:"base_image_keys" yaml:"base_image_keys"`
		AdditionalImageKeys []string `mapstructure:"additional_image_keys" yaml:"additional_image_keys"`
		// CustomImage, when set, is launched instead of a layered image.
		CustomImage string `mapstructure:"custom_image" yaml:"custom_image"`
	}

	// RunConfig configures the development container.
	RunConfig struct {
		ContainerName  string `mapstructure:"container_name" yaml:"container_name"`
		Platform       string `mapstructure:"platform" yaml:"platform"`
		WorkspaceMount string `mapstructure:"workspace_mount" yaml:"workspace_mount"`
	}

	// BuildConfig mirrors the keys of the layers file.
	BuildConfig struct {
		ImageKeyOrder          []string          `mapstructure:"image_key_order" yaml:"image_key_order"`
		DockerSearchDirs       []string          `mapstructure:"docker_search_dirs" yaml:"docker_search_dirs"`
		CacheFromRegistryNames []string          `mapstructure:"cache_from_registry_names" yaml:"cache_from_registry_names"`
		CacheToRegistryNames   []string          `mapstructure:"cache_to_registry_names" yaml:"cache_to_registry_names"`
		RemoteBuilder          map[string]string `mapstructure:"remote_builder" yaml:"remote_builder"`
	}

	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// Paths lists the file of each scope; empty paths are skipped.
		Paths Paths
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid environment mode %q (valid: uninitialized, docker)", e.Value)
}

// Unwrap returns ErrInvalidMode for errors.Is compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// Modes returns every mode accepted by init.
func Modes() []Mode { return []Mode{ModeUninitialized, ModeDocker} }

// Validate returns an error if the mode is not recognized.
func (m Mode) Validate() error {
	switch m {
	case ModeUninitialized, ModeDocker:
		return nil
	default:
		return &InvalidModeError{Value: m}
	}
}

// String returns the mode name.
func (m Mode) String() string { return string(m) }

// DefaultConfig returns the configuration used when no scope sets a value.
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvironmentConfig{Mode: ModeUninitialized},
		Docker: DockerConfig{
			Image: ImageConfig{
				BaseImageKeys:       []string{"noble", "ros2_jazzy"},
				AdditionalImageKeys: []string{"realsense"},
			},
			Run: RunConfig{
				ContainerName:  "devlayer_dev_container",
				Platform:       PlatformAuto,
				WorkspaceMount: "/workspaces/devlayer-dev",
			},
		},
		Build: BuildConfig{
			ImageKeyOrder:          []string{},
			DockerSearchDirs:       []string{},
			CacheFromRegistryNames: []string{},
			CacheToRegistryNames:   []string{},
			RemoteBuilder:          map[string]string{},
		},
	}
}

// ImageKeys returns the base keys followed by the additional keys.
func (c *Config) ImageKeys() []string {
	keys := make([]string, 0, len(c.Docker.Image.BaseImageKeys)+len(c.Docker.Image.AdditionalImageKeys))
	keys = append(keys, c.Docker.Image.BaseImageKeys...)
	return append(keys, c.Docker.Image.AdditionalImageKeys...)
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// NewProvider creates a configuration provider reading scope files.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested scopes.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return Load(ctx, opts)
}

// Load merges the defaults, every existing scope file and DEVLAYER_*
// environment overrides (DEVLAYER_DOCKER_RUN_PLATFORM sets
// docker.run.platform) into a Config.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, scope := range Scopes() {
		path, err := opts.Paths.For(scope)
		if err != nil {
			continue
		}
		data, err := ReadScopeFile(path)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		if err := v.MergeConfigMap(data); err != nil {
			return nil, fmt.Errorf("failed to merge %s config: %w", scope, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Environment.Mode.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource("environment.mode").
			WithIssue(issue.InvalidConfigId).
			Wrap(err).
			BuildError()
	}
	return &cfg, nil
}

// ReadScopeFile decodes and validates one scope file. A missing file yields
// a nil map and no error.
func ReadScopeFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	data, err := decodeYAML(raw, path)
	if err == nil {
		err = cueutil.Validate(configSchema, "#Config", data, path)
	}
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Check that the file contains valid YAML").
			WithSuggestion("Run 'devlayer config dump' to see the accepted keys").
			WithIssue(issue.InvalidConfigId).
			Wrap(err).
			BuildError()
	}
	return data, nil
}

// decodeYAML parses a YAML mapping and drops null values, which YAML uses
// for keys that are present but unset.
func decodeYAML(raw []byte, path string) (map[string]any, error) {
	if err := cueutil.CheckFileSize(raw, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	pruneNulls(data)
	return data, nil
}

func pruneNulls(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			delete(m, k)
		case map[string]any:
			pruneNulls(val)
		}
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("environment.mode", string(d.Environment.Mode))
	v.SetDefault("docker.image.base_image_keys", d.Docker.Image.BaseImageKeys)
	v.SetDefault("docker.image.additional_image_keys", d.Docker.Image.AdditionalImageKeys)
	v.SetDefault("docker.image.custom_image", d.Docker.Image.CustomImage)
	v.SetDefault("docker.run.container_name", d.Docker.Run.ContainerName)
	v.SetDefault("docker.run.platform", d.Docker.Run.Platform)
	v.SetDefault("docker.run.workspace_mount", d.Docker.Run.WorkspaceMount)
	v.SetDefault("build.image_key_order", d.Build.ImageKeyOrder)
	v.SetDefault("build.docker_search_dirs", d.Build.DockerSearchDirs)
	v.SetDefault("build.cache_from_registry_names", d.Build.CacheFromRegistryNames)
	v.SetDefault("build.cache_to_registry_names", d.Build.CacheToRegistryNames)
	v.SetDefault("build.remote_builder", d.Build.RemoteBuilder)
}
