// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/devlayer/devlayer/internal/issue"
	"github.com/devlayer/devlayer/internal/layers"
	"github.com/devlayer/devlayer/pkg/cueutil"

	"gopkg.in/yaml.v3"
)

const (
	// LayersFileName is the layers file looked up among the candidates.
	LayersFileName = ".build_image_layers.yaml"
	// ShellConfigName is the shell common config looked up among the candidates.
	ShellConfigName = ".devlayer-config"
)

type (
	// BuildSettings is the folded image build configuration. Values are
	// immutable once built; Overlay returns a new value.
	BuildSettings struct {
		// KeyOrder is the preference list used to canonicalize image keys.
		KeyOrder layers.Sequence
		// SearchDirs are the definition directories, highest precedence first.
		SearchDirs          []string
		CacheFromRegistries []string
		CacheToRegistries   []string
		// RemoteBuilders maps a platform to a remote buildkit endpoint.
		RemoteBuilders map[string]string
	}

	// BuildLayer is one source of build settings. Nil fields leave the folded
	// value unchanged.
	BuildLayer struct {
		// Source is the declaring file; relative search dirs resolve against
		// its directory, or the working directory when Source is empty.
		Source                 string
		ImageKeyOrder          []string
		DockerSearchDirs       []string
		CacheFromRegistryNames []string
		CacheToRegistryNames   []string
		RemoteBuilder          map[string]string
	}

	// BuildSources lists where LoadBuildSettings reads from. Empty paths and a
	// nil Scoped config are skipped.
	BuildSources struct {
		ShellConfig string
		LayersFile  string
		Scoped      *Config
		// Extra layers are folded last, e.g. a context dir or --search-dir flags.
		Extra []BuildLayer
	}

	layersFile struct {
		ImageKeyOrder          []string          `yaml:"image_key_order"`
		DockerSearchDirs       []string          `yaml:"docker_search_dirs"`
		CacheFromRegistryNames []string          `yaml:"cache_from_registry_names"`
		CacheToRegistryNames   []string          `yaml:"cache_to_registry_names"`
		RemoteBuilder          map[string]string `yaml:"remote_builder"`
	}
)

// RemoteBuilder returns the remote endpoint configured for platform, or "".
func (s BuildSettings) RemoteBuilder(platform string) string {
	return s.RemoteBuilders[platform]
}

// Overlay folds layer onto base. image_key_order and remote_builder replace
// the base value; search dirs and registry lists are prepended with
// duplicates removed from the base part.
func Overlay(base BuildSettings, layer BuildLayer) BuildSettings {
	out := BuildSettings{
		KeyOrder:            slices.Clone(base.KeyOrder),
		SearchDirs:          slices.Clone(base.SearchDirs),
		CacheFromRegistries: slices.Clone(base.CacheFromRegistries),
		CacheToRegistries:   slices.Clone(base.CacheToRegistries),
		RemoteBuilders:      maps.Clone(base.RemoteBuilders),
	}
	if len(layer.ImageKeyOrder) > 0 {
		out.KeyOrder = layers.ParseSequence(layer.ImageKeyOrder[0])
	}
	if layer.DockerSearchDirs != nil {
		dirs := make([]string, len(layer.DockerSearchDirs))
		for i, d := range layer.DockerSearchDirs {
			dirs[i] = resolveDir(layer.Source, d)
		}
		out.SearchDirs = prependUnique(out.SearchDirs, dirs)
	}
	if layer.CacheFromRegistryNames != nil {
		out.CacheFromRegistries = prependUnique(out.CacheFromRegistries, layer.CacheFromRegistryNames)
	}
	if layer.CacheToRegistryNames != nil {
		out.CacheToRegistries = prependUnique(out.CacheToRegistries, layer.CacheToRegistryNames)
	}
	if layer.RemoteBuilder != nil {
		out.RemoteBuilders = maps.Clone(layer.RemoteBuilder)
	}
	return out
}

// NewBuildSettings folds the layers in order onto empty settings.
func NewBuildSettings(stack ...BuildLayer) BuildSettings {
	var s BuildSettings
	for _, l := range stack {
		s = Overlay(s, l)
	}
	return s
}

// BuildLayer exposes the scoped build section as a build layer.
func (c *Config) BuildLayer() BuildLayer {
	b := c.Build
	var l BuildLayer
	if len(b.ImageKeyOrder) > 0 {
		l.ImageKeyOrder = b.ImageKeyOrder
	}
	if len(b.DockerSearchDirs) > 0 {
		l.DockerSearchDirs = b.DockerSearchDirs
	}
	if len(b.CacheFromRegistryNames) > 0 {
		l.CacheFromRegistryNames = b.CacheFromRegistryNames
	}
	if len(b.CacheToRegistryNames) > 0 {
		l.CacheToRegistryNames = b.CacheToRegistryNames
	}
	if len(b.RemoteBuilder) > 0 {
		l.RemoteBuilder = b.RemoteBuilder
	}
	return l
}

// LoadBuildSettings folds the shell common config, the layers file, the
// scoped build section and the extra layers, in that order.
func LoadBuildSettings(ctx context.Context, src BuildSources) (BuildSettings, error) {
	var stack []BuildLayer
	if src.ShellConfig != "" {
		l, err := LoadShellConfig(ctx, src.ShellConfig)
		if err != nil {
			return BuildSettings{}, err
		}
		stack = append(stack, l)
	}
	if src.LayersFile != "" {
		l, err := LoadLayersFile(src.LayersFile)
		if err != nil {
			return BuildSettings{}, err
		}
		stack = append(stack, l)
	}
	if src.Scoped != nil {
		stack = append(stack, src.Scoped.BuildLayer())
	}
	stack = append(stack, src.Extra...)
	return NewBuildSettings(stack...), nil
}

// LoadLayersFile reads a layers YAML file.
func LoadLayersFile(path string) (BuildLayer, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return BuildLayer{}, issue.NewErrorContext().
			WithOperation("load layers file").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithIssue(issue.ConfigNotFoundId).
			Wrap(err).
			BuildError()
	}
	if err != nil {
		return BuildLayer{}, fmt.Errorf("failed to read layers file: %w", err)
	}

	data, err := decodeYAML(raw, path)
	if err == nil {
		err = cueutil.Validate(configSchema, "#Build", data, path)
	}
	var f layersFile
	if err == nil {
		err = yaml.Unmarshal(raw, &f)
	}
	if err != nil {
		return BuildLayer{}, issue.NewErrorContext().
			WithOperation("load layers file").
			WithResource(path).
			WithIssue(issue.InvalidConfigId).
			Wrap(err).
			BuildError()
	}

	return BuildLayer{
		Source:                 path,
		ImageKeyOrder:          f.ImageKeyOrder,
		DockerSearchDirs:       f.DockerSearchDirs,
		CacheFromRegistryNames: f.CacheFromRegistryNames,
		CacheToRegistryNames:   f.CacheToRegistryNames,
		RemoteBuilder:          f.RemoteBuilder,
	}, nil
}

// DefaultCandidates returns the standard lookup locations of name: next to
// the workspace scripts, next to the binary, then under /etc.
func DefaultCandidates(name string, getenv func(string) string, binaryDir string) []string {
	var candidates []string
	if ws := getenv(EnvWorkspace); ws != "" {
		candidates = append(candidates, filepath.Join(ws, "..", "scripts", name))
	}
	if binaryDir != "" {
		candidates = append(candidates, filepath.Join(binaryDir, name))
	}
	return append(candidates, filepath.Join("/etc", AppName, name))
}

// FindFirst returns the first candidate naming an existing regular file.
func FindFirst(candidates []string) (string, bool) {
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, true
		}
	}
	return "", false
}

func resolveDir(source, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	if source != "" {
		base := filepath.Dir(source)
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
		return filepath.Join(base, dir)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func prependUnique(base, prepend []string) []string {
	out := make([]string, 0, len(base)+len(prepend))
	seen := make(map[string]struct{}, len(base)+len(prepend))
	for _, v := range slices.Concat(prepend, base) {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
