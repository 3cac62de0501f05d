// SPDX-License-Identifier: MPL-2.0

package imagebuild

import (
	"strings"

	"github.com/devlayer/devlayer/internal/bake"
	"github.com/devlayer/devlayer/internal/config"
	"github.com/devlayer/devlayer/internal/layers"
)

type (
	// Request describes one build.
	Request struct {
		// Keys is the unordered set of environment keys. Entries may hold
		// several dot-separated keys.
		Keys []string
		// ImageName requests a final retag target producing this image.
		ImageName string
		// BuildArgs are added to every stage.
		BuildArgs bake.Args
		// Platform is "x86_64" or "aarch64"; empty means the host.
		Platform string
		// Registry overrides the first configured cache-from registry.
		Registry   string
		BaseImage  string
		ContextDir string

		NoCache           bool
		SkipRegistryCheck bool
		BuildLocal        bool
		Push              bool
	}

	// Plan is a resolved and compiled build.
	Plan struct {
		Keys     layers.Sequence
		Chain    *layers.Chain
		Graph    *bake.Graph
		Platform string
		Registry string
	}
)

// ParseBuildArgs turns KEY=VALUE strings into ordered Args. Entries without
// "=" are ignored; later keys override earlier ones.
func ParseBuildArgs(values []string) bake.Args {
	var args bake.Args
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			continue
		}
		args = args.Set(key, value)
	}
	return args
}

// Registry returns the registry used for stage tags: override, else the
// first cache-from registry, else bake.LocalRegistry.
func Registry(settings config.BuildSettings, override string) string {
	if override != "" {
		return override
	}
	if len(settings.CacheFromRegistries) > 0 {
		return settings.CacheFromRegistries[0]
	}
	return bake.LocalRegistry
}

// ImageName returns the development image name for chain:
// the keys joined by "-", an optional "-suffix", then "_", the whole-chain
// fingerprint and the file architecture, placed in registry.
func ImageName(chain *layers.Chain, registry, suffix, platform string) (string, error) {
	fp, err := chain.Fingerprint()
	if err != nil {
		return "", err
	}
	base := strings.Join(chain.Keys().Strings(), "-")
	if suffix != "" {
		base += "-" + suffix
	}
	if platform == "" {
		platform = bake.HostPlatform()
	}
	return bake.ImageRef(registry, base+"_"+fp.String()+"-"+bake.FileArch(platform)), nil
}
