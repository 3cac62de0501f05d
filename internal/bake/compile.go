// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"fmt"

	"github.com/devlayer/devlayer/internal/layers"
)

// Options controls Compile.
type Options struct {
	// Platform is "x86_64" or "aarch64". Empty means the host platform.
	Platform string
	// Registry is used for tag derivation. Empty means LocalRegistry.
	Registry string
	// BaseImage overrides BASE_IMAGE of the first stage.
	BaseImage string
	// ContextDir overrides the build context of the final stages. It only
	// applies when FinalImage is set.
	ContextDir string
	// ExtraArgs are merged into every stage; they win over computed args.
	ExtraArgs Args
	// FinalImage requests a retag target producing this image name.
	FinalImage string
}

// StageName returns the target name of the first n layers of chain:
// their labels joined by "-", then "_" and the prefix fingerprint.
func StageName(chain *layers.Chain, n int) (string, error) {
	fp, err := chain.PrefixFingerprint(n)
	if err != nil {
		return "", err
	}
	return chain.Label(n) + "_" + fp.String(), nil
}

// Compile turns a chain into a bake graph with one target per chain prefix.
// An empty chain is rejected with layers.ErrIncompleteChain.
func Compile(chain *layers.Chain, opts Options) (*Graph, error) {
	if chain == nil || chain.Len() == 0 {
		return nil, fmt.Errorf("compile bake graph: %w", layers.ErrIncompleteChain)
	}

	platform := opts.Platform
	if platform == "" {
		platform = HostPlatform()
	}
	fileArch := FileArch(platform)

	registry := opts.Registry
	if registry == "" {
		registry = LocalRegistry
	}

	variables := []Variable{
		{Name: "ARCH", Default: platform},
		{Name: "FILE_ARCH", Default: fileArch},
		{Name: "CACHE_FROM_REGISTRY", Default: registry},
	}

	defs := chain.Definitions()
	targets := make([]Target, 0, len(defs)+1)
	for i, def := range defs {
		name, err := StageName(chain, i+1)
		if err != nil {
			return nil, err
		}

		t := Target{
			Name:       name,
			Context:    def.Dir(),
			Dockerfile: def.FileName(),
			Tags:       []string{StageTag(registry, name, fileArch)},
			Args:       Args{{Key: "PLATFORM", Value: fileArch}},
		}
		if i == 0 {
			if opts.BaseImage != "" {
				t.Args = t.Args.Set("BASE_IMAGE", opts.BaseImage)
			}
		} else {
			prev := targets[i-1]
			t.Args = t.Args.Set("BASE_IMAGE", prev.PrimaryTag())
			t.DependsOn = []string{prev.Name}
		}
		for _, arg := range opts.ExtraArgs {
			t.Args = t.Args.Set(arg.Key, arg.Value)
		}
		targets = append(targets, t)
	}

	if opts.FinalImage != "" {
		last := &targets[len(targets)-1]
		if opts.ContextDir != "" {
			last.Context = opts.ContextDir
		}
		targets = append(targets, Target{
			Name:             FinalTargetName,
			Context:          opts.ContextDir,
			DockerfileInline: "FROM " + last.PrimaryTag(),
			Tags:             []string{opts.FinalImage},
			DependsOn:        []string{last.Name},
		})
	}

	return newGraph(variables, targets), nil
}
