// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devlayer/devlayer/internal/issue"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const (
	shellSearchDirsVar = "CONFIG_DOCKER_SEARCH_DIRS"
	shellRegistriesVar = "BASE_DOCKER_REGISTRY_NAMES"

	// exit status reported for commands the sandbox refuses to run.
	deniedExitStatus = 127
)

// LoadShellConfig evaluates a shell common config file and maps
// CONFIG_DOCKER_SEARCH_DIRS to docker_search_dirs and
// BASE_DOCKER_REGISTRY_NAMES to cache_from_registry_names. Both may be bash
// arrays or whitespace-separated strings.
//
// The file runs in an embedded interpreter with external commands disabled,
// so only assignments, builtins and expansions take effect.
func LoadShellConfig(ctx context.Context, path string) (BuildLayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return BuildLayer{}, fmt.Errorf("failed to open shell config: %w", err)
	}
	defer f.Close()

	prog, err := syntax.NewParser().Parse(f, path)
	if err != nil {
		return BuildLayer{}, issue.NewErrorContext().
			WithOperation("parse shell config").
			WithResource(path).
			WithIssue(issue.InvalidConfigId).
			Wrap(err).
			BuildError()
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return BuildLayer{}, err
	}
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, nil, nil),
		interp.ExecHandlers(denyExec),
	)
	if err != nil {
		return BuildLayer{}, fmt.Errorf("failed to create shell interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		if _, ok := interp.IsExitStatus(err); !ok {
			return BuildLayer{}, fmt.Errorf("failed to evaluate shell config %s: %w", path, err)
		}
	}

	layer := BuildLayer{Source: path}
	if v, ok := runner.Vars[shellSearchDirsVar]; ok && v.IsSet() {
		layer.DockerSearchDirs = shellList(v)
	}
	if v, ok := runner.Vars[shellRegistriesVar]; ok && v.IsSet() {
		layer.CacheFromRegistryNames = shellList(v)
	}
	return layer, nil
}

func denyExec(interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(context.Context, []string) error {
		return interp.NewExitStatus(deniedExitStatus)
	}
}

func shellList(v expand.Variable) []string {
	switch v.Kind {
	case expand.Indexed:
		var out []string
		for _, s := range v.List {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return strings.Fields(v.String())
	}
}
