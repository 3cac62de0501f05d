// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/devlayer/devlayer/internal/issue"
	"github.com/devlayer/devlayer/pkg/cueutil"

	"gopkg.in/yaml.v3"
)

const defaultFileMode fs.FileMode = 0o644

// Update merges overlay into the file of scope and writes it back. The file
// keeps its permission bits; a new file is created with mode 0644 along with
// its parent directories. The read-only scope is rejected.
func Update(paths Paths, scope Scope, overlay map[string]any) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if !scope.Writable() {
		return fmt.Errorf("%w: %s", ErrReadOnlyScope, scope)
	}
	path, err := paths.For(scope)
	if err != nil {
		return err
	}

	existing := map[string]any{}
	mode := defaultFileMode
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if existing, err = decodeYAML(raw, path); err != nil {
			return err
		}
		if info, statErr := os.Stat(path); statErr == nil {
			mode = info.Mode().Perm()
		}
	case !errors.Is(err, os.ErrNotExist):
		return permissionAware(path, err)
	}

	merged := Merge(existing, overlay)
	if err := cueutil.Validate(configSchema, "#Config", merged, path); err != nil {
		return issue.NewErrorContext().
			WithOperation("update configuration").
			WithResource(path).
			WithIssue(issue.InvalidConfigId).
			Wrap(err).
			BuildError()
	}

	out, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return permissionAware(path, err)
	}
	if err := os.WriteFile(path, out, mode); err != nil {
		return permissionAware(path, err)
	}
	return nil
}

func permissionAware(path string, err error) error {
	if !errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return issue.NewErrorContext().
		WithOperation("write configuration").
		WithResource(path).
		WithSuggestion("Re-run the command with sudo").
		WithIssue(issue.PermissionDeniedId).
		Wrap(err).
		BuildError()
}
