// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devlayer/devlayer/internal/testutil"
)

func TestUpdate_CreatesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := Paths{System: filepath.Join(dir, "etc", "devlayer", ConfigFileName)}

	overlay, err := SetKey(nil, "environment.mode", "docker")
	if err != nil {
		t.Fatal(err)
	}
	if err := Update(paths, ScopeSystem, overlay); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	info, err := os.Stat(paths.System)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("new file mode = %v, want 0644", info.Mode().Perm())
	}

	cfg, err := Load(context.Background(), LoadOptions{Paths: paths})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Environment.Mode != ModeDocker {
		t.Errorf("Mode = %q, want docker", cfg.Environment.Mode)
	}
}

func TestUpdate_MergesAndPreservesMode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ConfigFileName)
	testutil.MustWriteFile(t, path, "docker:\n  run:\n    container_name: mine\n")
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	paths := Paths{User: path}

	overlay, _ := SetKey(nil, "docker.image.custom_image", "mine_custom:latest")
	if err := Update(paths, ScopeUser, overlay); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600 preserved", info.Mode().Perm())
	}
	content := testutil.MustReadFile(t, path)
	for _, want := range []string{"container_name: mine", "custom_image: mine_custom:latest"} {
		if !strings.Contains(content, want) {
			t.Errorf("file missing %q:\n%s", want, content)
		}
	}
}

func TestUpdate_Rejections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := Paths{
		ReadOnly: filepath.Join(dir, "ro.yaml"),
		User:     filepath.Join(dir, "user.yaml"),
	}
	overlay, _ := SetKey(nil, "environment.mode", "docker")

	if err := Update(paths, ScopeReadOnly, overlay); !errors.Is(err, ErrReadOnlyScope) {
		t.Errorf("Update(read-only) error = %v, want ErrReadOnlyScope", err)
	}
	if err := Update(paths, ScopeWorkspace, overlay); !errors.Is(err, ErrScopeUnavailable) {
		t.Errorf("Update(workspace) error = %v, want ErrScopeUnavailable", err)
	}
	if err := Update(paths, "nope", overlay); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("Update(nope) error = %v, want ErrInvalidScope", err)
	}

	bad, _ := SetKey(nil, "docker.run.platform", "sparc")
	if err := Update(paths, ScopeUser, bad); err == nil {
		t.Error("Update() should reject values the schema refuses")
	}
	if _, err := os.Stat(paths.User); !errors.Is(err, os.ErrNotExist) {
		t.Error("rejected update should not create the file")
	}
}
