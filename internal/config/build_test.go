// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/devlayer/devlayer/internal/issue"
	"github.com/devlayer/devlayer/internal/layers"
	"github.com/devlayer/devlayer/internal/testutil"
)

func TestOverlay(t *testing.T) {
	t.Parallel()

	base := NewBuildSettings(BuildLayer{
		Source:                 "/etc/devlayer/.build_image_layers.yaml",
		ImageKeyOrder:          []string{"noble.ros2_jazzy"},
		DockerSearchDirs:       []string{"docker", "/opt/shared"},
		CacheFromRegistryNames: []string{"nvcr.io/team", "ghcr.io/org"},
		RemoteBuilder:          map[string]string{"x86_64": "tcp://a:1"},
	})

	got := Overlay(base, BuildLayer{
		Source:                 "/ws/scripts/.build_image_layers.yaml",
		ImageKeyOrder:          []string{"jammy.humble.realsense", "ignored"},
		DockerSearchDirs:       []string{"../docker", "/opt/shared"},
		CacheFromRegistryNames: []string{"ghcr.io/org"},
		CacheToRegistryNames:   []string{"ghcr.io/push"},
		RemoteBuilder:          map[string]string{"aarch64": "tcp://b:1"},
	})

	wantOrder := layers.Sequence{"jammy", "humble", "realsense"}
	if !got.KeyOrder.Equal(wantOrder) {
		t.Errorf("KeyOrder = %v, want %v", got.KeyOrder, wantOrder)
	}
	wantDirs := []string{"/ws/docker", "/opt/shared", "/etc/devlayer/docker"}
	if !slices.Equal(got.SearchDirs, wantDirs) {
		t.Errorf("SearchDirs = %v, want %v", got.SearchDirs, wantDirs)
	}
	if want := []string{"ghcr.io/org", "nvcr.io/team"}; !slices.Equal(got.CacheFromRegistries, want) {
		t.Errorf("CacheFromRegistries = %v, want %v", got.CacheFromRegistries, want)
	}
	if want := []string{"ghcr.io/push"}; !slices.Equal(got.CacheToRegistries, want) {
		t.Errorf("CacheToRegistries = %v, want %v", got.CacheToRegistries, want)
	}
	if got.RemoteBuilder("aarch64") != "tcp://b:1" || got.RemoteBuilder("x86_64") != "" {
		t.Errorf("RemoteBuilders should be replaced, got %v", got.RemoteBuilders)
	}

	// base is immutable
	if base.RemoteBuilder("x86_64") != "tcp://a:1" || len(base.SearchDirs) != 2 {
		t.Errorf("Overlay() modified base: %+v", base)
	}
}

func TestOverlay_NilFieldsKeepBase(t *testing.T) {
	t.Parallel()

	base := NewBuildSettings(BuildLayer{
		ImageKeyOrder:        []string{"noble"},
		RemoteBuilder:        map[string]string{"x86_64": "tcp://a:1"},
		CacheToRegistryNames: []string{"r"},
	})
	got := Overlay(base, BuildLayer{Source: "/somewhere/file"})
	if !got.KeyOrder.Equal(base.KeyOrder) || got.RemoteBuilder("x86_64") != "tcp://a:1" {
		t.Errorf("Overlay() with empty layer changed settings: %+v", got)
	}
	if !slices.Equal(got.CacheToRegistries, []string{"r"}) {
		t.Errorf("CacheToRegistries = %v", got.CacheToRegistries)
	}
}

func TestLoadLayersFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "scripts", LayersFileName)
	testutil.MustWriteFile(t, path, `image_key_order:
  - noble.ros2_jazzy.realsense
docker_search_dirs:
  - ../docker
cache_from_registry_names:
  - nvcr.io/team/dev
remote_builder:
  x86_64: tcp://builder:1234
`)

	l, err := LoadLayersFile(path)
	if err != nil {
		t.Fatalf("LoadLayersFile() error = %v", err)
	}
	s := NewBuildSettings(l)
	if want := []string{filepath.Join(dir, "docker")}; !slices.Equal(s.SearchDirs, want) {
		t.Errorf("SearchDirs = %v, want %v", s.SearchDirs, want)
	}
	if s.KeyOrder.String() != "noble.ros2_jazzy.realsense" {
		t.Errorf("KeyOrder = %v", s.KeyOrder)
	}
	if s.RemoteBuilder("x86_64") != "tcp://builder:1234" {
		t.Errorf("RemoteBuilder(x86_64) = %q", s.RemoteBuilder("x86_64"))
	}
}

func TestLoadLayersFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadLayersFile(filepath.Join(t.TempDir(), "missing.yaml"))
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.ConfigNotFoundId {
		t.Errorf("missing file error = %v, want ConfigNotFound", err)
	}

	path := filepath.Join(t.TempDir(), LayersFileName)
	testutil.MustWriteFile(t, path, "docker_search_dir: [docker]\n")
	_, err = LoadLayersFile(path)
	if !errors.As(err, &ae) || ae.Issue != issue.InvalidConfigId {
		t.Errorf("unknown key error = %v, want InvalidConfig", err)
	}
}

func TestLoadBuildSettings_Order(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	shellPath := filepath.Join(dir, "shell", ShellConfigName)
	testutil.MustWriteFile(t, shellPath, "CONFIG_DOCKER_SEARCH_DIRS=(from_shell)\nBASE_DOCKER_REGISTRY_NAMES=shell.io/r\n")
	layersPath := filepath.Join(dir, "layers", LayersFileName)
	testutil.MustWriteFile(t, layersPath, "docker_search_dirs: [from_layers]\ncache_from_registry_names: [layers.io/r]\n")

	scoped := DefaultConfig()
	scoped.Build.DockerSearchDirs = []string{"/abs/from_scoped"}
	scoped.Build.ImageKeyOrder = []string{"noble.ros2_jazzy"}

	s, err := LoadBuildSettings(context.Background(), BuildSources{
		ShellConfig: shellPath,
		LayersFile:  layersPath,
		Scoped:      scoped,
		Extra:       []BuildLayer{{DockerSearchDirs: []string{"/ctx"}}},
	})
	if err != nil {
		t.Fatalf("LoadBuildSettings() error = %v", err)
	}

	wantDirs := []string{
		"/ctx",
		"/abs/from_scoped",
		filepath.Join(dir, "layers", "from_layers"),
		filepath.Join(dir, "shell", "from_shell"),
	}
	if !slices.Equal(s.SearchDirs, wantDirs) {
		t.Errorf("SearchDirs = %v, want %v", s.SearchDirs, wantDirs)
	}
	if want := []string{"layers.io/r", "shell.io/r"}; !slices.Equal(s.CacheFromRegistries, want) {
		t.Errorf("CacheFromRegistries = %v, want %v", s.CacheFromRegistries, want)
	}
	if s.KeyOrder.String() != "noble.ros2_jazzy" {
		t.Errorf("KeyOrder = %v", s.KeyOrder)
	}
}

func TestConfig_BuildLayerSkipsEmpty(t *testing.T) {
	t.Parallel()

	l := DefaultConfig().BuildLayer()
	if l.DockerSearchDirs != nil || l.RemoteBuilder != nil || l.ImageKeyOrder != nil {
		t.Errorf("default config should contribute nothing, got %+v", l)
	}
}

func TestCandidates(t *testing.T) {
	t.Parallel()

	ws := t.TempDir()
	binDir := t.TempDir()
	env := mapEnv(map[string]string{EnvWorkspace: filepath.Join(ws, "ws")})

	candidates := DefaultCandidates(LayersFileName, env, binDir)
	want := []string{
		filepath.Join(ws, "ws", "..", "scripts", LayersFileName),
		filepath.Join(binDir, LayersFileName),
		filepath.Join("/etc", "devlayer", LayersFileName),
	}
	if !slices.Equal(candidates, want) {
		t.Fatalf("DefaultCandidates() = %v, want %v", candidates, want)
	}

	if _, ok := FindFirst(candidates[:2]); ok {
		t.Error("FindFirst() should report no match when nothing exists")
	}

	testutil.MustWriteFile(t, candidates[1], "{}\n")
	testutil.MustMkdirAll(t, candidates[0], 0o755) // a directory is not a match
	got, ok := FindFirst(candidates[:2])
	if !ok || got != candidates[1] {
		t.Errorf("FindFirst() = %q, %v, want %q", got, ok, candidates[1])
	}
}
