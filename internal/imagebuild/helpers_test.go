// SPDX-License-Identifier: MPL-2.0

package imagebuild

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/devlayer/devlayer/internal/config"
	"github.com/devlayer/devlayer/internal/container"
	"github.com/devlayer/devlayer/internal/layers"
	"github.com/devlayer/devlayer/internal/testutil"
)

const (
	nobleStage      = "noble_ac755986eb123ee8d1b5479d60507541"
	nobleJazzyStage = "noble-ros2_jazzy_2eaf513b5145437cf5f554cdfa3af9e6"
	chainPrint      = "2eaf513b5145437cf5f554cdfa3af9e6"
)

var errBakeFailed = errors.New("bake failed")

type (
	// fakeEngine records buildx calls.
	fakeEngine struct {
		mu        sync.Mutex
		calls     []string
		builders  []container.BuilderOptions
		bakes     []container.BakeOptions
		bakeFiles []string
		failOn    string
	}

	// fakeChecker reports a fixed set of existing tags.
	fakeChecker struct {
		existing map[string]bool
		asked    []string
	}
)

func (f *fakeEngine) CreateBuilder(_ context.Context, opts container.BuilderOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create:"+opts.Name)
	f.builders = append(f.builders, opts)
	return nil
}

func (f *fakeEngine) RemoveBuilder(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "rm:"+name)
	return nil
}

func (f *fakeEngine) Bake(_ context.Context, opts container.BakeOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "bake:"+opts.Target)
	f.bakes = append(f.bakes, opts)
	if data, err := os.ReadFile(opts.File); err == nil {
		f.bakeFiles = append(f.bakeFiles, string(data))
	}
	if opts.Target == f.failOn {
		return errBakeFailed
	}
	return nil
}

func (c *fakeChecker) Exists(_ context.Context, ref string) (bool, error) {
	return c.existing[ref], nil
}

func (c *fakeChecker) ExistingTags(_ context.Context, refs []string) (map[string]bool, error) {
	c.asked = append(c.asked, refs...)
	out := make(map[string]bool)
	for _, r := range refs {
		if c.existing[r] {
			out[r] = true
		}
	}
	return out, nil
}

// writeLayers creates Dockerfile.noble and Dockerfile.ros2_jazzy in a temp
// dir and returns settings searching it.
func writeLayers(t *testing.T) config.BuildSettings {
	t.Helper()
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "Dockerfile.noble"), "FROM ubuntu:24.04\n")
	testutil.MustWriteFile(t, filepath.Join(dir, "Dockerfile.ros2_jazzy"), "ARG BASE_IMAGE\nFROM ${BASE_IMAGE}\n")

	return config.BuildSettings{
		KeyOrder:   layers.Sequence{"noble", "ros2_jazzy"},
		SearchDirs: []string{dir},
	}
}
