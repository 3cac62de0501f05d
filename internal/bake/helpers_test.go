// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"path/filepath"
	"testing"

	"github.com/devlayer/devlayer/internal/layers"
	"github.com/devlayer/devlayer/internal/testutil"
)

const (
	nobleStage      = "noble_ac755986eb123ee8d1b5479d60507541"
	nobleJazzyStage = "noble-ros2_jazzy_2eaf513b5145437cf5f554cdfa3af9e6"
)

// resolveFixture writes Dockerfile.noble and Dockerfile.ros2_jazzy into a
// temp dir and resolves both keys.
func resolveFixture(t *testing.T) (*layers.Chain, string) {
	t.Helper()
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "Dockerfile.noble"), "FROM ubuntu:24.04\n")
	testutil.MustWriteFile(t, filepath.Join(dir, "Dockerfile.ros2_jazzy"), "ARG BASE_IMAGE\nFROM ${BASE_IMAGE}\n")

	chain, err := layers.NewResolver([]string{dir}).Resolve(layers.Sequence{"noble", "ros2_jazzy"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return chain, dir
}
