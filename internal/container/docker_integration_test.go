// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

const integrationImage = "alpine:3.20"

// checkTestcontainersAvailable safely checks if testcontainers can be used.
// The provider lookup panics on some hosts without a daemon.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

func TestDockerEngine_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping docker integration tests: testcontainers provider not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	engine := NewDockerEngine()
	if err := engine.Ping(ctx); err != nil {
		t.Skipf("skipping docker integration tests: %v", err)
	}

	name := fmt.Sprintf("devlayer-it-%d", time.Now().UnixNano())
	ctr, err := testcontainers.Run(ctx, integrationImage,
		testcontainers.WithName(name),
		testcontainers.WithCmd("sleep", "300"),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start container: %v", err)
	}

	t.Run("ContainerIDs", func(t *testing.T) {
		ids, err := engine.ContainerIDs(ctx, name, StatusRunning)
		if err != nil {
			t.Fatalf("ContainerIDs() error = %v", err)
		}
		if len(ids) != 1 || !slices.ContainsFunc(ids, func(id string) bool {
			return len(id) >= 12 && ctr.GetContainerID()[:12] == id[:12]
		}) {
			t.Errorf("ContainerIDs() = %v, want %s", ids, ctr.GetContainerID())
		}

		exited, err := engine.ContainerIDs(ctx, name, StatusExited)
		if err != nil {
			t.Fatalf("ContainerIDs(exited) error = %v", err)
		}
		if len(exited) != 0 {
			t.Errorf("ContainerIDs(exited) = %v, want none", exited)
		}
	})

	t.Run("ExecOutput", func(t *testing.T) {
		out, err := engine.ExecOutput(ctx, name, "echo", "from-container")
		if err != nil {
			t.Fatalf("ExecOutput() error = %v", err)
		}
		if out != "from-container" {
			t.Errorf("ExecOutput() = %q", out)
		}
	})

	t.Run("ImageExists", func(t *testing.T) {
		ok, err := engine.ImageExists(ctx, integrationImage)
		if err != nil || !ok {
			t.Errorf("ImageExists(%s) = %v, %v", integrationImage, ok, err)
		}
		ok, err = engine.ImageExists(ctx, "devlayer-never-built:none")
		if err != nil || ok {
			t.Errorf("ImageExists(missing) = %v, %v", ok, err)
		}
	})

	t.Run("Run", func(t *testing.T) {
		res, err := engine.Run(ctx, RunOptions{
			Image:   integrationImage,
			Remove:  true,
			Command: []string{"sh", "-c", "exit 7"},
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.ExitCode != 7 {
			t.Errorf("ExitCode = %d, want 7", res.ExitCode)
		}
	})
}
