// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/devlayer/devlayer/internal/issue"
)

func TestBaseCLIEngine_BakeArgs(t *testing.T) {
	t.Parallel()

	engine := NewBaseCLIEngine("docker")

	tests := []struct {
		name string
		opts BakeOptions
		want []string
	}{
		{
			name: "load locally",
			opts: BakeOptions{File: "/tmp/plan.hcl", Target: "final_target", Builder: "devlayer-x86_64"},
			want: []string{
				"buildx", "bake", "final_target", "--progress=plain",
				"--builder", "devlayer-x86_64", "--provenance=false", "--load",
				"--file", "/tmp/plan.hcl",
			},
		},
		{
			name: "push without cache in debug",
			opts: BakeOptions{File: "p.hcl", Target: "noble", Builder: "b", NoCache: true, Push: true, Debug: true},
			want: []string{
				"--debug", "buildx", "bake", "noble", "--no-cache", "--progress=plain",
				"--builder", "b", "--provenance=false", "--push", "--file", "p.hcl",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := engine.BakeArgs(tt.opts); !slices.Equal(got, tt.want) {
				t.Errorf("BakeArgs() =\n  %v\nwant\n  %v", got, tt.want)
			}
		})
	}
}

func TestBaseCLIEngine_CreateBuilderArgs(t *testing.T) {
	t.Parallel()

	engine := NewBaseCLIEngine("docker")

	local := engine.CreateBuilderArgs(BuilderOptions{Name: "devlayer-aarch64"})
	if !slices.Equal(local, []string{"buildx", "create", "--name", "devlayer-aarch64"}) {
		t.Errorf("local builder args = %v", local)
	}

	remote := engine.CreateBuilderArgs(BuilderOptions{Name: "devlayer-aarch64", Endpoint: "tcp://arm-builder:1234"})
	want := []string{"buildx", "create", "--driver", "remote", "--name", "devlayer-aarch64", "tcp://arm-builder:1234"}
	if !slices.Equal(remote, want) {
		t.Errorf("remote builder args = %v, want %v", remote, want)
	}
}

func TestDockerEngine_Bake(t *testing.T) {
	t.Parallel()

	t.Run("disables the fs entitlement prompt", func(t *testing.T) {
		t.Parallel()
		engine, recorder := newMockDocker(t)
		recorder.EchoEnv = bakeEntitlementsEnv

		var out bytes.Buffer
		err := engine.Bake(context.Background(), BakeOptions{File: "p.hcl", Target: "final_target", Stdout: &out})
		if err != nil {
			t.Fatalf("Bake() error = %v", err)
		}
		if out.String() != bakeEntitlementsEnv+"=0" {
			t.Errorf("helper saw %q", out.String())
		}
	})

	t.Run("failure carries the build issue", func(t *testing.T) {
		t.Parallel()
		engine, recorder := newMockDocker(t)
		recorder.ExitCode = 1

		err := engine.Bake(context.Background(), BakeOptions{File: "p.hcl", Target: "noble"})
		var ae *issue.ActionableError
		if !errors.As(err, &ae) || ae.Issue != issue.BuildFailedId {
			t.Fatalf("Bake() error = %v, want BuildFailedId", err)
		}
	})
}

func TestDockerEngine_Builders(t *testing.T) {
	t.Parallel()

	engine, recorder := newMockDocker(t)
	ctx := context.Background()

	if err := engine.CreateBuilder(ctx, BuilderOptions{}); err == nil {
		t.Error("CreateBuilder() with empty name should fail")
	}
	recorder.AssertInvocationCount(t, 0)

	if err := engine.CreateBuilder(ctx, BuilderOptions{Name: "b"}); err != nil {
		t.Fatalf("CreateBuilder() error = %v", err)
	}
	if err := engine.RemoveBuilder(ctx, "b"); err != nil {
		t.Fatalf("RemoveBuilder() error = %v", err)
	}
	if !slices.Equal(recorder.LastArgs(), []string{"buildx", "rm", "b"}) {
		t.Errorf("RemoveBuilder args = %v", recorder.LastArgs())
	}
	recorder.AssertInvocationCount(t, 2)
}
