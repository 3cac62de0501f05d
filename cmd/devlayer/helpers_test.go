// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devlayer/devlayer/internal/config"
	"github.com/devlayer/devlayer/internal/container"
	"github.com/devlayer/devlayer/internal/testutil"
	"github.com/devlayer/devlayer/pkg/types"
)

const (
	nobleStage = "noble_ac755986eb123ee8d1b5479d60507541"
	chainPrint = "2eaf513b5145437cf5f554cdfa3af9e6"
)

type (
	// fakeEngine is an in-memory docker daemon. Every image can be pulled.
	fakeEngine struct {
		calls    []string
		running  []string
		exitCode int
		runOpts  *container.RunOptions
	}

	testApp struct {
		app    *App
		engine *fakeEngine
		paths  config.Paths
		stdout *bytes.Buffer
		stderr *bytes.Buffer
		euid   int
		env    map[string]string
	}
)

func (f *fakeEngine) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeEngine) Name() string                            { return "fake" }
func (f *fakeEngine) Ping(context.Context) error              { return nil }
func (f *fakeEngine) Version(context.Context) (string, error) { return "27.0", nil }

func (f *fakeEngine) Run(_ context.Context, opts container.RunOptions) (*container.RunResult, error) {
	f.record("run:" + opts.Image)
	f.runOpts = &opts
	return &container.RunResult{ExitCode: f.exitCode}, nil
}

func (f *fakeEngine) Exec(_ context.Context, id string, _ []string, _ container.RunOptions) (*container.RunResult, error) {
	f.record("exec:" + id)
	return &container.RunResult{ContainerID: id, ExitCode: f.exitCode}, nil
}

func (f *fakeEngine) ExecOutput(context.Context, string, ...string) (string, error) {
	return "/workspaces/devlayer-dev", nil
}

func (f *fakeEngine) Remove(_ context.Context, id string, _ bool) error {
	f.record("rm:" + id)
	return nil
}

func (f *fakeEngine) ContainerIDs(_ context.Context, _ string, status container.ContainerStatus) ([]string, error) {
	if status == container.StatusRunning {
		return f.running, nil
	}
	return nil, nil
}

func (f *fakeEngine) Commit(_ context.Context, id, image string) error {
	f.record("commit:" + id + "->" + image)
	return nil
}

func (f *fakeEngine) ImageExists(context.Context, string) (bool, error) { return true, nil }

func (f *fakeEngine) Pull(_ context.Context, image string) error {
	f.record("pull:" + image)
	return nil
}

func (f *fakeEngine) Tag(context.Context, string, string) error       { return nil }
func (f *fakeEngine) RemoveImage(context.Context, string, bool) error { return nil }
func (f *fakeEngine) CreateBuilder(context.Context, container.BuilderOptions) error {
	return errors.New("unexpected build")
}
func (f *fakeEngine) RemoveBuilder(context.Context, string) error { return nil }
func (f *fakeEngine) Bake(context.Context, container.BakeOptions) error {
	return errors.New("unexpected build")
}

// newTestApp creates an App whose scope files live in a temp dir and whose
// environment is env.
func newTestApp(t *testing.T, env map[string]string) *testApp {
	t.Helper()

	root := t.TempDir()
	ta := &testApp{
		engine: &fakeEngine{},
		paths: config.Paths{
			ReadOnly:  filepath.Join(root, "share", config.ConfigFileName),
			System:    filepath.Join(root, "etc", config.ConfigFileName),
			User:      filepath.Join(root, "user", config.ConfigFileName),
			Workspace: filepath.Join(root, "ws", config.WorkspaceConfigDir, config.ConfigFileName),
		},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		euid:   1000,
		env:    env,
	}
	if ta.env == nil {
		ta.env = map[string]string{}
	}
	ta.app = NewApp(Dependencies{
		Engine:  ta.engine,
		Paths:   ta.paths,
		Getenv:  func(k string) string { return ta.env[k] },
		Geteuid: func() int { return ta.euid },
		Stdin:   strings.NewReader(""),
		Stdout:  ta.stdout,
		Stderr:  ta.stderr,
	})
	return ta
}

func (ta *testApp) execute(args ...string) error {
	root := NewRootCommand(ta.app)
	root.SetArgs(args)
	root.SetOut(ta.stdout)
	root.SetErr(ta.stderr)
	return root.ExecuteContext(context.Background())
}

// writeLayerDir creates the noble and ros2_jazzy layer definitions and
// returns their directory.
func writeLayerDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "Dockerfile.noble"), "FROM ubuntu:24.04\n")
	testutil.MustWriteFile(t, filepath.Join(dir, "Dockerfile.ros2_jazzy"), "ARG BASE_IMAGE\nFROM ${BASE_IMAGE}\n")
	return dir
}

func exitCode(t *testing.T, err error) types.ExitCode {
	t.Helper()
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error %v is not an ExitError", err)
	}
	return exitErr.Code
}
