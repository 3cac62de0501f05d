// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/devlayer/devlayer/internal/issue"
)

// execCommand creates commands when no engine-level function is injected.
// Tests swap it through withMockExecCommand.
var execCommand ExecCommandFunc = exec.CommandContext

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the argument builders and command execution
	// shared by CLI-based engines.
	BaseCLIEngine struct {
		name            string // engine name for error messages
		binaryPath      string
		execCommand     ExecCommandFunc
		cmdEnvOverrides map[string]string
		pullRetry       RetryPolicy
	}
)

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithCmdEnvOverride adds an environment variable applied to every command
// the engine creates, e.g. DOCKER_HOST.
func WithCmdEnvOverride(key, value string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		if e.cmdEnvOverrides == nil {
			e.cmdEnvOverrides = make(map[string]string)
		}
		e.cmdEnvOverrides[key] = value
	}
}

// WithPullRetry overrides DefaultPullRetry.
func WithPullRetry(p RetryPolicy) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.pullRetry = p
	}
}

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{binaryPath: binaryPath, pullRetry: DefaultPullRetry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name used in error messages.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// --- Argument Builders ---

// RunArgs constructs arguments for a container run command.
//
// Generated command: <binary> run [options] [extra args] <image> [command...]
func (e *BaseCLIEngine) RunArgs(opts RunOptions) []string {
	args := []string{"run"}

	if opts.Interactive {
		args = append(args, "-i")
	}
	if opts.TTY {
		args = append(args, "-t")
	}
	if opts.Remove {
		args = append(args, "--rm")
	}
	if opts.Privileged {
		args = append(args, "--privileged")
	}
	if opts.Network != "" {
		args = append(args, "--network", opts.Network)
	}
	if opts.IPC != "" {
		args = append(args, "--ipc="+opts.IPC)
	}
	if opts.PID != "" {
		args = append(args, "--pid="+opts.PID)
	}
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}
	for _, v := range opts.Volumes {
		args = append(args, "-v", v.String())
	}
	for _, g := range opts.GroupAdd {
		args = append(args, "--group-add", g)
	}
	args = append(args, opts.ExtraArgs...)
	if opts.WorkDir != "" {
		args = append(args, "--workdir", opts.WorkDir)
	}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	if opts.User != "" {
		args = append(args, "-u", opts.User)
	}
	if opts.Runtime != "" {
		args = append(args, "--runtime", opts.Runtime)
	}
	if opts.Entrypoint != "" {
		args = append(args, "--entrypoint", opts.Entrypoint)
	}

	args = append(args, opts.Image)
	return append(args, opts.Command...)
}

// ExecArgs constructs arguments for a container exec command.
//
// Generated command: <binary> exec [options] <container> <command...>
func (e *BaseCLIEngine) ExecArgs(containerID string, command []string, opts RunOptions) []string {
	args := []string{"exec"}

	if opts.Interactive {
		args = append(args, "-i")
	}
	if opts.TTY {
		args = append(args, "-t")
	}
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}
	if opts.User != "" {
		args = append(args, "-u", opts.User)
	}
	if opts.WorkDir != "" {
		args = append(args, "--workdir", opts.WorkDir)
	}

	args = append(args, containerID)
	return append(args, command...)
}

// PsArgs constructs arguments listing the IDs of containers named name.
func (e *BaseCLIEngine) PsArgs(name string, status ContainerStatus) []string {
	args := []string{"ps", "-a", "--quiet"}
	if status != "" {
		args = append(args, "--filter", "status="+string(status))
	}
	return append(args, "--filter", "name=^"+name+"$")
}

// RemoveArgs constructs arguments for a container remove command.
func (e *BaseCLIEngine) RemoveArgs(containerID string, force bool) []string {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	return append(args, containerID)
}

// RemoveImageArgs constructs arguments for an image remove command.
func (e *BaseCLIEngine) RemoveImageArgs(image string, force bool) []string {
	args := []string{"rmi"}
	if force {
		args = append(args, "-f")
	}
	return append(args, image)
}

// --- Command Execution ---

// RunCommand executes a command and returns its output.
func (e *BaseCLIEngine) RunCommand(ctx context.Context, args ...string) ([]byte, error) {
	cmd := e.CreateCommand(ctx, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return out, nil
}

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return out.String(), nil
}

// CreateCommand creates an exec.Cmd for the given arguments with the
// engine-level environment overrides applied.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	fn := e.execCommand
	if fn == nil {
		fn = execCommand
	}
	cmd := fn(ctx, e.binaryPath, args...)
	for k, v := range e.cmdEnvOverrides {
		setCmdEnv(cmd, k, v)
	}
	return cmd
}

// setCmdEnv adds key=value to the command environment. A nil Env means
// "inherit everything", so it is seeded from the current process first.
func setCmdEnv(cmd *exec.Cmd, key, value string) {
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env, key+"="+value)
}

func setExitStatus(result *RunResult, err error) {
	if err == nil {
		return
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return
	}
	result.ExitCode = 1
	result.Error = err
}

// runContainerError creates an actionable error for container run failures.
func runContainerError(engine string, opts RunOptions, cause error) error {
	return issue.NewErrorContext().
		WithOperation("run container").
		WithResource(opts.Image).
		WithSuggestion("Verify the image exists (try: " + engine + " images)").
		WithSuggestion("Check that volume mount paths exist on the host").
		Wrap(cause).
		BuildError()
}
