// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/devlayer/devlayer/internal/issue"
)

// EngineDocker is the name reported by DockerEngine.
const EngineDocker = "docker"

// DockerEngine implements Engine and BakeEngine using the Docker CLI.
// It embeds BaseCLIEngine for common CLI operations.
type DockerEngine struct {
	*BaseCLIEngine
}

// NewDockerEngine creates a new Docker engine.
func NewDockerEngine(opts ...BaseCLIEngineOption) *DockerEngine {
	path, err := exec.LookPath("docker")
	if err != nil {
		path = "docker"
	}
	opts = append([]BaseCLIEngineOption{WithName(EngineDocker)}, opts...)
	return &DockerEngine{
		BaseCLIEngine: NewBaseCLIEngine(path, opts...),
	}
}

// Name returns the engine name.
func (e *DockerEngine) Name() string {
	return EngineDocker
}

// Ping verifies that the daemon answers "docker ps".
func (e *DockerEngine) Ping(ctx context.Context) error {
	if err := e.RunCommandStatus(ctx, "ps"); err != nil {
		return issue.NewErrorContext().
			WithOperation("contact docker daemon").
			WithSuggestion("Start the docker service (try: sudo systemctl start docker)").
			WithSuggestion("Add your user to the docker group and log in again").
			WithIssue(issue.DockerUnavailableId).
			Wrap(err).
			BuildError()
	}
	return nil
}

// Version returns the Docker server version.
func (e *DockerEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get docker version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Run runs a container and returns the result.
// A non-zero exit code is captured in RunResult.ExitCode (not returned as error).
func (e *DockerEngine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cmd := e.CreateCommand(ctx, e.RunArgs(opts)...)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	result := &RunResult{}
	setExitStatus(result, cmd.Run())
	if result.Error != nil {
		return result, runContainerError(EngineDocker, opts, result.Error)
	}
	return result, nil
}

// Exec runs a command in a running container.
func (e *DockerEngine) Exec(ctx context.Context, containerID string, command []string, opts RunOptions) (*RunResult, error) {
	cmd := e.CreateCommand(ctx, e.ExecArgs(containerID, command, opts)...)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	result := &RunResult{ContainerID: containerID}
	setExitStatus(result, cmd.Run())
	return result, nil
}

// ExecOutput runs command inside containerID and returns its trimmed stdout.
func (e *DockerEngine) ExecOutput(ctx context.Context, containerID string, command ...string) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, append([]string{"exec", containerID}, command...)...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ContainerIDs lists the IDs of containers named exactly name.
func (e *DockerEngine) ContainerIDs(ctx context.Context, name string, status ContainerStatus) ([]string, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}
	out, err := e.RunCommandWithOutput(ctx, e.PsArgs(name, status)...)
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

// Remove removes a container.
func (e *DockerEngine) Remove(ctx context.Context, containerID string, force bool) error {
	return e.RunCommandStatus(ctx, e.RemoveArgs(containerID, force)...)
}

// Commit snapshots a container into image.
func (e *DockerEngine) Commit(ctx context.Context, containerID, image string) error {
	return e.RunCommandStatus(ctx, "commit", containerID, image)
}

// ImageExists checks whether an image is present locally. A failing inspect
// means absent; only infrastructure errors are returned.
func (e *DockerEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	err := e.CreateCommand(ctx, "image", "inspect", image).Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("inspect image %s: %w", image, err)
}

// Pull fetches image, retrying transient engine and network failures.
func (e *DockerEngine) Pull(ctx context.Context, image string) error {
	err := RetryWithBackoff(ctx, e.pullRetry, func(int) (bool, error) {
		err := e.RunCommandStatus(ctx, "pull", image)
		return IsTransientError(err), err
	})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("pull image").
			WithResource(image).
			WithSuggestion("Check that you are logged in to the registry (try: docker login)").
			WithSuggestion("Build the image locally with 'devlayer build'").
			WithIssue(issue.ImageUnavailableId).
			Wrap(err).
			BuildError()
	}
	return nil
}

// Tag adds target as a name for source.
func (e *DockerEngine) Tag(ctx context.Context, source, target string) error {
	return e.RunCommandStatus(ctx, "tag", source, target)
}

// RemoveImage removes an image.
func (e *DockerEngine) RemoveImage(ctx context.Context, image string, force bool) error {
	return e.RunCommandStatus(ctx, e.RemoveImageArgs(image, force)...)
}

var (
	_ Engine     = (*DockerEngine)(nil)
	_ BakeEngine = (*DockerEngine)(nil)
)
