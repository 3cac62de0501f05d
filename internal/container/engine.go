// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	// StatusRunning filters running containers.
	StatusRunning ContainerStatus = "running"
	// StatusExited filters stopped containers.
	StatusExited ContainerStatus = "exited"

	// MountModeDefault leaves the engine default.
	MountModeDefault MountMode = ""
	// MountModeReadOnly mounts read-only.
	MountModeReadOnly MountMode = "ro"
	// MountModeReadWrite mounts read-write explicitly.
	MountModeReadWrite MountMode = "rw"
)

var (
	// ErrInvalidContainerStatus is the sentinel error wrapped by InvalidContainerStatusError.
	ErrInvalidContainerStatus = errors.New("invalid container status")
	// ErrInvalidMountMode is the sentinel error wrapped by InvalidMountModeError.
	ErrInvalidMountMode = errors.New("invalid mount mode")
	// ErrInvalidVolumeMount is returned for mounts missing a host or container path.
	ErrInvalidVolumeMount = errors.New("invalid volume mount")
)

type (
	// Engine is the set of container operations the launcher needs.
	Engine interface {
		// Name returns the engine name.
		Name() string
		// Ping verifies that the daemon answers.
		Ping(ctx context.Context) error
		// Version returns the server version.
		Version(ctx context.Context) (string, error)

		// Run runs a container. A non-zero exit is reported in RunResult.
		Run(ctx context.Context, opts RunOptions) (*RunResult, error)
		// Exec runs a command inside a running container.
		Exec(ctx context.Context, containerID string, command []string, opts RunOptions) (*RunResult, error)
		// ExecOutput runs a command inside a container and returns its stdout.
		ExecOutput(ctx context.Context, containerID string, command ...string) (string, error)
		// Remove removes a container.
		Remove(ctx context.Context, containerID string, force bool) error
		// ContainerIDs lists containers named name, optionally filtered by status.
		ContainerIDs(ctx context.Context, name string, status ContainerStatus) ([]string, error)
		// Commit snapshots a container into an image.
		Commit(ctx context.Context, containerID, image string) error

		// ImageExists reports whether the image is present locally.
		ImageExists(ctx context.Context, image string) (bool, error)
		// Pull fetches an image, retrying transient failures.
		Pull(ctx context.Context, image string) error
		// Tag adds target as a name for source.
		Tag(ctx context.Context, source, target string) error
		// RemoveImage removes an image.
		RemoveImage(ctx context.Context, image string, force bool) error
	}

	// BakeEngine runs buildx bake builds.
	BakeEngine interface {
		// CreateBuilder creates a buildx builder.
		CreateBuilder(ctx context.Context, opts BuilderOptions) error
		// RemoveBuilder removes a buildx builder.
		RemoveBuilder(ctx context.Context, name string) error
		// Bake builds one target of a bake file.
		Bake(ctx context.Context, opts BakeOptions) error
	}

	// ContainerStatus is a docker ps status filter value.
	ContainerStatus string

	// InvalidContainerStatusError is returned for an unknown ContainerStatus.
	InvalidContainerStatusError struct {
		Value ContainerStatus
	}

	// MountMode is the access option appended to a volume spec.
	MountMode string

	// InvalidMountModeError is returned for an unknown MountMode.
	InvalidMountModeError struct {
		Value MountMode
	}

	// VolumeMount is a bind mount of a host path into the container.
	VolumeMount struct {
		HostPath      string
		ContainerPath string
		Mode          MountMode
	}

	// RunOptions contains options for running a container or exec'ing into one.
	RunOptions struct {
		// Image is the image to run
		Image string
		// Command is the command to run
		Command []string
		// Name is the container name
		Name string
		// WorkDir is the working directory inside the container
		WorkDir string
		// User runs the process as this user
		User string
		// Env entries are KEY=VALUE, or KEY to pass the host value through.
		Env []string
		// Volumes are bind mounts
		Volumes []VolumeMount
		// GroupAdd adds supplementary groups
		GroupAdd []string
		// Network, IPC and PID select namespaces, e.g. "host".
		Network string
		IPC     string
		PID     string
		// Runtime selects the OCI runtime, e.g. "nvidia".
		Runtime string
		// Entrypoint overrides the image entrypoint.
		Entrypoint string
		// ExtraArgs are passed verbatim before the image.
		ExtraArgs []string

		Remove      bool
		Privileged  bool
		Interactive bool
		TTY         bool

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// RunResult contains the result of running a container
	RunResult struct {
		ContainerID string
		ExitCode    int
		// Error is set for infrastructure failures such as a missing binary.
		Error error
	}

	// BuilderOptions describes a buildx builder.
	BuilderOptions struct {
		Name string
		// Endpoint selects the remote driver when set.
		Endpoint string
	}

	// BakeOptions describes one bake invocation.
	BakeOptions struct {
		File    string
		Target  string
		Builder string
		NoCache bool
		// Push pushes the result; otherwise it is loaded into the local store.
		Push   bool
		Debug  bool
		Stdout io.Writer
		Stderr io.Writer
	}
)

// Error implements the error interface.
func (e *InvalidContainerStatusError) Error() string {
	return fmt.Sprintf("invalid container status %q", e.Value)
}

// Unwrap returns ErrInvalidContainerStatus for errors.Is compatibility.
func (e *InvalidContainerStatusError) Unwrap() error { return ErrInvalidContainerStatus }

// Validate returns an error for anything but "", running or exited.
func (s ContainerStatus) Validate() error {
	switch s {
	case "", StatusRunning, StatusExited:
		return nil
	default:
		return &InvalidContainerStatusError{Value: s}
	}
}

// Error implements the error interface.
func (e *InvalidMountModeError) Error() string {
	return fmt.Sprintf("invalid mount mode %q (valid: ro, rw)", e.Value)
}

// Unwrap returns ErrInvalidMountMode for errors.Is compatibility.
func (e *InvalidMountModeError) Unwrap() error { return ErrInvalidMountMode }

// Validate returns an error for an unknown mode.
func (m MountMode) Validate() error {
	switch m {
	case MountModeDefault, MountModeReadOnly, MountModeReadWrite:
		return nil
	default:
		return &InvalidMountModeError{Value: m}
	}
}

// Validate checks both paths and the mode.
func (v VolumeMount) Validate() error {
	if v.HostPath == "" || v.ContainerPath == "" {
		return fmt.Errorf("%w: %q", ErrInvalidVolumeMount, v.String())
	}
	return v.Mode.Validate()
}

// String returns the -v form host:container[:mode].
func (v VolumeMount) String() string {
	s := v.HostPath + ":" + v.ContainerPath
	if v.Mode != MountModeDefault {
		s += ":" + string(v.Mode)
	}
	return s
}

// Validate checks every volume mount.
func (o RunOptions) Validate() error {
	var errs []error
	for _, v := range o.Volumes {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
