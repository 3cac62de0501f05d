// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"

	"github.com/devlayer/devlayer/internal/issue"
)

// bakeEntitlementsEnv disables the filesystem entitlement prompt newer
// buildx versions show for contexts outside the working directory.
const bakeEntitlementsEnv = "BUILDX_BAKE_ENTITLEMENTS_FS"

// BakeArgs constructs arguments for a buildx bake invocation.
//
// Generated command: <binary> [--debug] buildx bake <target> [options] --file <file>
func (e *BaseCLIEngine) BakeArgs(opts BakeOptions) []string {
	var args []string
	if opts.Debug {
		args = append(args, "--debug")
	}
	args = append(args, "buildx", "bake", opts.Target)
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	args = append(args, "--progress=plain")
	if opts.Builder != "" {
		args = append(args, "--builder", opts.Builder)
	}
	args = append(args, "--provenance=false")
	if opts.Push {
		args = append(args, "--push")
	} else {
		args = append(args, "--load")
	}
	return append(args, "--file", opts.File)
}

// CreateBuilderArgs constructs arguments for buildx create. An endpoint
// selects the remote driver.
func (e *BaseCLIEngine) CreateBuilderArgs(opts BuilderOptions) []string {
	args := []string{"buildx", "create"}
	if opts.Endpoint != "" {
		args = append(args, "--driver", "remote")
	}
	args = append(args, "--name", opts.Name)
	if opts.Endpoint != "" {
		args = append(args, opts.Endpoint)
	}
	return args
}

// CreateBuilder creates a buildx builder.
func (e *DockerEngine) CreateBuilder(ctx context.Context, opts BuilderOptions) error {
	if opts.Name == "" {
		return fmt.Errorf("create builder: empty name")
	}
	if err := e.RunCommandStatus(ctx, e.CreateBuilderArgs(opts)...); err != nil {
		return fmt.Errorf("create builder %s: %w", opts.Name, err)
	}
	return nil
}

// RemoveBuilder removes a buildx builder.
func (e *DockerEngine) RemoveBuilder(ctx context.Context, name string) error {
	return e.RunCommandStatus(ctx, "buildx", "rm", name)
}

// Bake builds one target of a bake file, streaming progress to opts.Stdout
// and opts.Stderr.
func (e *DockerEngine) Bake(ctx context.Context, opts BakeOptions) error {
	cmd := e.CreateCommand(ctx, e.BakeArgs(opts)...)
	setCmdEnv(cmd, bakeEntitlementsEnv, "0")
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		return issue.NewErrorContext().
			WithOperation("bake target "+opts.Target).
			WithResource(opts.File).
			WithSuggestion("Re-run with --verbose to see the full build output").
			WithSuggestion("Retry with --no-cache if a cached layer is stale").
			WithIssue(issue.BuildFailedId).
			Wrap(err).
			BuildError()
	}
	return nil
}
