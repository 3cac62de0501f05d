// SPDX-License-Identifier: MPL-2.0

// Package devenv launches the development container.
//
// A Launcher attaches to a running container of the configured name, or
// makes the environment image available (pulling it, reusing the cached
// tag, or building it) and starts a new interactive container with the
// workspace, display and user shell configuration mounted.
package devenv
