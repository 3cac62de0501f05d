// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

const (
	// AppName is the application name used in configuration paths.
	AppName = "devlayer"
	// ConfigFileName is the file name used at every scope.
	ConfigFileName = "config.yaml"
	// WorkspaceConfigDir holds the workspace scope file inside the workspace.
	WorkspaceConfigDir = ".devlayer"

	// EnvWorkspace names the workspace root.
	EnvWorkspace = "DEVLAYER_WS"
	// EnvDir names the host directory mounted into the container.
	EnvDir = "DEVLAYER_DIR"
	// EnvDockerArgsFile names an extra docker-args file.
	EnvDockerArgsFile = "DOCKER_ARGS_FILE"
	// EnvContainerNameSuffix is appended to container and image names.
	EnvContainerNameSuffix = "CONFIG_CONTAINER_NAME_SUFFIX"

	// ScopeReadOnly ships with the distribution and is never written.
	ScopeReadOnly Scope = "read-only"
	// ScopeSystem applies to every user of the machine.
	ScopeSystem Scope = "system"
	// ScopeUser applies to the invoking user.
	ScopeUser Scope = "user"
	// ScopeWorkspace applies to a single workspace checkout.
	ScopeWorkspace Scope = "workspace"
)

var (
	// ErrInvalidScope is the sentinel error wrapped by InvalidScopeError.
	ErrInvalidScope = errors.New("invalid config scope")
	// ErrReadOnlyScope is returned when writing the read-only scope.
	ErrReadOnlyScope = errors.New("config scope is read-only")
	// ErrScopeUnavailable is returned when a scope has no file path, e.g. the
	// workspace scope outside a workspace.
	ErrScopeUnavailable = errors.New("config scope has no file path")
)

type (
	// Scope identifies one configuration file layer.
	Scope string

	// InvalidScopeError is returned when a Scope value is not recognized.
	InvalidScopeError struct {
		Value Scope
	}

	// Paths holds the file path of each scope. An empty path disables the scope.
	Paths struct {
		ReadOnly  string
		System    string
		User      string
		Workspace string
	}
)

// Error implements the error interface.
func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid config scope %q (valid: read-only, system, user, workspace)", e.Value)
}

// Unwrap returns ErrInvalidScope for errors.Is compatibility.
func (e *InvalidScopeError) Unwrap() error { return ErrInvalidScope }

// Scopes returns every scope, lowest precedence first.
func Scopes() []Scope {
	return []Scope{ScopeReadOnly, ScopeSystem, ScopeUser, ScopeWorkspace}
}

// ParseScope converts a flag value into a Scope.
func ParseScope(s string) (Scope, error) {
	scope := Scope(s)
	if err := scope.Validate(); err != nil {
		return "", err
	}
	return scope, nil
}

// Validate returns an error if the scope is not recognized.
func (s Scope) Validate() error {
	switch s {
	case ScopeReadOnly, ScopeSystem, ScopeUser, ScopeWorkspace:
		return nil
	default:
		return &InvalidScopeError{Value: s}
	}
}

// Writable reports whether Update may write the scope.
func (s Scope) Writable() bool { return s != ScopeReadOnly }

// String returns the scope name.
func (s Scope) String() string { return string(s) }

// For returns the file path of scope.
func (p Paths) For(scope Scope) (string, error) {
	var path string
	switch scope {
	case ScopeReadOnly:
		path = p.ReadOnly
	case ScopeSystem:
		path = p.System
	case ScopeUser:
		path = p.User
	case ScopeWorkspace:
		path = p.Workspace
	default:
		return "", &InvalidScopeError{Value: scope}
	}
	if path == "" {
		return "", fmt.Errorf("%w: %s", ErrScopeUnavailable, scope)
	}
	return path, nil
}

// DefaultPaths computes the standard scope locations from the environment.
// The user scope follows XDG_CONFIG_HOME, falling back to ~/.config; the
// workspace scope is only set when DEVLAYER_WS is.
func DefaultPaths(getenv func(string) string) Paths {
	p := Paths{
		ReadOnly: filepath.Join("/usr/share", AppName, ConfigFileName),
		System:   filepath.Join("/etc", AppName, ConfigFileName),
	}
	if dir := ConfigDir(getenv); dir != "" {
		p.User = filepath.Join(dir, ConfigFileName)
	}
	if ws := getenv(EnvWorkspace); ws != "" {
		p.Workspace = filepath.Join(ws, WorkspaceConfigDir, ConfigFileName)
	}
	return p
}

// ConfigDir returns the user configuration directory for devlayer, or "" when
// neither XDG_CONFIG_HOME nor HOME is set.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir(getenv func(string) string) string {
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", AppName)
	}
	return ""
}

// WithUserDir returns a copy of p whose user scope lives in dir.
func (p Paths) WithUserDir(dir string) Paths {
	if dir != "" {
		p.User = filepath.Join(dir, ConfigFileName)
	}
	return p
}
