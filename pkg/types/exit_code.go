// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitSuccess is returned when every step succeeded.
	ExitSuccess ExitCode = 0
	// ExitFailure is returned for any failure without a more specific code.
	ExitFailure ExitCode = 1
	// ExitUsage is returned for invalid flags or arguments.
	ExitUsage ExitCode = 2
	// ExitEngine is the code docker uses when the daemon fails before the
	// container starts.
	ExitEngine ExitCode = 125
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status in the POSIX range 0-255.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode for errors.Is compatibility.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// FromStatus converts a container shell status into an ExitCode. Statuses
// outside 0-255 wrap the way a POSIX shell reports them; a negative status,
// as returned for a process killed by a signal, maps to ExitFailure.
func FromStatus(status int) ExitCode {
	if status < 0 {
		return ExitFailure
	}
	return ExitCode(status % 256)
}

// Validate returns an error if the ExitCode is outside 0-255.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether the code means success.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// String returns the decimal form.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
