// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// IsTransientError reports whether err is a docker failure that may succeed on
// retry: registry network errors, overlay storage races and the generic
// daemon exit code 125. Context cancellation is never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// 125: the daemon failed before the container started.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 125 {
		return true
	}

	errStr := err.Error()

	if strings.Contains(errStr, "OCI runtime error") ||
		strings.Contains(errStr, "TLS handshake timeout") ||
		strings.Contains(errStr, "net/http: request canceled while waiting for connection") {
		return true
	}

	// Name resolution and dial failures during pulls.
	if strings.Contains(errStr, "Temporary failure resolving") ||
		strings.Contains(errStr, "Could not resolve host") ||
		strings.Contains(errStr, "connection timed out") ||
		strings.Contains(errStr, "connection refused") {
		return true
	}

	// Overlay storage races.
	if strings.Contains(errStr, "error creating overlay mount") ||
		strings.Contains(errStr, "error mounting layer") {
		return true
	}

	return false
}
