// SPDX-License-Identifier: MPL-2.0

package layers

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolved is the sentinel error wrapped by ResolutionError.
	ErrUnresolved = errors.New("layer definitions unresolved")

	// ErrFingerprintRead is the sentinel error wrapped by FingerprintError.
	ErrFingerprintRead = errors.New("layer definition unreadable")

	// ErrNoKeys is returned when there is nothing to resolve.
	ErrNoKeys = errors.New("no environment keys given")

	// ErrNoSearchDirs is returned when a resolver has no directory to search.
	ErrNoSearchDirs = errors.New("no layer search directories configured")

	// ErrIncompleteChain is returned when definitions do not cover a sequence exactly.
	ErrIncompleteChain = errors.New("layer definitions do not cover the key sequence")
)

type (
	// ResolutionError reports keys that no layer definition could cover.
	ResolutionError struct {
		// Unresolved is the remainder of the sequence at the point of failure.
		Unresolved Sequence
		// SearchDirs lists the directories probed, in priority order.
		SearchDirs []string
		// Resolved holds the definitions matched before the failure. It is
		// diagnostic only; no partial chain is ever returned.
		Resolved []*Definition
	}

	// FingerprintError reports a layer definition whose content could not be read.
	FingerprintError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no layer definition matches %q in [%s]",
		e.Unresolved.String(), strings.Join(e.SearchDirs, ", "))
}

// Unwrap returns ErrUnresolved for errors.Is() compatibility.
func (e *ResolutionError) Unwrap() error { return ErrUnresolved }

// Error implements the error interface.
func (e *FingerprintError) Error() string {
	return fmt.Sprintf("read layer definition %s: %v", e.Path, e.Err)
}

// Unwrap returns both the sentinel and the underlying filesystem error.
func (e *FingerprintError) Unwrap() []error { return []error{ErrFingerprintRead, e.Err} }
