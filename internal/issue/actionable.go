// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError reports a failed operation together with the resource
	// involved, remediation hints and, optionally, the catalogued issue that
	// explains the failure.
	//
	//	return issue.NewErrorContext().
	//		WithOperation("resolve image layers").
	//		WithResource("noble.ros2_jazzy").
	//		WithSuggestion("Run 'devlayer plan --format table' to inspect the chain").
	//		WithIssue(issue.LayerResolutionFailedId).
	//		Wrap(err).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase, printed as "failed to <Operation>".
		Operation string
		// Resource names the file, image or container involved.
		Resource    string
		Suggestions []string
		Cause       error
		// Issue is zero when no troubleshooting page applies.
		Issue Id
	}

	// ErrorContext accumulates the fields of an ActionableError. A context
	// without an operation builds nothing.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext returns an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error for the terminal: the message, one bullet per
// suggestion and, when verbose, the numbered cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		b.WriteByte('\n')
		for _, s := range e.Suggestions {
			b.WriteString("\n  • ")
			b.WriteString(s)
		}
	}
	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		for i, msg := range causeChain(e.Cause) {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, msg)
		}
	}
	return b.String()
}

// CatalogIssue returns the troubleshooting page of the error, or nil.
func (e *ActionableError) CatalogIssue() *Issue {
	if e.Issue == 0 {
		return nil
	}
	return Get(e.Issue)
}

// causeChain lists the messages of err and every error it wraps through
// single-error Unwrap.
func causeChain(err error) []string {
	var chain []string
	for ; err != nil; err = errors.Unwrap(err) {
		chain = append(chain, err.Error())
	}
	return chain
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends one remediation hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

func (c *ErrorContext) WithSuggestions(sugs ...string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sugs...)
	return c
}

// WithIssue links the error to a catalogued troubleshooting page.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns a copy of the accumulated error, or nil without an operation.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &ae
}

// BuildError is Build returning a plain error, so that a missing operation
// yields an untyped nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
