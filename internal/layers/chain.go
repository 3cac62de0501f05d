// SPDX-License-Identifier: MPL-2.0

package layers

import (
	"fmt"
	"slices"
	"strings"
)

// LabelSeparator joins the composite keys of consecutive layers in stage labels.
const LabelSeparator = "-"

// Chain is an ordered list of definitions covering a key sequence exactly.
type Chain struct {
	keys Sequence
	defs []*Definition
}

// NewChain builds a chain, checking that the definitions' composite keys
// concatenate to keys with no gap or overlap.
func NewChain(keys Sequence, defs []*Definition) (*Chain, error) {
	var covered Sequence
	for _, d := range defs {
		covered = append(covered, d.keys...)
	}
	if len(keys) == 0 || !covered.Equal(keys) {
		return nil, fmt.Errorf("%w: want %q, got %q", ErrIncompleteChain, keys.String(), covered.String())
	}
	return &Chain{keys: slices.Clone(keys), defs: slices.Clone(defs)}, nil
}

// Keys returns the sequence the chain covers.
func (c *Chain) Keys() Sequence { return slices.Clone(c.keys) }

// Len returns the number of layers.
func (c *Chain) Len() int { return len(c.defs) }

// Definitions returns the layers in build order.
func (c *Chain) Definitions() []*Definition { return slices.Clone(c.defs) }

// Prefix returns the first n layers.
func (c *Chain) Prefix(n int) []*Definition {
	return slices.Clone(c.defs[:n])
}

// Label joins the composite keys of the first n layers with LabelSeparator.
func (c *Chain) Label(n int) string {
	parts := make([]string, n)
	for i, d := range c.defs[:n] {
		parts[i] = d.Composite()
	}
	return strings.Join(parts, LabelSeparator)
}

// PrefixFingerprint returns the fingerprint of the first n layers.
func (c *Chain) PrefixFingerprint(n int) (Fingerprint, error) {
	return PrefixFingerprint(c.defs[:n]...)
}

// Fingerprint returns the fingerprint of the whole chain.
func (c *Chain) Fingerprint() (Fingerprint, error) {
	return c.PrefixFingerprint(len(c.defs))
}

// String renders one "path" per line.
func (c *Chain) String() string {
	lines := make([]string, len(c.defs))
	for i, d := range c.defs {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
