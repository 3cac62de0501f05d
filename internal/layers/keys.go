// SPDX-License-Identifier: MPL-2.0

package layers

import (
	"cmp"
	"slices"
	"strings"
)

// CompositeSeparator joins keys inside a composite key and a definition file name.
const CompositeSeparator = "."

type (
	// Key is a single environment key such as "noble" or "ros2_jazzy".
	Key string

	// Sequence is an ordered list of keys without duplicates.
	Sequence []Key
)

// String returns the key as a plain string.
func (k Key) String() string { return string(k) }

// ParseSequence splits a dotted composite key ("a.b.c") into its keys.
// Empty parts are dropped.
func ParseSequence(s string) Sequence {
	var seq Sequence
	for part := range strings.SplitSeq(s, CompositeSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			seq = append(seq, Key(part))
		}
	}
	return seq
}

// KeysFromStrings converts raw values into keys. Each value may itself be a
// dotted composite, in which case it contributes every part.
func KeysFromStrings(values []string) []Key {
	var keys []Key
	for _, v := range values {
		keys = append(keys, ParseSequence(v)...)
	}
	return keys
}

// String returns the dotted composite form of the sequence.
func (s Sequence) String() string {
	return strings.Join(s.Strings(), CompositeSeparator)
}

// Strings returns the keys as plain strings.
func (s Sequence) Strings() []string {
	out := make([]string, len(s))
	for i, k := range s {
		out[i] = string(k)
	}
	return out
}

// Equal reports whether both sequences hold the same keys in the same order.
func (s Sequence) Equal(other Sequence) bool {
	return slices.Equal(s, other)
}

// Order canonicalizes a set of keys into a deterministic Sequence.
//
// Keys listed in preference sort by their position in it and always come
// before unlisted keys. Unlisted keys sort lexicographically. Duplicates are
// dropped, so any permutation of the same set yields the same Sequence.
func Order(keys []Key, preference Sequence) Sequence {
	rank := make(map[Key]int, len(preference))
	for i, k := range preference {
		if _, seen := rank[k]; !seen {
			rank[k] = i
		}
	}

	seq := make(Sequence, 0, len(keys))
	seen := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup || k == "" {
			continue
		}
		seen[k] = struct{}{}
		seq = append(seq, k)
	}

	slices.SortStableFunc(seq, func(a, b Key) int {
		ra, aok := rank[a]
		rb, bok := rank[b]
		switch {
		case aok && bok:
			return cmp.Compare(ra, rb)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return strings.Compare(string(a), string(b))
		}
	})
	return seq
}
