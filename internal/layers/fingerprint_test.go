// SPDX-License-Identifier: MPL-2.0

package layers

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/devlayer/devlayer/internal/testutil"
)

func TestPrefixFingerprint_KnownValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "noble", nobleContent)
	writeDefinition(t, dir, "ros2_jazzy", jazzyContent)

	chain, err := NewResolver([]string{dir}).Resolve(Sequence{"noble", "ros2_jazzy"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	fp1, err := chain.PrefixFingerprint(1)
	if err != nil {
		t.Fatalf("PrefixFingerprint(1) error: %v", err)
	}
	if fp1 != nobleFingerprint {
		t.Errorf("PrefixFingerprint(1) = %s, want %s", fp1, nobleFingerprint)
	}

	whole, err := chain.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() error: %v", err)
	}
	if whole != nobleJazzyFingerprint {
		t.Errorf("Fingerprint() = %s, want %s", whole, nobleJazzyFingerprint)
	}
}

func TestPrefixFingerprint_OrderInsensitive(t *testing.T) {
	t.Parallel()

	first := t.TempDir()
	second := t.TempDir()
	a := NewDefinition(first, Sequence{"noble"})
	b := NewDefinition(second, Sequence{"ros2_jazzy"})
	writeDefinition(t, first, "noble", nobleContent)
	writeDefinition(t, second, "ros2_jazzy", jazzyContent)

	ab, err := PrefixFingerprint(a, b)
	if err != nil {
		t.Fatalf("PrefixFingerprint error: %v", err)
	}
	ba, err := PrefixFingerprint(b, a)
	if err != nil {
		t.Fatalf("PrefixFingerprint error: %v", err)
	}
	if ab != ba {
		t.Errorf("fingerprints differ: %s vs %s", ab, ba)
	}

	// Same files discovered through a different directory layout.
	other := t.TempDir()
	writeDefinition(t, other, "noble", nobleContent)
	writeDefinition(t, other, "ros2_jazzy", jazzyContent)
	rediscovered, err := PrefixFingerprint(NewDefinition(other, Sequence{"ros2_jazzy"}), NewDefinition(other, Sequence{"noble"}))
	if err != nil {
		t.Fatalf("PrefixFingerprint error: %v", err)
	}
	if rediscovered != ab {
		t.Errorf("fingerprint after rediscovery = %s, want %s", rediscovered, ab)
	}
}

func TestPrefixFingerprint_Sensitivity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "noble", nobleContent)
	jazzyPath := writeDefinition(t, dir, "ros2_jazzy", jazzyContent)
	writeDefinition(t, dir, "realsense", realsenseContent)

	seq := Sequence{"noble", "ros2_jazzy", "realsense"}
	fingerprints := func() []Fingerprint {
		t.Helper()
		chain, err := NewResolver([]string{dir}).Resolve(seq)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		out := make([]Fingerprint, chain.Len())
		for i := range out {
			if out[i], err = chain.PrefixFingerprint(i + 1); err != nil {
				t.Fatalf("PrefixFingerprint(%d) error: %v", i+1, err)
			}
		}
		return out
	}

	before := fingerprints()
	testutil.MustWriteFile(t, jazzyPath, jazzyContent+"RUN true\n")
	after := fingerprints()

	if before[0] != after[0] {
		t.Errorf("prefix without the changed layer changed: %s -> %s", before[0], after[0])
	}
	for i := 1; i < len(before); i++ {
		if before[i] == after[i] {
			t.Errorf("prefix %d containing the changed layer kept fingerprint %s", i+1, before[i])
		}
	}
}

func TestDefinition_DigestMemoized(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDefinition(t, dir, "noble", nobleContent)
	def := NewDefinition(dir, Sequence{"noble"})

	first, err := def.Digest()
	if err != nil {
		t.Fatalf("Digest() error: %v", err)
	}
	if first != "0313de7da48e9e959135373c1898201a" {
		t.Errorf("Digest() = %s", first)
	}

	testutil.MustWriteFile(t, path, "changed\n")
	second, err := def.Digest()
	if err != nil {
		t.Fatalf("Digest() error: %v", err)
	}
	if first != second {
		t.Errorf("digest recomputed: %s -> %s", first, second)
	}
}

func TestPrefixFingerprint_ReadFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDefinition(t, dir, "noble", nobleContent)
	chain, err := NewResolver([]string{dir}).Resolve(Sequence{"noble"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, err = chain.Fingerprint()
	if !errors.Is(err, ErrFingerprintRead) {
		t.Fatalf("expected ErrFingerprintRead, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist in chain, got %v", err)
	}
	var fpErr *FingerprintError
	if !errors.As(err, &fpErr) || fpErr.Path != path {
		t.Errorf("expected FingerprintError for %s, got %v", path, err)
	}
}
