// SPDX-License-Identifier: MPL-2.0

package layers

import (
	"crypto/md5" //nolint:gosec // content address for image tags, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Fingerprint is a hex encoded content digest.
type Fingerprint string

// String returns the hex digest.
func (f Fingerprint) String() string { return string(f) }

// PrefixFingerprint returns the fingerprint of a set of definitions.
//
// Definitions are sorted by composite key and each contributes a
// "<digest>  <file name>" line; the fingerprint is the digest of those lines.
// The result does not depend on the order of defs.
func PrefixFingerprint(defs ...*Definition) (Fingerprint, error) {
	sorted := slices.Clone(defs)
	slices.SortStableFunc(sorted, func(a, b *Definition) int {
		return strings.Compare(a.Composite(), b.Composite())
	})

	var manifest strings.Builder
	for _, d := range sorted {
		digest, err := d.Digest()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&manifest, "%s  %s\n", digest, d.FileName())
	}

	sum := md5.Sum([]byte(manifest.String())) //nolint:gosec // see import
	return Fingerprint(hex.EncodeToString(sum[:])), nil
}

func fileDigest(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &FingerprintError{Path: path, Err: err}
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // see import
	if _, err := io.Copy(h, f); err != nil {
		return "", &FingerprintError{Path: path, Err: err}
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}
