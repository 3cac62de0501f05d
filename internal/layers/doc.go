// SPDX-License-Identifier: MPL-2.0

// Package layers resolves environment keys into a chain of layer definitions.
//
// A layer definition is a file named "Dockerfile.<k1>.<k2>..." found in one of
// an ordered list of search directories. Keys are first canonicalized with
// Order, then the Resolver consumes them greedily, always preferring the
// longest composite definition available and, among equal lengths, the first
// search directory. The resulting Chain covers the key sequence exactly.
//
// Definitions carry a memoized md5 digest of their file content. Prefix
// fingerprints combine those digests in composite-key order so they do not
// depend on the order definitions were discovered in.
package layers
