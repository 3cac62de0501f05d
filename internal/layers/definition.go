// SPDX-License-Identifier: MPL-2.0

package layers

import (
	"path/filepath"
	"slices"
	"sync"
)

// DefinitionPrefix is the fixed file name prefix of every layer definition.
const DefinitionPrefix = "Dockerfile."

// Definition is one discovered layer definition file.
//
// The content digest is computed on first use and cached for the lifetime of
// the Definition. A Definition is safe for concurrent use.
type Definition struct {
	keys Sequence
	dir  string

	digestOnce sync.Once
	digest     Fingerprint
	digestErr  error
}

// NewDefinition returns the definition covering keys inside dir. It does not
// touch the filesystem.
func NewDefinition(dir string, keys Sequence) *Definition {
	return &Definition{keys: slices.Clone(keys), dir: dir}
}

// FileName returns the definition file name for a composite key.
func FileName(keys Sequence) string {
	return DefinitionPrefix + keys.String()
}

// Keys returns the composite key covered by the definition.
func (d *Definition) Keys() Sequence { return slices.Clone(d.keys) }

// Composite returns the dotted composite key.
func (d *Definition) Composite() string { return d.keys.String() }

// Dir returns the search directory the definition was found in.
func (d *Definition) Dir() string { return d.dir }

// FileName returns the base name of the definition file.
func (d *Definition) FileName() string { return FileName(d.keys) }

// Path returns the full path of the definition file.
func (d *Definition) Path() string { return filepath.Join(d.dir, d.FileName()) }

// Digest returns the md5 digest of the file content, reading the file only once.
func (d *Definition) Digest() (Fingerprint, error) {
	d.digestOnce.Do(func() {
		d.digest, d.digestErr = fileDigest(d.Path())
	})
	return d.digest, d.digestErr
}

// String returns the definition path.
func (d *Definition) String() string { return d.Path() }
