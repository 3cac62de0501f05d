// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Validate unifies data with the named definition of schema and reports
// violations against filename. Non-concrete fields are allowed since every
// configuration key is optional.
func Validate(schema, definition string, data any, filename string) error {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(schema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	def := schemaValue.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("internal error: schema has no %s definition", definition)
	}

	userValue := ctx.Encode(data)
	if userValue.Err() != nil {
		return FormatError(userValue.Err(), filename)
	}

	unified := def.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return FormatError(err, filename)
	}
	return nil
}
