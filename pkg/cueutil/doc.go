// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates decoded configuration data against embedded CUE
// schemas and turns CUE errors into path-prefixed messages.
//
// # Usage
//
//	//go:embed config_schema.cue
//	var schema string
//
//	if err := cueutil.Validate(schema, "#Config", data, "config.yaml"); err != nil {
//	    return err // "config.yaml: docker.run.platform: ..."
//	}
package cueutil
