// SPDX-License-Identifier: MPL-2.0

package config

import (
	_ "embed"
)

//go:embed config_schema.cue
var configSchema string
