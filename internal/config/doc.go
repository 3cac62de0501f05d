// SPDX-License-Identifier: MPL-2.0

// Package config handles devlayer configuration.
//
// Settings live in YAML files at four scopes (read-only, system, user and
// workspace) that are deep-merged in that order with Viper, validated against
// an embedded CUE schema (config_schema.cue) and overridable through
// DEVLAYER_* environment variables.
//
// Image build settings are folded separately from three sources: the shell
// common config evaluated in a sandboxed mvdan/sh interpreter, the layers YAML
// file and the scoped configuration's build section. See LoadBuildSettings.
package config
