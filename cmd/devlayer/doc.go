// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the devlayer command tree.
//
// The commands are thin: they load the scoped configuration, fold the layer
// build settings and hand off to internal/imagebuild (build, plan) or
// internal/devenv (activate, run). Errors that carry an issue id are printed
// with their suggestions and troubleshooting page before the process exits.
package cmd
