// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by the devlayer CLI and its
// libraries. It imports only the standard library.
package types
