// SPDX-License-Identifier: MPL-2.0

// Package registry answers whether image tags already exist in a remote OCI
// registry. Checks send a manifest HEAD request authenticated with the local
// docker credential store, and many tags can be probed concurrently.
package registry
