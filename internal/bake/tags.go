// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"runtime"
	"strings"
)

const (
	// FirstPartyRegistry marks registries that use "<registry>:<name>" tags.
	FirstPartyRegistry = "nvcr.io"

	// LocalRegistry is the registry name used when none is configured.
	LocalRegistry = "local"

	// PlatformX86_64 is the x86_64 platform name.
	PlatformX86_64 = "x86_64"
	// PlatformAarch64 is the aarch64 platform name.
	PlatformAarch64 = "aarch64"
)

// FileArch maps a platform name to the architecture used in tags and the
// PLATFORM build argument.
func FileArch(platform string) string {
	if platform == PlatformAarch64 {
		return "arm64"
	}
	return "amd64"
}

// HostPlatform returns the platform name of the running machine.
func HostPlatform() string {
	if runtime.GOARCH == "arm64" {
		return PlatformAarch64
	}
	return PlatformX86_64
}

// ImageRef places name in registry. First party registries use the colon
// form "<registry>:<name>"; all others use "<registry>/<name>:latest".
func ImageRef(registry, name string) string {
	if strings.Contains(registry, FirstPartyRegistry) {
		return registry + ":" + name
	}
	return registry + "/" + name + ":latest"
}

// StageTag returns the tag of a build stage for the given file architecture.
func StageTag(registry, stage, fileArch string) string {
	return ImageRef(registry, stage+"-"+fileArch)
}
