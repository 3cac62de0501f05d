// SPDX-License-Identifier: MPL-2.0

package layers

import (
	"path/filepath"
	"testing"

	"github.com/devlayer/devlayer/internal/testutil"
)

const (
	nobleContent     = "FROM ubuntu:24.04\n"
	jazzyContent     = "ARG BASE_IMAGE\nFROM ${BASE_IMAGE}\n"
	realsenseContent = "ARG BASE_IMAGE\nFROM ${BASE_IMAGE}\nRUN echo realsense\n"

	// md5 of "<md5(nobleContent)>  Dockerfile.noble\n"
	nobleFingerprint Fingerprint = "ac755986eb123ee8d1b5479d60507541"
	// md5 of the noble and ros2_jazzy manifest lines
	nobleJazzyFingerprint Fingerprint = "2eaf513b5145437cf5f554cdfa3af9e6"
)

func writeDefinition(t *testing.T, dir, composite, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefinitionPrefix+composite)
	testutil.MustWriteFile(t, path, content)
	return path
}
