// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

// SetHomeDir points HOME and XDG_CONFIG_HOME at dir for the duration of the
// test, so user scoped configuration resolves below it.
//
//	t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	restoreHome := MustSetenv(t, "HOME", dir)
	restoreXDG := MustSetenv(t, "XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	return func() {
		restoreXDG()
		restoreHome()
	}
}
