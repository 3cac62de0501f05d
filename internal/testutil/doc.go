// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers that fail the test on setup errors,
// keeping fixtures short. It covers environment variables (MustSetenv,
// SetHomeDir), files (MustWriteFile, MustReadFile, MustMkdirAll) and a
// manually driven clock (FakeClock).
package testutil
