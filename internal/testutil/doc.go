// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include directory operations (MustChdir, MustMkdirAll),
// file writes (MustWriteFile), and resource cleanup (MustClose, DeferClose).
// The bintest subpackage builds synthetic binary dependency graphs for
// resolver tests.
package testutil
