// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Failures that reach the CLI boundary are wrapped in an ActionableError so
// the user sees what operation failed, which file or image was involved, and
// concrete suggestions for fixing it.
package issue
