// SPDX-License-Identifier: MPL-2.0

// Package layer stages dependency closures into the on-disk layout a
// serverless runtime expects and archives the result.
//
// The layout contract is fixed: entry-point executables under bin/,
// resolved libraries under lib/, and one directory per asset group at the
// root. Assembly is two-phase: every destination is planned and checked
// for collisions before a single byte is copied, so a failed build never
// leaves a partially populated tree behind an apparently successful one.
// Archiving is deterministic (sorted entries, fixed timestamps, normalized
// modes) so identical inputs produce structurally identical archives.
//
// Pipeline ties the phases together as a small state machine:
// Resolving -> Assembling -> Archiving -> Done, with any failure
// transitioning to Failed. There are no partial results: on failure no
// archive exists at the output path.
package layer
