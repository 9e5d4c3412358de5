// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for layerforge.
//
// This package implements the Cobra command hierarchy: the root command,
// the in-environment bundle core, cross-architecture build orchestration,
// archive inspection and layerfile scaffolding.
package cmd
