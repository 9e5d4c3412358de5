// SPDX-License-Identifier: MPL-2.0

// Package container abstracts the OCI runtimes (Docker, Podman) used to run
// layer builds inside images that match the target runtime. Engines wrap a
// CLI binary rather than a daemon API so that whatever the user already has
// on PATH works without extra configuration.
//
// Builds for a foreign CPU architecture rely on the engine's --platform
// support; on a typical host that means binfmt_misc emulation is configured.
package container
