// SPDX-License-Identifier: MPL-2.0

// Package config loads the global layerforge configuration: which container
// engine to prefer, the default build image, and output conventions. The
// config file is TOML at the platform config directory and every value can
// be overridden through LAYERFORGE_* environment variables.
package config
