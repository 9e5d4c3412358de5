// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
)

const (
	// ContainerEngineDocker prefers Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman prefers Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineAuto picks whichever engine is available.
	ContainerEngineAuto ContainerEngine = "auto"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine specifies which container runtime to prefer.
	// Defined locally to avoid coupling config to internal/container;
	// the CLI casts to container.EngineType at the boundary.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is
	// not recognized. It wraps ErrInvalidContainerEngine for errors.Is().
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// InvalidConfigError aggregates the field errors found while validating
	// a Config. It wraps ErrInvalidConfig for errors.Is().
	InvalidConfigError struct {
		Errs []error
	}

	// Config is the global layerforge configuration.
	Config struct {
		// ContainerEngine selects the runtime for cross-architecture builds.
		ContainerEngine ContainerEngine `mapstructure:"container_engine"`
		// DefaultImage is the build image used when a layerfile does not
		// name one.
		DefaultImage string `mapstructure:"default_image"`
		// OutputDir is where build archives land, relative to the working
		// directory unless absolute.
		OutputDir string `mapstructure:"output_dir"`
		// Verbose enables debug logging by default.
		Verbose bool `mapstructure:"verbose"`
	}
)

func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: docker, podman, auto)", string(e.Value))
}

func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// Validate checks that the engine preference is one of the supported values.
func (c ContainerEngine) Validate() error {
	switch c {
	case ContainerEngineDocker, ContainerEnginePodman, ContainerEngineAuto:
		return nil
	default:
		return &InvalidContainerEngineError{Value: c}
	}
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.Errs...))
}

// Unwrap exposes the sentinel plus every field error so both
// errors.Is(err, ErrInvalidConfig) and checks against individual field
// sentinels succeed.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.Errs...)
}

// Validate checks every field of the configuration, collecting all errors.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ContainerEngine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.DefaultImage == "" {
		errs = append(errs, errors.New("default_image must not be empty"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{Errs: errs}
	}
	return nil
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: ContainerEngineAuto,
		DefaultImage:    "public.ecr.aws/sam/build-provided.al2:latest",
		OutputDir:       "dist",
		Verbose:         false,
	}
}
