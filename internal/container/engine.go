// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EngineType identifies a supported container engine.
type EngineType string

const (
	// EngineDocker selects the Docker CLI.
	EngineDocker EngineType = "docker"
	// EnginePodman selects the Podman CLI.
	EnginePodman EngineType = "podman"
	// EngineAuto picks whichever engine is available, preferring Podman.
	EngineAuto EngineType = "auto"
)

// ErrInvalidEngineType is the sentinel for unrecognized engine names.
var ErrInvalidEngineType = errors.New("invalid container engine type")

// ErrNoEngineAvailable is returned when no supported engine CLI is usable.
var ErrNoEngineAvailable = errors.New("no container engine available")

// InvalidEngineTypeError reports an engine name outside the supported set.
type InvalidEngineTypeError struct {
	Value string
}

func (e *InvalidEngineTypeError) Error() string {
	return fmt.Sprintf("invalid container engine type %q (valid: docker, podman, auto)", e.Value)
}

func (e *InvalidEngineTypeError) Unwrap() error { return ErrInvalidEngineType }

// Validate checks that the engine type is one of the supported values.
func (t EngineType) Validate() error {
	switch t {
	case EngineDocker, EnginePodman, EngineAuto:
		return nil
	default:
		return &InvalidEngineTypeError{Value: string(t)}
	}
}

// VolumeMount is a host directory bound into the build container.
type VolumeMount struct {
	// HostPath is the absolute host directory to share.
	HostPath string
	// ContainerPath is the absolute mount point inside the container.
	ContainerPath string
	// ReadOnly mounts the volume read-only.
	ReadOnly bool
}

// Validate checks that both sides of the mount are absolute paths.
func (v VolumeMount) Validate() error {
	if !filepath.IsAbs(v.HostPath) {
		return fmt.Errorf("volume host path %q is not absolute", v.HostPath)
	}
	if !strings.HasPrefix(v.ContainerPath, "/") {
		return fmt.Errorf("volume container path %q is not absolute", v.ContainerPath)
	}
	return nil
}

// RunOptions describes a single container run.
type RunOptions struct {
	// Image is the OCI image reference to run.
	Image string
	// Platform, when set (e.g. "linux/arm64"), is passed as --platform so
	// the engine runs the image variant for that architecture.
	Platform string
	// Command is the argv executed inside the container.
	Command []string
	// WorkDir sets the working directory inside the container.
	WorkDir string
	// Env holds extra environment variables for the container process.
	Env map[string]string
	// Volumes are bind mounts shared with the container.
	Volumes []VolumeMount
	// Remove deletes the container after it exits.
	Remove bool
	// Name optionally names the container.
	Name string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Validate checks the options for obvious mistakes before invoking the CLI.
func (o *RunOptions) Validate() error {
	if o.Image == "" {
		return errors.New("container image is required")
	}
	if len(o.Command) == 0 {
		return errors.New("container command is required")
	}
	for _, v := range o.Volumes {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// sortedEnv returns KEY=VALUE pairs in key order so generated CLI
// invocations are stable.
func (o *RunOptions) sortedEnv() []string {
	if len(o.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(o.Env))
	for k := range o.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+o.Env[k])
	}
	return pairs
}

// RunResult captures the outcome of a container run.
type RunResult struct {
	// ExitCode is the exit status of the container process.
	ExitCode int
	// Error is set when the run could not be started or failed.
	Error error
}

// Engine is the interface every container runtime integration satisfies.
type Engine interface {
	// Name returns the engine identifier ("docker" or "podman").
	Name() string
	// Available reports whether the engine CLI is installed and responsive.
	Available(ctx context.Context) bool
	// Version returns the engine version string.
	Version(ctx context.Context) (string, error)
	// ImageExists reports whether the image is present locally.
	ImageExists(ctx context.Context, image string) (bool, error)
	// Pull fetches the image, optionally for a specific platform.
	Pull(ctx context.Context, image, platform string, stdout, stderr io.Writer) error
	// Run executes a container and waits for it to finish.
	Run(ctx context.Context, opts *RunOptions) *RunResult
}

// NewEngine constructs the engine for the given type. EngineAuto probes the
// host and returns whichever engine responds, preferring Podman because it
// runs rootless by default.
func NewEngine(ctx context.Context, engineType EngineType) (Engine, error) {
	if err := engineType.Validate(); err != nil {
		return nil, err
	}
	switch engineType {
	case EngineDocker:
		return NewDockerEngine(), nil
	case EnginePodman:
		return NewPodmanEngine(), nil
	default:
		return autoDetect(ctx)
	}
}

func autoDetect(ctx context.Context) (Engine, error) {
	for _, eng := range []Engine{NewPodmanEngine(), NewDockerEngine()} {
		if eng.Available(ctx) {
			return eng, nil
		}
	}
	return nil, fmt.Errorf("%w: install docker or podman, or set the engine explicitly", ErrNoEngineAvailable)
}

// selinuxEnforcePath is overridable in tests.
var selinuxEnforcePath = "/sys/fs/selinux/enforce"

func selinuxEnabled() bool {
	_, err := os.Stat(selinuxEnforcePath)
	return err == nil
}
