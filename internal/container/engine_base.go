// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// ExecCommandFunc builds the exec.Cmd for a CLI invocation. Tests inject a
// recorder here instead of spawning real engine processes.
type ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// volumeFormatter renders a VolumeMount as a -v argument. Podman overrides
// this to append SELinux relabeling flags.
type volumeFormatter func(v VolumeMount) string

// runArgsTransformer lets an engine adjust the generated `run` argv before
// execution.
type runArgsTransformer func(args []string) []string

// BaseCLIEngine implements the shared mechanics of driving a container
// engine through its command line. Docker and Podman embed it and supply
// only their differences.
type BaseCLIEngine struct {
	name        string
	binary      string
	execCommand ExecCommandFunc
	formatVol   volumeFormatter
	transform   runArgsTransformer
}

// BaseCLIEngineOption configures a BaseCLIEngine.
type BaseCLIEngineOption func(*BaseCLIEngine)

// WithExecCommandFunc replaces the process launcher, used by tests.
func WithExecCommandFunc(f ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.execCommand = f }
}

// WithVolumeFormatter overrides how volume mounts are rendered.
func WithVolumeFormatter(f volumeFormatter) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.formatVol = f }
}

// WithRunArgsTransformer installs a hook that rewrites `run` arguments.
func WithRunArgsTransformer(f runArgsTransformer) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.transform = f }
}

// NewBaseCLIEngine constructs the shared engine core for the named binary.
func NewBaseCLIEngine(name, binary string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		name:        name,
		binary:      binary,
		execCommand: exec.CommandContext,
		formatVol:   defaultVolumeFormat,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultVolumeFormat(v VolumeMount) string {
	s := v.HostPath + ":" + v.ContainerPath
	if v.ReadOnly {
		s += ":ro"
	}
	return s
}

// Name returns the engine identifier.
func (e *BaseCLIEngine) Name() string { return e.name }

// Available reports whether the engine binary responds to a version query.
func (e *BaseCLIEngine) Available(ctx context.Context) bool {
	_, err := e.Version(ctx)
	return err == nil
}

// Version returns the engine's reported version string.
func (e *BaseCLIEngine) Version(ctx context.Context) (string, error) {
	out, err := e.output(ctx, "version", "--format", "{{.Client.Version}}")
	if err != nil {
		return "", fmt.Errorf("%s version query failed: %w", e.name, err)
	}
	return strings.TrimSpace(out), nil
}

// ImageExists reports whether the image is in the local store.
func (e *BaseCLIEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	cmd := e.execCommand(ctx, e.binary, "image", "inspect", image)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("%s image inspect failed: %w", e.name, err)
	}
	return true, nil
}

// Pull fetches the image. When platform is non-empty the engine pulls the
// variant for that architecture so a later --platform run does not hit the
// network again.
func (e *BaseCLIEngine) Pull(ctx context.Context, image, platform string, stdout, stderr io.Writer) error {
	args := []string{"pull"}
	if platform != "" {
		args = append(args, "--platform", platform)
	}
	args = append(args, image)

	slog.Debug("pulling image", "engine", e.name, "image", image, "platform", platform)
	cmd := e.execCommand(ctx, e.binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s pull %s failed: %w", e.name, image, err)
	}
	return nil
}

// RunArgs builds the `run` argv for the given options. Exposed on the base
// engine so tests can assert the generated command line.
func (e *BaseCLIEngine) RunArgs(opts *RunOptions) []string {
	args := []string{"run"}
	if opts.Remove {
		args = append(args, "--rm")
	}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	if opts.Platform != "" {
		args = append(args, "--platform", opts.Platform)
	}
	if opts.WorkDir != "" {
		args = append(args, "--workdir", opts.WorkDir)
	}
	for _, pair := range opts.sortedEnv() {
		args = append(args, "--env", pair)
	}
	for _, v := range opts.Volumes {
		args = append(args, "--volume", e.formatVol(v))
	}
	args = append(args, opts.Image)
	args = append(args, opts.Command...)
	if e.transform != nil {
		args = e.transform(args)
	}
	return args
}

// Run executes a container and waits for it. The result carries the exit
// code of the container process; a non-zero exit is reported through both
// ExitCode and Error.
func (e *BaseCLIEngine) Run(ctx context.Context, opts *RunOptions) *RunResult {
	if err := opts.Validate(); err != nil {
		return &RunResult{ExitCode: -1, Error: err}
	}
	args := e.RunArgs(opts)

	slog.Debug("running container", "engine", e.name, "image", opts.Image, "platform", opts.Platform)
	cmd := e.execCommand(ctx, e.binary, args...)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &RunResult{
				ExitCode: exitErr.ExitCode(),
				Error:    fmt.Errorf("%s run exited with code %d: %w", e.name, exitErr.ExitCode(), err),
			}
		}
		return &RunResult{ExitCode: -1, Error: fmt.Errorf("%s run failed: %w", e.name, err)}
	}
	return &RunResult{ExitCode: 0}
}

func (e *BaseCLIEngine) output(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := e.execCommand(ctx, e.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
