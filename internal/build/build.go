// SPDX-License-Identifier: MPL-2.0

// Package build orchestrates per-architecture layer builds. Each
// architecture gets its own container run so library resolution always uses
// that architecture's loader rules and binary formats; the host process only
// schedules runs and collects the produced archives.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"layerforge/internal/container"
	"layerforge/internal/manifest"
)

const (
	// containerLayerfile is where the manifest is mounted inside the build
	// container.
	containerLayerfile = "/layerforge/layerfile.toml"
	// containerOutputDir is where the container writes the finished archive.
	containerOutputDir = "/layerforge/out"
	// containerBundlerPath is where an optional host-supplied bundler binary
	// is mounted when the image does not ship one.
	containerBundlerPath = "/usr/local/bin/layerforge"
)

// ErrBuildFailed is the sentinel for per-architecture build failures.
var ErrBuildFailed = errors.New("layer build failed")

// BuildError reports which architecture's container build failed.
type BuildError struct {
	Architecture manifest.Architecture
	Err          error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build for %s failed: %v", e.Architecture, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *BuildError) Unwrap() []error { return []error{ErrBuildFailed, e.Err} }

// Options configures a cross-architecture build.
type Options struct {
	// Manifest is the validated build description.
	Manifest *manifest.Manifest
	// LayerfilePath is the host path of the manifest, bind-mounted into
	// each build container.
	LayerfilePath string
	// OutputDir is the host directory receiving the per-architecture
	// archives.
	OutputDir string
	// Image is the build image to run. When empty the manifest's image is
	// used.
	Image string
	// Architectures restricts the build to a subset of the manifest's
	// architectures. Empty means all of them.
	Architectures []manifest.Architecture
	// BundlerPath, when set, is a host path to an architecture-matched
	// bundler binary mounted into the container. When empty the image is
	// expected to provide layerforge on PATH.
	BundlerPath string

	Stdout io.Writer
	Stderr io.Writer
}

func (o *Options) image() string {
	if o.Image != "" {
		return o.Image
	}
	return o.Manifest.Build.Image
}

func (o *Options) architectures() []manifest.Architecture {
	if len(o.Architectures) > 0 {
		return o.Architectures
	}
	return o.Manifest.Build.Architectures
}

// Builder runs the bundling pipeline inside containers, once per target
// architecture.
type Builder struct {
	engine container.Engine
}

// NewBuilder constructs a Builder on the given container engine.
func NewBuilder(engine container.Engine) *Builder {
	return &Builder{engine: engine}
}

// Build produces one archive per requested architecture in opts.OutputDir.
// Architectures run sequentially; the first failure aborts the build.
// Outputs are staged under a temporary directory and renamed into place
// only after the container run succeeds, so a failed build leaves no
// archive behind.
func (b *Builder) Build(ctx context.Context, opts *Options) error {
	layerfile, err := filepath.Abs(opts.LayerfilePath)
	if err != nil {
		return fmt.Errorf("resolving layerfile path: %w", err)
	}
	outDir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, arch := range opts.architectures() {
		if err := arch.Validate(); err != nil {
			return &BuildError{Architecture: arch, Err: err}
		}
		if err := b.buildArch(ctx, opts, arch, layerfile, outDir); err != nil {
			return &BuildError{Architecture: arch, Err: err}
		}
	}
	return nil
}

func (b *Builder) buildArch(ctx context.Context, opts *Options, arch manifest.Architecture, layerfile, outDir string) error {
	image := opts.image()
	platform := arch.Platform()

	if err := b.ensureImage(ctx, image, platform, opts); err != nil {
		return err
	}

	// Stage under the output directory so the final rename stays on one
	// filesystem.
	staging, err := os.MkdirTemp(outDir, ".build-"+string(arch)+"-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	volumes := []container.VolumeMount{
		{HostPath: layerfile, ContainerPath: containerLayerfile, ReadOnly: true},
		{HostPath: staging, ContainerPath: containerOutputDir},
	}
	if opts.BundlerPath != "" {
		bundler, err := filepath.Abs(opts.BundlerPath)
		if err != nil {
			return fmt.Errorf("resolving bundler path: %w", err)
		}
		volumes = append(volumes, container.VolumeMount{
			HostPath: bundler, ContainerPath: containerBundlerPath, ReadOnly: true,
		})
	}

	slog.Info("building layer", "architecture", arch, "image", image)
	res := b.engine.Run(ctx, &container.RunOptions{
		Image:    image,
		Platform: platform,
		Command: []string{
			"layerforge", "bundle",
			"--layerfile", containerLayerfile,
			"--output", containerOutputDir,
		},
		Volumes: volumes,
		Remove:  true,
		Stdout:  opts.Stdout,
		Stderr:  opts.Stderr,
	})
	if res.Error != nil {
		return res.Error
	}

	archiveName := opts.Manifest.ArchiveName(arch)
	staged := filepath.Join(staging, archiveName)
	if _, err := os.Stat(staged); err != nil {
		return fmt.Errorf("container run succeeded but archive %s is missing: %w", archiveName, err)
	}
	final := filepath.Join(outDir, archiveName)
	if err := os.Rename(staged, final); err != nil {
		return fmt.Errorf("moving archive into place: %w", err)
	}
	slog.Info("layer built", "architecture", arch, "archive", final)
	return nil
}

func (b *Builder) ensureImage(ctx context.Context, image, platform string, opts *Options) error {
	exists, err := b.engine.ImageExists(ctx, image)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return b.engine.Pull(ctx, image, platform, opts.Stdout, opts.Stderr)
}
