// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"layerforge/internal/build"
	"layerforge/internal/container"
	"layerforge/internal/issue"
	"layerforge/internal/manifest"

	"github.com/spf13/cobra"
)

var (
	// buildLayerfile is the layerfile path for the build command
	buildLayerfile string
	// buildOutput is the output directory for the archives
	buildOutput string
	// buildArchs restricts the build to a subset of architectures
	buildArchs []string
	// buildImage overrides the build image
	buildImage string
	// buildEngine overrides the configured container engine
	buildEngine string
	// buildBundler is a host path to an architecture-matched bundler binary
	buildBundler string

	// buildCmd produces one layer archive per target architecture.
	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build layers for every target architecture",
		Long: `Build one layer archive per architecture listed in the layerfile.

Each architecture's bundle step runs inside a container for that
platform, so dependency resolution uses the target architecture's
loader rules and library formats. The host only schedules containers
and collects the finished archives.

Examples:
  layerforge build
  layerforge build --arch arm64
  layerforge build --image public.ecr.aws/sam/build-provided.al2:latest
  layerforge build --engine podman --output ./dist`,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildLayerfile, "layerfile", "f", manifest.DefaultFileName, "path to the layerfile")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output directory for the archives (default: configured output_dir)")
	buildCmd.Flags().StringSliceVar(&buildArchs, "arch", nil, "architectures to build (default: all in the layerfile)")
	buildCmd.Flags().StringVar(&buildImage, "image", "", "build image (default: layerfile image or configured default_image)")
	buildCmd.Flags().StringVar(&buildEngine, "engine", "", "container engine: docker, podman or auto (default: configured engine)")
	buildCmd.Flags().StringVar(&buildBundler, "bundler", "", "host path to an architecture-matched layerforge binary to mount into the container")
}

func runBuild(cmd *cobra.Command, args []string) error {
	m, err := loadLayerfile(buildLayerfile)
	if err != nil {
		return err
	}

	engineType := container.EngineType(cfg.ContainerEngine)
	if buildEngine != "" {
		engineType = container.EngineType(buildEngine)
	}
	engine, err := container.NewEngine(cmd.Context(), engineType)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("select container engine").
			WithSuggestion("Install Docker or Podman").
			WithSuggestion("Set container_engine in the config or pass --engine").
			Wrap(err).
			BuildError()
	}

	archs := make([]manifest.Architecture, 0, len(buildArchs))
	for _, a := range buildArchs {
		archs = append(archs, manifest.Architecture(a))
	}

	image := buildImage
	if image == "" && m.Build.Image == "" {
		image = cfg.DefaultImage
	}
	outDir := buildOutput
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	fmt.Println(TitleStyle.Render("Build Layers"))
	fmt.Printf("%s Layer: %s\n", infoIcon, PathStyle.Render(m.Name))
	fmt.Printf("%s Engine: %s\n", infoIcon, engine.Name())

	builder := build.NewBuilder(engine)
	err = builder.Build(cmd.Context(), &build.Options{
		Manifest:      m,
		LayerfilePath: buildLayerfile,
		OutputDir:     outDir,
		Image:         image,
		Architectures: archs,
		BundlerPath:   buildBundler,
		Stdout:        cmd.OutOrStdout(),
		Stderr:        cmd.ErrOrStderr(),
	})
	if err != nil {
		fmt.Printf("%s Build failed\n", errorIcon)
		return &ExitError{Code: 1, Err: buildFailure(err)}
	}

	fmt.Println()
	fmt.Printf("%s All layers built\n", successIcon)
	for _, arch := range buildArchitectures(m, archs) {
		fmt.Printf("%s %s\n", infoIcon, PathStyle.Render(m.ArchiveName(arch)))
	}

	return nil
}

func buildArchitectures(m *manifest.Manifest, requested []manifest.Architecture) []manifest.Architecture {
	if len(requested) > 0 {
		return requested
	}
	return m.Build.Architectures
}

// buildFailure wraps orchestration errors with remediation hints.
func buildFailure(err error) error {
	ctx := issue.NewErrorContext().WithOperation("build layers").Wrap(err)

	var buildErr *build.BuildError
	if errors.As(err, &buildErr) {
		ctx.WithResource(buildErr.Architecture.String()).
			WithSuggestion("Re-run with --verbose to see the container output").
			WithSuggestion("Check that the build image can run for this platform (binfmt emulation for foreign architectures)")
	}
	if errors.Is(err, container.ErrNoEngineAvailable) {
		ctx.WithSuggestion("Install Docker or Podman and make sure it is on PATH")
	}

	return ctx.BuildError()
}
