// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"layerforge/internal/issue"
	"layerforge/internal/layer"
	"layerforge/internal/manifest"
	"layerforge/pkg/closure"

	"github.com/spf13/cobra"
)

var (
	// bundleLayerfile is the layerfile path for the bundle command
	bundleLayerfile string
	// bundleOutput is the output directory for the produced archive
	bundleOutput string

	// bundleCmd runs the bundling core on the current host. Cross-arch
	// builds run this same command inside per-architecture containers.
	bundleCmd = &cobra.Command{
		Use:   "bundle",
		Short: "Resolve, stage and archive a layer for this architecture",
		Long: `Resolve the shared-library closure of every entry point in the
layerfile, stage the union into the layer layout (bin/, lib/, one
directory per asset group) and write the compressed archive.

The bundle command operates on the environment it runs in: entry points
and libraries are resolved with this system's loader rules. For
cross-architecture builds use 'layerforge build', which runs bundle
inside a container per target architecture.

Examples:
  layerforge bundle
  layerforge bundle --layerfile ./layerfile.toml --output ./dist`,
		RunE: runBundle,
	}
)

func init() {
	bundleCmd.Flags().StringVarP(&bundleLayerfile, "layerfile", "f", manifest.DefaultFileName, "path to the layerfile")
	bundleCmd.Flags().StringVarP(&bundleOutput, "output", "o", "", "output directory for the archive (default: configured output_dir)")
}

func runBundle(cmd *cobra.Command, args []string) error {
	m, err := loadLayerfile(bundleLayerfile)
	if err != nil {
		return err
	}

	arch, err := manifest.HostArchitecture(runtime.GOARCH)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("determine build architecture").
			WithSuggestion("Run bundle inside a supported build environment (x86_64 or arm64)").
			Wrap(err).
			BuildError()
	}

	outDir := bundleOutput
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outDir, m.ArchiveName(arch))

	fmt.Println(TitleStyle.Render("Bundle Layer"))
	fmt.Printf("%s Layer: %s\n", infoIcon, PathStyle.Render(m.Name))
	fmt.Printf("%s Architecture: %s\n", infoIcon, arch)
	fmt.Printf("%s Entry points: %d\n", infoIcon, len(m.Bundle.EntryPoints))

	pipeline := layer.NewPipeline(closure.NewResolver())
	err = pipeline.Run(cmd.Context(), layer.Request{
		EntryPoints: m.Bundle.EntryPoints,
		Assets:      m.AssetGroups(),
		OutputPath:  outputPath,
	})
	if err != nil {
		fmt.Printf("%s Bundle failed during %s\n", errorIcon, pipeline.State())
		return &ExitError{Code: 1, Err: bundleFailure(err)}
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("failed to stat output archive: %w", err)
	}

	fmt.Println()
	fmt.Printf("%s Layer bundled successfully\n", successIcon)
	fmt.Printf("%s Output: %s\n", infoIcon, PathStyle.Render(outputPath))
	fmt.Printf("%s Size: %s\n", infoIcon, formatFileSize(info.Size()))

	return nil
}

// bundleFailure wraps pipeline errors with remediation hints keyed to the
// failure taxonomy.
func bundleFailure(err error) error {
	ctx := issue.NewErrorContext().WithOperation("bundle layer").Wrap(err)

	switch {
	case errors.Is(err, closure.ErrNotFound):
		ctx.WithSuggestion("Check that every entrypoint in the layerfile exists in this environment").
			WithSuggestion("Install the packages providing the missing binaries in the build image")
	case errors.Is(err, closure.ErrInvalidFormat):
		ctx.WithSuggestion("Entry points must be native binaries for this architecture").
			WithSuggestion("Scripts and foreign-architecture binaries cannot be bundled")
	case errors.Is(err, closure.ErrMissingDependency):
		ctx.WithSuggestion("Install the package providing the missing library in the build image").
			WithSuggestion("Check LD_LIBRARY_PATH if the library lives outside the default search directories")
	case errors.Is(err, layer.ErrCollision):
		ctx.WithSuggestion("Two different files map to the same name in the layer").
			WithSuggestion("Bundle the conflicting entry points into separate layers")
	}

	return ctx.BuildError()
}

// loadLayerfile loads and validates a layerfile, wrapping failures with
// actionable context.
func loadLayerfile(path string) (*manifest.Manifest, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load layerfile").
			WithResource(path).
			WithSuggestion("Run 'layerforge init' to create a starter layerfile").
			WithSuggestion("Check the TOML syntax and the field names").
			Wrap(err).
			BuildError()
	}
	return m, nil
}

// formatFileSize formats a file size in bytes to a human-readable string
func formatFileSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.2f GB", float64(size)/float64(GB))
	case size >= MB:
		return fmt.Sprintf("%.2f MB", float64(size)/float64(MB))
	case size >= KB:
		return fmt.Sprintf("%.2f KB", float64(size)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
