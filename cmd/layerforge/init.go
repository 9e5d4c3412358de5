// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"layerforge/internal/manifest"

	"github.com/spf13/cobra"
)

var (
	initForce bool

	// initCmd creates a new layerfile
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a new layerfile.toml in the current directory",
		Long: `Create a new layerfile.toml in the current directory with example
entry points and asset groups to help you get started quickly.`,
		RunE: runInit,
	}
)

// starterLayerfile is the scaffold written by 'layerforge init'.
const starterLayerfile = `# layerforge layerfile
# Entry points and asset paths are resolved inside the build image.

name = "poppler"

[bundle]
entrypoints = ["/usr/bin/pdfinfo", "/usr/bin/pdftotext", "/usr/bin/pdftocairo"]

[bundle.assets]
fonts = "/usr/share/fonts"
poppler-data = "/usr/share/poppler"

[build]
architectures = ["x86_64", "arm64"]
image = "public.ecr.aws/sam/build-provided.al2:latest"
`

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing layerfile")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := manifest.DefaultFileName

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Printf("%s %s already exists (use --force to overwrite)\n", errorIcon, PathStyle.Render(path))
		return &ExitError{Code: 1}
	}

	if err := os.WriteFile(path, []byte(starterLayerfile), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Printf("%s Created %s\n", successIcon, PathStyle.Render(path))
	fmt.Println()
	fmt.Printf("%s Next steps:\n", infoIcon)
	fmt.Println("   1. Edit the entrypoints and asset directories for your layer")
	fmt.Printf("   2. Run %s to build layers for every architecture\n", PathStyle.Render("layerforge build"))
	fmt.Printf("   3. Run %s to check the produced archive\n", PathStyle.Render("layerforge inspect"))

	return nil
}
