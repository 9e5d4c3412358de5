// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"layerforge/internal/issue"
	"layerforge/internal/layer"

	"github.com/spf13/cobra"
)

// inspectCmd lists the entries of a built layer archive.
var inspectCmd = &cobra.Command{
	Use:   "inspect <archive.zip>",
	Short: "List the entries of a layer archive",
	Long: `List the entries of a built layer archive in sorted order.

Useful for checking the layout contract of a layer: entry points under
bin/, libraries under lib/, and one directory per asset group.

Examples:
  layerforge inspect dist/poppler-arm64.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	archivePath := args[0]

	entries, err := layer.List(archivePath)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("inspect layer archive").
			WithResource(archivePath).
			WithSuggestion("Check that the path points to a layer built by 'layerforge build'").
			Wrap(err).
			BuildError()
	}

	fmt.Println(TitleStyle.Render("Layer Contents"))
	fmt.Printf("%s Archive: %s\n", infoIcon, PathStyle.Render(archivePath))
	fmt.Printf("%s Entries: %d\n", infoIcon, len(entries))
	fmt.Println()
	for _, entry := range entries {
		fmt.Println("  " + entry)
	}

	return nil
}
