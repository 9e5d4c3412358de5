// SPDX-License-Identifier: MPL-2.0

package layer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"layerforge/pkg/closure"
)

const (
	// BinDirName is the layer subdirectory for entry-point executables.
	BinDirName = "bin"
	// LibDirName is the layer subdirectory for resolved shared libraries.
	LibDirName = "lib"

	// NormalizedMode is applied recursively to every staged file and
	// directory: readable and executable by owner, group, and other, with
	// no setuid/setgid bits. Ownership metadata from the build environment
	// must never leak into the deployed artifact.
	NormalizedMode fs.FileMode = 0o755

	// copyConcurrency bounds the number of artifacts staged in parallel.
	copyConcurrency = 8
)

type (
	// AssetGroup is a named auxiliary directory (fonts, locale data)
	// copied verbatim into the layer under its own name, independent of
	// dependency resolution.
	AssetGroup struct {
		Name      string
		SourceDir string
	}

	// Input describes everything that goes into one layer tree.
	Input struct {
		// Closures are the per-entry-point dependency closures. Their
		// union is staged; an artifact required by several entry points
		// is copied once.
		Closures []*closure.Closure
		// EntryPoints are the canonical paths of the entry binaries.
		// Closure members on this list are staged under bin/, everything
		// else under lib/.
		EntryPoints []string
		// Assets are copied after the closure artifacts.
		Assets []AssetGroup
	}

	// Tree is the populated staging directory.
	Tree struct {
		// Root is the directory whose contents form the layer.
		Root string
	}
)

// Assemble stages the union of the input closures plus all asset groups
// into destRoot, then normalizes permissions over the whole tree.
//
// Destinations for the entire union are planned and collision-checked
// before any copy starts; the copy phase itself runs in parallel since
// destinations are disjoint once collisions are rejected. Any failure
// aborts the assembly.
func Assemble(ctx context.Context, in Input, destRoot string) (*Tree, error) {
	union := closure.Union(in.Closures...)

	entrySet := make(map[string]struct{}, len(in.EntryPoints))
	for _, ep := range in.EntryPoints {
		entrySet[ep] = struct{}{}
	}

	plan, err := planDestinations(union, entrySet)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{BinDirName, LibDirName} {
		if err := os.MkdirAll(filepath.Join(destRoot, dir), 0o755); err != nil {
			return nil, &CopyError{Dest: filepath.Join(destRoot, dir), Err: err}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for src, rel := range plan {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return copyFile(src, filepath.Join(destRoot, rel))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slog.Debug("staged closure artifacts", "count", len(plan), "dest", destRoot)

	for _, asset := range in.Assets {
		if err := copyAssetGroup(ctx, asset, destRoot); err != nil {
			return nil, err
		}
	}

	if err := normalizePermissions(destRoot); err != nil {
		return nil, err
	}

	return &Tree{Root: destRoot}, nil
}

// planDestinations maps every union member to its layer-relative
// destination and rejects base-name collisions up front.
func planDestinations(union *closure.Closure, entrySet map[string]struct{}) (map[string]string, error) {
	claimed := make(map[string][]string)
	plan := make(map[string]string, union.Len())

	for _, src := range union.Paths() {
		subdir := LibDirName
		if _, ok := entrySet[src]; ok {
			subdir = BinDirName
		}
		rel := filepath.Join(subdir, filepath.Base(src))
		claimed[rel] = append(claimed[rel], src)
		plan[src] = rel
	}

	// Deterministic reporting: check destinations in sorted order so the
	// same collision always surfaces first.
	dests := make([]string, 0, len(claimed))
	for rel := range claimed {
		dests = append(dests, rel)
	}
	sort.Strings(dests)
	for _, rel := range dests {
		if sources := claimed[rel]; len(sources) > 1 {
			return nil, &CollisionError{DestName: rel, Sources: sources}
		}
	}

	return plan, nil
}

// copyFile copies src to dest all-or-nothing: a failed copy removes the
// destination so no truncated artifact survives.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return &CopyError{Source: src, Dest: dest, Err: err}
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return &CopyError{Source: src, Dest: dest, Err: err}
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return &CopyError{Source: src, Dest: dest, Err: err}
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return &CopyError{Source: src, Dest: dest, Err: err}
	}
	return nil
}

// copyAssetGroup copies an asset directory tree verbatim under the layer
// root, preserving relative structure. Asset groups are assumed disjoint
// by construction, so there is no deduplication.
func copyAssetGroup(ctx context.Context, asset AssetGroup, destRoot string) error {
	destBase := filepath.Join(destRoot, asset.Name)

	info, err := os.Stat(asset.SourceDir)
	if err != nil {
		return &CopyError{Source: asset.SourceDir, Dest: destBase, Err: err}
	}
	if !info.IsDir() {
		return &CopyError{Source: asset.SourceDir, Dest: destBase,
			Err: fmt.Errorf("asset group %q source is not a directory", asset.Name)}
	}

	err = filepath.WalkDir(asset.SourceDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &CopyError{Source: path, Dest: destBase, Err: walkErr}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(asset.SourceDir, path)
		if err != nil {
			return &CopyError{Source: path, Dest: destBase, Err: err}
		}
		dest := filepath.Join(destBase, rel)

		if d.IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return &CopyError{Source: path, Dest: dest, Err: err}
			}
			return nil
		}
		// Symlinks inside asset directories are followed; the layer holds
		// regular files only.
		return copyFile(path, dest)
	})
	if err != nil {
		return err
	}

	slog.Debug("staged asset group", "name", asset.Name, "source", asset.SourceDir)
	return nil
}

// normalizePermissions applies NormalizedMode to every file and directory
// under root.
func normalizePermissions(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &CopyError{Source: path, Err: walkErr}
		}
		if err := os.Chmod(path, NormalizedMode); err != nil {
			return &CopyError{Source: path, Err: err}
		}
		return nil
	})
}
