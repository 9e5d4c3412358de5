// SPDX-License-Identifier: MPL-2.0

package layer

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/flate"
)

// archiveEpoch is the fixed modification time stamped on every archive
// entry. Zip cannot represent times before 1980, and real file mtimes
// from the build environment would defeat reproducibility.
var archiveEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Archive compresses the layer tree into a single zip at outPath,
// preserving the tree's relative structure exactly.
//
// The archive is deterministic for identical input trees: entries are
// written in sorted path order with fixed timestamps and normalized
// modes. The zip is written to a temporary name and renamed into place
// only on success, so a failed build never leaves an artifact at outPath.
func Archive(ctx context.Context, tree *Tree, outPath string) error {
	partial := outPath + ".partial"

	if err := writeArchive(ctx, tree.Root, partial); err != nil {
		os.Remove(partial)
		return &ArchiveError{Path: outPath, Err: err}
	}

	if err := os.Rename(partial, outPath); err != nil {
		os.Remove(partial)
		return &ArchiveError{Path: outPath, Err: err}
	}

	slog.Debug("wrote layer archive", "path", outPath)
	return nil
}

func writeArchive(ctx context.Context, root, outPath string) error {
	entries, err := collectEntries(root)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	// The stdlib flate is not guaranteed byte-stable across Go releases;
	// pinning the compressor keeps archives reproducible across builds of
	// layerforge itself.
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			zw.Close()
			out.Close()
			return err
		}
		if err := writeEntry(zw, root, entry); err != nil {
			zw.Close()
			out.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// collectEntries walks the tree and returns every relative path, sorted.
// Directories carry a trailing separator so the archive preserves empty
// directories from asset groups.
func collectEntries(root string) ([]string, error) {
	var entries []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		entries = append(entries, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)
	return entries, nil
}

func writeEntry(zw *zip.Writer, root, rel string) error {
	header := &zip.FileHeader{
		Name:     rel,
		Modified: archiveEpoch,
	}

	if rel[len(rel)-1] == '/' {
		header.SetMode(fs.ModeDir | NormalizedMode)
		_, err := zw.CreateHeader(header)
		return err
	}

	header.Method = zip.Deflate
	header.SetMode(NormalizedMode)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// List returns the entry names of a layer archive, sorted ascending.
// Directory entries keep their trailing slash.
func List(archivePath string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, &ArchiveError{Path: archivePath, Err: err}
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names, nil
}
