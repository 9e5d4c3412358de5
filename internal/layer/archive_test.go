// SPDX-License-Identifier: MPL-2.0

package layer_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"layerforge/internal/layer"
	"layerforge/pkg/closure"
)

// stageFixtureTree assembles a small layer tree for archive tests.
func stageFixtureTree(t *testing.T) *layer.Tree {
	t.Helper()
	src := t.TempDir()
	entry := writeArtifact(t, src, "bin/pdftotext", "pdftotext")
	lib := writeArtifact(t, src, "lib/libpoppler.so.126", "poppler")

	fonts := t.TempDir()
	writeArtifact(t, fonts, "DejaVuSans.ttf", "ttf-bytes")

	tree, err := layer.Assemble(context.Background(), layer.Input{
		Closures:    []*closure.Closure{closureOf(entry, lib)},
		EntryPoints: []string{entry},
		Assets:      []layer.AssetGroup{{Name: "fonts", SourceDir: fonts}},
	}, t.TempDir())
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	return tree
}

func TestArchiveEntriesSortedAndComplete(t *testing.T) {
	tree := stageFixtureTree(t)
	out := filepath.Join(t.TempDir(), "poppler-x86_64.zip")

	if err := layer.Archive(context.Background(), tree, out); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	got, err := layer.List(out)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{
		"bin/",
		"bin/pdftotext",
		"fonts/",
		"fonts/DejaVuSans.ttf",
		"lib/",
		"lib/libpoppler.so.126",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestArchiveReproducible(t *testing.T) {
	tree := stageFixtureTree(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.zip")
	second := filepath.Join(dir, "second.zip")

	if err := layer.Archive(context.Background(), tree, first); err != nil {
		t.Fatalf("Archive() first error = %v", err)
	}
	if err := layer.Archive(context.Background(), tree, second); err != nil {
		t.Fatalf("Archive() second error = %v", err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("archives of an unchanged tree differ byte-for-byte")
	}
}

func TestArchiveLeavesNoPartialOnFailure(t *testing.T) {
	tree := stageFixtureTree(t)
	// Output inside a directory that does not exist: creation must fail.
	out := filepath.Join(t.TempDir(), "missing-dir", "layer.zip")

	err := layer.Archive(context.Background(), tree, out)
	if !errors.Is(err, layer.ErrArchive) {
		t.Fatalf("Archive() error = %v, want ErrArchive", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("archive exists at %s after failure", out)
	}
	if _, statErr := os.Stat(out + ".partial"); !os.IsNotExist(statErr) {
		t.Errorf("partial archive left behind at %s.partial", out)
	}
}

func TestListMissingArchive(t *testing.T) {
	_, err := layer.List(filepath.Join(t.TempDir(), "absent.zip"))
	if !errors.Is(err, layer.ErrArchive) {
		t.Errorf("List() error = %v, want ErrArchive", err)
	}
}
