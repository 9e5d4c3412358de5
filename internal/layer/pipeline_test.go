// SPDX-License-Identifier: MPL-2.0

package layer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"layerforge/internal/layer"
	"layerforge/internal/testutil/bintest"
	"layerforge/pkg/closure"
)

// popplerGraph models the canonical scenario: three pdf tools sharing one
// library.
func popplerGraph(t *testing.T) (*bintest.Graph, []string) {
	t.Helper()
	g := bintest.NewGraph(t)
	g.Binary("lib/libpoppler.so.126", closure.BinaryInfo{})
	entries := []string{
		g.Binary("usr/bin/pdfinfo", closure.BinaryInfo{Needed: []string{"libpoppler.so.126"}}),
		g.Binary("usr/bin/pdftotext", closure.BinaryInfo{Needed: []string{"libpoppler.so.126"}}),
		g.Binary("usr/bin/pdftocairo", closure.BinaryInfo{Needed: []string{"libpoppler.so.126"}}),
	}
	return g, entries
}

func TestPipelineRun(t *testing.T) {
	g, entries := popplerGraph(t)
	fonts := t.TempDir()
	if err := os.WriteFile(filepath.Join(fonts, "DejaVuSans.ttf"), []byte("ttf"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "poppler-x86_64.zip")
	p := layer.NewPipeline(g.Resolver())
	err := p.Run(context.Background(), layer.Request{
		EntryPoints: entries,
		Assets:      []layer.AssetGroup{{Name: "fonts", SourceDir: fonts}},
		OutputPath:  out,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.State() != layer.StateDone {
		t.Errorf("State() = %v, want %v", p.State(), layer.StateDone)
	}

	got, err := layer.List(out)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{
		"bin/",
		"bin/pdfinfo",
		"bin/pdftocairo",
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

func TestPipelineMissingDependencyProducesNoArchive(t *testing.T) {
	g := bintest.NewGraph(t)
	entry := g.Binary("usr/bin/app", closure.BinaryInfo{Needed: []string{"libabsent.so.9"}})

	out := filepath.Join(t.TempDir(), "app-x86_64.zip")
	p := layer.NewPipeline(g.Resolver())
	err := p.Run(context.Background(), layer.Request{
		EntryPoints: []string{entry},
		OutputPath:  out,
	})
	if !errors.Is(err, closure.ErrMissingDependency) {
		t.Fatalf("Run() error = %v, want ErrMissingDependency", err)
	}
	if p.State() != layer.StateFailed {
		t.Errorf("State() = %v, want %v", p.State(), layer.StateFailed)
	}
	if p.FailureReason() == nil {
		t.Error("FailureReason() = nil after failed run")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("archive exists at %s after failed build", out)
	}
}

func TestPipelineStructuralReproducibility(t *testing.T) {
	g, entries := popplerGraph(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.zip")
	second := filepath.Join(dir, "second.zip")

	for _, out := range []string{first, second} {
		p := layer.NewPipeline(g.Resolver())
		if err := p.Run(context.Background(), layer.Request{
			EntryPoints: entries,
			OutputPath:  out,
		}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	firstEntries, err := layer.List(first)
	if err != nil {
		t.Fatal(err)
	}
	secondEntries, err := layer.List(second)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(firstEntries, secondEntries) {
		t.Errorf("entry lists differ between runs: %v vs %v", firstEntries, secondEntries)
	}
}

func TestPipelineRejectsEmptyRequest(t *testing.T) {
	g := bintest.NewGraph(t)
	p := layer.NewPipeline(g.Resolver())

	if err := p.Run(context.Background(), layer.Request{OutputPath: "out.zip"}); err == nil {
		t.Error("Run() with no entry points succeeded, want error")
	}
	if p.State() != layer.StateFailed {
		t.Errorf("State() = %v, want %v", p.State(), layer.StateFailed)
	}
}
