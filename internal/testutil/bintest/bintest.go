// SPDX-License-Identifier: MPL-2.0

// Package bintest builds synthetic dynamic-linking graphs for tests.
//
// A Graph creates real (empty) files under a temp root so path resolution
// and symlink canonicalization behave normally, while serving
// dynamic-linking metadata from an in-memory FakeInspector instead of
// parsing ELF headers.
package bintest

import (
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"layerforge/pkg/closure"
)

// FakeInspector serves closure.BinaryInfo from a map keyed by canonical
// path. Unregistered files report the way debug/elf reports a non-ELF
// file; missing files report not-found.
type FakeInspector struct {
	Binaries map[string]*closure.BinaryInfo
}

// Inspect implements closure.Inspector.
func (f *FakeInspector) Inspect(path string) (*closure.BinaryInfo, error) {
	if info, ok := f.Binaries[path]; ok {
		return info, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &closure.NotFoundError{Path: path}
	}
	return nil, &closure.InvalidFormatError{Path: path, Detail: "not registered as a binary"}
}

// Graph is a synthetic dependency graph rooted in a temp directory.
type Graph struct {
	t         *testing.T
	Root      string
	Inspector *FakeInspector
}

// NewGraph creates an empty graph under t.TempDir().
func NewGraph(t *testing.T) *Graph {
	t.Helper()
	return &Graph{
		t:         t,
		Root:      t.TempDir(),
		Inspector: &FakeInspector{Binaries: make(map[string]*closure.BinaryInfo)},
	}
}

// Binary creates relPath under the graph root and registers its metadata.
// Class and Machine default to 64-bit x86-64 when unset.
func (g *Graph) Binary(relPath string, info closure.BinaryInfo) string {
	g.t.Helper()
	path := filepath.Join(g.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		g.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte{}, 0o755); err != nil {
		g.t.Fatal(err)
	}
	if info.Class == elf.ELFCLASSNONE {
		info.Class = elf.ELFCLASS64
	}
	if info.Machine == elf.EM_NONE {
		info.Machine = elf.EM_X86_64
	}
	g.Inspector.Binaries[g.MustCanonical(path)] = &info
	return path
}

// Symlink creates a symlink at relPath pointing to target.
func (g *Graph) Symlink(relPath, target string) string {
	g.t.Helper()
	path := filepath.Join(g.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		g.t.Fatal(err)
	}
	if err := os.Symlink(target, path); err != nil {
		g.t.Fatal(err)
	}
	return path
}

// Dir returns an absolute path under the graph root, creating it.
func (g *Graph) Dir(rel string) string {
	g.t.Helper()
	path := filepath.Join(g.Root, rel)
	if err := os.MkdirAll(path, 0o755); err != nil {
		g.t.Fatal(err)
	}
	return path
}

// Resolver builds a closure.Resolver wired to this graph: fake inspector,
// no environment paths, no loader configuration, and the graph's lib/
// directory as the only default search directory. Extra options override
// the wiring.
func (g *Graph) Resolver(opts ...closure.ResolverOption) *closure.Resolver {
	base := []closure.ResolverOption{
		closure.WithInspector(g.Inspector),
		closure.WithLibraryPath(""),
		closure.WithLDConfPath(filepath.Join(g.Root, "no-ld.so.conf")),
		closure.WithDefaultDirs(filepath.Join(g.Root, "lib")),
	}
	return closure.NewResolver(append(base, opts...)...)
}

// MustCanonical resolves symlinks or fails the test.
func (g *Graph) MustCanonical(path string) string {
	g.t.Helper()
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		g.t.Fatal(err)
	}
	return canonical
}
