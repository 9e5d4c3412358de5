// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"layerforge/internal/layer"
	"layerforge/internal/manifest"
	"layerforge/internal/testutil"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev version", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestRunInit(t *testing.T) {
	restore := testutil.MustChdir(t, t.TempDir())
	t.Cleanup(restore)
	t.Cleanup(func() { initForce = false })

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit() error: %v", err)
	}

	m, err := manifest.Load(manifest.DefaultFileName)
	if err != nil {
		t.Fatalf("scaffolded layerfile does not validate: %v", err)
	}
	if m.Name != "poppler" {
		t.Errorf("scaffold name = %q, want poppler", m.Name)
	}
	if len(m.Build.Architectures) != 2 {
		t.Errorf("scaffold architectures = %v", m.Build.Architectures)
	}

	// A second init without --force must refuse to overwrite.
	err = runInit(initCmd, nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("runInit() on existing file = %v, want ExitError code 1", err)
	}

	initForce = true
	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit() with --force error: %v", err)
	}
}

func TestRunInspect(t *testing.T) {
	staged := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(staged, "bin"), 0o755)
	testutil.MustMkdirAll(t, filepath.Join(staged, "lib"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(staged, "bin", "pdftotext"), []byte("bin"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(staged, "lib", "libpoppler.so.126"), []byte("lib"), 0o755)

	archive := filepath.Join(t.TempDir(), "poppler-x86_64.zip")
	if err := layer.Archive(t.Context(), &layer.Tree{Root: staged}, archive); err != nil {
		t.Fatalf("Archive() error: %v", err)
	}

	if err := runInspect(inspectCmd, []string{archive}); err != nil {
		t.Fatalf("runInspect() error: %v", err)
	}
}

func TestRunInspectMissingArchive(t *testing.T) {
	err := runInspect(inspectCmd, []string{filepath.Join(t.TempDir(), "missing.zip")})
	if !errors.Is(err, layer.ErrArchive) {
		t.Fatalf("runInspect() = %v, want ErrArchive", err)
	}
}

func TestLoadLayerfileMissing(t *testing.T) {
	_, err := loadLayerfile(filepath.Join(t.TempDir(), "layerfile.toml"))
	if err == nil {
		t.Fatal("loadLayerfile() error = nil, want non-nil")
	}
}

func TestBundleRejectsInvalidLayerfile(t *testing.T) {
	restore := testutil.MustChdir(t, t.TempDir())
	t.Cleanup(restore)
	t.Cleanup(func() { bundleLayerfile = manifest.DefaultFileName })

	testutil.MustWriteFile(t, manifest.DefaultFileName, []byte("name = \"\"\n"), 0o644)
	bundleLayerfile = manifest.DefaultFileName

	err := runBundle(bundleCmd, nil)
	if !errors.Is(err, manifest.ErrInvalidManifest) {
		t.Fatalf("runBundle() = %v, want ErrInvalidManifest", err)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{size: 512, want: "512 bytes"},
		{size: 2048, want: "2.00 KB"},
		{size: 3 * 1024 * 1024, want: "3.00 MB"},
		{size: 5 * 1024 * 1024 * 1024, want: "5.00 GB"},
	}
	for _, tt := range tests {
		if got := formatFileSize(tt.size); got != tt.want {
			t.Errorf("formatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestBuildArchitecturesSubset(t *testing.T) {
	m := &manifest.Manifest{
		Build: manifest.BuildSpec{
			Architectures: []manifest.Architecture{manifest.ArchX8664, manifest.ArchARM64},
		},
	}
	if got := buildArchitectures(m, nil); len(got) != 2 {
		t.Errorf("buildArchitectures(all) = %v", got)
	}
	got := buildArchitectures(m, []manifest.Architecture{manifest.ArchARM64})
	if len(got) != 1 || got[0] != manifest.ArchARM64 {
		t.Errorf("buildArchitectures(subset) = %v", got)
	}
}

func TestStarterLayerfileMatchesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layerfile.toml")
	if err := os.WriteFile(path, []byte(starterLayerfile), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("starter layerfile invalid: %v", err)
	}
	if m.ArchiveName(manifest.ArchARM64) != "poppler-arm64.zip" {
		t.Errorf("ArchiveName = %q", m.ArchiveName(manifest.ArchARM64))
	}
}
