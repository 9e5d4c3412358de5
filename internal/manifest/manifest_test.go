// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"layerforge/internal/layer"
)

func writeLayerfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validLayerfile = `
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

func TestLoadValidLayerfile(t *testing.T) {
	m, err := Load(writeLayerfile(t, validLayerfile))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if m.Name != "poppler" {
		t.Errorf("Name = %q, want %q", m.Name, "poppler")
	}
	if len(m.Bundle.EntryPoints) != 3 {
		t.Errorf("EntryPoints = %v, want 3 entries", m.Bundle.EntryPoints)
	}
	wantArchs := []Architecture{ArchX8664, ArchARM64}
	if !reflect.DeepEqual(m.Build.Architectures, wantArchs) {
		t.Errorf("Architectures = %v, want %v", m.Build.Architectures, wantArchs)
	}
	if m.Build.Image != "public.ecr.aws/sam/build-provided.al2:latest" {
		t.Errorf("Image = %q", m.Build.Image)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load() of missing file succeeded, want error")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	content := validLayerfile + "\n[unknown]\nkey = 1\n"
	if _, err := Load(writeLayerfile(t, content)); err == nil {
		t.Error("Load() with unknown table succeeded, want error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Manifest {
		return Manifest{
			Name: "poppler",
			Bundle: BundleSpec{
				EntryPoints: []string{"/usr/bin/pdfinfo"},
				Assets:      map[string]string{"fonts": "/usr/share/fonts"},
			},
			Build: BuildSpec{Architectures: []Architecture{ArchX8664}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Manifest)
		wantErr error
	}{
		{
			name:   "valid manifest",
			mutate: func(*Manifest) {},
		},
		{
			name:    "empty name",
			mutate:  func(m *Manifest) { m.Name = " " },
			wantErr: ErrInvalidManifest,
		},
		{
			name:    "no entry points",
			mutate:  func(m *Manifest) { m.Bundle.EntryPoints = nil },
			wantErr: ErrInvalidManifest,
		},
		{
			name:    "relative entry point",
			mutate:  func(m *Manifest) { m.Bundle.EntryPoints = []string{"bin/pdfinfo"} },
			wantErr: ErrInvalidEntryPoint,
		},
		{
			name:    "unsupported architecture",
			mutate:  func(m *Manifest) { m.Build.Architectures = []Architecture{"riscv64"} },
			wantErr: ErrInvalidArchitecture,
		},
		{
			name:    "duplicate architecture",
			mutate:  func(m *Manifest) { m.Build.Architectures = []Architecture{ArchX8664, ArchX8664} },
			wantErr: ErrInvalidManifest,
		},
		{
			name:    "no architectures",
			mutate:  func(m *Manifest) { m.Build.Architectures = nil },
			wantErr: ErrInvalidManifest,
		},
		{
			name:    "asset name with separator",
			mutate:  func(m *Manifest) { m.Bundle.Assets = map[string]string{"a/b": "/srv/data"} },
			wantErr: ErrInvalidAssetName,
		},
		{
			name:    "asset name shadows lib",
			mutate:  func(m *Manifest) { m.Bundle.Assets = map[string]string{"lib": "/srv/data"} },
			wantErr: ErrInvalidAssetName,
		},
		{
			name:    "relative asset dir",
			mutate:  func(m *Manifest) { m.Bundle.Assets = map[string]string{"fonts": "share/fonts"} },
			wantErr: ErrInvalidManifest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(&m)
			err := m.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAssetGroupsSorted(t *testing.T) {
	m := Manifest{Bundle: BundleSpec{Assets: map[string]string{
		"poppler-data": "/usr/share/poppler",
		"fonts":        "/usr/share/fonts",
	}}}

	want := []layer.AssetGroup{
		{Name: "fonts", SourceDir: "/usr/share/fonts"},
		{Name: "poppler-data", SourceDir: "/usr/share/poppler"},
	}
	if got := m.AssetGroups(); !reflect.DeepEqual(got, want) {
		t.Errorf("AssetGroups() = %v, want %v", got, want)
	}
}

func TestArchiveName(t *testing.T) {
	m := Manifest{Name: "poppler"}
	if got := m.ArchiveName(ArchARM64); got != "poppler-arm64.zip" {
		t.Errorf("ArchiveName() = %q, want %q", got, "poppler-arm64.zip")
	}
}

func TestArchitecturePlatform(t *testing.T) {
	if got := ArchX8664.Platform(); got != "linux/amd64" {
		t.Errorf("Platform() = %q, want linux/amd64", got)
	}
	if got := ArchARM64.Platform(); got != "linux/arm64" {
		t.Errorf("Platform() = %q, want linux/arm64", got)
	}
}
