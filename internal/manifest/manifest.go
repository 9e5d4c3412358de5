// SPDX-License-Identifier: MPL-2.0

// Package manifest loads and validates the layerfile: the TOML document
// describing what goes into a layer and which architectures to build.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"layerforge/internal/layer"
)

// DefaultFileName is the manifest looked for when none is given.
const DefaultFileName = "layerfile.toml"

const (
	// ArchX8664 targets 64-bit x86.
	ArchX8664 Architecture = "x86_64"
	// ArchARM64 targets 64-bit ARM.
	ArchARM64 Architecture = "arm64"
)

var (
	// ErrInvalidManifest is the sentinel error wrapped by InvalidManifestError.
	ErrInvalidManifest = errors.New("invalid layerfile")
	// ErrInvalidArchitecture is the sentinel error wrapped by InvalidArchitectureError.
	ErrInvalidArchitecture = errors.New("invalid architecture")
	// ErrInvalidEntryPoint is the sentinel error wrapped by InvalidEntryPointError.
	ErrInvalidEntryPoint = errors.New("invalid entry point")
	// ErrInvalidAssetName is the sentinel error wrapped by InvalidAssetNameError.
	ErrInvalidAssetName = errors.New("invalid asset group name")
)

type (
	// Architecture is a build target CPU architecture. The value set is
	// closed: the deployment runtime only ships the two.
	Architecture string

	// Manifest is a parsed layerfile.
	Manifest struct {
		// Name is the layer name; archives are named <name>-<arch>.zip.
		Name string `toml:"name"`
		// Bundle describes the layer contents.
		Bundle BundleSpec `toml:"bundle"`
		// Build describes how cross-architecture builds run.
		Build BuildSpec `toml:"build"`
	}

	// BundleSpec lists what goes into the layer.
	BundleSpec struct {
		// EntryPoints are absolute paths to the binaries to bundle,
		// resolved inside the build environment.
		EntryPoints []string `toml:"entrypoints"`
		// Assets maps asset group names to source directories copied
		// verbatim into the layer under the group name.
		Assets map[string]string `toml:"assets"`
	}

	// BuildSpec configures cross-architecture builds.
	BuildSpec struct {
		// Architectures to build; one archive is produced per entry.
		Architectures []Architecture `toml:"architectures"`
		// Image is the container image the bundle step runs in. When
		// empty, the configured default image is used.
		Image string `toml:"image"`
	}

	// InvalidManifestError aggregates every validation problem found in
	// a layerfile.
	InvalidManifestError struct {
		Path      string
		FieldErrs []error
	}

	// InvalidArchitectureError is returned for an architecture outside
	// the supported set.
	InvalidArchitectureError struct {
		Value Architecture
	}

	// InvalidEntryPointError is returned for a malformed entry point path.
	InvalidEntryPointError struct {
		Value  string
		Reason string
	}

	// InvalidAssetNameError is returned for an asset group name that
	// cannot serve as a layer subdirectory.
	InvalidAssetNameError struct {
		Name   string
		Reason string
	}
)

// Error implements the error interface for InvalidManifestError.
func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("invalid layerfile %s: %d problem(s)", e.Path, len(e.FieldErrs))
}

// Unwrap returns the sentinel plus every field error for errors.Is inspection.
func (e *InvalidManifestError) Unwrap() []error {
	return append([]error{ErrInvalidManifest}, e.FieldErrs...)
}

// Error implements the error interface for InvalidArchitectureError.
func (e *InvalidArchitectureError) Error() string {
	return fmt.Sprintf("invalid architecture %q (valid: %s, %s)", e.Value, ArchX8664, ArchARM64)
}

// Unwrap returns ErrInvalidArchitecture so callers can use errors.Is for programmatic detection.
func (e *InvalidArchitectureError) Unwrap() error { return ErrInvalidArchitecture }

// Error implements the error interface for InvalidEntryPointError.
func (e *InvalidEntryPointError) Error() string {
	return fmt.Sprintf("invalid entry point %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidEntryPoint so callers can use errors.Is for programmatic detection.
func (e *InvalidEntryPointError) Unwrap() error { return ErrInvalidEntryPoint }

// Error implements the error interface for InvalidAssetNameError.
func (e *InvalidAssetNameError) Error() string {
	return fmt.Sprintf("invalid asset group name %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidAssetName so callers can use errors.Is for programmatic detection.
func (e *InvalidAssetNameError) Unwrap() error { return ErrInvalidAssetName }

// String returns the string representation of the Architecture.
func (a Architecture) String() string { return string(a) }

// Validate returns an error if the Architecture is not in the supported set.
func (a Architecture) Validate() error {
	switch a {
	case ArchX8664, ArchARM64:
		return nil
	default:
		return &InvalidArchitectureError{Value: a}
	}
}

// Platform returns the container platform flag value for the architecture
// (e.g., "linux/arm64").
func (a Architecture) Platform() string {
	switch a {
	case ArchARM64:
		return "linux/arm64"
	default:
		return "linux/amd64"
	}
}

// HostArchitecture maps the given GOARCH value to a layer Architecture.
// The bundle step uses it to name its output after the environment it
// actually ran in.
func HostArchitecture(goarch string) (Architecture, error) {
	switch goarch {
	case "amd64":
		return ArchX8664, nil
	case "arm64":
		return ArchARM64, nil
	default:
		return "", &InvalidArchitectureError{Value: Architecture(goarch)}
	}
}

// Load reads and validates a layerfile.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layerfile %s: %w", path, err)
	}

	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse layerfile %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		if invalid, ok := err.(*InvalidManifestError); ok {
			invalid.Path = path
		}
		return nil, err
	}

	return &m, nil
}

// Validate checks the manifest and aggregates every problem found.
func (m *Manifest) Validate() error {
	var errs []error

	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, fmt.Errorf("name must not be empty"))
	}

	if len(m.Bundle.EntryPoints) == 0 {
		errs = append(errs, fmt.Errorf("bundle.entrypoints must list at least one binary"))
	}
	for _, ep := range m.Bundle.EntryPoints {
		if strings.TrimSpace(ep) == "" {
			errs = append(errs, &InvalidEntryPointError{Value: ep, Reason: "must not be empty"})
			continue
		}
		if !filepath.IsAbs(ep) {
			errs = append(errs, &InvalidEntryPointError{Value: ep, Reason: "must be an absolute path"})
		}
	}

	for name, dir := range m.Bundle.Assets {
		if err := validateAssetName(name); err != nil {
			errs = append(errs, err)
		}
		if strings.TrimSpace(dir) == "" {
			errs = append(errs, fmt.Errorf("asset group %q: source directory must not be empty", name))
		} else if !filepath.IsAbs(dir) {
			errs = append(errs, fmt.Errorf("asset group %q: source directory must be an absolute path", name))
		}
	}

	if len(m.Build.Architectures) == 0 {
		errs = append(errs, fmt.Errorf("build.architectures must list at least one architecture"))
	}
	seen := make(map[Architecture]struct{})
	for _, arch := range m.Build.Architectures {
		if err := arch.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[arch]; dup {
			errs = append(errs, fmt.Errorf("build.architectures lists %s twice", arch))
		}
		seen[arch] = struct{}{}
	}

	if len(errs) > 0 {
		return &InvalidManifestError{FieldErrs: errs}
	}
	return nil
}

// validateAssetName rejects names that cannot serve as a layer
// subdirectory or would shadow the fixed bin/ and lib/ entries.
func validateAssetName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &InvalidAssetNameError{Name: name, Reason: "must not be empty"}
	case strings.ContainsAny(name, `/\`):
		return &InvalidAssetNameError{Name: name, Reason: "must not contain path separators"}
	case strings.HasPrefix(name, "."):
		return &InvalidAssetNameError{Name: name, Reason: "must not start with a dot"}
	case name == layer.BinDirName, name == layer.LibDirName:
		return &InvalidAssetNameError{Name: name, Reason: "reserved for staged binaries and libraries"}
	default:
		return nil
	}
}

// AssetGroups returns the asset groups sorted by name, so staging order
// is deterministic regardless of map iteration.
func (m *Manifest) AssetGroups() []layer.AssetGroup {
	groups := make([]layer.AssetGroup, 0, len(m.Bundle.Assets))
	for name, dir := range m.Bundle.Assets {
		groups = append(groups, layer.AssetGroup{Name: name, SourceDir: dir})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

// ArchiveName returns the architecture-encoded archive file name.
func (m *Manifest) ArchiveName(arch Architecture) string {
	return fmt.Sprintf("%s-%s.zip", m.Name, arch)
}
