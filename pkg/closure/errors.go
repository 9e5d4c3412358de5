// SPDX-License-Identifier: MPL-2.0

package closure

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the sentinel error wrapped by NotFoundError.
	ErrNotFound = errors.New("entry binary not found")

	// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
	ErrInvalidFormat = errors.New("not a recognized binary")

	// ErrMissingDependency is the sentinel error wrapped by MissingDependencyError.
	ErrMissingDependency = errors.New("unresolvable shared library")
)

type (
	// NotFoundError is returned when an entry path does not exist on the
	// filesystem.
	NotFoundError struct {
		Path string
	}

	// InvalidFormatError is returned when a file exists but is not a binary
	// the platform loader recognizes (e.g., a script or a truncated file).
	InvalidFormatError struct {
		Path   string
		Detail string
	}

	// MissingDependencyError is returned when a DT_NEEDED reference cannot
	// be located anywhere in the search rules. It names both the unresolved
	// library and the binary that requested it, since the requester is what
	// the operator needs in order to fix the build.
	MissingDependencyError struct {
		Library    string
		RequiredBy string
	}
)

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entry binary %q not found", e.Path)
}

// Unwrap returns ErrNotFound so callers can use errors.Is for programmatic detection.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface for InvalidFormatError.
func (e *InvalidFormatError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%q is not a recognized binary: %s", e.Path, e.Detail)
	}
	return fmt.Sprintf("%q is not a recognized binary", e.Path)
}

// Unwrap returns ErrInvalidFormat so callers can use errors.Is for programmatic detection.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// Error implements the error interface for MissingDependencyError.
func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("cannot resolve shared library %q required by %q", e.Library, e.RequiredBy)
}

// Unwrap returns ErrMissingDependency so callers can use errors.Is for programmatic detection.
func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }
