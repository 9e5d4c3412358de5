// SPDX-License-Identifier: MPL-2.0

package layer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCollision is the sentinel error wrapped by CollisionError.
	ErrCollision = errors.New("destination name collision")

	// ErrCopy is the sentinel error wrapped by CopyError.
	ErrCopy = errors.New("staging copy failed")

	// ErrArchive is the sentinel error wrapped by ArchiveError.
	ErrArchive = errors.New("archive creation failed")
)

type (
	// CollisionError is returned when two distinct source artifacts map to
	// the same destination name. Silently overwriting one with the other
	// would produce a runtime that does not match what was resolved, so
	// this is fatal and detected before any copy begins.
	CollisionError struct {
		DestName string
		Sources  []string
	}

	// CopyError is returned when staging an artifact or asset fails.
	CopyError struct {
		Source string
		Dest   string
		Err    error
	}

	// ArchiveError is returned when producing the final compressed file
	// fails. The partial output is removed before this error surfaces.
	ArchiveError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface for CollisionError.
func (e *CollisionError) Error() string {
	return fmt.Sprintf("destination %q claimed by multiple sources: %s",
		e.DestName, strings.Join(e.Sources, ", "))
}

// Unwrap returns ErrCollision so callers can use errors.Is for programmatic detection.
func (e *CollisionError) Unwrap() error { return ErrCollision }

// Error implements the error interface for CopyError.
func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s to %s: %v", e.Source, e.Dest, e.Err)
}

// Unwrap returns the underlying cause chained through ErrCopy.
func (e *CopyError) Unwrap() error { return ErrCopy }

// Error implements the error interface for ArchiveError.
func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrArchive so callers can use errors.Is for programmatic detection.
func (e *ArchiveError) Unwrap() error { return ErrArchive }
