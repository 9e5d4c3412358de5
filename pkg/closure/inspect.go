// SPDX-License-Identifier: MPL-2.0

package closure

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

type (
	// BinaryInfo is the dynamic-linking metadata of a single binary, as the
	// platform loader would see it.
	BinaryInfo struct {
		// Class is the ELF class (32/64 bit).
		Class elf.Class
		// Machine is the target instruction set architecture.
		Machine elf.Machine
		// Needed lists the DT_NEEDED entries in declaration order.
		Needed []string
		// RunPath lists the DT_RUNPATH search directories, already split.
		RunPath []string
		// RPath lists the DT_RPATH search directories, already split.
		// Consulted only when RunPath is empty, matching ld.so behavior.
		RPath []string
		// Interp is the program interpreter path (PT_INTERP), empty for
		// shared objects and static executables.
		Interp string
	}

	// Inspector reads the dynamic-linking metadata of a binary. The
	// production implementation is ELFInspector; tests substitute a fake
	// to resolve synthetic dependency graphs without real binaries.
	Inspector interface {
		Inspect(path string) (*BinaryInfo, error)
	}

	// ELFInspector reads metadata with debug/elf.
	ELFInspector struct{}
)

// Inspect parses the file at path and returns its dynamic-linking metadata.
// A missing file yields a NotFoundError; a file the ELF parser rejects
// yields an InvalidFormatError.
func (ELFInspector) Inspect(path string) (*BinaryInfo, error) {
	f, err := elf.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		// os.Open surfaces I/O problems as *fs.PathError; anything else
		// means the file opened but did not parse as an ELF binary
		// (bad magic, truncated header, unsupported encoding).
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return nil, &InvalidFormatError{Path: path, Detail: err.Error()}
	}
	defer f.Close()

	info := &BinaryInfo{
		Class:   f.Class,
		Machine: f.Machine,
	}

	info.Needed, err = f.ImportedLibraries()
	if err != nil {
		return nil, &InvalidFormatError{Path: path, Detail: err.Error()}
	}

	info.RunPath = dynSearchDirs(f, elf.DT_RUNPATH)
	info.RPath = dynSearchDirs(f, elf.DT_RPATH)

	info.Interp, err = readInterp(f)
	if err != nil {
		return nil, &InvalidFormatError{Path: path, Detail: err.Error()}
	}

	return info, nil
}

// dynSearchDirs reads a DT_RUNPATH/DT_RPATH value and splits it into its
// colon-separated search directories. Empty segments are dropped.
func dynSearchDirs(f *elf.File, tag elf.DynTag) []string {
	values, err := f.DynString(tag)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, v := range values {
		for _, dir := range strings.Split(v, ":") {
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// readInterp extracts the program interpreter path from the PT_INTERP
// segment, if present.
func readInterp(f *elf.File) (string, error) {
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_INTERP {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(prog.Open(), 4096))
		if err != nil {
			return "", fmt.Errorf("read PT_INTERP: %w", err)
		}
		return string(bytes.TrimRight(data, "\x00")), nil
	}
	return "", nil
}
