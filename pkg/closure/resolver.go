// SPDX-License-Identifier: MPL-2.0

package closure

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type (
	// Resolver locates the transitive shared-library dependencies of a
	// binary using the dynamic loader's search rules for the environment
	// it runs in. A zero-configured Resolver (via NewResolver) reads
	// LD_LIBRARY_PATH, /etc/ld.so.conf, and the platform default
	// directories; tests override every rule through options.
	Resolver struct {
		inspector   Inspector
		envDirs     []string
		confDirs    []string
		defaultDirs []string
	}

	// ResolverOption configures a Resolver.
	ResolverOption func(*Resolver)
)

// WithInspector sets a custom binary inspector. Tests use this to resolve
// synthetic dependency graphs.
func WithInspector(i Inspector) ResolverOption {
	return func(r *Resolver) { r.inspector = i }
}

// WithLibraryPath sets the LD_LIBRARY_PATH value consulted during search,
// replacing the process environment.
func WithLibraryPath(value string) ResolverOption {
	return func(r *Resolver) { r.envDirs = envSearchDirs(value) }
}

// WithLDConfPath sets the ld.so.conf file parsed for configured search
// directories, replacing /etc/ld.so.conf.
func WithLDConfPath(path string) ResolverOption {
	return func(r *Resolver) { r.confDirs = parseLDConf(path) }
}

// WithDefaultDirs replaces the platform default search directories.
func WithDefaultDirs(dirs ...string) ResolverOption {
	return func(r *Resolver) { r.defaultDirs = dirs }
}

// NewResolver creates a Resolver wired to the current build environment.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		inspector:   ELFInspector{},
		envDirs:     envSearchDirs(os.Getenv("LD_LIBRARY_PATH")),
		confDirs:    parseLDConf(defaultLDConfPath),
		defaultDirs: defaultSearchDirs(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// visit pairs a closure member with its metadata for breadth-first descent.
type visit struct {
	path string
	info *BinaryInfo
}

// Resolve computes the dependency closure of the binary at entryPath.
//
// The returned Closure contains the entry binary's own canonical path,
// every transitively required library, and the program interpreter; the
// Assembler treats "things to copy" uniformly, so the entry is included
// by convention. The entry must exist (NotFoundError) and parse as a
// valid binary (InvalidFormatError). Any DT_NEEDED reference that cannot
// be located is a MissingDependencyError; nothing is silently skipped.
func (r *Resolver) Resolve(entryPath string) (*Closure, error) {
	abs, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, &NotFoundError{Path: entryPath}
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: abs}
		}
		return nil, err
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, &NotFoundError{Path: abs}
	}

	info, err := r.inspector.Inspect(canonical)
	if err != nil {
		return nil, err
	}

	result := NewClosure()
	result.Add(canonical)
	// Memoizes soname -> canonical path within this walk so a library
	// needed by many binaries is searched once.
	located := make(map[string]string)

	queue := []visit{{path: canonical, info: info}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		deps := make([]string, 0, len(current.info.Needed)+1)
		deps = append(deps, current.info.Needed...)
		if current.info.Interp != "" {
			deps = append(deps, current.info.Interp)
		}

		for _, name := range deps {
			depPath, ok := located[name]
			if !ok {
				depPath, err = r.locate(name, current.path, current.info, info)
				if err != nil {
					return nil, err
				}
				located[name] = depPath
			}

			// Already-visited members are never re-descended; this is what
			// terminates mutual dependency cycles.
			if !result.Add(depPath) {
				continue
			}

			depInfo, err := r.inspector.Inspect(depPath)
			if err != nil {
				return nil, err
			}
			slog.Debug("resolved dependency",
				"library", name, "path", depPath, "requiredBy", current.path)
			queue = append(queue, visit{path: depPath, info: depInfo})
		}
	}

	return result, nil
}

// locate turns a DT_NEEDED name into the canonical path of a compatible
// library, following the loader's search order for the requesting binary:
// DT_RPATH (only when no DT_RUNPATH is present), LD_LIBRARY_PATH,
// DT_RUNPATH, configured directories, then the platform defaults.
// entry provides the architecture every candidate has to match.
func (r *Resolver) locate(name, requester string, requesterInfo, entry *BinaryInfo) (string, error) {
	// A needed entry containing a slash is a path, not a soname to search.
	if strings.ContainsRune(name, '/') {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(requester), path)
		}
		canonical, info, ok := r.candidate(path)
		if !ok {
			return "", &MissingDependencyError{Library: name, RequiredBy: requester}
		}
		if !compatible(info, entry) {
			return "", &MissingDependencyError{Library: name, RequiredBy: requester}
		}
		return canonical, nil
	}

	origin := filepath.Dir(requester)
	var dirs []string
	if len(requesterInfo.RunPath) == 0 {
		dirs = append(dirs, expandOrigin(requesterInfo.RPath, origin)...)
	}
	dirs = append(dirs, r.envDirs...)
	dirs = append(dirs, expandOrigin(requesterInfo.RunPath, origin)...)
	dirs = append(dirs, r.confDirs...)
	dirs = append(dirs, r.defaultDirs...)

	for _, dir := range dirs {
		canonical, info, ok := r.candidate(filepath.Join(dir, name))
		if !ok {
			continue
		}
		// A same-named library for a foreign architecture in an earlier
		// search directory is skipped, not an error.
		if !compatible(info, entry) {
			continue
		}
		return canonical, nil
	}

	return "", &MissingDependencyError{Library: name, RequiredBy: requester}
}

// candidate canonicalizes and inspects a prospective library path.
// Missing or unparsable files simply disqualify the candidate.
func (r *Resolver) candidate(path string) (string, *BinaryInfo, bool) {
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", nil, false
	}
	info, err := r.inspector.Inspect(canonical)
	if err != nil {
		return "", nil, false
	}
	return canonical, info, true
}

// compatible reports whether a candidate library matches the entry
// binary's ELF class and machine.
func compatible(candidate, entry *BinaryInfo) bool {
	return candidate.Class == entry.Class && candidate.Machine == entry.Machine
}

// expandOrigin substitutes $ORIGIN and ${ORIGIN} in rpath-style entries
// with the directory of the requesting binary.
func expandOrigin(dirs []string, origin string) []string {
	if len(dirs) == 0 {
		return nil
	}
	expanded := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		dir = strings.ReplaceAll(dir, "${ORIGIN}", origin)
		dir = strings.ReplaceAll(dir, "$ORIGIN", origin)
		expanded = append(expanded, dir)
	}
	return expanded
}
