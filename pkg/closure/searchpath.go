// SPDX-License-Identifier: MPL-2.0

package closure

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// defaultLDConfPath is the loader configuration consulted when the
// resolver is not given an explicit one.
const defaultLDConfPath = "/etc/ld.so.conf"

// maxLDConfIncludeDepth bounds recursive "include" directives. Real
// configurations are one or two levels deep; the bound only guards
// against include cycles.
const maxLDConfIncludeDepth = 8

// defaultSearchDirs are the trusted directories the loader falls back to
// after every configured path is exhausted. The multiarch triplet
// directories are listed unconditionally: candidates for a foreign
// architecture are rejected by the class/machine check, not by omitting
// their directories.
func defaultSearchDirs() []string {
	return []string{
		"/lib64",
		"/usr/lib64",
		"/lib/x86_64-linux-gnu",
		"/usr/lib/x86_64-linux-gnu",
		"/lib/aarch64-linux-gnu",
		"/usr/lib/aarch64-linux-gnu",
		"/lib",
		"/usr/lib",
	}
}

// parseLDConf reads an ld.so.conf style file and returns the search
// directories it declares, in order. "include" directives are expanded
// with glob semantics relative to the directory of the including file.
// A missing file is not an error: the loader treats it the same way.
func parseLDConf(path string) []string {
	return parseLDConfDepth(path, 0)
}

func parseLDConfDepth(path string, depth int) []string {
	if depth > maxLDConfIncludeDepth {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var dirs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if pattern, ok := strings.CutPrefix(line, "include "); ok {
			pattern = strings.TrimSpace(pattern)
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(filepath.Dir(path), pattern)
			}
			matches, err := filepath.Glob(pattern)
			if err != nil {
				continue
			}
			for _, m := range matches {
				dirs = append(dirs, parseLDConfDepth(m, depth+1)...)
			}
			continue
		}

		dirs = append(dirs, line)
	}

	return dirs
}

// envSearchDirs splits an LD_LIBRARY_PATH style value into its non-empty
// directory components. Both ':' and ';' separate entries, matching the
// loader's parsing.
func envSearchDirs(value string) []string {
	var dirs []string
	for _, dir := range strings.FieldsFunc(value, func(r rune) bool {
		return r == ':' || r == ';'
	}) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
