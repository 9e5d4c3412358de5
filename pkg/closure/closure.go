// SPDX-License-Identifier: MPL-2.0

package closure

import "sort"

// Closure is a de-duplicated set of absolute filesystem paths covering
// everything a binary needs at runtime. Members are canonical paths: all
// symlinks resolved, so two aliases of one file occupy a single slot.
type Closure struct {
	members map[string]struct{}
}

// NewClosure creates an empty Closure.
func NewClosure() *Closure {
	return &Closure{members: make(map[string]struct{})}
}

// Add inserts a canonical path into the closure. Adding an existing
// member is a no-op. It reports whether the path was newly added.
func (c *Closure) Add(path string) bool {
	if _, ok := c.members[path]; ok {
		return false
	}
	c.members[path] = struct{}{}
	return true
}

// Contains reports whether the closure already holds the given canonical path.
func (c *Closure) Contains(path string) bool {
	_, ok := c.members[path]
	return ok
}

// Len returns the number of members.
func (c *Closure) Len() int {
	return len(c.members)
}

// Paths returns the members sorted ascending. Sorting keeps downstream
// iteration (copying, archiving, logging) deterministic across runs.
func (c *Closure) Paths() []string {
	paths := make([]string, 0, len(c.members))
	for p := range c.members {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Union returns a new Closure containing the members of all given closures.
// An artifact required by several entry points appears exactly once.
func Union(closures ...*Closure) *Closure {
	u := NewClosure()
	for _, c := range closures {
		if c == nil {
			continue
		}
		for p := range c.members {
			u.members[p] = struct{}{}
		}
	}
	return u
}
