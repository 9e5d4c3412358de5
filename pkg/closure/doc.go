// SPDX-License-Identifier: MPL-2.0

// Package closure computes the transitive shared-library closure of a
// dynamically linked binary.
//
// Given the path to an executable or shared object, Resolver.Resolve walks
// the binary's DT_NEEDED entries breadth-first, locating each library via
// the dynamic loader's search rules (DT_RPATH/DT_RUNPATH with $ORIGIN
// expansion, LD_LIBRARY_PATH, /etc/ld.so.conf directories, and the platform
// default directories). The result is a Closure: a de-duplicated set of
// absolute, symlink-resolved paths containing the entry binary itself,
// every transitively required library, and the program interpreter.
//
// Identity is the canonical (symlink-free) path, so multiple aliases of
// the same library contribute a single closure member, and cyclic
// dependency graphs terminate without duplication.
//
// Binary metadata is read through the Inspector interface. The default
// ELFInspector parses files with debug/elf; tests substitute a fake to
// resolve against synthetic dependency graphs.
package closure
