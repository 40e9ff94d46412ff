// Package manifest indexes the contents of a package archive by path hash.
//
// A manifest is built once from a single sequential pass over the archive's
// central directory and is immutable afterwards, so lookups need no locking.
package manifest

import (
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/meigma/vfs/internal/archive"
	"github.com/meigma/vfs/internal/pathutil"
)

// Hasher computes the path hash of a normalized path.
type Hasher func(path string) uint64

// DefaultHasher hashes paths with 64-bit xxHash.
func DefaultHasher(path string) uint64 {
	return xxhash.Sum64String(path)
}

// Entry is one file or directory of a manifest.
type Entry struct {
	// PathHash is the hash of Path. It is not unique.
	PathHash uint64

	// Path is the normalized path relative to the manifest root.
	Path string

	// IsFile is false for both explicit and synthesized directories.
	IsFile bool

	// Position is the archive seek handle. It is invalid for directories
	// that were synthesized from file paths.
	Position archive.Position

	// Size is the declared uncompressed size of a file.
	Size uint64
}

// Manifest is an immutable path index over one archive namespace.
type Manifest struct {
	hash    Hasher
	entries []Entry
	buckets map[uint64][]int
}

func newManifest(hash Hasher) *Manifest {
	m := &Manifest{
		hash:    hash,
		buckets: make(map[uint64][]int),
	}
	m.add(Entry{Path: ""})
	return m
}

// add appends e unless its path is already present. It reports whether the
// entry was added.
func (m *Manifest) add(e Entry) bool {
	e.PathHash = m.hash(e.Path)
	if _, ok := m.find(e.PathHash, e.Path); ok {
		return false
	}
	m.buckets[e.PathHash] = append(m.buckets[e.PathHash], len(m.entries))
	m.entries = append(m.entries, e)
	return true
}

func (m *Manifest) find(hash uint64, path string) (int, bool) {
	for _, i := range m.buckets[hash] {
		if m.entries[i].Path == path {
			return i, true
		}
	}
	return 0, false
}

// Len returns the number of entries, including the root directory.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// TryFind returns the entry for path. The path is normalized first; a hash
// match is accepted only when the stored path is identical.
func (m *Manifest) TryFind(path string) (Entry, bool) {
	path = pathutil.Normalize(path)
	i, ok := m.find(m.hash(path), path)
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// FileExists reports whether path names a file.
func (m *Manifest) FileExists(path string) bool {
	e, ok := m.TryFind(path)
	return ok && e.IsFile
}

// DirectoryExists reports whether path names a directory.
func (m *Manifest) DirectoryExists(path string) bool {
	e, ok := m.TryFind(path)
	return ok && !e.IsFile
}

// Files returns the files under dir as paths relative to dir, sorted.
// Without recursive only direct children are returned.
func (m *Manifest) Files(dir string, recursive bool) []string {
	return m.collect(dir, recursive, true)
}

// Directories returns the directories under dir as paths relative to dir,
// sorted. dir itself is not included.
func (m *Manifest) Directories(dir string, recursive bool) []string {
	return m.collect(dir, recursive, false)
}

// Entries returns the entries under dir, sorted by path. It is used by
// callers that need seek handles for bulk extraction.
func (m *Manifest) Entries(dir string, recursive, files bool) []Entry {
	dir = pathutil.Normalize(dir)
	prefix := pathutil.DirPrefix(dir)

	var out []Entry
	for _, e := range m.entries {
		if e.IsFile != files || e.Path == dir {
			continue
		}
		if _, ok := under(e.Path, prefix, recursive); ok {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entry) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out
}

func (m *Manifest) collect(dir string, recursive, files bool) []string {
	entries := m.Entries(dir, recursive, files)
	if len(entries) == 0 {
		return nil
	}
	prefix := pathutil.DirPrefix(pathutil.Normalize(dir))
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path[len(prefix):]
	}
	return out
}

// under returns path relative to prefix if it lies below it. Without
// recursive only direct children match.
func under(path, prefix string, recursive bool) (string, bool) {
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return "", false
	}
	if recursive {
		return path[len(prefix):], true
	}
	name, sub := pathutil.Child(path, prefix)
	if sub {
		return "", false
	}
	return name, true
}
