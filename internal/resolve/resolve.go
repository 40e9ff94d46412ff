// Package resolve maps a logical (location, path) pair to the ordered
// physical candidates that may hold it.
package resolve

import (
	"github.com/meigma/vfs/internal/location"
	"github.com/meigma/vfs/internal/pathutil"
)

// PathInfo is one candidate to probe.
type PathInfo struct {
	// Location is the storage location whose root Path is relative to.
	Location location.StorageLocation

	// Path is the normalized path relative to the location's root.
	Path string

	// ArchiveBacked is true when the candidate lives inside the package
	// archive rather than on disk.
	ArchiveBacked bool
}

// Resolver produces candidates for a fixed package layout.
type Resolver struct {
	layout location.Layout
}

// New returns a Resolver for layout.
func New(layout location.Layout) *Resolver {
	return &Resolver{layout: layout}
}

// Resolve returns the candidates for path in priority order. It performs
// no I/O. Invalid locations resolve to no candidates.
func (r *Resolver) Resolve(loc location.StorageLocation, path string) []PathInfo {
	chain := r.layout.FallbackChain(loc)
	if len(chain) == 0 {
		return nil
	}
	path = pathutil.Normalize(path)
	out := make([]PathInfo, len(chain))
	for i, c := range chain {
		out[i] = PathInfo{
			Location:      c.Location,
			Path:          pathutil.Join(c.Prefix, path),
			ArchiveBacked: c.ArchiveBacked,
		}
	}
	return out
}

// Primary returns the first candidate for path, which is where writes to
// loc land.
func (r *Resolver) Primary(loc location.StorageLocation, path string) (PathInfo, bool) {
	candidates := r.Resolve(loc, path)
	if len(candidates) == 0 {
		return PathInfo{}, false
	}
	return candidates[0], true
}
