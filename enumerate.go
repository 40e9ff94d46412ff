package vfs

import (
	"fmt"
	"path"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// GetFilePaths returns the files below dir in loc as sorted paths relative
// to dir. Without recursive only direct children are listed.
//
// Every candidate for loc contributes, so for LocationDLC the result is the
// union of the cached and packaged DLC with each path listed once. A
// missing directory yields an empty result.
func (f *FileSystem) GetFilePaths(loc StorageLocation, dir string, recursive bool) ([]string, error) {
	mustBeValid("GetFilePaths", loc)
	return f.enumerate(loc, dir, recursive, true)
}

// GetDirectoryPaths returns the directories below dir in loc as sorted
// paths relative to dir, merged across candidates like GetFilePaths.
func (f *FileSystem) GetDirectoryPaths(loc StorageLocation, dir string, recursive bool) ([]string, error) {
	mustBeValid("GetDirectoryPaths", loc)
	return f.enumerate(loc, dir, recursive, false)
}

func (f *FileSystem) enumerate(loc StorageLocation, dir string, recursive, files bool) ([]string, error) {
	if _, ok := f.findDirectory(loc, dir); !ok {
		return []string{}, nil
	}

	seen := make(map[string]struct{})
	for _, c := range f.resolver.Resolve(loc, dir) {
		var paths []string
		switch {
		case c.ArchiveBacked && files:
			paths = f.manifestFor(c.Location).Files(c.Path, recursive)
		case c.ArchiveBacked:
			paths = f.manifestFor(c.Location).Directories(c.Path, recursive)
		default:
			var err error
			root := f.rootFor(c.Location)
			if files {
				paths, err = root.Files(c.Path, recursive)
			} else {
				paths, err = root.Directories(c.Path, recursive)
			}
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", dir, err)
			}
		}
		for _, p := range paths {
			seen[p] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

// Glob returns the files below dir in loc whose paths relative to dir match
// pattern. Patterns use doublestar syntax, so "**/*.png" matches at any
// depth while "*.png" matches direct children only.
func (f *FileSystem) Glob(loc StorageLocation, dir, pattern string) ([]string, error) {
	mustBeValid("Glob", loc)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("glob %q: %w", pattern, path.ErrBadPattern)
	}

	files, err := f.enumerate(loc, dir, true, true)
	if err != nil {
		return nil, err
	}
	out := files[:0]
	for _, p := range files {
		if ok, _ := doublestar.Match(pattern, p); ok {
			out = append(out, p)
		}
	}
	return out, nil
}
