package vfs

import (
	"github.com/meigma/vfs/internal/location"
	"github.com/meigma/vfs/internal/pathutil"
)

// GetAbsolutePathToFile returns the host path of the file path in loc, or
// "" if it does not exist.
//
// A file inside the package archive has no host path of its own; the result
// is the archive path followed by "/" and the file's path inside the
// archive.
func (f *FileSystem) GetAbsolutePathToFile(loc StorageLocation, path string) string {
	mustBeValid("GetAbsolutePathToFile", loc)
	c, _, ok := f.findFile(loc, path)
	if !ok {
		return ""
	}
	return f.absolute(c)
}

// GetAbsolutePathToDirectory returns the host path of the directory path in
// loc, or "" if it does not exist. Archive directories are reported like
// GetAbsolutePathToFile reports archive files.
func (f *FileSystem) GetAbsolutePathToDirectory(loc StorageLocation, path string) string {
	mustBeValid("GetAbsolutePathToDirectory", loc)
	c, ok := f.findDirectory(loc, path)
	if !ok {
		return ""
	}
	return f.absolute(c)
}

// GetAbsolutePathToStorageLocation returns the host directory backing loc.
// For LocationDLC this is the DLC cache.
func (f *FileSystem) GetAbsolutePathToStorageLocation(loc StorageLocation) string {
	mustBeValid("GetAbsolutePathToStorageLocation", loc)
	c, _ := f.resolver.Primary(loc, "")
	return f.absolute(c)
}

func (f *FileSystem) absolute(c PathInfo) string {
	if !c.ArchiveBacked {
		return f.rootFor(c.Location).Abs(c.Path)
	}
	root := f.applicationRoot
	if c.Location == location.Engine {
		root = f.engineRoot
	}
	inner := pathutil.Join(f.archivePath(root), c.Path)
	if inner == "" {
		return f.packagePath
	}
	return f.packagePath + "/" + inner
}
