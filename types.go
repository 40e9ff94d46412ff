package vfs

import (
	"io"
	"slices"

	"github.com/meigma/vfs/internal/location"
	"github.com/meigma/vfs/internal/resolve"
)

// StorageLocation identifies a logical root.
type StorageLocation = location.StorageLocation

// Storage locations.
const (
	LocationNone     = location.None
	LocationPackage  = location.Package
	LocationEngine   = location.Engine
	LocationSaveData = location.SaveData
	LocationCache    = location.Cache
	LocationDLC      = location.DLC
	LocationRoot     = location.Root
)

// PathInfo is one physical candidate for a logical path.
type PathInfo = resolve.PathInfo

// ParseStorageLocation returns the location named by s, case-insensitively.
var ParseStorageLocation = location.Parse

// StorageLocations returns every valid storage location in declaration
// order.
func StorageLocations() []StorageLocation {
	return slices.Clone(location.All)
}

// IsWritable reports whether files in l may be created, changed or removed.
var IsWritable = location.IsWritable

// ReadStream is an open file.
type ReadStream interface {
	io.ReadSeekCloser
	io.ReaderAt

	// Size returns the length of the file in bytes.
	Size() int64
}

// WriteStream writes a file atomically. Close publishes the content at the
// destination path; Discard abandons it.
type WriteStream interface {
	io.WriteCloser
	Discard() error
}

// ZipFileInfo describes where a file's bytes live inside the package
// archive.
type ZipFileInfo struct {
	// ArchivePath is the host path of the package archive.
	ArchivePath string

	// Offset is the byte offset of the file's data within the archive.
	Offset int64

	// CompressedSize is the stored size of the data.
	CompressedSize uint64

	// UncompressedSize is the size of the file once decompressed.
	UncompressedSize uint64

	// Compressed is false when the data is stored as-is.
	Compressed bool
}
