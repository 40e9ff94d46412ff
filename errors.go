package vfs

import (
	"errors"

	"github.com/meigma/vfs/internal/archive"
	"github.com/meigma/vfs/internal/disk"
)

// Sentinel errors re-exported from internal packages.
var (
	// ErrDecompression is returned when an archive entry cannot be decompressed.
	ErrDecompression = archive.ErrDecompression

	// ErrSizeOverflow is returned when an archive entry exceeds the size limit
	// or does not match its declared size.
	ErrSizeOverflow = archive.ErrSizeOverflow

	// ErrClosed is returned when the file system has been closed.
	ErrClosed = archive.ErrClosed

	// ErrNotDirectory is returned when a path segment that must be a
	// directory is a file.
	ErrNotDirectory = disk.ErrNotDirectory
)

// Sentinel errors specific to the vfs package.
var (
	// ErrNotArchived is returned when archive details are requested for a
	// file that is not served from the package archive.
	ErrNotArchived = errors.New("vfs: file is not in the package archive")

	// ErrPackageNotFound is returned by New when the package path does not
	// exist.
	ErrPackageNotFound = errors.New("vfs: package not found")
)
