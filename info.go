package vfs

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/meigma/vfs/internal/pathutil"
)

// FileSize returns the size of the file path in loc. For archive files this
// is the uncompressed size.
func (f *FileSystem) FileSize(loc StorageLocation, path string) (uint64, error) {
	mustBeValid("FileSize", loc)
	c, e, ok := f.findFile(loc, path)
	if !ok {
		return 0, notExist("stat", path)
	}
	if c.ArchiveBacked {
		return e.Size, nil
	}
	return f.rootFor(c.Location).Size(c.Path)
}

// DirectorySize returns the total size of every file below the directory
// path in loc, counting each path once as GetFilePaths does.
func (f *FileSystem) DirectorySize(loc StorageLocation, path string) (uint64, error) {
	mustBeValid("DirectorySize", loc)
	if !f.DirectoryExists(loc, path) {
		return 0, notExist("stat", path)
	}
	files, err := f.GetFilePaths(loc, path, true)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, rel := range files {
		size, err := f.FileSize(loc, pathutil.Join(path, rel))
		if err != nil {
			return 0, err
		}
		total += size
	}
	return total, nil
}

// ZippedFileInfo reports where the file path in loc is stored inside the
// package archive. It fails with ErrNotArchived when the file is served
// from disk.
func (f *FileSystem) ZippedFileInfo(loc StorageLocation, path string) (ZipFileInfo, error) {
	mustBeValid("ZippedFileInfo", loc)
	c, e, ok := f.findFile(loc, path)
	if !ok {
		return ZipFileInfo{}, notExist("stat", path)
	}
	if !c.ArchiveBacked {
		return ZipFileInfo{}, fmt.Errorf("%s: %w", path, ErrNotArchived)
	}
	info, err := f.session.Info(e.Position)
	if err != nil {
		return ZipFileInfo{}, err
	}
	return ZipFileInfo{
		ArchivePath:      f.packagePath,
		Offset:           info.Offset,
		CompressedSize:   info.CompressedSize,
		UncompressedSize: info.UncompressedSize,
		Compressed:       info.Compressed,
	}, nil
}

// ContentType detects the MIME type of the file path in loc from its
// leading bytes.
func (f *FileSystem) ContentType(loc StorageLocation, path string) (string, error) {
	stream, err := f.CreateReadStream(loc, path)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	mtype, err := mimetype.DetectReader(stream)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", path, err)
	}
	return mtype.String(), nil
}
