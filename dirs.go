package vfs

import "io/fs"

// CreateDirectoryPath creates path and any missing parents in the writable
// location loc. A directory that already exists is success.
//
// CreateDirectoryPath panics if loc is not writable.
func (f *FileSystem) CreateDirectoryPath(loc StorageLocation, path string) error {
	root, rel, err := f.writableRoot("CreateDirectoryPath", loc, path)
	if err != nil {
		return err
	}
	return root.MkdirPath(rel)
}

// DeleteFile removes the file path from the writable location loc. For
// LocationDLC only the cached copy is removed; the package copy, if any,
// becomes visible again.
//
// DeleteFile panics if loc is not writable.
func (f *FileSystem) DeleteFile(loc StorageLocation, path string) error {
	root, rel, err := f.writableRoot("DeleteFile", loc, path)
	if err != nil {
		return err
	}
	return root.Remove(rel)
}

// DeleteDirectory removes the directory path and its contents from the
// writable location loc. Deleting the root of SaveData, Cache or DLC
// empties it; the root of LocationRoot is an fs.ErrInvalid error.
//
// DeleteDirectory panics if loc is not writable.
func (f *FileSystem) DeleteDirectory(loc StorageLocation, path string) error {
	root, rel, err := f.writableRoot("DeleteDirectory", loc, path)
	if err != nil {
		return err
	}
	if loc == LocationRoot && rel == "" {
		return &fs.PathError{Op: "DeleteDirectory", Path: path, Err: fs.ErrInvalid}
	}
	return root.RemoveAll(rel)
}
