// Package vfs provides a virtual file system over an application package
// and a set of writable storage locations.
//
// Every operation takes a [StorageLocation] and a path relative to that
// location. The package may be a plain directory or a single zip archive;
// when it is an archive, reads are served from inside it without unpacking,
// through a manifest of hashed paths built once when the file system is
// created.
//
// # Locations
//
//   - [LocationPackage] and [LocationEngine] are read-only.
//   - [LocationSaveData] and [LocationCache] are writable directories under
//     the storage path.
//   - [LocationDLC] is writable. Reads prefer the downloaded copy in the
//     cache and fall back to the DLC directory shipped inside the package.
//   - [LocationRoot] addresses the host file system directly.
//
// # Quick Start
//
//	fsys, err := vfs.New("/opt/game/package.zip", "/var/lib/game")
//	if err != nil {
//	    return err
//	}
//	defer fsys.Close()
//
//	data, err := fsys.ReadFile(vfs.LocationPackage, "Textures/hero.png")
//	if errors.Is(err, fs.ErrNotExist) {
//	    // not shipped
//	}
//
// # Errors
//
// Missing files are reported as [*fs.PathError] values wrapping
// [fs.ErrNotExist]; existence checks simply return false. Passing a
// read-only location to an operation that modifies files, or passing
// [LocationNone] anywhere, is a programming error and panics.
//
// All methods are safe for concurrent use. Reads from the archive are
// serialized internally; disk access is not.
package vfs
