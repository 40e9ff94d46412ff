package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/meigma/vfs/internal/archive"
	"github.com/meigma/vfs/internal/disk"
	"github.com/meigma/vfs/internal/location"
	"github.com/meigma/vfs/internal/manifest"
	"github.com/meigma/vfs/internal/pathutil"
	"github.com/meigma/vfs/internal/resolve"
)

// FileSystem resolves logical paths against the package and the writable
// storage locations.
//
// A FileSystem is immutable after New apart from the files it manages and is
// safe for concurrent use.
type FileSystem struct {
	packagePath           string
	storagePath           string
	applicationRoot       string
	engineRoot            string
	archiveRoot           string
	packageDLCPath        string
	maxFileSize           uint64
	maxDecoderMemory      uint64
	decoderConcurrencySet bool
	decoderConcurrency    int
	decoderLowmemSet      bool
	decoderLowmem         bool
	copyWorkers           int
	logger                *slog.Logger

	resolver *resolve.Resolver
	roots    map[location.StorageLocation]*disk.Root

	// Set only when the package is an archive.
	session        *archive.Session
	appManifest    *manifest.Manifest
	engineManifest *manifest.Manifest
}

// New creates a FileSystem.
//
// packagePath is either a directory or a zip archive containing the
// application and engine roots. storagePath is the directory under which
// the writable locations live; they are created if missing.
//
// When the package is an archive its central directory is indexed before
// New returns, and any failure to read it is returned as an error.
func New(packagePath, storagePath string, opts ...Option) (*FileSystem, error) {
	f := &FileSystem{
		packagePath:      filepath.Clean(packagePath),
		storagePath:      filepath.Clean(storagePath),
		applicationRoot:  DefaultApplicationRoot,
		engineRoot:       DefaultEngineRoot,
		packageDLCPath:   DefaultPackageDLCPath,
		maxFileSize:      DefaultMaxFileSize,
		maxDecoderMemory: DefaultMaxDecoderMemory,
		copyWorkers:      4,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.applicationRoot = pathutil.Normalize(f.applicationRoot)
	f.engineRoot = pathutil.Normalize(f.engineRoot)
	f.archiveRoot = pathutil.Normalize(f.archiveRoot)
	f.packageDLCPath = pathutil.Normalize(f.packageDLCPath)

	info, err := os.Stat(f.packagePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, f.packagePath)
		}
		return nil, fmt.Errorf("stat package: %w", err)
	}
	archived := info.Mode().IsRegular()

	f.resolver = resolve.New(location.Layout{
		PackageArchived: archived,
		PackageDLCPath:  f.packageDLCPath,
	})

	diskOpts := []disk.Option{disk.WithLogger(f.logger)}
	storageOpts := append(slices.Clone(diskOpts), disk.WithRemovableBase())
	f.roots = map[location.StorageLocation]*disk.Root{
		location.SaveData: disk.New(filepath.Join(f.storagePath, filepath.FromSlash(SaveDataDir)), storageOpts...),
		location.Cache:    disk.New(filepath.Join(f.storagePath, filepath.FromSlash(CacheDir)), storageOpts...),
		location.DLC:      disk.New(filepath.Join(f.storagePath, filepath.FromSlash(DLCDir)), storageOpts...),
		location.Root:     disk.New(string(filepath.Separator), diskOpts...),
	}
	for _, l := range []location.StorageLocation{location.SaveData, location.Cache, location.DLC} {
		if err := f.roots[l].MkdirPath(""); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", l, err)
		}
	}

	if !archived {
		f.roots[location.Package] = disk.New(f.packageDir(f.applicationRoot), diskOpts...)
		f.roots[location.Engine] = disk.New(f.packageDir(f.engineRoot), diskOpts...)
		f.log().Debug("using unpacked package", "path", f.packagePath)
		return f, nil
	}

	if err := f.openArchive(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileSystem) packageDir(root string) string {
	return filepath.Join(f.packagePath, filepath.FromSlash(root))
}

// openArchive opens the package archive and builds both manifests.
func (f *FileSystem) openArchive() error {
	sessionOpts := []archive.Option{
		archive.WithMaxFileSize(f.maxFileSize),
		archive.WithMaxDecoderMemory(f.maxDecoderMemory),
		archive.WithLogger(f.logger),
	}
	if f.decoderConcurrencySet {
		sessionOpts = append(sessionOpts, archive.WithDecoderConcurrency(f.decoderConcurrency))
	}
	if f.decoderLowmemSet {
		sessionOpts = append(sessionOpts, archive.WithDecoderLowmem(f.decoderLowmem))
	}

	session, err := archive.Open(f.packagePath, sessionOpts...)
	if err != nil {
		return err
	}

	app, engine, err := manifest.Build(session, manifest.Roots{
		Application: f.archivePath(f.applicationRoot),
		Engine:      f.archivePath(f.engineRoot),
	}, manifest.WithLogger(f.logger))
	if err != nil {
		_ = session.Close() //nolint:errcheck // reporting the build error
		return err
	}

	f.session = session
	f.appManifest = app
	f.engineManifest = engine
	f.log().Debug("opened package archive",
		"path", f.packagePath,
		"application_entries", app.Len(),
		"engine_entries", engine.Len())
	return nil
}

// archivePath returns the archive-internal directory for a package root.
func (f *FileSystem) archivePath(root string) string {
	return pathutil.Join(f.archiveRoot, root)
}

// Close releases the package archive. Disk-backed operations keep working;
// archive reads fail with ErrClosed.
func (f *FileSystem) Close() error {
	if f.session == nil {
		return nil
	}
	return f.session.Close()
}

// log returns the logger, falling back to a discard logger if nil.
func (f *FileSystem) log() *slog.Logger {
	if f.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.logger
}

// IsPackageArchived reports whether the package is served from a zip
// archive.
func (f *FileSystem) IsPackageArchived() bool {
	return f.session != nil
}

// Resolve returns the physical candidates for path in the order they are
// tried.
func (f *FileSystem) Resolve(loc StorageLocation, path string) []PathInfo {
	mustBeValid("Resolve", loc)
	return f.resolver.Resolve(loc, path)
}

// FileExists reports whether path is a file in loc.
func (f *FileSystem) FileExists(loc StorageLocation, path string) bool {
	mustBeValid("FileExists", loc)
	_, _, ok := f.findFile(loc, path)
	return ok
}

// DirectoryExists reports whether path is a directory in loc.
func (f *FileSystem) DirectoryExists(loc StorageLocation, path string) bool {
	mustBeValid("DirectoryExists", loc)
	_, ok := f.findDirectory(loc, path)
	return ok
}

// FileExistsInCachedDLC reports whether path has been downloaded into the
// DLC cache.
func (f *FileSystem) FileExistsInCachedDLC(path string) bool {
	c := f.dlcCandidate(0, path)
	return c != nil && f.candidateHasFile(*c)
}

// FileExistsInPackageDLC reports whether path was shipped in the package's
// DLC directory.
func (f *FileSystem) FileExistsInPackageDLC(path string) bool {
	c := f.dlcCandidate(1, path)
	return c != nil && f.candidateHasFile(*c)
}

// DirectoryExistsInCachedDLC reports whether path is a directory in the DLC
// cache.
func (f *FileSystem) DirectoryExistsInCachedDLC(path string) bool {
	c := f.dlcCandidate(0, path)
	return c != nil && f.candidateHasDirectory(*c)
}

// DirectoryExistsInPackageDLC reports whether path is a directory in the
// package's DLC directory.
func (f *FileSystem) DirectoryExistsInPackageDLC(path string) bool {
	c := f.dlcCandidate(1, path)
	return c != nil && f.candidateHasDirectory(*c)
}

func (f *FileSystem) dlcCandidate(i int, path string) *PathInfo {
	if pathutil.Escapes(pathutil.Normalize(path)) {
		return nil
	}
	candidates := f.resolver.Resolve(location.DLC, path)
	if i >= len(candidates) {
		return nil
	}
	return &candidates[i]
}

// findFile returns the first candidate holding a file at path. For archive
// candidates the manifest entry is returned too.
func (f *FileSystem) findFile(loc StorageLocation, path string) (PathInfo, manifest.Entry, bool) {
	if pathutil.Escapes(pathutil.Normalize(path)) {
		return PathInfo{}, manifest.Entry{}, false
	}
	for _, c := range f.resolver.Resolve(loc, path) {
		if c.ArchiveBacked {
			if e, ok := f.manifestFor(c.Location).TryFind(c.Path); ok && e.IsFile {
				return c, e, true
			}
			continue
		}
		if f.rootFor(c.Location).FileExists(c.Path) {
			if loc == location.DLC && c.Location == location.DLC {
				f.log().Debug("serving dlc from cache", "path", c.Path)
			}
			return c, manifest.Entry{}, true
		}
	}
	return PathInfo{}, manifest.Entry{}, false
}

// findDirectory returns the first candidate holding a directory at path.
func (f *FileSystem) findDirectory(loc StorageLocation, path string) (PathInfo, bool) {
	if pathutil.Escapes(pathutil.Normalize(path)) {
		return PathInfo{}, false
	}
	for _, c := range f.resolver.Resolve(loc, path) {
		if f.candidateHasDirectory(c) {
			return c, true
		}
	}
	return PathInfo{}, false
}

func (f *FileSystem) candidateHasFile(c PathInfo) bool {
	if c.ArchiveBacked {
		return f.manifestFor(c.Location).FileExists(c.Path)
	}
	return f.rootFor(c.Location).FileExists(c.Path)
}

func (f *FileSystem) candidateHasDirectory(c PathInfo) bool {
	if c.ArchiveBacked {
		return f.manifestFor(c.Location).DirectoryExists(c.Path)
	}
	return f.rootFor(c.Location).DirExists(c.Path)
}

// manifestFor returns the manifest for an archive-backed location.
func (f *FileSystem) manifestFor(l StorageLocation) *manifest.Manifest {
	if l == location.Engine {
		return f.engineManifest
	}
	return f.appManifest
}

// rootFor returns the disk root for a disk-backed location.
func (f *FileSystem) rootFor(l StorageLocation) *disk.Root {
	return f.roots[l]
}

// writableRoot validates a modifying operation and returns the root and
// path where it lands.
func (f *FileSystem) writableRoot(op string, loc StorageLocation, path string) (*disk.Root, string, error) {
	mustBeWritable(op, loc)
	c, _ := f.resolver.Primary(loc, path)
	if pathutil.Escapes(c.Path) {
		return nil, "", &fs.PathError{Op: op, Path: path, Err: fs.ErrInvalid}
	}
	return f.rootFor(c.Location), c.Path, nil
}

func mustBeValid(op string, loc StorageLocation) {
	if !loc.Valid() {
		panic(fmt.Sprintf("vfs: %s: invalid storage location %s", op, loc))
	}
}

func mustBeWritable(op string, loc StorageLocation) {
	mustBeValid(op, loc)
	if !location.IsWritable(loc) {
		panic(fmt.Sprintf("vfs: %s: storage location %s is read-only", op, loc))
	}
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}
