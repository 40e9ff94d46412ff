package vfs

import "log/slog"

// Default archive layout.
const (
	// DefaultApplicationRoot is the package directory holding application
	// content.
	DefaultApplicationRoot = "AppResources"

	// DefaultEngineRoot is the package directory holding engine resources.
	DefaultEngineRoot = "CSResources"

	// DefaultPackageDLCPath is the directory, relative to the application
	// root, holding DLC shipped with the package.
	DefaultPackageDLCPath = "DLC"

	// DefaultMaxFileSize is the default maximum size of a file read from
	// the archive (256MB).
	DefaultMaxFileSize = 256 << 20

	// DefaultMaxDecoderMemory is the default zstd decoder memory limit (256MB).
	DefaultMaxDecoderMemory = 256 << 20
)

// Writable directories, relative to the storage path.
const (
	SaveDataDir = "files/SaveData"
	CacheDir    = "cache/Cache"
	DLCDir      = "cache/DLC"
)

// Option configures a FileSystem.
type Option func(*FileSystem)

// WithLogger sets the logger for file system diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FileSystem) {
		f.logger = logger
	}
}

// WithApplicationRoot sets the package directory that holds application
// content (default: "AppResources").
func WithApplicationRoot(dir string) Option {
	return func(f *FileSystem) {
		f.applicationRoot = dir
	}
}

// WithEngineRoot sets the package directory that holds engine resources
// (default: "CSResources").
func WithEngineRoot(dir string) Option {
	return func(f *FileSystem) {
		f.engineRoot = dir
	}
}

// WithArchiveRoot sets a directory inside the package archive that contains
// both the application and engine roots, such as "assets" for an APK.
// It has no effect when the package is a directory.
func WithArchiveRoot(dir string) Option {
	return func(f *FileSystem) {
		f.archiveRoot = dir
	}
}

// WithPackageDLCPath sets the directory, relative to the application root,
// that holds DLC shipped with the package (default: "DLC").
func WithPackageDLCPath(dir string) Option {
	return func(f *FileSystem) {
		f.packageDLCPath = dir
	}
}

// WithMaxFileSize limits the size of a single file read from the archive.
// Set limit to 0 to disable the limit.
func WithMaxFileSize(limit uint64) Option {
	return func(f *FileSystem) {
		f.maxFileSize = limit
	}
}

// WithMaxDecoderMemory limits the maximum memory used by the zstd decoder.
// Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(f *FileSystem) {
		f.maxDecoderMemory = limit
	}
}

// WithDecoderConcurrency sets the zstd decoder concurrency (default: 1).
// Values < 0 are treated as 0 (use GOMAXPROCS).
func WithDecoderConcurrency(n int) Option {
	return func(f *FileSystem) {
		if n < 0 {
			n = 0
		}
		f.decoderConcurrency = n
		f.decoderConcurrencySet = true
	}
}

// WithDecoderLowmem sets whether the zstd decoder should use low-memory mode (default: false).
func WithDecoderLowmem(enabled bool) Option {
	return func(f *FileSystem) {
		f.decoderLowmem = enabled
		f.decoderLowmemSet = true
	}
}

// WithCopyWorkers sets how many disk files CopyDirectory copies in
// parallel. Values < 1 copy serially.
func WithCopyWorkers(n int) Option {
	return func(f *FileSystem) {
		f.copyWorkers = n
	}
}
