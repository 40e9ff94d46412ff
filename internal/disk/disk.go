// Package disk provides the on-disk side of the file system: one Root per
// writable storage location or unpacked package directory.
//
// All paths taken and returned by this package are normalized,
// slash-separated and relative to the root.
package disk

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/meigma/vfs/internal/pathutil"
)

const (
	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644

	// tempPrefix names in-flight Writer files. Such files are invisible to
	// every lookup and listing, including orphans left by a crash.
	tempPrefix = ".vfs-tmp-"
)

// ErrNotDirectory is returned when a path segment that must be a directory
// is a file.
var ErrNotDirectory = errors.New("disk: not a directory")

// Root is a directory tree on the host file system.
type Root struct {
	base          string
	fs            billy.Filesystem
	logger        *slog.Logger
	removableBase bool
}

// Option configures a Root.
type Option func(*Root)

// WithLogger sets the logger for disk diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Root) {
		r.logger = logger
	}
}

// WithRemovableBase lets RemoveAll("") empty the root directory. Without
// it, removing the root is an fs.ErrInvalid error.
func WithRemovableBase() Option {
	return func(r *Root) {
		r.removableBase = true
	}
}

// New returns a Root for the absolute directory base. The directory is not
// created.
func New(base string, opts ...Option) *Root {
	base = filepath.Clean(base)
	r := &Root{
		base: base,
		fs:   osfs.New(base),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Root) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Base returns the absolute directory of the root.
func (r *Root) Base() string {
	return r.base
}

// Abs returns the absolute host path for rel.
func (r *Root) Abs(rel string) string {
	rel = pathutil.Normalize(rel)
	if rel == "" {
		return r.base
	}
	return filepath.Join(r.base, filepath.FromSlash(rel))
}

// name maps a relative path to the billy file name.
func name(rel string) string {
	rel = pathutil.Normalize(rel)
	if rel == "" {
		return "."
	}
	return rel
}

func isTemp(rel string) bool {
	return strings.HasPrefix(pathutil.Base(rel), tempPrefix)
}

// Stat returns file info for rel.
func (r *Root) Stat(rel string) (fs.FileInfo, error) {
	if isTemp(rel) {
		return nil, &fs.PathError{Op: "stat", Path: rel, Err: fs.ErrNotExist}
	}
	return r.fs.Stat(name(rel))
}

// FileExists reports whether rel is an existing non-directory.
func (r *Root) FileExists(rel string) bool {
	info, err := r.Stat(rel)
	return err == nil && !info.IsDir()
}

// DirExists reports whether rel is an existing directory.
func (r *Root) DirExists(rel string) bool {
	info, err := r.Stat(rel)
	return err == nil && info.IsDir()
}

// Open opens rel for reading.
func (r *Root) Open(rel string) (billy.File, error) {
	info, err := r.Stat(rel)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: rel, Err: fs.ErrInvalid}
	}
	return r.fs.Open(name(rel))
}

// ReadFile returns the contents of rel.
func (r *Root) ReadFile(rel string) ([]byte, error) {
	f, err := r.Open(rel)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// WriteFile atomically replaces rel with data, creating parent
// directories as needed.
func (r *Root) WriteFile(rel string, data []byte) error {
	w, err := r.Create(rel)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Discard() //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return w.Commit()
}

// MkdirPath creates rel and any missing parents. An existing directory is
// success. Segments are visited from the top; existing ones are skipped and
// the first missing one is created.
func (r *Root) MkdirPath(rel string) error {
	rel = pathutil.Normalize(rel)
	if r.DirExists(rel) {
		return nil
	}
	if !r.DirExists("") {
		if err := r.fs.MkdirAll(".", dirPerm); err != nil {
			return fmt.Errorf("mkdir %s: %w", r.base, err)
		}
	}

	current := ""
	for _, seg := range pathutil.Segments(rel) {
		current = pathutil.Join(current, seg)
		info, err := r.fs.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return &fs.PathError{Op: "mkdir", Path: current, Err: ErrNotDirectory}
			}
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", current, err)
		}
		if err := r.fs.MkdirAll(current, dirPerm); err != nil {
			return fmt.Errorf("mkdir %s: %w", current, err)
		}
		r.log().Debug("created directory", "root", r.base, "path", current)
	}
	return nil
}

// Remove deletes the file rel. A missing file is an fs.ErrNotExist error.
func (r *Root) Remove(rel string) error {
	if isTemp(rel) {
		return &fs.PathError{Op: "remove", Path: rel, Err: fs.ErrNotExist}
	}
	if r.DirExists(rel) {
		return &fs.PathError{Op: "remove", Path: rel, Err: fs.ErrInvalid}
	}
	return r.fs.Remove(name(rel))
}

// RemoveAll deletes the directory rel and everything below it. The root
// itself is emptied rather than removed, and only when the Root was created
// WithRemovableBase.
func (r *Root) RemoveAll(rel string) error {
	rel = pathutil.Normalize(rel)
	if rel == "" && !r.removableBase {
		return &fs.PathError{Op: "remove", Path: r.base, Err: fs.ErrInvalid}
	}
	if !r.DirExists(rel) {
		return &fs.PathError{Op: "remove", Path: rel, Err: fs.ErrNotExist}
	}
	if rel != "" {
		return util.RemoveAll(r.fs, rel)
	}
	infos, err := r.fs.ReadDir(".")
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := util.RemoveAll(r.fs, info.Name()); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the size of the file rel, or the total size of all files
// below the directory rel.
func (r *Root) Size(rel string) (uint64, error) {
	info, err := r.Stat(rel)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return uint64(max(info.Size(), 0)), nil //nolint:gosec // clamped non-negative
	}

	var total uint64
	err = r.walk(rel, func(_ string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += uint64(max(fi.Size(), 0)) //nolint:gosec // clamped non-negative
		return nil
	})
	return total, err
}
