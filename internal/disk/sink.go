package disk

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/meigma/vfs/internal/pathutil"
)

// ErrCommitted is returned when a Writer is used after Commit or Discard.
var ErrCommitted = errors.New("disk: writer already finished")

// Writer writes to a hidden temporary file next to its destination and
// renames it into place on Commit. Until then nothing is visible through
// the Root.
type Writer struct {
	root *Root
	dest string
	tmp  billy.File
}

// Create returns a Writer for rel. Parent directories are created as
// needed.
func (r *Root) Create(rel string) (*Writer, error) {
	rel = pathutil.Normalize(rel)
	if rel == "" {
		return nil, fmt.Errorf("create: %w", ErrNotDirectory)
	}
	if isTemp(rel) {
		return nil, &fs.PathError{Op: "create", Path: rel, Err: fs.ErrInvalid}
	}
	dir := pathutil.Dir(rel)
	if err := r.MkdirPath(dir); err != nil {
		return nil, err
	}
	tmp, err := util.TempFile(r.fs, name(dir), tempPrefix)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &Writer{root: r, dest: rel, tmp: tmp}, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.tmp == nil {
		return 0, ErrCommitted
	}
	return w.tmp.Write(p)
}

// Close commits the file. It implements io.Closer.
func (w *Writer) Close() error {
	if w.tmp == nil {
		return nil
	}
	return w.Commit()
}

// Commit closes the temp file and renames it to the destination.
func (w *Writer) Commit() error {
	if w.tmp == nil {
		return ErrCommitted
	}
	tmp := w.tmp
	w.tmp = nil
	tmpName := tmp.Name()

	if err := tmp.Close(); err != nil {
		_ = w.root.fs.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}
	if ch, ok := w.root.fs.(billy.Change); ok {
		if err := ch.Chmod(tmpName, filePerm); err != nil {
			_ = w.root.fs.Remove(tmpName) //nolint:errcheck // best-effort cleanup
			return fmt.Errorf("chmod: %w", err)
		}
	}
	if err := w.root.fs.Rename(tmpName, w.dest); err != nil {
		_ = w.root.fs.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", w.dest, err)
	}
	return nil
}

// Discard closes and removes the temp file.
func (w *Writer) Discard() error {
	if w.tmp == nil {
		return nil
	}
	tmp := w.tmp
	w.tmp = nil
	_ = tmp.Close() //nolint:errcheck // we're cleaning up
	return w.root.fs.Remove(tmp.Name())
}
