// Package archive provides guarded, whole-entry read access to a zip archive.
//
// A Session owns the single open handle to the archive together with a
// cursor over its central directory. Every sequence of "seek, open entry,
// read, close entry" runs while holding the session's mutex so readers on
// different goroutines can never interleave on the shared cursor.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxFileSize is the default maximum uncompressed entry size (256MB).
	DefaultMaxFileSize = 256 << 20

	// DefaultMaxDecoderMemory is the default maximum zstd decoder memory (256MB).
	DefaultMaxDecoderMemory = 256 << 20
)

// Sentinel errors.
var (
	// ErrClosed is returned when the session has been closed.
	ErrClosed = errors.New("archive: session closed")

	// ErrInvalidPosition is returned when a position does not refer to an
	// entry of this archive.
	ErrInvalidPosition = errors.New("archive: invalid position")

	// ErrNotFile is returned when a directory record is read as a file.
	ErrNotFile = errors.New("archive: entry is a directory")

	// ErrSizeOverflow is returned when an entry exceeds the size limit or
	// its content does not match its declared size.
	ErrSizeOverflow = errors.New("archive: size overflow")

	// ErrDecompression is returned when an entry cannot be decompressed.
	ErrDecompression = errors.New("archive: decompression failed")
)

// Position is an opaque seek handle to one central directory record.
// The zero Position is invalid.
type Position struct {
	index int
	set   bool
}

// IsValid reports whether p was produced by a session.
func (p Position) IsValid() bool {
	return p.set
}

func (p Position) String() string {
	if !p.set {
		return "invalid"
	}
	return "#" + strconv.Itoa(p.index)
}

// Header describes the central directory record under the cursor.
type Header struct {
	// Name is the raw entry name as stored in the archive.
	Name string

	// Position is the seek handle for this record.
	Position Position

	// IsDir is true for explicit directory records (names ending in "/").
	IsDir bool

	// UncompressedSize is the declared size of the decompressed content.
	UncompressedSize uint64

	// CompressedSize is the stored size of the content.
	CompressedSize uint64

	// Method is the zip compression method.
	Method uint16
}

// FileInfo describes where a file's bytes live inside the archive.
type FileInfo struct {
	Offset           int64
	CompressedSize   uint64
	UncompressedSize uint64
	Compressed       bool
}

// Session is an open archive with a single shared cursor.
//
// Session is safe for concurrent use; every method serializes on one mutex.
type Session struct {
	path                  string
	maxFileSize           uint64
	maxDecoderMemory      uint64
	decoderConcurrencySet bool
	decoderConcurrency    int
	decoderLowmemSet      bool
	decoderLowmem         bool
	logger                *slog.Logger

	readGroup singleflight.Group // zero value is valid

	mu      sync.Mutex
	rc      *zip.ReadCloser
	cursor  int
	current io.ReadCloser
}

// Option configures a Session.
type Option func(*Session)

// WithMaxFileSize sets the maximum uncompressed entry size.
// Set to 0 to disable the limit.
func WithMaxFileSize(limit uint64) Option {
	return func(s *Session) {
		s.maxFileSize = limit
	}
}

// WithMaxDecoderMemory limits the memory used by zstd decoders.
// Set to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(s *Session) {
		s.maxDecoderMemory = limit
	}
}

// WithDecoderConcurrency sets the zstd decoder concurrency (default: 1).
// Values < 0 are treated as 0 (use GOMAXPROCS).
func WithDecoderConcurrency(n int) Option {
	return func(s *Session) {
		if n < 0 {
			n = 0
		}
		s.decoderConcurrency = n
		s.decoderConcurrencySet = true
	}
}

// WithDecoderLowmem sets whether zstd decoders use low-memory mode.
func WithDecoderLowmem(enabled bool) Option {
	return func(s *Session) {
		s.decoderLowmem = enabled
		s.decoderLowmemSet = true
	}
}

// WithLogger sets the logger for session diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Open opens the zip archive at path.
//
// The central directory is read once here. The returned session must be
// closed to release the file handle.
func Open(path string, opts ...Option) (*Session, error) {
	s := &Session{
		path:             path,
		maxFileSize:      DefaultMaxFileSize,
		maxDecoderMemory: DefaultMaxDecoderMemory,
		cursor:           -1,
	}
	for _, opt := range opts {
		opt(s)
	}

	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	poolOpts := make([]decompressOption, 0, 2)
	if s.decoderConcurrencySet {
		poolOpts = append(poolOpts, withDecoderConcurrency(s.decoderConcurrency))
	}
	if s.decoderLowmemSet {
		poolOpts = append(poolOpts, withDecoderLowmem(s.decoderLowmem))
	}
	pool := NewDecompressPool(s.maxDecoderMemory, poolOpts...)
	rc.RegisterDecompressor(zstd.ZipMethodWinZip, pool.Decompressor())
	rc.RegisterDecompressor(zstd.ZipMethodPKWare, pool.Decompressor())

	s.rc = rc
	s.log().Debug("archive opened", "path", path, "entries", len(rc.File))
	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Session) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Path returns the archive's file path.
func (s *Session) Path() string {
	return s.path
}

// Close releases the archive handle. Further calls fail with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rc == nil {
		return nil
	}
	s.closeCurrent()
	err := s.rc.Close()
	s.rc = nil
	return err
}

// Walk visits every central directory record exactly once, in archive
// order, using sequential first/next traversal. The session lock is held
// for the whole walk; fn must not call back into the session.
func (s *Session) Walk(fn func(Header) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rc == nil {
		return ErrClosed
	}
	for ok := s.goToFirst(); ok; ok = s.goToNext() {
		if err := fn(s.currentHeader()); err != nil {
			return err
		}
	}
	return nil
}

// OpenAndRead decompresses the entry at pos into a buffer sized exactly to
// its declared uncompressed size.
//
// The lock is held from the seek until the entry is closed. On any failure
// no partial buffer is returned.
func (s *Session) OpenAndRead(pos Position) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked(pos)
}

// ReadFile is OpenAndRead with concurrent requests for the same position
// collapsed into a single archive read. Every caller receives its own
// buffer.
func (s *Session) ReadFile(pos Position) ([]byte, error) {
	result, err, shared := s.readGroup.Do(pos.String(), func() (any, error) {
		return s.OpenAndRead(pos)
	})
	if err != nil {
		return nil, err
	}
	content := result.([]byte) //nolint:errcheck // type assertion always succeeds when err is nil
	if shared {
		return bytes.Clone(content), nil
	}
	return content, nil
}

// ReadBatch reads several entries while holding the lock once and returns
// their contents in order. Nothing is returned if any entry fails.
func (s *Session) ReadBatch(positions []Position) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(positions))
	for i, pos := range positions {
		content, err := s.readLocked(pos)
		if err != nil {
			return nil, err
		}
		out[i] = content
	}
	return out, nil
}

// Info returns the physical placement of the entry at pos. Resolving the
// data offset reads the local header, so the lock is required.
func (s *Session) Info(pos Position) (FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.goTo(pos)
	if err != nil {
		return FileInfo{}, err
	}
	offset, err := f.DataOffset()
	if err != nil {
		return FileInfo{}, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return FileInfo{
		Offset:           offset,
		CompressedSize:   f.CompressedSize64,
		UncompressedSize: f.UncompressedSize64,
		Compressed:       f.Method != zip.Store,
	}, nil
}

// readLocked performs seek+open+read+close. The caller holds s.mu.
func (s *Session) readLocked(pos Position) ([]byte, error) {
	f, err := s.goTo(pos)
	if err != nil {
		return nil, err
	}
	if isDirName(f.Name) {
		return nil, fmt.Errorf("read %s: %w", f.Name, ErrNotFile)
	}
	if s.maxFileSize > 0 && f.UncompressedSize64 > s.maxFileSize {
		return nil, fmt.Errorf("read %s: %w", f.Name, ErrSizeOverflow)
	}
	if f.UncompressedSize64 > uint64(math.MaxInt) {
		return nil, fmt.Errorf("read %s: %w", f.Name, ErrSizeOverflow)
	}

	if err := s.openCurrent(f); err != nil {
		return nil, err
	}
	defer s.closeCurrent()

	content := make([]byte, int(f.UncompressedSize64))
	n, err := io.ReadFull(s.current, content)
	if err != nil {
		return nil, mapReadError(f, n, len(content), err)
	}
	if err := ensureNoExtra(s.current); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return content, nil
}

// goToFirst moves the cursor to the first record.
func (s *Session) goToFirst() bool {
	s.closeCurrent()
	s.cursor = 0
	return len(s.rc.File) > 0
}

// goToNext advances the cursor by one record.
func (s *Session) goToNext() bool {
	s.closeCurrent()
	s.cursor++
	return s.cursor < len(s.rc.File)
}

// goTo moves the cursor to pos and returns the record under it.
func (s *Session) goTo(pos Position) (*zip.File, error) {
	if s.rc == nil {
		return nil, ErrClosed
	}
	if !pos.set || pos.index < 0 || pos.index >= len(s.rc.File) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
	}
	s.closeCurrent()
	s.cursor = pos.index
	return s.rc.File[pos.index], nil
}

// openCurrent opens the record under the cursor for reading.
func (s *Session) openCurrent(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		if errors.Is(err, zip.ErrAlgorithm) {
			return fmt.Errorf("open %s: %w: %v", f.Name, ErrDecompression, err)
		}
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	s.current = rc
	return nil
}

// closeCurrent closes the open entry, if any.
func (s *Session) closeCurrent() {
	if s.current != nil {
		_ = s.current.Close()
		s.current = nil
	}
}

func (s *Session) currentHeader() Header {
	f := s.rc.File[s.cursor]
	return Header{
		Name:             f.Name,
		Position:         Position{index: s.cursor, set: true},
		IsDir:            isDirName(f.Name),
		UncompressedSize: f.UncompressedSize64,
		CompressedSize:   f.CompressedSize64,
		Method:           f.Method,
	}
}

func isDirName(name string) bool {
	return strings.HasSuffix(name, "/") || strings.HasSuffix(name, `\`)
}

// ensureNoExtra verifies the entry ends at its declared size. Reading to
// EOF also lets the zip reader verify the CRC.
func ensureNoExtra(r io.Reader) error {
	var probe [1]byte
	for {
		n, err := r.Read(probe[:])
		if n > 0 {
			return ErrSizeOverflow
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// mapReadError converts read errors to appropriate error types.
func mapReadError(f *zip.File, n, expected int, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if f.Method == zip.Store {
			return fmt.Errorf("read %s: short read (%d of %d bytes)", f.Name, n, expected)
		}
		return fmt.Errorf("read %s: %w: unexpected EOF", f.Name, ErrDecompression)
	}
	if f.Method == zip.Store {
		return fmt.Errorf("read %s: %w", f.Name, err)
	}
	return fmt.Errorf("read %s: %w: %v", f.Name, ErrDecompression, err)
}
