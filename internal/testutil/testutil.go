// Package testutil provides helpers for building archives and directory
// trees in tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Compression methods accepted by ZipEntry.
const (
	Store   = zip.Store
	Deflate = zip.Deflate
	Zstd    = zstd.ZipMethodWinZip
)

// ZipEntry holds data for one archive member.
type ZipEntry struct {
	// Name is the raw entry name. A trailing "/" produces a directory record.
	Name    string
	Content []byte
	Method  uint16
}

// File is a convenience constructor for a deflated file entry.
func File(name, content string) ZipEntry {
	return ZipEntry{Name: name, Content: []byte(content), Method: Deflate}
}

// Dir is a convenience constructor for an explicit directory record.
func Dir(name string) ZipEntry {
	return ZipEntry{Name: name, Method: Store}
}

// WriteZip writes a zip archive containing entries to path, in order.
func WriteZip(tb testing.TB, path string, entries []ZipEntry) {
	tb.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path) //nolint:gosec // test-controlled path
	if err != nil {
		tb.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(Zstd, zstd.ZipCompressor())
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: e.Method})
		if err != nil {
			tb.Fatalf("create entry %s: %v", e.Name, err)
		}
		if len(e.Content) == 0 {
			continue
		}
		if _, err := w.Write(e.Content); err != nil {
			tb.Fatalf("write entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close zip: %v", err)
	}
}

// BuildZip writes entries to a new archive named name inside a fresh
// temporary directory and returns its path.
func BuildZip(tb testing.TB, name string, entries []ZipEntry) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)
	WriteZip(tb, path, entries)
	return path
}

// WriteTree creates files under root. Keys are slash-separated relative
// paths.
func WriteTree(tb testing.TB, root string, files map[string]string) {
	tb.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // test fixture
			tb.Fatalf("write %s: %v", rel, err)
		}
	}
}
