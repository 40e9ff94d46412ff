package archive

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vfs/internal/testutil"
)

func openTestSession(t *testing.T, entries []testutil.ZipEntry, opts ...Option) *Session {
	t.Helper()

	path := testutil.BuildZip(t, "package.zip", entries)
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func positions(t *testing.T, s *Session) map[string]Position {
	t.Helper()

	out := make(map[string]Position)
	require.NoError(t, s.Walk(func(h Header) error {
		out[h.Name] = h.Position
		return nil
	}))
	return out
}

func TestSession_Walk(t *testing.T) {
	t.Parallel()

	s := openTestSession(t, []testutil.ZipEntry{
		testutil.Dir("AppResources/"),
		testutil.File("AppResources/a.txt", "alpha"),
		testutil.File("AppResources/sub/b.txt", "bravo"),
	})

	var names []string
	var dirs []bool
	err := s.Walk(func(h Header) error {
		require.True(t, h.Position.IsValid())
		names = append(names, h.Name)
		dirs = append(dirs, h.IsDir)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"AppResources/", "AppResources/a.txt", "AppResources/sub/b.txt"}, names)
	assert.Equal(t, []bool{true, false, false}, dirs)
}

func TestSession_WalkStopsOnError(t *testing.T) {
	t.Parallel()

	s := openTestSession(t, []testutil.ZipEntry{
		testutil.File("a", "1"),
		testutil.File("b", "2"),
	})

	stop := errors.New("stop")
	calls := 0
	err := s.Walk(func(Header) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestSession_OpenAndRead(t *testing.T) {
	t.Parallel()

	big := bytes.Repeat([]byte("chilli "), 4096)
	s := openTestSession(t, []testutil.ZipEntry{
		{Name: "stored.txt", Content: []byte("stored content"), Method: testutil.Store},
		{Name: "deflated.bin", Content: big, Method: testutil.Deflate},
		{Name: "zstd.bin", Content: big, Method: testutil.Zstd},
		{Name: "empty.txt", Method: testutil.Store},
		testutil.Dir("folder/"),
	})
	pos := positions(t, s)

	tests := []struct {
		name    string
		want    []byte
		wantErr error
	}{
		{name: "stored.txt", want: []byte("stored content")},
		{name: "deflated.bin", want: big},
		{name: "zstd.bin", want: big},
		{name: "empty.txt", want: []byte{}},
		{name: "folder/", wantErr: ErrNotFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := s.OpenAndRead(pos[tt.name])
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSession_InvalidPosition(t *testing.T) {
	t.Parallel()

	s := openTestSession(t, []testutil.ZipEntry{testutil.File("a", "1")})

	_, err := s.OpenAndRead(Position{})
	require.ErrorIs(t, err, ErrInvalidPosition)

	_, err = s.OpenAndRead(Position{index: 7, set: true})
	require.ErrorIs(t, err, ErrInvalidPosition)
}

func TestSession_MaxFileSize(t *testing.T) {
	t.Parallel()

	s := openTestSession(t, []testutil.ZipEntry{
		{Name: "big.bin", Content: bytes.Repeat([]byte{1}, 64), Method: testutil.Store},
	}, WithMaxFileSize(16))

	_, err := s.OpenAndRead(positions(t, s)["big.bin"])
	require.ErrorIs(t, err, ErrSizeOverflow)
}

func TestSession_Closed(t *testing.T) {
	t.Parallel()

	path := testutil.BuildZip(t, "package.zip", []testutil.ZipEntry{testutil.File("a", "1")})
	s, err := Open(path)
	require.NoError(t, err)
	pos := positions(t, s)["a"]

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.OpenAndRead(pos)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Walk(func(Header) error { return nil }), ErrClosed)
}

func TestOpen_NotAnArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"plain.txt": "not a zip"})

	_, err := Open(filepath.Join(dir, "plain.txt"))
	require.Error(t, err)
}

func TestSession_ConcurrentReads(t *testing.T) {
	t.Parallel()

	entries := make([]testutil.ZipEntry, 0, 8)
	for i := range 8 {
		name := "f" + string(rune('a'+i))
		entries = append(entries, testutil.ZipEntry{
			Name:    name,
			Content: []byte(strings.Repeat(name, 500)),
			Method:  testutil.Zstd,
		})
	}
	s := openTestSession(t, entries)
	pos := positions(t, s)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for range 8 {
		for _, e := range entries {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := s.ReadFile(pos[e.Name])
				if err != nil {
					errs <- err
					return
				}
				if !bytes.Equal(got, e.Content) {
					errs <- errors.New("content mismatch for " + e.Name)
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSession_ReadFileReturnsPrivateBuffers(t *testing.T) {
	t.Parallel()

	s := openTestSession(t, []testutil.ZipEntry{testutil.File("a.txt", "abc")})
	pos := positions(t, s)["a.txt"]

	first, err := s.ReadFile(pos)
	require.NoError(t, err)
	first[0] = 'X'

	second, err := s.ReadFile(pos)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), second)
}

func TestSession_ReadBatch(t *testing.T) {
	t.Parallel()

	s := openTestSession(t, []testutil.ZipEntry{
		testutil.File("one", "1"),
		testutil.File("two", "22"),
		testutil.File("three", "333"),
	})
	pos := positions(t, s)

	got, err := s.ReadBatch([]Position{pos["three"], pos["one"]})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("333"), []byte("1")}, got)

	got, err = s.ReadBatch([]Position{pos["one"], {}})
	require.ErrorIs(t, err, ErrInvalidPosition)
	assert.Nil(t, got)

	// The lock is released on return.
	content, err := s.OpenAndRead(pos["two"])
	require.NoError(t, err)
	assert.Equal(t, "22", string(content))
}

func TestSession_Info(t *testing.T) {
	t.Parallel()

	s := openTestSession(t, []testutil.ZipEntry{
		{Name: "raw", Content: []byte("0123456789"), Method: testutil.Store},
		{Name: "packed", Content: bytes.Repeat([]byte("z"), 1000), Method: testutil.Deflate},
	})
	pos := positions(t, s)

	raw, err := s.Info(pos["raw"])
	require.NoError(t, err)
	assert.False(t, raw.Compressed)
	assert.Equal(t, uint64(10), raw.UncompressedSize)
	assert.Equal(t, raw.UncompressedSize, raw.CompressedSize)
	assert.Positive(t, raw.Offset)

	packed, err := s.Info(pos["packed"])
	require.NoError(t, err)
	assert.True(t, packed.Compressed)
	assert.Equal(t, uint64(1000), packed.UncompressedSize)
	assert.Less(t, packed.CompressedSize, packed.UncompressedSize)
	assert.Greater(t, packed.Offset, raw.Offset)
}
