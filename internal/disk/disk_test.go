package disk

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vfs/internal/testutil"
)

func newTestRoot(t *testing.T, files map[string]string) *Root {
	t.Helper()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, files)
	return New(dir)
}

func TestRoot_Exists(t *testing.T) {
	t.Parallel()

	r := newTestRoot(t, map[string]string{"a/b.txt": "b"})

	assert.True(t, r.FileExists("a/b.txt"))
	assert.True(t, r.FileExists("/a/b.txt"))
	assert.False(t, r.FileExists("a"))
	assert.True(t, r.DirExists("a"))
	assert.True(t, r.DirExists(""))
	assert.False(t, r.DirExists("a/b.txt"))
	assert.False(t, r.FileExists("missing"))
	assert.Equal(t, filepath.Join(r.Base(), "a", "b.txt"), r.Abs("a/b.txt"))
	assert.Equal(t, r.Base(), r.Abs(""))
}

func TestRoot_ReadWrite(t *testing.T) {
	t.Parallel()

	r := newTestRoot(t, nil)

	require.NoError(t, r.WriteFile("saves/slot1.sav", []byte("first")))
	got, err := r.ReadFile("saves/slot1.sav")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	require.NoError(t, r.WriteFile("saves/slot1.sav", []byte("second")))
	got, err = r.ReadFile("saves/slot1.sav")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	info, err := os.Stat(r.Abs("saves/slot1.sav"))
	require.NoError(t, err)
	assert.Equal(t, filePerm, info.Mode().Perm())

	files, err := r.Files("saves", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"slot1.sav"}, files, "temp files must not remain")

	_, err = r.ReadFile("missing.sav")
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = r.ReadFile("saves")
	require.Error(t, err)
}

func TestWriter_Discard(t *testing.T) {
	t.Parallel()

	r := newTestRoot(t, nil)

	w, err := r.Create("out/data.bin")
	require.NoError(t, err)
	_, err = io.WriteString(w, "partial")
	require.NoError(t, err)
	assert.False(t, r.FileExists("out/data.bin"))

	require.NoError(t, w.Discard())
	assert.False(t, r.FileExists("out/data.bin"))
	files, err := r.Files("out", false)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = w.Write([]byte("x"))
	require.ErrorIs(t, err, ErrCommitted)
}

func TestRoot_MkdirPath(t *testing.T) {
	t.Parallel()

	r := newTestRoot(t, map[string]string{"a/file": "x"})

	require.NoError(t, r.MkdirPath("a/b/c"))
	assert.True(t, r.DirExists("a/b/c"))
	require.NoError(t, r.MkdirPath("a/b/c"))
	require.NoError(t, r.MkdirPath(""))

	err := r.MkdirPath("a/file/sub")
	require.ErrorIs(t, err, ErrNotDirectory)
}

func TestRoot_MkdirPathCreatesMissingBase(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "cache", "DLC")
	r := New(base)
	require.NoError(t, r.MkdirPath(""))
	assert.DirExists(t, base)
}

func TestRoot_Remove(t *testing.T) {
	t.Parallel()

	r := newTestRoot(t, map[string]string{
		"keep.txt":       "k",
		"tree/a.txt":     "a",
		"tree/sub/b.txt": "b",
	})

	require.Error(t, r.Remove("tree"))
	require.NoError(t, r.Remove("keep.txt"))
	assert.False(t, r.FileExists("keep.txt"))
	require.ErrorIs(t, r.Remove("keep.txt"), fs.ErrNotExist)

	require.NoError(t, r.RemoveAll("tree"))
	assert.False(t, r.DirExists("tree"))
	require.ErrorIs(t, r.RemoveAll("tree"), fs.ErrNotExist)
}

func TestRoot_RemoveAllRootEmptiesIt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"x/y.txt": "y", "z.txt": "z"})
	r := New(dir, WithRemovableBase())

	require.NoError(t, r.RemoveAll(""))
	assert.True(t, r.DirExists(""))
	files, err := r.Files("", true)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRoot_RemoveAllRootRequiresOptIn(t *testing.T) {
	t.Parallel()

	r := newTestRoot(t, map[string]string{"x/y.txt": "y", "z.txt": "z"})

	for _, rel := range []string{"", "/", "."} {
		err := r.RemoveAll(rel)
		require.ErrorIs(t, err, fs.ErrInvalid, "rel %q", rel)
	}
	assert.True(t, r.FileExists("z.txt"))
	assert.True(t, r.FileExists("x/y.txt"))
}

func TestWriter_InFlightFileIsHidden(t *testing.T) {
	t.Parallel()

	r := newTestRoot(t, map[string]string{"levels/1.bin": "1"})

	w, err := r.Create("levels/2.bin")
	require.NoError(t, err)
	_, err = io.WriteString(w, "pending")
	require.NoError(t, err)

	entries, err := os.ReadDir(r.Abs("levels"))
	require.NoError(t, err)
	require.Len(t, entries, 2, "temp file is on disk")
	var tmp string
	for _, e := range entries {
		if e.Name() != "1.bin" {
			tmp = "levels/" + e.Name()
		}
	}

	for _, recursive := range []bool{false, true} {
		files, err := r.Files("levels", recursive)
		require.NoError(t, err)
		assert.Equal(t, []string{"1.bin"}, files)
	}
	all, err := r.Files("", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"levels/1.bin"}, all)

	assert.False(t, r.FileExists(tmp))
	_, err = r.ReadFile(tmp)
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.ErrorIs(t, r.Remove(tmp), fs.ErrNotExist)
	size, err := r.Size("")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), size)

	_, err = r.Create(tmp)
	require.ErrorIs(t, err, fs.ErrInvalid)

	require.NoError(t, w.Commit())
	files, err := r.Files("levels", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.bin", "2.bin"}, files)
}

func TestRoot_Enumerate(t *testing.T) {
	t.Parallel()

	r := newTestRoot(t, map[string]string{
		"top.txt":          "1",
		"levels/1.bin":     "22",
		"levels/2.bin":     "333",
		"levels/sub/3.bin": "4444",
	})

	tests := []struct {
		name      string
		dir       string
		recursive bool
		files     []string
		dirs      []string
	}{
		{name: "root shallow", files: []string{"top.txt"}, dirs: []string{"levels"}},
		{
			name:      "root recursive",
			recursive: true,
			files:     []string{"levels/1.bin", "levels/2.bin", "levels/sub/3.bin", "top.txt"},
			dirs:      []string{"levels", "levels/sub"},
		},
		{name: "sub shallow", dir: "levels", files: []string{"1.bin", "2.bin"}, dirs: []string{"sub"}},
		{
			name:      "sub recursive",
			dir:       "levels/",
			recursive: true,
			files:     []string{"1.bin", "2.bin", "sub/3.bin"},
			dirs:      []string{"sub"},
		},
		{name: "missing", dir: "nope", recursive: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			files, err := r.Files(tt.dir, tt.recursive)
			require.NoError(t, err)
			assert.Equal(t, tt.files, files)

			dirs, err := r.Directories(tt.dir, tt.recursive)
			require.NoError(t, err)
			assert.Equal(t, tt.dirs, dirs)
		})
	}
}

func TestRoot_Size(t *testing.T) {
	t.Parallel()

	r := newTestRoot(t, map[string]string{
		"levels/1.bin":     "22",
		"levels/sub/3.bin": "4444",
	})

	size, err := r.Size("levels/1.bin")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), size)

	size, err = r.Size("levels")
	require.NoError(t, err)
	assert.Equal(t, uint64(6), size)

	_, err = r.Size("missing")
	require.ErrorIs(t, err, fs.ErrNotExist)
}
