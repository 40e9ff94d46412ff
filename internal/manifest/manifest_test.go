package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vfs/internal/archive"
	"github.com/meigma/vfs/internal/testutil"
)

var testRoots = Roots{Application: "AppResources", Engine: "CSResources"}

func buildFromZip(t *testing.T, entries []testutil.ZipEntry, opts ...Option) (app, engine *Manifest, s *archive.Session) {
	t.Helper()

	path := testutil.BuildZip(t, "package.zip", entries)
	s, err := archive.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	app, engine, err = Build(s, testRoots, opts...)
	require.NoError(t, err)
	return app, engine, s
}

func sampleEntries() []testutil.ZipEntry {
	return []testutil.ZipEntry{
		testutil.File("AppResources/config.json", `{"a":1}`),
		testutil.File("AppResources/Textures/hero.png", "png"),
		testutil.File("AppResources/Textures/UI/button.png", "btn"),
		testutil.Dir("AppResources/Empty/"),
		testutil.File("AppResources/DLC/level1.bin", "level one"),
		testutil.File("CSResources/Shaders/basic.glsl", "void main(){}"),
		testutil.File("META-INF/MANIFEST.MF", "ignored"),
		testutil.File("classes.dex", "ignored"),
	}
}

func TestBuild_Namespaces(t *testing.T) {
	t.Parallel()

	app, engine, _ := buildFromZip(t, sampleEntries())

	assert.True(t, app.FileExists("config.json"))
	assert.True(t, app.FileExists("Textures/UI/button.png"))
	assert.False(t, app.FileExists("Shaders/basic.glsl"))
	assert.False(t, app.FileExists("META-INF/MANIFEST.MF"))
	assert.False(t, app.FileExists("classes.dex"))

	assert.True(t, engine.FileExists("Shaders/basic.glsl"))
	assert.False(t, engine.FileExists("config.json"))
}

func TestBuild_SynthesizesDirectories(t *testing.T) {
	t.Parallel()

	app, engine, _ := buildFromZip(t, sampleEntries())

	for _, dir := range []string{"", "Textures", "Textures/UI", "Empty", "DLC"} {
		assert.True(t, app.DirectoryExists(dir), dir)
		assert.False(t, app.FileExists(dir), dir)
	}
	assert.True(t, engine.DirectoryExists(""))
	assert.True(t, engine.DirectoryExists("Shaders"))
	assert.False(t, app.DirectoryExists("config.json"))
	assert.False(t, app.DirectoryExists("Missing"))
}

func TestBuild_WholeArchiveApplication(t *testing.T) {
	t.Parallel()

	path := testutil.BuildZip(t, "loose.zip", []testutil.ZipEntry{
		testutil.File("a.txt", "a"),
		testutil.File("CSResources/b.txt", "b"),
	})
	s, err := archive.Open(path)
	require.NoError(t, err)
	defer s.Close()

	app, engine, err := Build(s, Roots{Engine: "CSResources"})
	require.NoError(t, err)
	assert.True(t, app.FileExists("a.txt"))
	assert.False(t, app.FileExists("CSResources/b.txt"))
	assert.True(t, engine.FileExists("b.txt"))
}

func TestBuild_NormalizesNames(t *testing.T) {
	t.Parallel()

	w := sliceWalker{
		{Name: `AppResources\Windows\style.txt`},
		{Name: "AppResources/./dotted.txt"},
		{Name: "AppResources/../escape.txt"},
		{Name: "AppResources//Shared/", IsDir: true},
	}
	app, _, err := Build(w, testRoots)
	require.NoError(t, err)

	assert.True(t, app.FileExists("Windows/style.txt"))
	assert.True(t, app.DirectoryExists("Windows"))
	assert.True(t, app.FileExists("dotted.txt"))
	assert.True(t, app.FileExists("/dotted.txt"))
	assert.True(t, app.DirectoryExists("Shared"))
	assert.False(t, app.FileExists("../escape.txt"))
	assert.Equal(t, 5, app.Len())
}

type sliceWalker []archive.Header

func (w sliceWalker) Walk(fn func(archive.Header) error) error {
	for _, h := range w {
		if err := fn(h); err != nil {
			return err
		}
	}
	return nil
}

func TestBuild_WalkError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, _, err := Build(failingWalker{err: boom}, testRoots)
	require.ErrorIs(t, err, boom)
}

type failingWalker struct{ err error }

func (w failingWalker) Walk(func(archive.Header) error) error { return w.err }

func TestTryFind_PositionsReadBack(t *testing.T) {
	t.Parallel()

	entries := sampleEntries()
	app, _, s := buildFromZip(t, entries)

	e, ok := app.TryFind("Textures/hero.png")
	require.True(t, ok)
	assert.True(t, e.IsFile)
	assert.Equal(t, uint64(3), e.Size)
	assert.Equal(t, DefaultHasher("Textures/hero.png"), e.PathHash)

	got, err := s.OpenAndRead(e.Position)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)

	_, ok = app.TryFind("textures/hero.png")
	assert.False(t, ok, "lookups are case-sensitive")
}

func TestTryFind_HashCollisions(t *testing.T) {
	t.Parallel()

	constant := func(string) uint64 { return 42 }
	app, _, s := buildFromZip(t, []testutil.ZipEntry{
		testutil.File("AppResources/first.txt", "first"),
		testutil.File("AppResources/second.txt", "second"),
	}, WithHasher(constant))

	for path, want := range map[string]string{"first.txt": "first", "second.txt": "second"} {
		e, ok := app.TryFind(path)
		require.True(t, ok, path)
		assert.Equal(t, path, e.Path)
		assert.Equal(t, uint64(42), e.PathHash)

		got, err := s.OpenAndRead(e.Position)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	_, ok := app.TryFind("third.txt")
	assert.False(t, ok)
}

func TestFilesAndDirectories(t *testing.T) {
	t.Parallel()

	app, _, _ := buildFromZip(t, sampleEntries())

	tests := []struct {
		name      string
		dir       string
		recursive bool
		files     []string
		dirs      []string
	}{
		{
			name:  "root shallow",
			dir:   "",
			files: []string{"config.json"},
			dirs:  []string{"DLC", "Empty", "Textures"},
		},
		{
			name:      "root recursive",
			dir:       "",
			recursive: true,
			files:     []string{"DLC/level1.bin", "Textures/UI/button.png", "Textures/hero.png", "config.json"},
			dirs:      []string{"DLC", "Empty", "Textures", "Textures/UI"},
		},
		{
			name:  "subdirectory shallow",
			dir:   "Textures",
			files: []string{"hero.png"},
			dirs:  []string{"UI"},
		},
		{
			name:      "subdirectory recursive with slash",
			dir:       "Textures/",
			recursive: true,
			files:     []string{"UI/button.png", "hero.png"},
			dirs:      []string{"UI"},
		},
		{
			name: "missing",
			dir:  "Nope",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.files, app.Files(tt.dir, tt.recursive))
			assert.Equal(t, tt.dirs, app.Directories(tt.dir, tt.recursive))
		})
	}
}
