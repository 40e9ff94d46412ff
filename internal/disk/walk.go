package disk

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/meigma/vfs/internal/pathutil"
)

// Files returns the files below dir as paths relative to dir, sorted.
// A missing directory yields no paths.
func (r *Root) Files(dir string, recursive bool) ([]string, error) {
	return r.list(dir, recursive, false)
}

// Directories returns the directories below dir as paths relative to dir,
// sorted. dir itself is not included.
func (r *Root) Directories(dir string, recursive bool) ([]string, error) {
	return r.list(dir, recursive, true)
}

func (r *Root) list(dir string, recursive, dirs bool) ([]string, error) {
	dir = pathutil.Normalize(dir)
	if !r.DirExists(dir) {
		return nil, nil
	}

	var out []string
	if !recursive {
		infos, err := r.fs.ReadDir(name(dir))
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			if info.IsDir() == dirs && !isTemp(info.Name()) {
				out = append(out, info.Name())
			}
		}
		slices.Sort(out)
		return out, nil
	}

	err := r.walk(dir, func(rel string, d fs.DirEntry) error {
		if d.IsDir() == dirs {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}

// walk visits everything below dir except dir itself and in-flight temp
// files. fastwalk calls back
// from several goroutines; fn is serialized and receives paths relative to
// dir.
func (r *Root) walk(dir string, fn func(rel string, d fs.DirEntry) error) error {
	top := r.Abs(dir)
	var mu sync.Mutex

	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, top, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			r.log().Debug("skipping unreadable path", "path", p, "error", err)
			return nil
		}
		if p == top || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(top, p)
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		return fn(filepath.ToSlash(rel), d)
	})
}
