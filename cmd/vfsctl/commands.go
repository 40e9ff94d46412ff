package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/meigma/vfs"
)

type command func(f *vfs.FileSystem, args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"ls":   listCmd(true),
	"dirs": listCmd(false),
	"cat":  catCmd,
	"stat": statCmd,
	"copy": copyCmd,
	"glob": globCmd,
}

// newFlagSet returns a flag set with the common --location flag.
func newFlagSet(name string, stderr io.Writer, loc *string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(loc, "location", "l", "package", "storage location")
	return fs
}

func listCmd(files bool) command {
	return func(f *vfs.FileSystem, args []string, stdout, stderr io.Writer) error {
		var locName string
		var recursive bool
		fs := newFlagSet("ls", stderr, &locName)
		fs.BoolVarP(&recursive, "recursive", "r", false, "list recursively")
		if err := fs.Parse(args); err != nil {
			return err
		}
		loc, err := parseLocation(locName)
		if err != nil {
			return err
		}
		dir := fs.Arg(0)

		var paths []string
		if files {
			paths, err = f.GetFilePaths(loc, dir, recursive)
		} else {
			paths, err = f.GetDirectoryPaths(loc, dir, recursive)
		}
		if err != nil {
			return err
		}
		return printLines(stdout, paths)
	}
}

func catCmd(f *vfs.FileSystem, args []string, stdout, stderr io.Writer) error {
	var locName string
	fs := newFlagSet("cat", stderr, &locName)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("cat: expected one path")
	}
	loc, err := parseLocation(locName)
	if err != nil {
		return err
	}

	stream, err := f.CreateReadStream(loc, fs.Arg(0))
	if err != nil {
		return err
	}
	defer stream.Close()
	_, err = io.Copy(stdout, stream)
	return err
}

func statCmd(f *vfs.FileSystem, args []string, stdout, stderr io.Writer) error {
	var locName string
	fs := newFlagSet("stat", stderr, &locName)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("stat: expected one path")
	}
	loc, err := parseLocation(locName)
	if err != nil {
		return err
	}
	path := fs.Arg(0)

	for i, c := range f.Resolve(loc, path) {
		source := "disk"
		if c.ArchiveBacked {
			source = "archive"
		}
		fmt.Fprintf(stdout, "candidate %d: %s %s (%s)\n", i+1, c.Location, c.Path, source)
	}

	switch {
	case f.FileExists(loc, path):
		size, err := f.FileSize(loc, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "type: file\nsize: %d\npath: %s\n", size, f.GetAbsolutePathToFile(loc, path))
		if mtype, err := f.ContentType(loc, path); err == nil {
			fmt.Fprintf(stdout, "content-type: %s\n", mtype)
		}
		if info, err := f.ZippedFileInfo(loc, path); err == nil {
			fmt.Fprintf(stdout, "archive-offset: %d\ncompressed: %t\ncompressed-size: %d\n",
				info.Offset, info.Compressed, info.CompressedSize)
		}
	case f.DirectoryExists(loc, path):
		size, err := f.DirectorySize(loc, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "type: directory\nsize: %d\npath: %s\n", size, f.GetAbsolutePathToDirectory(loc, path))
	default:
		return fmt.Errorf("stat %s: not found in %s", path, loc)
	}
	return nil
}

func copyCmd(f *vfs.FileSystem, args []string, _, stderr io.Writer) error {
	var fromName, toName string
	var dir bool
	fs := pflag.NewFlagSet("copy", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&fromName, "from", "package", "source storage location")
	fs.StringVar(&toName, "to", "savedata", "destination storage location")
	fs.BoolVarP(&dir, "dir", "d", false, "copy a directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("copy: expected source and destination")
	}
	from, err := parseLocation(fromName)
	if err != nil {
		return err
	}
	to, err := parseLocation(toName)
	if err != nil {
		return err
	}
	if !vfs.IsWritable(to) {
		return fmt.Errorf("copy: destination %s is read-only", to)
	}

	if dir {
		return f.CopyDirectory(from, fs.Arg(0), to, fs.Arg(1))
	}
	return f.CopyFile(from, fs.Arg(0), to, fs.Arg(1))
}

func globCmd(f *vfs.FileSystem, args []string, stdout, stderr io.Writer) error {
	var locName string
	fs := newFlagSet("glob", stderr, &locName)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("glob: expected directory and pattern")
	}
	loc, err := parseLocation(locName)
	if err != nil {
		return err
	}

	matches, err := f.Glob(loc, fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	return printLines(stdout, matches)
}
