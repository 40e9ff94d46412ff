// Command vfsctl inspects and copies files through the virtual file system.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/meigma/vfs"
	"github.com/meigma/vfs/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath  string
	packagePath string
	storagePath string
	logLevel    string
}

func run(args []string, stdout, stderr io.Writer) error {
	var g globalFlags

	flagSet := pflag.NewFlagSet("vfsctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVarP(&g.configPath, "config", "c", "", "path to a YAML config file")
	flagSet.StringVar(&g.packagePath, "package", "", "package archive or directory (overrides config)")
	flagSet.StringVar(&g.storagePath, "storage", "", "directory holding the writable locations (overrides config)")
	flagSet.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	flagSet.Usage = func() { printHelp(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return errors.New("missing command")
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", rest[0])
	}

	f, cleanup, err := open(g, stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	return cmd(f, rest[1:], stdout, stderr)
}

// open loads configuration and creates the file system. A package that
// cannot be indexed is fatal.
func open(g globalFlags, stderr io.Writer) (*vfs.FileSystem, func(), error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.packagePath != "" {
		cfg.PackagePath = g.packagePath
	}
	if g.storagePath != "" {
		cfg.StoragePath = g.storagePath
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := cfg.Logger(stderr)
	if err != nil {
		return nil, nil, err
	}

	f, err := vfs.New(cfg.PackagePath, cfg.StoragePath, cfg.Options(logger)...)
	if err != nil {
		return nil, nil, fmt.Errorf("open package: %w", err)
	}
	logger.Debug("file system ready",
		"package", cfg.PackagePath,
		"archived", f.IsPackageArchived(),
		"storage", cfg.StoragePath)

	return f, func() {
		if err := f.Close(); err != nil {
			logger.Warn("close package", slog.Any("error", err))
		}
	}, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `vfsctl reads the package and storage locations of a virtual file system.

Usage:
  vfsctl [global flags] <command> [flags] [args]

Commands:
  ls     [-r] [-l location] [dir]            list files
  dirs   [-r] [-l location] [dir]            list directories
  cat    [-l location] <path>                write a file to stdout
  stat   [-l location] <path>                describe a file or directory
  copy   [--from L] [--to L] [-d] <src> <dst>  copy a file or directory
  glob   [-l location] <dir> <pattern>       list files matching a pattern

Locations: %s (default: package).

Global flags:
%s`, locationNames(), flagSet.FlagUsages())
}

func locationNames() string {
	locs := vfs.StorageLocations()
	names := make([]string, len(locs))
	for i, l := range locs {
		names[i] = l.String()
	}
	return strings.Join(names, ", ")
}

func parseLocation(s string) (vfs.StorageLocation, error) {
	loc, err := vfs.ParseStorageLocation(s)
	if err != nil {
		return vfs.LocationNone, fmt.Errorf("--location: %w", err)
	}
	return loc, nil
}

func printLines(w io.Writer, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
