// Package config loads settings for the vfs command-line tools.
//
// Values come from three layers, later ones winning: the built-in
// defaults, an optional YAML file, and VFS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/meigma/vfs"
)

// EnvPrefix is the prefix of environment overrides, e.g. VFS_PACKAGE_PATH.
const EnvPrefix = "VFS"

// Config holds all vfsctl configuration.
//
// Environment tags carry no defaults so that unset variables leave file
// values alone.
type Config struct {
	// PackagePath is the package archive or directory.
	PackagePath string `yaml:"package_path" envconfig:"PACKAGE_PATH"`

	// StoragePath holds the writable locations.
	StoragePath string `yaml:"storage_path" envconfig:"STORAGE_PATH"`

	Archive ArchiveConfig `yaml:"archive" envconfig:"ARCHIVE"`
	Limits  LimitsConfig  `yaml:"limits" envconfig:"LIMITS"`
	Logging LogConfig     `yaml:"logging" envconfig:"LOG"`
}

// ArchiveConfig describes the package layout.
type ArchiveConfig struct {
	ApplicationRoot string `yaml:"application_root" envconfig:"APPLICATION_ROOT"`
	EngineRoot      string `yaml:"engine_root" envconfig:"ENGINE_ROOT"`
	Root            string `yaml:"root" envconfig:"ROOT"`
	DLCPath         string `yaml:"dlc_path" envconfig:"DLC_PATH"`
}

// LimitsConfig bounds resource use.
type LimitsConfig struct {
	MaxFileSize        uint64 `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE"`
	MaxDecoderMemory   uint64 `yaml:"max_decoder_memory" envconfig:"MAX_DECODER_MEMORY"`
	DecoderConcurrency *int   `yaml:"decoder_concurrency" envconfig:"DECODER_CONCURRENCY"`
	DecoderLowmem      *bool  `yaml:"decoder_lowmem" envconfig:"DECODER_LOWMEM"`
	CopyWorkers        int    `yaml:"copy_workers" envconfig:"COPY_WORKERS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		StoragePath: defaultStoragePath(),
		Archive: ArchiveConfig{
			ApplicationRoot: vfs.DefaultApplicationRoot,
			EngineRoot:      vfs.DefaultEngineRoot,
			DLCPath:         vfs.DefaultPackageDLCPath,
		},
		Limits: LimitsConfig{
			MaxFileSize:      vfs.DefaultMaxFileSize,
			MaxDecoderMemory: vfs.DefaultMaxDecoderMemory,
			CopyWorkers:      4,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultStoragePath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "vfs")
	}
	return ".vfs"
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment. Callers apply their own
// overrides and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	return cfg, nil
}

// loadFile merges a YAML file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.PackagePath == "" {
		errs = append(errs, errors.New("package_path is required"))
	}
	if c.StoragePath == "" {
		errs = append(errs, errors.New("storage_path is required"))
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Options converts the configuration to file system options.
func (c *Config) Options(logger *slog.Logger) []vfs.Option {
	opts := []vfs.Option{
		vfs.WithLogger(logger),
		vfs.WithApplicationRoot(c.Archive.ApplicationRoot),
		vfs.WithEngineRoot(c.Archive.EngineRoot),
		vfs.WithArchiveRoot(c.Archive.Root),
		vfs.WithPackageDLCPath(c.Archive.DLCPath),
		vfs.WithMaxFileSize(c.Limits.MaxFileSize),
		vfs.WithMaxDecoderMemory(c.Limits.MaxDecoderMemory),
		vfs.WithCopyWorkers(c.Limits.CopyWorkers),
	}
	if c.Limits.DecoderConcurrency != nil {
		opts = append(opts, vfs.WithDecoderConcurrency(*c.Limits.DecoderConcurrency))
	}
	if c.Limits.DecoderLowmem != nil {
		opts = append(opts, vfs.WithDecoderLowmem(*c.Limits.DecoderLowmem))
	}
	return opts
}

// Logger builds a logger writing to w at the configured level and format.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
