package manifest

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/meigma/vfs/internal/archive"
	"github.com/meigma/vfs/internal/pathutil"
)

// Walker visits every central directory record of an archive in order.
// *archive.Session implements Walker.
type Walker interface {
	Walk(fn func(archive.Header) error) error
}

// Roots names the archive directories that hold each namespace.
type Roots struct {
	// Application is the directory holding application package content.
	// An empty value places the whole archive in the application namespace.
	Application string

	// Engine is the directory holding engine resources.
	Engine string
}

type buildConfig struct {
	hash   Hasher
	logger *slog.Logger
}

// Option configures Build.
type Option func(*buildConfig)

// WithHasher replaces the path hash function.
func WithHasher(h Hasher) Option {
	return func(c *buildConfig) {
		c.hash = h
	}
}

// WithLogger sets the logger for build diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// Build walks the archive once and returns the application and engine
// manifests.
//
// Record names are normalized before being matched against the roots;
// records outside both roots, and records whose names climb out of their
// root, are skipped. Every ancestor directory of an included record is
// added as a directory entry.
func Build(w Walker, roots Roots, opts ...Option) (app, engine *Manifest, err error) {
	cfg := buildConfig{hash: DefaultHasher}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	appPrefix := pathutil.DirPrefix(pathutil.Normalize(roots.Application))
	enginePrefix := pathutil.DirPrefix(pathutil.Normalize(roots.Engine))

	app = newManifest(cfg.hash)
	engine = newManifest(cfg.hash)

	var skipped int
	err = w.Walk(func(h archive.Header) error {
		name := pathutil.Normalize(h.Name)

		var target *Manifest
		var rel string
		switch {
		case enginePrefix != "" && strings.HasPrefix(name+"/", enginePrefix):
			target, rel = engine, strings.TrimPrefix(name, strings.TrimSuffix(enginePrefix, "/"))
		case strings.HasPrefix(name+"/", appPrefix):
			target, rel = app, strings.TrimPrefix(name, strings.TrimSuffix(appPrefix, "/"))
		default:
			skipped++
			return nil
		}
		rel = strings.TrimPrefix(rel, "/")
		if pathutil.Escapes(rel) {
			cfg.logger.Warn("skipping archive entry outside its root", "name", h.Name)
			skipped++
			return nil
		}

		isFile := !h.IsDir && rel != ""
		for _, dir := range pathutil.Ancestors(rel) {
			target.add(Entry{Path: dir})
		}
		if rel == "" {
			return nil
		}
		e := Entry{Path: rel, IsFile: isFile, Position: h.Position}
		if isFile {
			e.Size = h.UncompressedSize
		}
		if !target.add(e) {
			cfg.logger.Debug("duplicate archive entry", "name", h.Name)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build manifest: %w", err)
	}

	cfg.logger.Debug("manifest built",
		"application_entries", app.Len(),
		"engine_entries", engine.Len(),
		"skipped", skipped)
	return app, engine, nil
}
