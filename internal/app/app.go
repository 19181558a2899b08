// Package app wires configuration into a ready-to-run export application:
// the source connection, the export catalog, the artifact store, and the
// exporter built on top of them.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/colport/colport/internal/config"
	"github.com/colport/colport/internal/export"
	"github.com/colport/colport/internal/manifest"
	"github.com/colport/colport/internal/source"
	"github.com/colport/colport/internal/storage"
)

// App holds the shared resources of an export run.
type App struct {
	cfg *config.Config

	conn     *source.Connection
	catalog  *manifest.Catalog
	store    storage.ArtifactStore
	exporter *export.Exporter

	mu     sync.Mutex
	opened bool
}

// New creates an App from configuration. The configuration is resolved and
// validated; no connections are opened until Open is called.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return &App{cfg: cfg}, nil
}

// Open dials the source database and initializes the catalog and artifact
// store per configuration.
func (a *App) Open(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.opened {
		return fmt.Errorf("app is already open")
	}

	conn, err := source.Open(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	a.conn = conn

	if a.cfg.Manifest.Enabled {
		catalog, err := manifest.Open(a.cfg.Manifest.Path)
		if err != nil {
			a.closeLocked()
			return err
		}
		a.catalog = catalog
	}

	store, err := a.buildStore(ctx)
	if err != nil {
		a.closeLocked()
		return err
	}
	a.store = store

	var opts []export.Option
	if a.catalog != nil {
		opts = append(opts, export.WithManifest(a.catalog))
	}
	if a.store != nil {
		opts = append(opts, export.WithArtifactStore(a.store, a.cfg.Storage.Prefix))
	}
	a.exporter = export.New(opts...)

	a.opened = true
	log.Printf("app: connected to %s source %q", a.cfg.Database.Driver, a.cfg.Database.Database)
	return nil
}

func (a *App) buildStore(ctx context.Context) (storage.ArtifactStore, error) {
	switch a.cfg.Storage.Type {
	case "", "none":
		return nil, nil
	case "local":
		return storage.NewLocalStore(a.cfg.Storage.Path)
	case "s3":
		return storage.NewS3Store(ctx, a.cfg.Storage.S3.Bucket, storage.S3Options{
			Region:       a.cfg.Storage.S3.Region,
			Endpoint:     a.cfg.Storage.S3.Endpoint,
			UsePathStyle: a.cfg.Storage.S3.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", a.cfg.Storage.Type)
	}
}

// Exporter returns the configured exporter. Valid only after Open.
func (a *App) Exporter() *export.Exporter {
	return a.exporter
}

// Connection returns the open source connection. Valid only after Open.
func (a *App) Connection() *source.Connection {
	return a.conn
}

// Config returns the resolved configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases the connection and catalog. Safe to call more than once.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *App) closeLocked() error {
	var firstErr error

	if a.conn != nil {
		if err := a.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.conn = nil
	}
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.catalog = nil
	}

	a.opened = false
	return firstErr
}
