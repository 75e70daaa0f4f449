// Package app wires configuration, catalog sources, the library store and the
// services into a runnable shelfscan instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"shelfscan/internal/catalog"
	"shelfscan/internal/config"
	"shelfscan/internal/ingest"
	"shelfscan/internal/library"
	"shelfscan/internal/platform/googlebooks"
	"shelfscan/internal/platform/openlibrary"
	"shelfscan/internal/scan"
)

// App holds the long-lived components of one shelfscan process.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    library.Store
	Resolver *catalog.BoundedRequest
	Scans    *scan.Service
	Imports  *ingest.Service
}

// New opens the configured store and builds the resolution pipeline.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg.Library, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("library store ready", slog.String("backend", cfg.Library.Backend))

	resolver := NewResolver(cfg.Catalog, logger)
	scans := scan.NewService(resolver, store, logger)
	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Resolver: resolver,
		Scans:    scans,
		Imports:  ingest.NewService(scans, logger),
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// OpenStore opens the library backend selected by cfg and applies pending
// migrations.
func OpenStore(ctx context.Context, cfg config.Library, logger *slog.Logger) (library.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		return library.OpenSQLite(ctx, cfg.Path, logger)
	case config.BackendPostgres:
		return library.OpenPostgres(ctx, cfg.DatabaseDSN, logger)
	default:
		return nil, fmt.Errorf("unknown library backend %q", cfg.Backend)
	}
}

// NewResolver builds the bounded aggregator over Open Library and Google
// Books, in that source order.
func NewResolver(cfg config.Catalog, logger *slog.Logger) *catalog.BoundedRequest {
	olClient := openlibrary.NewClient(cfg.UserAgent, cfg.RequestsPerSecond,
		openlibrary.WithBaseURL(cfg.OpenLibraryBaseURL))
	gbClient := googlebooks.NewClient(cfg.UserAgent, cfg.RequestsPerSecond,
		googlebooks.WithBaseURL(cfg.GoogleBooksBaseURL),
		googlebooks.WithAPIKey(cfg.GoogleBooksAPIKey))

	aggregator := catalog.NewAggregator(logger,
		openlibrary.NewSource(olClient, logger),
		googlebooks.NewSource(gbClient, logger),
	)
	return catalog.NewBoundedRequest(aggregator, cfg.ResolveTimeout, logger)
}

// Migrate runs a goose command against the configured backend without
// opening a full store.
func Migrate(ctx context.Context, cfg config.Library, command string, logger *slog.Logger) error {
	dialect, target := library.DialectSQLite, cfg.Path
	switch cfg.Backend {
	case config.BackendSQLite, "":
	case config.BackendPostgres:
		dialect, target = library.DialectPostgres, cfg.DatabaseDSN
	default:
		return fmt.Errorf("unknown library backend %q", cfg.Backend)
	}
	if target == "" {
		return errors.New("no database configured for migrations")
	}

	if dialect == library.DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("ensure library directory: %w", err)
		}
	}

	db, err := library.OpenDB(ctx, dialect, target)
	if err != nil {
		return err
	}
	defer db.Close()
	return library.Migrate(ctx, db, dialect, command, logger)
}
