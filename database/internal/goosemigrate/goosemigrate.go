// Package goosemigrate applies goose SQL migrations from a directory.
package goosemigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
)

// Up applies every pending migration found in dir to db, in version order. History is
// kept in goose's own version table inside db. A directory without migrations is not
// an error. db is not closed.
func Up(ctx context.Context, dialect goose.Dialect, db *sql.DB, dir string, logger *slog.Logger) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("migration directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("migration directory: %s is not a directory", dir)
	}

	// Provider.Close is never called: it closes db, which belongs to the caller.
	provider, err := goose.NewProvider(dialect, db, os.DirFS(dir))
	if errors.Is(err, goose.ErrNoMigrations) {
		logger.Info("no migrations found", "dir", dir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		var partial *goose.PartialError
		if errors.As(err, &partial) {
			logApplied(logger, partial.Applied)
			if partial.Failed != nil && partial.Failed.Source != nil {
				logger.Debug("migration files", "dir", dir, "files", listFiles(dir))
				return fmt.Errorf("apply migration %s: %w", filepath.Base(partial.Failed.Source.Path), partial.Err)
			}
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	logApplied(logger, results)
	logger.Info("migrations applied", "dir", dir, "count", len(results))

	return nil
}

func logApplied(logger *slog.Logger, results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		logger.Debug("applied migration",
			"version", r.Source.Version,
			"file", filepath.Base(r.Source.Path),
			"duration", r.Duration,
		)
	}
}

func listFiles(dir string) []string {
	matches, err := fs.Glob(os.DirFS(dir), "*.sql")
	if err != nil {
		return nil
	}
	return matches
}
