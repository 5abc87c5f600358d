package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sagarc03/teststand"
	"github.com/sagarc03/teststand/config"

	_ "modernc.org/sqlite" // SQLite driver
)

// Schemes are the URL prefixes recognized in front of a database file path.
var Schemes = []string{"sqlite://", "sqlite3://"}

const memoryDatabase = ":memory:"

// Provisioner creates and migrates ephemeral SQLite database files.
type Provisioner struct {
	logger *slog.Logger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger for provisioning and migration progress.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// New returns a SQLite provisioner. URLs are file paths, optionally prefixed with
// sqlite:// and followed by driver parameters, such as sqlite://./data/app.db?_pragma=foreign_keys(1).
func New(opts ...Option) *Provisioner {
	p := &Provisioner{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ teststand.Provisioner = (*Provisioner)(nil)

// CreateDatabase creates a new database file next to the configured one, named
// <stem>_<uuid><ext>. The file is created exclusively, so an existing file is never reused.
func (p *Provisioner) CreateDatabase(ctx context.Context, cfg *config.Tree) (string, error) {
	pc, err := teststand.ParsePoolConfig(cfg)
	if err != nil {
		return "", err
	}

	base, ok := teststand.ExtractDatabaseName(pc.URL)
	if !ok {
		return "", teststand.ConfigError("no database file in url %s", pc.URL)
	}
	if base == "" || base == memoryDatabase {
		return "", teststand.ConfigError("url %s does not name a database file", pc.URL)
	}

	ext := filepath.Ext(base)
	name := teststand.TemporaryName(strings.TrimSuffix(base, ext), uuid.NewString()) + ext

	// The base URL has a "/", so the rewrite cannot fail.
	url, _ := teststand.RewriteDatabaseName(pc.URL, name)
	path, query := splitURL(url)

	p.logger.Info("creating temporary database", "name", name, "path", path)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", teststand.PoolError(fmt.Errorf("create database file: %w", err))
	}
	if err := f.Close(); err != nil {
		return "", teststand.PoolError(fmt.Errorf("create database file: %w", err))
	}

	db, err := sql.Open("sqlite", path+query)
	if err != nil {
		return "", teststand.PoolError(fmt.Errorf("open sqlite: %w", err))
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return "", teststand.PoolError(fmt.Errorf("ping sqlite: %w", err))
	}

	return name, nil
}

// MigrateDatabase points the configured URL at the database file name and applies the
// golang-migrate migrations in migrationPath. It returns the rewritten URL.
func (p *Provisioner) MigrateDatabase(ctx context.Context, name, migrationPath string, cfg *config.Tree) (string, error) {
	pc, err := teststand.ParsePoolConfig(cfg)
	if err != nil {
		return "", err
	}

	url, ok := teststand.RewriteDatabaseName(pc.URL, name)
	if !ok {
		return "", teststand.ConfigError("no database file in url %s", pc.URL)
	}
	path, query := splitURL(url)

	// Opening a missing file would silently create an empty database.
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", teststand.PoolError(fmt.Errorf("database file %s does not exist", path))
		}
		return "", teststand.PoolError(fmt.Errorf("stat database file: %w", err))
	}

	db, err := sql.Open("sqlite", path+query)
	if err != nil {
		return "", teststand.PoolError(fmt.Errorf("open sqlite: %w", err))
	}
	defer func() { _ = db.Close() }()

	db.SetMaxOpenConns(pc.MaxConnections)
	if idle := pc.IdleTimeoutDuration(); idle > 0 {
		db.SetConnMaxIdleTime(idle)
	}

	if err := db.PingContext(ctx); err != nil {
		return "", teststand.PoolError(fmt.Errorf("ping sqlite: %w", err))
	}

	log := p.logger.With("database", name)
	if err := migrateUp(ctx, db, migrationPath, log); err != nil {
		return "", teststand.MigrateError(err)
	}

	return url, nil
}

// splitURL returns the file path and the "?params" suffix of a SQLite URL.
func splitURL(url string) (path, query string) {
	for _, scheme := range Schemes {
		if strings.HasPrefix(url, scheme) {
			url = strings.TrimPrefix(url, scheme)
			break
		}
	}

	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i], url[i:]
	}
	return url, ""
}
