package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/sagarc03/teststand"
	"github.com/sagarc03/teststand/config"
	"github.com/sagarc03/teststand/database/internal/goosemigrate"
)

// maxIdentifierLength is the longest name PostgreSQL stores without truncation (NAMEDATALEN - 1).
const maxIdentifierLength = 63

// Provisioner creates and migrates ephemeral PostgreSQL databases.
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

// New returns a PostgreSQL provisioner.
func New(opts ...Option) *Provisioner {
	p := &Provisioner{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ teststand.Provisioner = (*Provisioner)(nil)

// CreateDatabase connects to the configured database and creates a sibling named
// <database>_<uuid>.
func (p *Provisioner) CreateDatabase(ctx context.Context, cfg *config.Tree) (string, error) {
	pc, err := teststand.ParsePoolConfig(cfg)
	if err != nil {
		return "", err
	}

	base, err := baseDatabaseName(pc.URL)
	if err != nil {
		return "", err
	}

	poolCfg, err := parsePoolConfig(pc.URL, pc)
	if err != nil {
		return "", err
	}
	if poolCfg.ConnConfig.Database != base {
		return "", teststand.ConfigError("url database %q does not match its path segment %q", poolCfg.ConnConfig.Database, base)
	}

	name := teststand.TemporaryName(base, uuid.NewString())
	if len(name) > maxIdentifierLength {
		return "", teststand.ConfigError("temporary database name %s exceeds %d characters", name, maxIdentifierLength)
	}

	// One connection is enough for a single statement.
	poolCfg.MaxConns = 1
	poolCfg.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return "", teststand.PoolError(fmt.Errorf("connect postgres: %w", err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return "", teststand.PoolError(fmt.Errorf("ping postgres: %w", err))
	}

	p.logger.Info("creating temporary database", "name", name)

	if _, err := pool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return "", teststand.PoolError(fmt.Errorf("create database %s: %w", name, err))
	}

	return name, nil
}

// MigrateDatabase points the configured URL at name and applies the goose migrations
// in migrationPath. It returns the rewritten URL.
func (p *Provisioner) MigrateDatabase(ctx context.Context, name, migrationPath string, cfg *config.Tree) (string, error) {
	pc, err := teststand.ParsePoolConfig(cfg)
	if err != nil {
		return "", err
	}

	url, ok := teststand.RewriteDatabaseName(pc.URL, name)
	if !ok {
		return "", teststand.ConfigError("no database name in url %s", teststand.RedactURL(pc.URL))
	}

	poolCfg, err := parsePoolConfig(url, pc)
	if err != nil {
		return "", err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return "", teststand.PoolError(fmt.Errorf("connect postgres: %w", err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return "", teststand.PoolError(fmt.Errorf("ping postgres: %w", err))
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	log := p.logger.With("database", name)
	if err := goosemigrate.Up(ctx, goose.DialectPostgres, db, migrationPath, log); err != nil {
		return "", teststand.MigrateError(err)
	}

	return url, nil
}

func baseDatabaseName(url string) (string, error) {
	base, ok := teststand.ExtractDatabaseName(url)
	if !ok {
		return "", teststand.ConfigError("no database name in url %s", teststand.RedactURL(url))
	}
	if base == "" {
		return "", teststand.ConfigError("empty database name in url %s", teststand.RedactURL(url))
	}
	return base, nil
}

// parsePoolConfig builds a pgxpool configuration for url sized by pc.
func parsePoolConfig(url string, pc teststand.PoolConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, teststand.PoolError(fmt.Errorf("parse postgres url: %w", err))
	}

	poolCfg.MaxConns = int32(pc.MaxConnections)
	poolCfg.MinConns = int32(pc.MinConnectionsOrZero())
	poolCfg.ConnConfig.ConnectTimeout = pc.ConnectTimeoutDuration()
	if idle := pc.IdleTimeoutDuration(); idle > 0 {
		poolCfg.MaxConnIdleTime = idle
	}

	return poolCfg, nil
}
