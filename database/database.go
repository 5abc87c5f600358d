package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sagarc03/teststand"
	"github.com/sagarc03/teststand/config"
	"github.com/sagarc03/teststand/database/mysql"
	"github.com/sagarc03/teststand/database/postgres"
	"github.com/sagarc03/teststand/database/sqlite"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// New returns the provisioner for driver. "postgresql" and "sqlite3" are accepted as
// aliases. An empty driver returns a provisioner that picks the driver from each
// configured URL (see DriverFromURL). A nil logger uses slog.Default().
func New(driver string, logger *slog.Logger) (teststand.Provisioner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(driver) {
	case "":
		return &auto{logger: logger}, nil
	case DriverPostgres, "postgresql":
		return postgres.New(postgres.WithLogger(logger)), nil
	case DriverMySQL:
		return mysql.New(mysql.WithLogger(logger)), nil
	case DriverSQLite, "sqlite3":
		return sqlite.New(sqlite.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// DriverFromURL infers the driver from a connection URL:
//
//   - postgres:// and postgresql:// select postgres
//   - mysql://, or a DSN with a tcp(...) or unix(...) address, selects mysql
//   - sqlite:// and sqlite3://, or a path ending in .db, .sqlite or .sqlite3, selects sqlite
func DriverFromURL(url string) (string, error) {
	lower := strings.ToLower(url)

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(lower, mysql.Scheme), strings.Contains(lower, "@tcp("), strings.Contains(lower, "@unix("):
		return DriverMySQL, nil
	}

	for _, scheme := range sqlite.Schemes {
		if strings.HasPrefix(lower, scheme) {
			return DriverSQLite, nil
		}
	}

	path, _, _ := strings.Cut(lower, "?")
	for _, ext := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(path, ext) {
			return DriverSQLite, nil
		}
	}

	return "", fmt.Errorf("cannot infer database driver from url %s", teststand.RedactURL(url))
}

// auto dispatches every call to the provisioner matching the configured URL.
type auto struct {
	logger *slog.Logger
}

func (a *auto) CreateDatabase(ctx context.Context, cfg *config.Tree) (string, error) {
	p, err := a.resolve(cfg)
	if err != nil {
		return "", err
	}
	return p.CreateDatabase(ctx, cfg)
}

func (a *auto) MigrateDatabase(ctx context.Context, name, migrationPath string, cfg *config.Tree) (string, error) {
	p, err := a.resolve(cfg)
	if err != nil {
		return "", err
	}
	return p.MigrateDatabase(ctx, name, migrationPath, cfg)
}

func (a *auto) resolve(cfg *config.Tree) (teststand.Provisioner, error) {
	url := cfg.GetString("url")
	if url == "" {
		return nil, teststand.ConfigError("no url configured")
	}

	driver, err := DriverFromURL(url)
	if err != nil {
		return nil, teststand.ConfigError("%w", err)
	}

	return New(driver, a.logger)
}
