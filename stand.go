package teststand

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cast"

	"github.com/sagarc03/teststand/config"
	"github.com/sagarc03/teststand/host"
)

const (
	// connectionsPerWorker multiplies the worker count into the default pool size.
	connectionsPerWorker = 4
	// defaultConnectTimeout is the connect timeout, in seconds, used when none is configured.
	defaultConnectTimeout = 5
)

// Stand provisions one logical database for a test run. During host ignition it creates
// an ephemeral copy of the configured database, migrates it, and points the host
// configuration at the copy.
//
// A Stand holds no mutable state; every ignition recomputes everything from the
// configuration it is handed.
type Stand struct {
	name          string
	migrationPath string
	provisioner   Provisioner
	displayName   string
	logger        *slog.Logger
}

// Option configures a Stand.
type Option func(*Stand)

// WithDisplayName overrides the name the host reports for the stand.
func WithDisplayName(name string) Option {
	return func(s *Stand) {
		s.displayName = name
	}
}

// WithLogger sets the logger the stand reports progress and failures to.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stand) {
		s.logger = logger
	}
}

// Result is the outcome of a successful provisioning.
type Result struct {
	// Name is the physical name of the ephemeral database.
	Name string
	// URL is the connection URL of the migrated ephemeral database.
	URL string
	// Config is the host configuration with databases.<name>.url pointing at URL.
	Config *config.Tree
}

// New returns a Stand for the logical database name, migrated from migrationPath
// through p.
func New(name, migrationPath string, p Provisioner, opts ...Option) *Stand {
	s := &Stand{
		name:          name,
		migrationPath: migrationPath,
		provisioner:   p,
		displayName:   fmt.Sprintf("'%s' Test Stand", name),
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// For returns a Stand for the logical database declared by D.
//
//	type AppDB struct{}
//
//	func (AppDB) DatabaseName() string  { return "app" }
//	func (AppDB) MigrationPath() string { return "migrations" }
//
//	stand := teststand.For[AppDB](postgres.New())
func For[D Declaration](p Provisioner, opts ...Option) *Stand {
	var d D
	return New(d.DatabaseName(), d.MigrationPath(), p, opts...)
}

// Name returns the display name of the stand.
func (s *Stand) Name() string { return s.displayName }

// DatabaseName returns the logical database name.
func (s *Stand) DatabaseName() string { return s.name }

// MigrationPath returns the migration directory.
func (s *Stand) MigrationPath() string { return s.migrationPath }

// DeriveConfig focuses tree on databases.<name> and overlays the pool defaults:
// max_connections = 4 × workers and connect_timeout = 5. The worker count is read
// from tree's "workers" key, falling back to defaultWorkers when it is absent.
func DeriveConfig(tree *config.Tree, name string, defaultWorkers int) (*config.Tree, error) {
	if name == "" || strings.Contains(name, ".") {
		return nil, ConfigError("invalid database name %q", name)
	}

	workers := defaultWorkers
	if tree.IsSet("workers") {
		n, err := cast.ToIntE(tree.Get("workers"))
		if err != nil {
			return nil, ConfigError("read workers: %w", err)
		}
		workers = n
	}
	if workers < 1 {
		return nil, ConfigError("workers must be at least 1, got %d", workers)
	}

	scoped, err := tree.Focus(databaseKey(name))
	if err != nil {
		return nil, ConfigError("%w", err)
	}

	return scoped.
		WithDefault("max_connections", connectionsPerWorker*workers).
		WithDefault("connect_timeout", defaultConnectTimeout), nil
}

// Provision runs the full lifecycle against tree: derive the scoped configuration,
// create the ephemeral database, migrate it and rewrite databases.<name>.url.
// Failures are returned as *Error values and leave tree untouched. Nothing is
// cleaned up on failure.
func (s *Stand) Provision(ctx context.Context, tree *config.Tree) (Result, error) {
	return s.provision(ctx, tree, host.DefaultWorkers())
}

// OnIgnite provisions the database during host ignition and returns the rewritten
// host configuration.
func (s *Stand) OnIgnite(ctx context.Context, h *host.Host) (*config.Tree, error) {
	res, err := s.provision(ctx, h.Config(), h.DefaultWorkers())
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func (s *Stand) provision(ctx context.Context, tree *config.Tree, defaultWorkers int) (Result, error) {
	log := s.logger.With("stand", s.displayName, "database", s.name)

	scoped, err := DeriveConfig(tree, s.name, defaultWorkers)
	if err != nil {
		log.Error("could not derive database configuration", "phase", "config", "err", err)
		return Result{}, err
	}

	name, err := s.provisioner.CreateDatabase(ctx, scoped)
	if err != nil {
		err = classify(err, KindPool)
		log.Error("could not create temporary database", "phase", "create", "err", err)
		return Result{}, err
	}

	url, err := s.provisioner.MigrateDatabase(ctx, name, s.migrationPath, scoped)
	if err != nil {
		err = classify(err, KindMigrate)
		log.Error("failed to migrate the temporary database", "phase", "migrate", "temp_database", name, "err", err)
		return Result{}, err
	}

	log.Info("temporary database ready", "temp_database", name, "url", RedactURL(url))

	return Result{
		Name:   name,
		URL:    url,
		Config: tree.Merge(databaseKey(s.name)+".url", url),
	}, nil
}

func databaseKey(name string) string {
	return "databases." + name
}
