package teststand

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sagarc03/teststand/config"
)

// Provisioner is the capability a database driver adapter implements to take part
// in the test stand lifecycle.
//
// Both methods receive the scoped configuration of one logical database (see DeriveConfig)
// and must report failures as *Error values: KindPool for connection and statement
// failures, KindMigrate for migration engine failures and KindConfig for URLs whose
// database segment cannot be located.
type Provisioner interface {
	// CreateDatabase connects with the configured URL, creates a new database named
	// after the configured one plus a unique suffix, and returns that name.
	CreateDatabase(ctx context.Context, cfg *config.Tree) (string, error)

	// MigrateDatabase points the configured URL at name, applies every pending migration
	// found in migrationPath and returns the rewritten URL.
	MigrateDatabase(ctx context.Context, name, migrationPath string, cfg *config.Tree) (string, error)
}

// Declaration describes a logical database whose name and migration directory are fixed
// by its type. The zero value of an implementing type must answer both methods.
type Declaration interface {
	DatabaseName() string
	MigrationPath() string
}

// PoolConfig is the typed view of a scoped database configuration.
type PoolConfig struct {
	// URL of an existing database reachable with administrative rights.
	URL string `mapstructure:"url" validate:"required"`
	// MinConnections is the number of idle connections a pool keeps open.
	MinConnections *int `mapstructure:"min_connections" validate:"omitempty,min=0,max=10000"`
	// MaxConnections bounds the pool size.
	MaxConnections int `mapstructure:"max_connections" validate:"min=1,max=10000"`
	// ConnectTimeout in seconds.
	ConnectTimeout int `mapstructure:"connect_timeout" validate:"min=1"`
	// IdleTimeout in seconds after which idle connections are closed.
	IdleTimeout *int `mapstructure:"idle_timeout" validate:"omitempty,min=1"`
}

var validate = validator.New()

// ParsePoolConfig decodes and validates the pool settings of a scoped configuration.
// Failures, a missing url included, are reported as pool errors, the way a driver
// reports an unusable configuration. Configuration errors are reserved for problems
// the lifecycle detects itself, such as a url without a database segment.
func ParsePoolConfig(cfg *config.Tree) (PoolConfig, error) {
	var pc PoolConfig
	if err := cfg.Unmarshal(&pc); err != nil {
		return PoolConfig{}, PoolError(fmt.Errorf("parse pool config: %w", err))
	}

	if err := validate.Struct(&pc); err != nil {
		return PoolConfig{}, PoolError(fmt.Errorf("validate pool config: %w", err))
	}

	return pc, nil
}

// ConnectTimeoutDuration returns the connect timeout as a duration.
func (c PoolConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// IdleTimeoutDuration returns the idle timeout as a duration, or 0 when unset.
func (c PoolConfig) IdleTimeoutDuration() time.Duration {
	if c.IdleTimeout == nil {
		return 0
	}
	return time.Duration(*c.IdleTimeout) * time.Second
}

// MinConnectionsOrZero returns MinConnections, or 0 when unset.
func (c PoolConfig) MinConnectionsOrZero() int {
	if c.MinConnections == nil {
		return 0
	}
	return *c.MinConnections
}
