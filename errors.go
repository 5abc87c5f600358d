package teststand

import (
	"errors"
	"fmt"
)

// Kind classifies a lifecycle failure.
type Kind int

const (
	// KindPool is a connection or pool failure reported by a database driver.
	KindPool Kind = iota + 1
	// KindMigrate is a failure reported by a migration engine.
	KindMigrate
	// KindConfig is a configuration problem detected by teststand itself.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindPool:
		return "database pool error"
	case KindMigrate:
		return "migration error"
	case KindConfig:
		return "configuration error"
	default:
		return fmt.Sprintf("lifecycle error (kind %d)", int(k))
	}
}

var (
	// ErrPool matches any *Error of kind KindPool with errors.Is
	ErrPool = errors.New("database pool error")
	// ErrMigrate matches any *Error of kind KindMigrate with errors.Is
	ErrMigrate = errors.New("migration error")
	// ErrConfig matches any *Error of kind KindConfig with errors.Is
	ErrConfig = errors.New("configuration error")
)

// Error is the failure type of every provisioning step.
type Error struct {
	Kind Kind
	Err  error
}

// PoolError wraps a driver connection or statement failure.
func PoolError(err error) *Error {
	return &Error{Kind: KindPool, Err: err}
}

// MigrateError wraps a migration engine failure.
func MigrateError(err error) *Error {
	return &Error{Kind: KindMigrate, Err: err}
}

// ConfigError builds a configuration error from a format string.
// Use %w to keep an underlying cause inspectable.
func ConfigError(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrPool:
		return e.Kind == KindPool
	case ErrMigrate:
		return e.Kind == KindMigrate
	case ErrConfig:
		return e.Kind == KindConfig
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return 0
}

// classify keeps errors already in the taxonomy and wraps the rest as fallback.
func classify(err error, fallback Kind) error {
	var lerr *Error
	if errors.As(err, &lerr) {
		return err
	}
	return &Error{Kind: fallback, Err: err}
}
