package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cast"

	"github.com/sagarc03/teststand/config"
)

// ErrAlreadyIgnited is returned when Ignite is called on a host that already ignited.
var ErrAlreadyIgnited = errors.New("host already ignited")

// Hook is a callback run during ignition. A hook may return a replacement configuration,
// which later hooks and the running host observe. Returning a nil tree keeps the
// current configuration.
type Hook interface {
	Name() string
	OnIgnite(ctx context.Context, h *Host) (*config.Tree, error)
}

// Host owns the configuration of an application under test and the hooks that
// prepare it before the application starts.
type Host struct {
	cfg            *config.Tree
	hooks          []Hook
	ignited        bool
	defaultWorkers int
	logger         *slog.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithDefaultWorkers sets the worker count used when the configuration has no "workers" key.
func WithDefaultWorkers(n int) Option {
	return func(h *Host) {
		h.defaultWorkers = n
	}
}

// WithLogger sets the logger used to report hook progress.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// DefaultWorkers returns the worker count hosts fall back to: the number of CPUs.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// New returns a host configured by tree. A nil tree is treated as empty.
func New(tree *config.Tree, opts ...Option) *Host {
	if tree == nil {
		tree = config.New(nil)
	}

	h := &Host{
		cfg:            tree,
		defaultWorkers: DefaultWorkers(),
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Attach registers hooks to run, in order, during ignition.
func (h *Host) Attach(hooks ...Hook) *Host {
	h.hooks = append(h.hooks, hooks...)
	return h
}

// Config returns the current configuration.
func (h *Host) Config() *config.Tree {
	return h.cfg
}

// DefaultWorkers returns the worker count used when the configuration does not set one.
func (h *Host) DefaultWorkers() int {
	return h.defaultWorkers
}

// Workers returns the configured worker count, or the default when it is absent or unreadable.
func (h *Host) Workers() int {
	if !h.cfg.IsSet("workers") {
		return h.defaultWorkers
	}
	n, err := cast.ToIntE(h.cfg.Get("workers"))
	if err != nil || n < 1 {
		return h.defaultWorkers
	}
	return n
}

// Ignited reports whether Ignite completed successfully.
func (h *Host) Ignited() bool {
	return h.ignited
}

// Ignite runs every attached hook in order. A successful hook's configuration replaces
// the host's before the next hook runs. A failing hook does not stop the remaining
// ones; when any hook fails, the configuration is restored, the host stays unignited
// and an *IgniteError listing every failure is returned.
func (h *Host) Ignite(ctx context.Context) (*Host, error) {
	if h.ignited {
		return nil, ErrAlreadyIgnited
	}

	original := h.cfg
	var failures []HookFailure

	for _, hook := range h.hooks {
		log := h.logger.With("hook", hook.Name())
		log.Debug("running ignition hook")

		next, err := hook.OnIgnite(ctx, h)
		if err != nil {
			log.Error("ignition hook failed", "err", err)
			failures = append(failures, HookFailure{Hook: hook.Name(), Err: err})
			continue
		}

		if next != nil {
			h.cfg = next
		}
	}

	if len(failures) > 0 {
		h.cfg = original
		return nil, &IgniteError{Failures: failures}
	}

	h.ignited = true
	h.logger.Debug("host ignited", "hooks", len(h.hooks))

	return h, nil
}

// HookFailure records the failure of one ignition hook.
type HookFailure struct {
	Hook string
	Err  error
}

// IgniteError is returned by Ignite when one or more hooks failed.
type IgniteError struct {
	Failures []HookFailure
}

func (e *IgniteError) Error() string {
	msg := fmt.Sprintf("ignition failed: %d hook(s) failed", len(e.Failures))
	for _, f := range e.Failures {
		msg += fmt.Sprintf("; %s: %v", f.Hook, f.Err)
	}
	return msg
}

// Unwrap exposes the cause of every failed hook to errors.Is and errors.As.
func (e *IgniteError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
