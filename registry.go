// FILE: atbashEE/config/registry.go
package config

import (
	"fmt"
	"log/slog"
	"sync"
)

// BuildFunc builds the configuration for a scope, typically a module or class loader name.
type BuildFunc func(scope string) (*Config, error)

// Registry caches one Config per scope. Configurations are built on first use and
// stay published until released.
type Registry struct {
	mu      sync.Mutex
	build   BuildFunc
	configs map[string]*Config
	logger  *slog.Logger
}

// NewRegistry creates a registry that builds missing configurations with build.
// A nil logger means slog.Default().
func NewRegistry(build BuildFunc, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		build:   build,
		configs: make(map[string]*Config),
		logger:  logger,
	}
}

// Config returns the configuration of scope, building it on first use.
// A failed build is not cached.
func (r *Registry) Config(scope string) (*Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg, ok := r.configs[scope]; ok {
		return cfg, nil
	}
	if r.build == nil {
		return nil, fmt.Errorf("no configuration registered for scope %q", scope)
	}
	cfg, err := r.build(scope)
	if err != nil {
		return nil, fmt.Errorf("build configuration for scope %q: %w", scope, err)
	}
	r.configs[scope] = cfg
	r.logger.Debug("configuration published", "scope", scope)
	return cfg, nil
}

// Register publishes cfg for scope. It fails with ErrAlreadyRegistered when the scope
// already holds a configuration, leaving that configuration in place.
func (r *Registry) Register(scope string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cannot register nil configuration for scope %q", scope)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[scope]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, scope)
	}
	r.configs[scope] = cfg
	return nil
}

// Release unpublishes cfg from every scope holding it and closes it.
// Close failures are logged, never returned.
func (r *Registry) Release(cfg *Config) {
	if cfg == nil {
		return
	}
	r.mu.Lock()
	for scope, published := range r.configs {
		if published == cfg {
			delete(r.configs, scope)
		}
	}
	r.mu.Unlock()

	if err := cfg.Close(); err != nil {
		r.logger.Warn("failed to close released configuration", "error", err)
	}
}

// Scopes returns the number of scopes currently holding a configuration.
func (r *Registry) Scopes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs)
}
