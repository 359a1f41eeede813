// File: atbashEE/config/builder.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// ValidatorFunc defines the signature for a function that can validate a Config instance.
// It receives the fully built *Config object and should return an error if validation fails.
type ValidatorFunc func(c *Config) error

// Discovered groups the components found by an automatic discovery mechanism, such as
// a plugin registry. They are ordered after explicitly added components and before defaults.
type Discovered struct {
	Sources         []ValueSource
	SourceFactories []SourceFactory
	Interceptors    []InterceptorRegistration
}

// Builder provides a fluent interface for building configurations.
// Components are consulted in the order explicit, discovered, default; that order breaks
// ties between sources of equal ordinal and between interceptors of equal priority.
type Builder struct {
	sources      []ValueSource
	factories    []SourceFactory
	interceptors []InterceptorRegistration
	discovered   Discovered

	defaultSources      bool
	defaultInterceptors bool

	defaults      any
	prefix        string
	envPrefix     string
	args          []string
	files         []string
	profiles      []string
	profilePrefix string
	logger        *slog.Logger
	err           error
	validators    []ValidatorFunc
}

// NewBuilder creates a new configuration builder. The profile and expression
// interceptors are enabled; default sources are not.
func NewBuilder() *Builder {
	return &Builder{
		args:                os.Args[1:],
		defaultInterceptors: true,
		profilePrefix:       DefaultProfilePrefix,
		validators:          make([]ValidatorFunc, 0),
	}
}

// WithSources adds explicit value sources.
func (b *Builder) WithSources(sources ...ValueSource) *Builder {
	for _, src := range sources {
		if src == nil {
			b.setErr(fmt.Errorf("nil value source"))
			continue
		}
		b.sources = append(b.sources, src)
	}
	return b
}

// WithSourceFactories adds deferred source factories, materialized once the static sources are known.
func (b *Builder) WithSourceFactories(factories ...SourceFactory) *Builder {
	for _, f := range factories {
		if f == nil {
			b.setErr(fmt.Errorf("nil source factory"))
			continue
		}
		b.factories = append(b.factories, f)
	}
	return b
}

// WithInterceptors adds interceptor registrations. Registrations with PriorityUnset
// get DefaultInterceptorPriority.
func (b *Builder) WithInterceptors(regs ...InterceptorRegistration) *Builder {
	b.interceptors = append(b.interceptors, regs...)
	return b
}

// WithDiscovered adds components found by discovery.
func (b *Builder) WithDiscovered(d Discovered) *Builder {
	b.discovered.Sources = append(b.discovered.Sources, d.Sources...)
	b.discovered.SourceFactories = append(b.discovered.SourceFactories, d.SourceFactories...)
	b.discovered.Interceptors = append(b.discovered.Interceptors, d.Interceptors...)
	return b
}

// AddDefaultSources adds the command line (ordinal 400), the environment (ordinal 300)
// and the LocationsProperty factory.
func (b *Builder) AddDefaultSources() *Builder {
	b.defaultSources = true
	return b
}

// AddDefaultInterceptors enables the profile and expression interceptors. They are on by default.
func (b *Builder) AddDefaultInterceptors() *Builder {
	b.defaultInterceptors = true
	return b
}

// WithoutDefaultInterceptors disables the profile and expression interceptors.
func (b *Builder) WithoutDefaultInterceptors() *Builder {
	b.defaultInterceptors = false
	return b
}

// WithDefaults sets the struct containing default values
func (b *Builder) WithDefaults(defaults any) *Builder {
	b.defaults = defaults
	return b
}

// WithPrefix sets the prefix for struct registration
func (b *Builder) WithPrefix(prefix string) *Builder {
	b.prefix = prefix
	return b
}

// WithEnvPrefix sets the environment variable prefix
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.envPrefix = prefix
	return b
}

// WithFile adds a configuration file. A missing file is reported as ErrConfigNotFound
// by Build, which still returns a usable Config.
func (b *Builder) WithFile(path string) *Builder {
	if path != "" {
		b.files = append(b.files, path)
	}
	return b
}

// WithArgs sets the command-line arguments
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithProfiles fixes the active profiles, ignoring ProfileProperty. The first has the highest priority.
func (b *Builder) WithProfiles(profiles ...string) *Builder {
	b.profiles = append(b.profiles, profiles...)
	return b
}

// WithProfilePrefix changes the marker of profile-qualified names (default "%").
func (b *Builder) WithProfilePrefix(prefix string) *Builder {
	if prefix == "" {
		b.setErr(fmt.Errorf("profile prefix cannot be empty"))
		return b
	}
	b.profilePrefix = prefix
	return b
}

// WithLogger sets the logger used during the build and by the resulting Config.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build creates the Config instance with all specified options.
// When a file given to WithFile is missing, the Config is still returned together with
// an error wrapping ErrConfigNotFound.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	regs := slices.Concat(b.interceptors, b.discovered.Interceptors, b.defaultRegistrations())
	for _, reg := range regs {
		if reg.Factory == nil {
			return nil, fmt.Errorf("interceptor registration %q has no factory", reg.Name)
		}
	}

	defaultSources, loadErr := b.buildDefaultSources()
	if loadErr != nil && !errors.Is(loadErr, ErrConfigNotFound) {
		// Return on fatal load errors. ErrConfigNotFound is not fatal.
		return nil, loadErr
	}

	factories := slices.Concat(b.factories, b.discovered.SourceFactories)
	if b.defaultSources {
		factories = append(factories, &LocationSourceFactory{Property: LocationsProperty, Logger: logger})
	}

	p, err := buildPipeline(pipelineInput{
		sources:      slices.Concat(b.sources, b.discovered.Sources, defaultSources),
		factories:    factories,
		interceptors: regs,
		logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	cfg := newConfig(p, logger)
	cfg.marker = b.profilePrefix

	// Run validators
	for _, validator := range b.validators {
		if err := validator(cfg); err != nil {
			return nil, errors.Join(fmt.Errorf("configuration validation failed: %w", err), cfg.Close())
		}
	}

	// ErrConfigNotFound or nil
	return cfg, loadErr
}

// defaultRegistrations returns the profile and expression interceptors when enabled.
func (b *Builder) defaultRegistrations() []InterceptorRegistration {
	if !b.defaultInterceptors {
		return nil
	}
	return []InterceptorRegistration{
		{Name: "profile", Priority: ProfileInterceptorPriority, Factory: profileFactory(b.profilePrefix, b.profiles)},
		{
			Name:     "expression",
			Priority: ExpressionInterceptorPriority,
			Factory: InterceptorFactoryFunc(func(Chain) (Interceptor, error) {
				return NewExpressionInterceptor(), nil
			}),
		},
	}
}

// buildDefaultSources creates the sources implied by the builder options, in the
// order command line, environment, files, struct defaults.
func (b *Builder) buildDefaultSources() ([]ValueSource, error) {
	var sources []ValueSource

	if b.defaultSources {
		cli, err := newCLISource(b.args, b.profilePrefix)
		if err != nil {
			return nil, err
		}
		sources = append(sources, cli, NewEnvSource(b.envPrefix))
	}

	var missing []error
	for _, path := range b.files {
		src, err := NewFileSource(path, "", DefaultOrdinal)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				missing = append(missing, err)
				continue
			}
			return nil, err
		}
		sources = append(sources, src)
	}

	if b.defaults != nil {
		src, err := NewStructSource(b.prefix, b.defaults)
		if err != nil {
			return nil, fmt.Errorf("failed to register defaults: %w", err)
		}
		sources = append(sources, src)
	}

	return sources, errors.Join(missing...)
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Config {
	cfg, err := b.Build()
	if err != nil {
		// Ignore ErrConfigNotFound as it is not a fatal error for MustBuild.
		// The application can proceed with defaults/env vars.
		if !errors.Is(err, ErrConfigNotFound) {
			panic(fmt.Sprintf("config build failed: %v", err))
		}
	}
	return cfg
}

// BuildAndScan builds and unmarshals the final configuration into the provided target struct pointer
func (b *Builder) BuildAndScan(target any) (*Config, error) {
	cfg, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}

	// The prefix used during registration is the base path for scanning.
	if err := cfg.Scan(b.prefix, target); err != nil {
		return nil, fmt.Errorf("failed to scan final config into target: %w", err)
	}

	// ErrConfigNotFound or nil
	return cfg, err
}
