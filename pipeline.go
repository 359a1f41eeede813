// FILE: atbashEE/config/pipeline.go
package config

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
)

// SourceFactory builds sources whose own settings are configuration values,
// such as additional file locations. It is evaluated against a provisional
// chain made of the statically known sources.
type SourceFactory interface {
	Sources(ctx SourceContext) ([]ValueSource, error)
}

// SourceFactoryFunc adapts a function to SourceFactory.
type SourceFactoryFunc func(ctx SourceContext) ([]ValueSource, error)

func (f SourceFactoryFunc) Sources(ctx SourceContext) ([]ValueSource, error) {
	return f(ctx)
}

// SourceContext is the read-through view a SourceFactory gets during the build.
type SourceContext interface {
	// Value resolves name through the provisional chain. An absent property yields
	// a ConfigValue carrying only the name and an empty value.
	Value(name string) (ConfigValue, error)

	// Profiles returns the active profiles in priority order.
	Profiles() []string
}

// ordered is implemented by source factories that declare an ordinal.
// Factories are materialized in ascending ordinal order.
type ordered interface {
	Ordinal() int
}

func factoryOrdinal(f SourceFactory) int {
	if o, ok := f.(ordered); ok {
		return o.Ordinal()
	}
	return DefaultOrdinal
}

type sourceContext struct {
	chain    Chain
	profiles []string
}

func (s sourceContext) Value(name string) (ConfigValue, error) {
	v, err := s.chain.Value(name)
	if err != nil {
		return ConfigValue{}, err
	}
	if v == nil {
		return ConfigValue{Name: name}, nil
	}
	return *v, nil
}

func (s sourceContext) Profiles() []string {
	return slices.Clone(s.profiles)
}

// pipelineInput is everything one build consumes. Static sources are listed in
// discovery order: explicit, discovered, default.
type pipelineInput struct {
	sources      []ValueSource
	factories    []SourceFactory
	interceptors []InterceptorRegistration
	logger       *slog.Logger
}

// pipeline is the immutable result of a build.
type pipeline struct {
	sources      []ValueSource
	chain        Chain
	interceptors []Interceptor
	profiles     []string
}

// buildPipeline runs the two-phase bootstrap. A provisional chain over the static
// sources is used to find the active profiles and to materialize the deferred
// sources; it is then discarded and every interceptor is instantiated again over
// the complete source set, with the name snapshot as the outermost stage.
// The profile set found in the first phase is the one the final chain uses.
func buildPipeline(in pipelineInput) (*pipeline, error) {
	logger := in.logger
	if logger == nil {
		logger = slog.Default()
	}
	regs := sortRegistrations(in.interceptors)
	seq := &sequence{}

	static := make([]prioritizedSource, 0, len(in.sources))
	for _, src := range in.sources {
		static = append(static, seq.wrap(src))
	}
	sortPrioritized(static)

	provisional, provisionalInterceptors, err := buildChain(static, regs)
	if err != nil {
		return nil, fmt.Errorf("provisional chain: %w", err)
	}
	profiles := activeProfiles(provisionalInterceptors)
	logger.Debug("provisional configuration chain built",
		"sources", len(static),
		"interceptors", len(provisionalInterceptors),
		"profiles", profiles)

	factories := slices.Clone(in.factories)
	slices.SortStableFunc(factories, func(a, b SourceFactory) int {
		return cmp.Compare(factoryOrdinal(a), factoryOrdinal(b))
	})

	seq.reset()
	ctx := sourceContext{chain: provisional, profiles: profiles}
	var deferred []ValueSource
	for _, f := range factories {
		created, err := f.Sources(ctx)
		deferred = append(deferred, created...)
		if err != nil {
			return nil, errors.Join(
				fmt.Errorf("materialize deferred sources: %w", err),
				closeSources(deferred))
		}
	}
	final := make([]prioritizedSource, 0, len(deferred)+len(in.sources))
	for _, src := range deferred {
		final = append(final, seq.wrap(src))
	}
	for _, src := range in.sources {
		final = append(final, seq.wrap(src))
	}
	sortPrioritized(final)

	chain, interceptors, err := buildChain(final, seedProfiles(regs, profiles))
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("configuration chain: %w", err),
			closeSources(deferred))
	}
	names, err := chain.Names()
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("snapshot property names: %w", err),
			closeSources(deferred),
			closeInterceptors(interceptors))
	}
	chain = chain.push(newPropertyNamesInterceptor(names))

	sources := make([]ValueSource, len(final))
	for i, ps := range final {
		sources[i] = ps.source
	}
	logger.Debug("configuration chain built",
		"sources", len(sources),
		"deferred_factories", len(factories),
		"interceptors", len(interceptors),
		"properties", len(names))

	return &pipeline{
		sources:      sources,
		chain:        chain,
		interceptors: interceptors,
		profiles:     slices.Clone(profiles),
	}, nil
}

// buildChain layers freshly instantiated interceptors, lowest priority first,
// over a retrieval stage for sources.
func buildChain(sources []prioritizedSource, regs []InterceptorRegistration) (Chain, []Interceptor, error) {
	chain := Chain{}.push(newRetrievalInterceptor(sources))
	instances := make([]Interceptor, 0, len(regs))
	for _, reg := range regs {
		interceptor, err := reg.Factory.NewInterceptor(chain)
		if err != nil {
			return Chain{}, nil, fmt.Errorf("interceptor %s: %w", reg.Name, err)
		}
		instances = append(instances, interceptor)
		chain = chain.push(interceptor)
	}
	return chain, instances, nil
}

func activeProfiles(interceptors []Interceptor) []string {
	for _, i := range interceptors {
		if p, ok := i.(ProfileAware); ok {
			return p.Profiles()
		}
	}
	return nil
}

// closeSources releases the sources that implement io.Closer.
func closeSources(sources []ValueSource) error {
	var errs []error
	for _, src := range sources {
		if closer, ok := src.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close source %s: %w", src.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func closeInterceptors(interceptors []Interceptor) error {
	var errs []error
	for _, i := range interceptors {
		if closer, ok := i.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close interceptor %T: %w", i, err))
			}
		}
	}
	return errors.Join(errs...)
}
