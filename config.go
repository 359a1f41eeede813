// FILE: atbashEE/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Config is a built, immutable view over an ordered set of sources and an interceptor chain.
// It is safe for concurrent use. The set of enumerable property names is fixed at build time.
type Config struct {
	sources      []ValueSource
	chain        Chain
	interceptors []Interceptor
	profiles     []string
	marker       string // profile prefix, e.g. "%"
	logger       *slog.Logger

	mutex   sync.RWMutex // Protects watcher and closed
	watcher *watcher
	closed  bool
}

func newConfig(p *pipeline, logger *slog.Logger) *Config {
	if logger == nil {
		logger = slog.Default()
	}
	return &Config{
		sources:      p.sources,
		chain:        p.chain,
		interceptors: p.interceptors,
		profiles:     p.profiles,
		logger:       logger,
	}
}

func (c *Config) profilePrefix() string {
	if c.marker == "" {
		return DefaultProfilePrefix
	}
	return c.marker
}

// Value resolves name through the whole chain. An absent property yields (nil, nil).
func (c *Config) Value(name string) (*ConfigValue, error) {
	return c.chain.Value(name)
}

// PropertyNames returns the property names known when the configuration was built, sorted.
func (c *Config) PropertyNames() ([]string, error) {
	return c.chain.Names()
}

// Sources returns the sources in resolution order, most authoritative first.
func (c *Config) Sources() []ValueSource {
	return slices.Clone(c.sources)
}

// Profiles returns the active profiles in priority order.
func (c *Config) Profiles() []string {
	return slices.Clone(c.profiles)
}

// Interceptors returns the stages of the chain from outermost to innermost,
// including the name snapshot and the retrieval stage.
func (c *Config) Interceptors() []Interceptor {
	return c.chain.interceptors()
}

// Has reports whether any source defines name.
func (c *Config) Has(name string) bool {
	v, err := c.Value(name)
	return err == nil && v != nil
}

// lookup resolves a required property, mapping absence to ErrNotFound.
func (c *Config) lookup(name string) (*ConfigValue, error) {
	v, err := c.Value(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}

// Close stops watching and closes every source and interceptor that implements io.Closer.
// All close errors are returned joined. Closing twice is a no-op.
func (c *Config) Close() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return nil
	}
	c.closed = true
	w := c.watcher
	c.watcher = nil
	c.mutex.Unlock()

	if w != nil {
		w.stop()
	}

	return errors.Join(closeSources(c.sources), closeInterceptors(c.interceptors))
}

// fileSources returns the file-backed sources, in resolution order.
func (c *Config) fileSources() []*FileSource {
	var files []*FileSource
	for _, src := range c.sources {
		if f, ok := src.(*FileSource); ok {
			files = append(files, f)
		}
	}
	return files
}
