// File: atbashEE/config/convenience.go
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// Quick creates a fully configured Config instance with a single call
// This is the recommended way to initialize configuration for most applications
func Quick(structDefaults any, envPrefix, configFile string) (*Config, error) {
	return NewBuilder().
		AddDefaultSources().
		WithDefaults(structDefaults).
		WithEnvPrefix(envPrefix).
		WithFile(configFile).
		Build()
}

// MustQuick is like Quick but panics on error
func MustQuick(structDefaults any, envPrefix, configFile string) *Config {
	cfg, err := Quick(structDefaults, envPrefix, configFile)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return cfg
}

// Debug returns a formatted string showing the sources, the active profiles and
// every known property with the source that supplied it.
func (c *Config) Debug() string {
	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")
	b.WriteString(fmt.Sprintf("Profiles: %v\n", c.profiles))
	b.WriteString("Sources (highest priority first):\n")
	for _, src := range c.sources {
		b.WriteString(fmt.Sprintf("  %s (ordinal %d)\n", src.Name(), src.Ordinal()))
	}

	names, err := c.PropertyNames()
	if err != nil {
		b.WriteString(fmt.Sprintf("Property names unavailable: %v\n", err))
		return b.String()
	}
	b.WriteString("Current values:\n")
	for _, name := range names {
		v, err := c.Value(name)
		switch {
		case err != nil:
			b.WriteString(fmt.Sprintf("  %s: error: %v\n", name, err))
		case v == nil:
			b.WriteString(fmt.Sprintf("  %s: <absent>\n", name))
		default:
			b.WriteString(fmt.Sprintf("  %s = %q\n", name, v.Value))
			if v.RawValue != v.Value {
				b.WriteString(fmt.Sprintf("    Raw: %q\n", v.RawValue))
			}
			b.WriteString(fmt.Sprintf("    Source: %s (ordinal %d)\n", v.SourceName, v.SourceOrdinal))
		}
	}

	return b.String()
}

// Dump writes the resolved configuration to w in TOML format.
// Profile-qualified names are left out since their effect is already in the plain names.
// Properties that fail to resolve are logged and skipped.
func (c *Config) Dump(w io.Writer) error {
	names, err := c.PropertyNames()
	if err != nil {
		return err
	}

	nestedData := make(map[string]any)
	for _, name := range names {
		if strings.HasPrefix(name, c.profilePrefix()) || !isDumpable(name) {
			continue
		}
		v, err := c.Value(name)
		if err != nil {
			c.logger.Warn("skipping unresolvable property in dump", "property", name, "error", err)
			continue
		}
		if v != nil {
			setNestedValue(nestedData, name, v.Value)
		}
	}

	encoder := toml.NewEncoder(w)
	return encoder.Encode(nestedData)
}

// isDumpable reports whether every segment of name is a bare TOML key.
func isDumpable(name string) bool {
	for _, segment := range strings.Split(name, ".") {
		if !isValidKeySegment(segment) {
			return false
		}
	}
	return true
}
