// FILE: atbashEE/config/source.go
package config

import (
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Ordinals of the built-in sources. Higher ordinals win on conflict.
const (
	OrdinalStructDefaults = 0
	DefaultOrdinal        = 100
	OrdinalEnv            = 300
	OrdinalCLI            = 400
)

// OrdinalProperty is the reserved key a map-backed source may use to declare its own ordinal.
const OrdinalProperty = "config_ordinal"

// ValueSource is a pluggable origin of raw configuration values.
// Implementations must be safe for concurrent reads once handed to a Builder.
// A source that also implements io.Closer is closed when its Config is released.
type ValueSource interface {
	// Name identifies the source in diagnostics and in ConfigValue metadata.
	Name() string

	// Ordinal is the priority of the source; higher is more authoritative.
	Ordinal() int

	// Lookup returns the raw value for name. found is false when the source does not define it.
	Lookup(name string) (value string, found bool, err error)

	// PropertyNames lists the names the source knows about.
	PropertyNames() ([]string, error)
}

// ConfigValue is a resolved value together with the source that supplied it.
type ConfigValue struct {
	Name          string
	Value         string // value after interception (profile and expression handling)
	RawValue      string // value as stored by the source
	SourceName    string
	SourceOrdinal int
}

// OrdinalFromMap returns the ordinal declared under OrdinalProperty, or defaultOrdinal
// when the key is absent. A non-numeric ordinal is logged and replaced by defaultOrdinal.
func OrdinalFromMap(values map[string]string, defaultOrdinal int) int {
	raw, ok := values[OrdinalProperty]
	if !ok {
		return defaultOrdinal
	}
	ordinal, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		slog.Warn("ignoring malformed source ordinal",
			"property", OrdinalProperty,
			"value", raw,
			"default", defaultOrdinal)
		return defaultOrdinal
	}
	return ordinal
}

// MapSource is an immutable, in-memory ValueSource. It serves programmatic overrides
// and backs the command-line and struct-default sources.
type MapSource struct {
	name    string
	ordinal int
	values  map[string]string
}

// NewMapSource copies values into a new source. The ordinal is read from
// OrdinalProperty when present, defaultOrdinal otherwise.
func NewMapSource(name string, values map[string]string, defaultOrdinal int) *MapSource {
	return &MapSource{
		name:    name,
		ordinal: OrdinalFromMap(values, defaultOrdinal),
		values:  maps.Clone(values),
	}
}

// NewMapSourceWithOrdinal creates a source with a fixed ordinal, ignoring OrdinalProperty.
func NewMapSourceWithOrdinal(name string, values map[string]string, ordinal int) *MapSource {
	return &MapSource{
		name:    name,
		ordinal: ordinal,
		values:  maps.Clone(values),
	}
}

func (m *MapSource) Name() string { return m.name }

func (m *MapSource) Ordinal() int { return m.ordinal }

func (m *MapSource) Lookup(name string) (string, bool, error) {
	v, ok := m.values[name]
	return v, ok, nil
}

func (m *MapSource) PropertyNames() ([]string, error) {
	return slices.Sorted(maps.Keys(m.values)), nil
}

// Len returns the number of properties held by the source.
func (m *MapSource) Len() int { return len(m.values) }

// prioritizedSource pins a source to the ordinal and discovery sequence used for ordering.
type prioritizedSource struct {
	source   ValueSource
	ordinal  int
	sequence int
}

// sequence hands out discovery sequence numbers for one pipeline build.
type sequence struct {
	next int
}

func (s *sequence) reset() { s.next = 0 }

func (s *sequence) wrap(src ValueSource) prioritizedSource {
	p := prioritizedSource{source: src, ordinal: src.Ordinal(), sequence: s.next}
	s.next++
	return p
}

// sortPrioritized orders by descending ordinal, then by ascending sequence.
func sortPrioritized(sources []prioritizedSource) {
	slices.SortFunc(sources, func(a, b prioritizedSource) int {
		if a.ordinal != b.ordinal {
			if a.ordinal > b.ordinal {
				return -1
			}
			return 1
		}
		return a.sequence - b.sequence
	})
}
