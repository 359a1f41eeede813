// File: atbashEE/config/io.go
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// EnvSource reads the process environment on every lookup, so later changes are visible.
//
// A property name maps to a variable by trying, in order: the name as is, the name with
// every non-alphanumeric character replaced by an underscore, and that form upper-cased.
// With a prefix, "server.port" and prefix "MYAPP_" also tries "MYAPP_SERVER_PORT".
type EnvSource struct {
	prefix  string
	ordinal int
}

// NewEnvSource creates an environment source with OrdinalEnv.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix, ordinal: OrdinalEnv}
}

// NewEnvSourceWithOrdinal creates an environment source with a custom ordinal.
func NewEnvSourceWithOrdinal(prefix string, ordinal int) *EnvSource {
	return &EnvSource{prefix: prefix, ordinal: ordinal}
}

func (e *EnvSource) Name() string {
	if e.prefix == "" {
		return "EnvSource"
	}
	return fmt.Sprintf("EnvSource[%s]", e.prefix)
}

func (e *EnvSource) Ordinal() int { return e.ordinal }

func (e *EnvSource) Lookup(name string) (string, bool, error) {
	for _, candidate := range envCandidates(e.prefix, name) {
		if value, exists := os.LookupEnv(candidate); exists {
			if len(value) > MaxValueSize {
				return "", false, fmt.Errorf("%w: %s", ErrValueSize, candidate)
			}
			return value, true, nil
		}
	}
	return "", false, nil
}

// PropertyNames lists the variables visible to this source, without the prefix.
func (e *EnvSource) PropertyNames() ([]string, error) {
	var names []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if key == "" {
			continue
		}
		if e.prefix != "" {
			if !strings.HasPrefix(key, e.prefix) {
				continue
			}
			key = strings.TrimPrefix(key, e.prefix)
		}
		names = append(names, key)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// envCandidates returns the variable names tried for a property, without duplicates.
func envCandidates(prefix, name string) []string {
	sanitized := sanitizeEnvName(name)
	upper := strings.ToUpper(sanitized)
	candidates := []string{prefix + name, prefix + sanitized, prefix + upper}
	return slices.Compact(candidates)
}

// sanitizeEnvName replaces every character outside [A-Za-z0-9_] with an underscore.
func sanitizeEnvName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, name)
}

// NewCLISource parses command-line arguments into a source with OrdinalCLI.
// Accepted forms are "--key=value", "--key value" and a bare "--flag" meaning "true".
// Non-flag arguments are ignored.
func NewCLISource(args []string) (*MapSource, error) {
	return newCLISource(args, DefaultProfilePrefix)
}

func newCLISource(args []string, profilePrefix string) (*MapSource, error) {
	values, err := parseArgs(args, profilePrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCLIParse, err)
	}
	return NewMapSourceWithOrdinal("CLISource", values, OrdinalCLI), nil
}

// parseArgs processes command-line arguments into flat name/value pairs.
// Keys may carry the profile prefix, as in --%dev.server.port=9090.
func parseArgs(args []string, profilePrefix string) (map[string]string, error) {
	result := make(map[string]string)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			// Skip non-flag arguments
			i++
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			// Skip "--" argument if used as a separator
			i++
			continue
		}

		var keyPath string
		var valueStr string

		if key, value, ok := strings.Cut(argContent, "="); ok {
			keyPath = key
			valueStr = value
			i++
		} else {
			keyPath = argContent
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				valueStr = "true"
				i++
			} else {
				valueStr = args[i+1]
				i += 2
			}
		}

		if err := validateKeyPath(keyPath, profilePrefix); err != nil {
			return nil, err
		}
		if len(valueStr) > MaxValueSize {
			return nil, fmt.Errorf("%w: --%s", ErrValueSize, keyPath)
		}

		result[keyPath] = valueStr
	}

	return result, nil
}
