// FILE: atbashEE/config/errors.go
package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound is returned when a configuration file or location does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrCLIParse is returned when command-line arguments cannot be parsed.
	ErrCLIParse = errors.New("failed to parse command-line arguments")

	// ErrValueSize is returned when a raw value exceeds MaxValueSize.
	ErrValueSize = fmt.Errorf("value size exceeds maximum %d bytes", MaxValueSize)

	// ErrNotFound is returned by the typed accessors when no source defines the property.
	ErrNotFound = errors.New("property not found in any source")

	// ErrCyclicReference is returned when an expression refers back to a property being expanded.
	ErrCyclicReference = errors.New("cyclic reference in expression")

	// ErrUnresolvedExpression is returned when an expression references an absent property without a default.
	ErrUnresolvedExpression = errors.New("unresolved expression")

	// ErrAlreadyRegistered is returned when a scope already holds a configuration.
	ErrAlreadyRegistered = errors.New("configuration already registered for scope")

	// ErrNoSources is returned when watching is requested but no file-backed source exists.
	ErrNoSources = errors.New("no file sources to watch")
)

// MaxValueSize bounds a single raw value read from the environment or the command line.
const MaxValueSize = 1 << 20

// ExpressionError reports a failure while expanding the value of Name.
type ExpressionError struct {
	Name      string // property whose value was being expanded
	Reference string // reference that failed, empty for syntax errors
	Err       error
}

func (e *ExpressionError) Error() string {
	if e.Reference == "" {
		return fmt.Sprintf("expanding %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("expanding %q: reference ${%s}: %v", e.Name, e.Reference, e.Err)
}

func (e *ExpressionError) Unwrap() error {
	return e.Err
}
