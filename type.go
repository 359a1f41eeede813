// File: atbashEE/config/type.go
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// String retrieves the resolved value of name.
func (c *Config) String(name string) (string, error) {
	v, err := c.lookup(name)
	if err != nil {
		return "", err
	}
	return v.Value, nil
}

// StringOr returns the resolved value of name, or fallback when it is absent or fails to resolve.
func (c *Config) StringOr(name, fallback string) string {
	s, err := c.String(name)
	if err != nil {
		return fallback
	}
	return s
}

// Int64 retrieves name as an int64.
// Accepts base prefixes ("0xFF") and truncates floating point values.
func (c *Config) Int64(name string) (int64, error) {
	v, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(v.Value)
	i, err := strconv.ParseInt(s, 0, 64)
	if err == nil {
		return i, nil
	}
	if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit
		if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("cannot convert %q to int64 for %s: value out of range", v.Value, name)
		}
		return int64(f), nil // Truncate
	}
	// Return the original integer parsing error if float also fails
	return 0, fmt.Errorf("cannot convert %q to int64 for %s: %w", v.Value, name, err)
}

// Bool retrieves name as a boolean. Values accepted by strconv.ParseBool plus "yes"/"no" and "on"/"off".
func (c *Config) Bool(name string) (bool, error) {
	v, err := c.lookup(name)
	if err != nil {
		return false, err
	}
	s := strings.ToLower(strings.TrimSpace(v.Value))
	switch s {
	case "yes", "on", "y":
		return true, nil
	case "no", "off", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("cannot convert %q to bool for %s: %w", v.Value, name, err)
	}
	return b, nil
}

// Float64 retrieves name as a float64.
func (c *Config) Float64(name string) (float64, error) {
	v, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to float64 for %s: %w", v.Value, name, err)
	}
	return f, nil
}

// Duration retrieves name as a time.Duration. A bare integer is read as milliseconds.
func (c *Config) Duration(name string) (time.Duration, error) {
	v, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(v.Value)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to duration for %s: %w", v.Value, name, err)
	}
	return d, nil
}

// StringSlice retrieves name as a comma separated list. "\," keeps a literal comma inside an item.
func (c *Config) StringSlice(name string) ([]string, error) {
	v, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return splitList(v.Value), nil
}
