// FILE: atbashEE/config/config_test.go
package config

import (
	"errors"
	"math"
	"net"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, values map[string]string) *Config {
	t.Helper()
	cfg, err := NewBuilder().
		WithArgs(nil).
		WithSources(NewMapSource("test", values, DefaultOrdinal)).
		Build()
	require.NoError(t, err)
	return cfg
}

// TestTypedAccessors tests conversion of resolved values
func TestTypedAccessors(t *testing.T) {
	cfg := newTestConfig(t, map[string]string{
		"name":      "app",
		"int":       "42",
		"hex":       "0x1F",
		"float.int": "3.9",
		"bad.int":   "forty",
		"huge":      "1e19",
		"tiny":      "-1e19",
		"int.max":   "9223372036854775807",
		"bool.yes":  "yes",
		"bool.off":  "OFF",
		"bool.true": "true",
		"bool.bad":  "maybe",
		"pi":        "3.14",
		"ms":        "1500",
		"dur":       "2m30s",
		"bad.dur":   "soon",
		"list":      "a, b\\,c ,d",
		"ref":       "${int}",
		"dangling":  "${nope}",
	})

	t.Run("String", func(t *testing.T) {
		s, err := cfg.String("name")
		require.NoError(t, err)
		assert.Equal(t, "app", s)

		_, err = cfg.String("absent")
		assert.ErrorIs(t, err, ErrNotFound)

		assert.Equal(t, "fallback", cfg.StringOr("absent", "fallback"))
		assert.Equal(t, "fallback", cfg.StringOr("dangling", "fallback"))
		assert.Equal(t, "42", cfg.StringOr("ref", "fallback"))
	})

	t.Run("Int64", func(t *testing.T) {
		tests := map[string]int64{"int": 42, "hex": 31, "float.int": 3, "ref": 42, "int.max": math.MaxInt64}
		for name, expected := range tests {
			v, err := cfg.Int64(name)
			require.NoError(t, err, name)
			assert.Equal(t, expected, v, name)
		}

		_, err := cfg.Int64("bad.int")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot convert")

		for _, name := range []string{"huge", "tiny"} {
			_, err = cfg.Int64(name)
			require.Error(t, err, name)
			assert.Contains(t, err.Error(), "out of range", name)
		}

		_, err = cfg.Int64("absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Bool", func(t *testing.T) {
		for name, expected := range map[string]bool{"bool.yes": true, "bool.off": false, "bool.true": true} {
			v, err := cfg.Bool(name)
			require.NoError(t, err, name)
			assert.Equal(t, expected, v, name)
		}
		_, err := cfg.Bool("bool.bad")
		assert.Error(t, err)
	})

	t.Run("Float64", func(t *testing.T) {
		v, err := cfg.Float64("pi")
		require.NoError(t, err)
		assert.InDelta(t, 3.14, v, 1e-9)

		_, err = cfg.Float64("name")
		assert.Error(t, err)
	})

	t.Run("Duration", func(t *testing.T) {
		d, err := cfg.Duration("ms")
		require.NoError(t, err)
		assert.Equal(t, 1500*time.Millisecond, d)

		d, err = cfg.Duration("dur")
		require.NoError(t, err)
		assert.Equal(t, 150*time.Second, d)

		_, err = cfg.Duration("bad.dur")
		assert.Error(t, err)
	})

	t.Run("StringSlice", func(t *testing.T) {
		items, err := cfg.StringSlice("list")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b,c", "d"}, items)
	})

	t.Run("ExpressionErrorsPropagate", func(t *testing.T) {
		_, err := cfg.String("dangling")
		assert.ErrorIs(t, err, ErrUnresolvedExpression)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.False(t, cfg.Has("dangling"))
	})

	t.Run("Has", func(t *testing.T) {
		assert.True(t, cfg.Has("name"))
		assert.False(t, cfg.Has("absent"))
	})
}

// TestStructSource tests flattening of struct defaults
func TestStructSource(t *testing.T) {
	t.Run("NestedAndLeafTypes", func(t *testing.T) {
		type TLS struct {
			Enabled bool `toml:"enabled"`
		}
		type Server struct {
			Host     string        `toml:"host"`
			Port     int           `toml:"port"`
			Timeout  time.Duration `toml:"timeout"`
			Bind     net.IP        `toml:"bind"`
			Endpoint url.URL       `toml:"endpoint"`
			Tags     []string      `toml:"tags"`
			Empty    []string      `toml:"empty"`
			Labels   map[string]string
			TLS      TLS    `toml:"tls"`
			Proxy    *TLS   `toml:"proxy"`
			Secret   string `toml:"-"`
			Untagged string
			hidden   string
		}

		u, _ := url.Parse("https://example.com/api")
		src, err := NewStructSource("server", &Server{
			Host:     "localhost",
			Port:     8080,
			Timeout:  30 * time.Second,
			Bind:     net.ParseIP("127.0.0.1"),
			Endpoint: *u,
			Tags:     []string{"a", "b"},
			Labels:   map[string]string{"x": "y"},
			TLS:      TLS{Enabled: true},
			Secret:   "s3cr3t",
			Untagged: "u",
			hidden:   "h",
		})
		require.NoError(t, err)

		assert.Equal(t, "StructSource", src.Name())
		assert.Equal(t, OrdinalStructDefaults, src.Ordinal())

		names, err := src.PropertyNames()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			"server.host",
			"server.port",
			"server.timeout",
			"server.bind",
			"server.endpoint",
			"server.tags",
			"server.tls.enabled",
			"server.Untagged",
		}, names)

		assert.Equal(t, "30s", lookup(t, src, "server.timeout"))
		assert.Equal(t, "127.0.0.1", lookup(t, src, "server.bind"))
		assert.Equal(t, "https://example.com/api", lookup(t, src, "server.endpoint"))
		assert.Equal(t, "a,b", lookup(t, src, "server.tags"))
		assert.Equal(t, "true", lookup(t, src, "server.tls.enabled"))
	})

	t.Run("InvalidInput", func(t *testing.T) {
		_, err := NewStructSource("", nil)
		assert.Error(t, err)

		var nilPtr *struct{ A int }
		_, err = NewStructSource("", nilPtr)
		assert.Error(t, err)

		_, err = NewStructSource("", 42)
		assert.Error(t, err)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		type Bad struct {
			Port int `toml:"server port"`
		}
		_, err := NewStructSource("", Bad{Port: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid key segment")
	})
}

type closingSource struct {
	*MapSource
	closed int
	err    error
}

func (c *closingSource) Close() error {
	c.closed++
	return c.err
}

type closingInterceptor struct {
	suffixInterceptor
	closed bool
}

func (c *closingInterceptor) Close() error {
	c.closed = true
	return errors.New("interceptor close failed")
}

// TestConfigClose tests release of closeable components
func TestConfigClose(t *testing.T) {
	good := &closingSource{MapSource: NewMapSource("good", map[string]string{"a": "1"}, 100)}
	bad := &closingSource{MapSource: NewMapSource("bad", map[string]string{"b": "2"}, 100), err: errors.New("source close failed")}
	interceptor := &closingInterceptor{suffixInterceptor: suffixInterceptor{tag: "x"}}

	cfg, err := NewBuilder().
		WithArgs(nil).
		WithSources(good, bad).
		WithInterceptors(Shared("closing", PriorityPlatform, interceptor)).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "1-x", cfg.StringOr("a", ""))

	err = cfg.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source close failed")
	assert.Contains(t, err.Error(), "interceptor close failed")
	assert.Equal(t, 1, good.closed)
	assert.Equal(t, 1, bad.closed)
	assert.True(t, interceptor.closed)

	// Second close is a no-op
	assert.NoError(t, cfg.Close())
	assert.Equal(t, 1, good.closed)
}

// TestConcurrentAccess tests thread-safe reads of a built configuration
func TestConcurrentAccess(t *testing.T) {
	cfg := newTestConfig(t, map[string]string{
		"counter": "1",
		"url":     "http://${host}:${port:80}",
		"host":    "example.com",
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.Equal(t, "http://example.com:80", cfg.StringOr("url", ""))
				names, err := cfg.PropertyNames()
				assert.NoError(t, err)
				assert.Len(t, names, 3)
				assert.Len(t, cfg.Sources(), 1)
			}
		}()
	}
	wg.Wait()
}
