// FILE: atbashEE/config/watch_test.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testWatchOptions uses a short debounce so tests settle quickly.
var testWatchOptions = WatchOptions{
	Debounce:      50 * time.Millisecond,
	MaxWatchers:   10,
	ReloadTimeout: time.Second,
}

// settle waits long enough for a debounced reload to complete.
func settle() {
	time.Sleep(testWatchOptions.Debounce * debounceSettleMultiplier * 2)
}

// collect drains a watch channel into a set of property names.
func collect(changes <-chan string) (func() map[string]bool, func()) {
	var mu sync.Mutex
	seen := make(map[string]bool)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for name := range changes {
			mu.Lock()
			seen[name] = true
			mu.Unlock()
		}
	}()
	snapshot := func() map[string]bool {
		mu.Lock()
		defer mu.Unlock()
		out := make(map[string]bool, len(seen))
		for k, v := range seen {
			out[k] = v
		}
		return out
	}
	wait := func() { <-done }
	return snapshot, wait
}

func TestAutoUpdate(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := writeFile(t, tmpDir, "test.toml", `
[server]
port = 8080
host = "localhost"

[features]
enabled = true
`)

	// Create config with defaults
	type TestConfig struct {
		Server struct {
			Port int    `toml:"port"`
			Host string `toml:"host"`
		} `toml:"server"`
		Features struct {
			Enabled bool `toml:"enabled"`
		} `toml:"features"`
	}

	defaults := &TestConfig{}
	defaults.Server.Port = 3000
	defaults.Server.Host = "0.0.0.0"

	cfg, err := NewBuilder().
		WithArgs(nil).
		WithDefaults(defaults).
		WithFile(configPath).
		WithSources(NewMapSource("derived", map[string]string{"server.url": "http://${server.host}:${server.port}"}, 50)).
		Build()
	require.NoError(t, err)
	defer cfg.Close()

	port, err := cfg.Int64("server.port")
	require.NoError(t, err)
	assert.Equal(t, int64(8080), port)

	require.NoError(t, cfg.AutoUpdateWithOptions(testWatchOptions))
	assert.True(t, cfg.IsWatching())

	changed, _ := collect(cfg.Watch())
	assert.Equal(t, 1, cfg.WatcherCount())

	// Update config file
	writeFile(t, tmpDir, "test.toml", `
[server]
port = 9090
host = "0.0.0.0"

[features]
enabled = false
`)
	settle()

	port, err = cfg.Int64("server.port")
	require.NoError(t, err)
	assert.Equal(t, int64(9090), port)
	assert.Equal(t, "0.0.0.0", cfg.StringOr("server.host", ""))
	enabled, err := cfg.Bool("features.enabled")
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Equal(t, "http://0.0.0.0:9090", cfg.StringOr("server.url", ""))

	// Derived values are reported along with the file values
	got := changed()
	for _, name := range []string{"server.port", "server.host", "features.enabled", "server.url"} {
		if !got[name] {
			t.Errorf("Expected change notification for %s", name)
		}
	}
}

func TestWatchAtomicReplace(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeFile(t, tmpDir, "app.properties", "value=1\n")

	cfg, err := NewBuilder().WithArgs(nil).WithFile(configPath).Build()
	require.NoError(t, err)
	defer cfg.Close()

	changes := cfg.WatchWithOptions(testWatchOptions)

	// Editors commonly write a temporary file and rename it over the original
	tmp := writeFile(t, tmpDir, "app.properties.tmp", "value=2\n")
	require.NoError(t, os.Rename(tmp, configPath))

	select {
	case name := <-changes:
		assert.Equal(t, "value", name)
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for change notification")
	}
	assert.Equal(t, "2", cfg.StringOr("value", ""))
}

func TestWatchFailedReload(t *testing.T) {
	buf := captureDefaultLogger(t)
	tmpDir := t.TempDir()
	configPath := writeFile(t, tmpDir, "test.toml", `value = "good"`)

	cfg, err := NewBuilder().WithArgs(nil).WithFile(configPath).Build()
	require.NoError(t, err)
	defer cfg.Close()

	var count atomic.Int32
	changes := cfg.WatchWithOptions(testWatchOptions)
	go func() {
		for range changes {
			count.Add(1)
		}
	}()

	writeFile(t, tmpDir, "test.toml", `value = = "broken`)
	settle()

	// The previous values stay in place
	assert.Equal(t, "good", cfg.StringOr("value", ""))
	assert.Zero(t, count.Load())
	assert.Contains(t, buf.String(), "configuration reload failed")
}

func TestWatchUnavailable(t *testing.T) {
	cfg, err := NewBuilder().
		WithArgs(nil).
		WithSources(NewMapSource("memory", map[string]string{"a": "1"}, 100)).
		Build()
	require.NoError(t, err)

	err = cfg.AutoUpdate()
	assert.True(t, errors.Is(err, ErrNoSources))
	assert.False(t, cfg.IsWatching())

	ch := cfg.Watch()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed")
	case <-time.After(10 * time.Millisecond):
		t.Error("Channel should be closed immediately")
	}

	t.Run("ClosedConfig", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "closed.toml", "a = 1\n")
		cfg, err := NewBuilder().WithArgs(nil).WithFile(path).Build()
		require.NoError(t, err)
		require.NoError(t, cfg.Close())
		assert.Error(t, cfg.AutoUpdate())
	})
}

func TestMaxWatchers(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeFile(t, tmpDir, "test.toml", `test = "value"`)

	cfg, err := NewBuilder().WithArgs(nil).WithFile(configPath).Build()
	require.NoError(t, err)
	defer cfg.Close()

	opts := testWatchOptions
	opts.MaxWatchers = 3
	require.NoError(t, cfg.AutoUpdateWithOptions(opts))

	// Create maximum allowed watchers
	for i := 0; i < 4; i++ {
		ch := cfg.Watch()

		select {
		case _, ok := <-ch:
			if !ok && i < 3 {
				t.Errorf("Channel %d should be open", i)
			}
		case <-time.After(10 * time.Millisecond):
			if i == 3 {
				t.Error("Channel 3 should be closed (max watchers exceeded)")
			}
		}
	}
	assert.Equal(t, 3, cfg.WatcherCount())
}

func TestStopAutoUpdate(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeFile(t, tmpDir, "test.toml", "value = 1\n")

	cfg, err := NewBuilder().WithArgs(nil).WithFile(configPath).Build()
	require.NoError(t, err)
	defer cfg.Close()

	changed, wait := collect(cfg.WatchWithOptions(testWatchOptions))
	require.True(t, cfg.IsWatching())

	cfg.StopAutoUpdate()
	wait() // subscriber channels are closed on stop

	assert.False(t, cfg.IsWatching())
	assert.Zero(t, cfg.WatcherCount())

	writeFile(t, tmpDir, "test.toml", "value = 2\n")
	settle()
	assert.Equal(t, "1", cfg.StringOr("value", ""), "no reload after stop")
	assert.Empty(t, changed())

	// Watching can be restarted
	require.NoError(t, cfg.AutoUpdateWithOptions(testWatchOptions))
	assert.True(t, cfg.IsWatching())
}

func TestDebounce(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeFile(t, tmpDir, "test.toml", `value = 1`)

	cfg, err := NewBuilder().WithArgs(nil).WithFile(configPath).Build()
	require.NoError(t, err)
	defer cfg.Close()

	opts := testWatchOptions
	opts.Debounce = 200 * time.Millisecond
	changes := cfg.WatchWithOptions(opts)

	var changeCount atomic.Int32
	go func() {
		for range changes {
			changeCount.Add(1)
		}
	}()

	// Make rapid changes
	for i := 2; i <= 5; i++ {
		writeFile(t, tmpDir, "test.toml", fmt.Sprintf(`value = %d`, i))
		time.Sleep(opts.Debounce / 4) // Less than debounce period
	}

	// Wait for debounce to complete
	time.Sleep(opts.Debounce * debounceSettleMultiplier)

	// Should only see one change due to debounce
	if n := changeCount.Load(); n != 1 {
		t.Errorf("Expected 1 change due to debounce, got %d", n)
	}
	assert.Equal(t, "5", cfg.StringOr("value", ""))
}

// Benchmark value retrieval while watching
func BenchmarkWatchOverhead(b *testing.B) {
	tmpDir := b.TempDir()
	configPath := filepath.Join(tmpDir, "bench.toml")

	// Create config with many values
	var configContent string
	for i := 0; i < 100; i++ {
		configContent += fmt.Sprintf("value%d = %d\n", i, i)
	}

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		b.Fatal("Failed to write config:", err)
	}

	cfg, err := NewBuilder().WithArgs(nil).WithFile(configPath).Build()
	if err != nil {
		b.Fatal("Failed to build config:", err)
	}
	defer cfg.Close()

	if err := cfg.AutoUpdate(); err != nil {
		b.Fatal("Failed to enable watching:", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = cfg.Value(fmt.Sprintf("value%d", i%100))
	}
}
