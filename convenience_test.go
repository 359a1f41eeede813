// FILE: atbashEE/config/convenience_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQuickFunctions tests the convenience Quick* functions
func TestQuickFunctions(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := writeFile(t, tmpDir, "quick.toml", `
host = "quickhost"
port = 7777
`)

	type QuickConfig struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
		SSL  bool   `toml:"ssl"`
	}

	defaults := &QuickConfig{
		Host: "localhost",
		Port: 8080,
		SSL:  false,
	}

	t.Run("Quick", func(t *testing.T) {
		// Mock os.Args
		oldArgs := os.Args
		os.Args = []string{"cmd", "--port=9999"}
		defer func() { os.Args = oldArgs }()
		t.Setenv("QUICK_SSL", "true")

		cfg, err := Quick(defaults, "QUICK_", configFile)
		require.NoError(t, err)

		// CLI should override
		assert.Equal(t, "9999", cfg.StringOr("port", ""))

		// File value
		assert.Equal(t, "quickhost", cfg.StringOr("host", ""))

		// Env value
		ssl, err := cfg.Bool("ssl")
		require.NoError(t, err)
		assert.True(t, ssl)
	})

	t.Run("QuickMissingFile", func(t *testing.T) {
		cfg, err := Quick(defaults, "QUICK_", filepath.Join(tmpDir, "absent.toml"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
		require.NotNil(t, cfg)
		assert.Equal(t, "localhost", cfg.StringOr("host", ""))
	})

	t.Run("MustQuickPanic", func(t *testing.T) {
		// Valid case - should not panic
		assert.NotPanics(t, func() {
			cfg := MustQuick(defaults, "TEST_", configFile)
			assert.NotNil(t, cfg)
		})

		// Invalid struct - should panic
		assert.Panics(t, func() {
			MustQuick("not-a-struct", "TEST_", configFile)
		})
	})
}

// TestDebugAndDump tests debug output functions
func TestDebugAndDump(t *testing.T) {
	cfg, err := NewBuilder().
		WithArgs(nil).
		WithProfiles("dev").
		WithSources(
			NewMapSourceWithOrdinal("file", map[string]string{
				"server.host":      "filehost",
				"server.port":      "8080",
				"%dev.server.port": "9999",
				"server.url":       "http://${server.host}:${server.port}",
				"broken":           "${missing}",
			}, DefaultOrdinal),
			NewMapSourceWithOrdinal("env", map[string]string{"server.host": "envhost"}, OrdinalEnv),
		).
		Build()
	require.NoError(t, err)

	t.Run("Debug", func(t *testing.T) {
		debug := cfg.Debug()

		assert.Contains(t, debug, "Configuration Debug Info")
		assert.Contains(t, debug, "Profiles: [dev]")
		assert.Contains(t, debug, "env (ordinal 300)")
		assert.Contains(t, debug, "file (ordinal 100)")
		assert.Contains(t, debug, `server.host = "envhost"`)
		assert.Contains(t, debug, `server.url = "http://envhost:9999"`)
		assert.Contains(t, debug, `Raw: "http://${server.host}:${server.port}"`)
		assert.Contains(t, debug, "broken: error:")
	})

	t.Run("Dump", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, cfg.Dump(&buf))

		output := buf.String()
		assert.Contains(t, output, "[server]")
		assert.NotContains(t, output, "%dev")
		assert.NotContains(t, output, "broken")

		var decoded map[string]any
		_, err := toml.Decode(output, &decoded)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"host": "envhost",
			"port": "9999",
			"url":  "http://envhost:9999",
		}, decoded["server"])
	})
}
