// FILE: atbashEE/config/discovery_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDiscovery(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "myapp.yaml", "source: search\n")
	flagPath := writeFile(t, dir, "flag.toml", "source = \"flag\"\n")
	envPath := writeFile(t, dir, "env.properties", "source=env\n")

	opts := DefaultDiscoveryOptions("myapp")
	opts.Paths = []string{dir}
	opts.UseXDG = false
	opts.UseCurrentDir = false

	t.Run("Defaults", func(t *testing.T) {
		d := DefaultDiscoveryOptions("myapp")
		assert.Equal(t, "MYAPP_CONFIG", d.EnvVar)
		assert.Equal(t, "--config", d.CLIFlag)
		assert.Equal(t, []string{".toml", ".yaml", ".yml", ".json", ".properties"}, d.Extensions)
	})

	t.Run("CLIFlagFirst", func(t *testing.T) {
		t.Setenv("MYAPP_CONFIG", envPath)
		assert.Equal(t, flagPath, discoverFile(opts, []string{"--config", flagPath}))
		assert.Equal(t, flagPath, discoverFile(opts, []string{"--config=" + flagPath}))
	})

	t.Run("EnvironmentVariable", func(t *testing.T) {
		t.Setenv("MYAPP_CONFIG", envPath)
		assert.Equal(t, envPath, discoverFile(opts, nil))
	})

	t.Run("SearchPaths", func(t *testing.T) {
		assert.Equal(t, yamlPath, discoverFile(opts, nil))
	})

	t.Run("DirectoryIsNotACandidate", func(t *testing.T) {
		nested := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(nested, "myapp.toml"), 0755))
		withDir := opts
		withDir.Paths = []string{nested, dir}
		assert.Equal(t, yamlPath, discoverFile(withDir, nil))
	})

	t.Run("NothingFound", func(t *testing.T) {
		none := opts
		none.Paths = []string{filepath.Join(dir, "empty")}
		assert.Empty(t, discoverFile(none, nil))
	})

	t.Run("Builder", func(t *testing.T) {
		cfg, err := NewBuilder().
			WithArgs([]string{"--config", flagPath}).
			WithFileDiscovery(opts).
			Build()
		require.NoError(t, err)
		assert.Equal(t, "flag", cfg.StringOr("source", ""))
	})

	t.Run("XDGPaths", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/home/u/.cfg")
		t.Setenv("XDG_CONFIG_DIRS", "/etc/a:/etc/b")
		assert.Equal(t, []string{"/home/u/.cfg/myapp", "/etc/a/myapp", "/etc/b/myapp"}, xdgConfigDirs("myapp"))

		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/u")
		t.Setenv("XDG_CONFIG_DIRS", "")
		assert.Equal(t, []string{"/home/u/.config/myapp", "/etc/xdg/myapp", "/etc/myapp"}, xdgConfigDirs("myapp"))
	})
}
