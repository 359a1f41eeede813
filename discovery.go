// FILE: atbashEE/config/discovery.go
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDiscoveryOptions describes where an application's own configuration file may live
// when no location is given explicitly. The file found becomes a file source with the
// default ordinal, exactly like a location passed to WithFile.
type FileDiscoveryOptions struct {
	// Name is the file name without extension, usually the application name.
	Name string
	// Extensions are tried in order within each directory.
	Extensions []string
	// Paths are searched before the working and XDG directories.
	Paths []string
	// EnvVar names a variable holding an explicit location.
	EnvVar string
	// CLIFlag names an argument holding an explicit location, as in "--config app.toml".
	CLIFlag       string
	UseXDG        bool
	UseCurrentDir bool
}

// DefaultDiscoveryOptions looks for <app>.{toml,yaml,yml,json,properties}, honouring
// --config and <APP>_CONFIG before searching the working and XDG directories.
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".toml", ".yaml", ".yml", ".json", ".properties"},
		EnvVar:        strings.ToUpper(appName) + "_CONFIG",
		CLIFlag:       "--config",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// WithFileDiscovery adds the first configuration file found by opts, as if passed to WithFile.
// Arguments given to WithArgs are consulted for opts.CLIFlag, so call it first.
// Finding nothing is not an error.
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	if location := discoverFile(opts, b.args); location != "" {
		b.files = append(b.files, location)
	}
	return b
}

// discoverFile returns an explicit location from args or the environment, or else
// the first existing candidate in the search directories. Explicit locations are not
// checked for existence; a missing one surfaces as ErrConfigNotFound at build time.
func discoverFile(opts FileDiscoveryOptions, args []string) string {
	if location := explicitLocation(opts, args); location != "" {
		return location
	}
	for _, dir := range searchDirs(opts) {
		for _, ext := range opts.Extensions {
			candidate := filepath.Join(dir, opts.Name+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

func explicitLocation(opts FileDiscoveryOptions, args []string) string {
	if flag := opts.CLIFlag; flag != "" {
		for i, arg := range args {
			if value, ok := strings.CutPrefix(arg, flag+"="); ok {
				return value
			}
			if arg == flag && i+1 < len(args) {
				return args[i+1]
			}
		}
	}
	if opts.EnvVar != "" {
		return os.Getenv(opts.EnvVar)
	}
	return ""
}

// searchDirs lists the directories probed for opts.Name, most specific first.
func searchDirs(opts FileDiscoveryOptions) []string {
	dirs := append([]string(nil), opts.Paths...)
	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}
	if opts.UseXDG {
		dirs = append(dirs, xdgConfigDirs(opts.Name)...)
	}
	return dirs
}

// xdgConfigDirs follows the XDG base directory layout: the user directory, then the
// system directories, each with the application name appended.
func xdgConfigDirs(appName string) []string {
	var dirs []string
	switch home := os.Getenv("XDG_CONFIG_HOME"); {
	case home != "":
		dirs = append(dirs, filepath.Join(home, appName))
	case os.Getenv("HOME") != "":
		dirs = append(dirs, filepath.Join(os.Getenv("HOME"), ".config", appName))
	}

	system := filepath.SplitList(os.Getenv("XDG_CONFIG_DIRS"))
	if len(system) == 0 {
		system = []string{"/etc/xdg", "/etc"}
	}
	for _, dir := range system {
		dirs = append(dirs, filepath.Join(dir, appName))
	}
	return dirs
}
