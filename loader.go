// FILE: atbashEE/config/loader.go
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// Supported file formats.
const (
	FormatTOML       = "toml"
	FormatJSON       = "json"
	FormatYAML       = "yaml"
	FormatProperties = "properties"
	FormatDotenv     = "dotenv"
)

// FileSource serves the flattened contents of a configuration file.
// Nested tables become dotted names. The ordinal is fixed when the source is created;
// Reload refreshes the values only.
type FileSource struct {
	path    string
	format  string
	ordinal int
	remote  bool // fetched from a URL, never reloaded

	mu     sync.RWMutex
	values map[string]string
}

// NewFileSource loads path. An empty format is detected from the extension, then the content.
// The ordinal comes from the file's OrdinalProperty, defaultOrdinal otherwise.
func NewFileSource(path, format string, defaultOrdinal int) (*FileSource, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	return newFileSourceFromBytes(path, format, data, defaultOrdinal)
}

// newFileSourceFromBytes parses data already read from path. The path is kept for naming and reloads.
func newFileSourceFromBytes(path, format string, data []byte, defaultOrdinal int) (*FileSource, error) {
	if format == "" {
		format = detectFormat(path, data)
	}
	values, err := parseConfigData(format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return &FileSource{
		path:    path,
		format:  format,
		ordinal: OrdinalFromMap(values, defaultOrdinal),
		values:  values,
	}, nil
}

func (f *FileSource) Name() string {
	return fmt.Sprintf("FileSource[%s]", f.path)
}

func (f *FileSource) Ordinal() int { return f.ordinal }

// Path returns the file the source was loaded from.
func (f *FileSource) Path() string { return f.path }

// Format returns the format the file was parsed as.
func (f *FileSource) Format() string { return f.format }

func (f *FileSource) Lookup(name string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[name]
	return v, ok, nil
}

func (f *FileSource) PropertyNames() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Sorted(maps.Keys(f.values)), nil
}

// Remote reports whether the values were fetched from a remote location.
func (f *FileSource) Remote() bool { return f.remote }

// Reload re-reads the file. On error the previous values are kept.
// Remote sources keep the values fetched at build time.
func (f *FileSource) Reload() error {
	if f.remote {
		return nil
	}
	data, err := readConfigFile(f.path)
	if err != nil {
		return err
	}
	values, err := parseConfigData(f.format, data)
	if err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", f.path, err)
	}
	f.mu.Lock()
	f.values = values
	f.mu.Unlock()
	return nil
}

// readConfigFile reads a local file, mapping a missing file to ErrConfigNotFound.
func readConfigFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	return data, nil
}

// parseConfigData decodes data in the given format into flat name/value pairs.
func parseConfigData(format string, data []byte) (map[string]string, error) {
	switch format {
	case FormatTOML:
		nested := make(map[string]any)
		if err := toml.Unmarshal(data, &nested); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
		return flattenMap(nested, ""), nil
	case FormatJSON:
		nested := make(map[string]any)
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&nested); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return flattenMap(nested, ""), nil
	case FormatYAML:
		nested := make(map[string]any)
		if err := yaml.Unmarshal(data, &nested); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		return flattenMap(nested, ""), nil
	case FormatProperties:
		loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
		p, err := loader.LoadBytes(data)
		if err != nil {
			return nil, fmt.Errorf("invalid properties: %w", err)
		}
		return p.Map(), nil
	case FormatDotenv:
		values, err := godotenv.UnmarshalBytes(data)
		if err != nil {
			return nil, fmt.Errorf("invalid dotenv: %w", err)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
}

// detectFormat determines the format from the extension, falling back to the content.
func detectFormat(path string, data []byte) string {
	if format := detectFileFormat(path); format != "" {
		return format
	}
	return detectFormatFromContent(data)
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if base == ".env" || strings.HasSuffix(base, ".env") {
		return FormatDotenv
	}
	switch filepath.Ext(base) {
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".properties":
		return FormatProperties
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing.
// Properties accepts nearly any text, so it is the fallback.
func detectFormatFromContent(data []byte) string {
	var jsonTest map[string]any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return FormatJSON
	}

	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil && len(yamlTest) > 0 {
		return FormatYAML
	}

	return FormatProperties
}
