// FILE: atbashEE/config/locations.go
package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	getter "github.com/hashicorp/go-getter"
)

// LocationsProperty lists additional configuration files, comma separated.
const LocationsProperty = "config.locations"

// LocationSourceFactory turns the locations named by LocationsProperty into file sources.
//
// Each location inherits the ordinal of the source that supplied the property. For every
// active profile p, a local file "app.properties" also loads "app-p.properties" when it
// exists, one ordinal above its base file. Remote locations (http, https, s3::, git:: and
// anything else go-getter understands) are fetched into a temporary file first.
type LocationSourceFactory struct {
	// Property overrides LocationsProperty.
	Property string

	// FetchTimeout bounds each remote fetch. Zero means DefaultFetchTimeout.
	FetchTimeout time.Duration

	// Logger receives debug records for every loaded location.
	Logger *slog.Logger
}

// NewLocationSourceFactory returns a factory reading LocationsProperty.
func NewLocationSourceFactory() *LocationSourceFactory {
	return &LocationSourceFactory{Property: LocationsProperty}
}

// Ordinal orders this factory among other deferred factories.
func (f *LocationSourceFactory) Ordinal() int { return DefaultOrdinal }

func (f *LocationSourceFactory) Sources(ctx SourceContext) ([]ValueSource, error) {
	property := f.Property
	if property == "" {
		property = LocationsProperty
	}
	v, err := ctx.Value(property)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", property, err)
	}
	locations := splitList(v.Value)
	if len(locations) == 0 {
		return nil, nil
	}

	ordinal := v.SourceOrdinal
	profiles := ctx.Profiles()
	var sources []ValueSource
	for _, location := range locations {
		if isRemoteLocation(location) {
			src, err := f.fetch(location, ordinal)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
			continue
		}

		path := strings.TrimPrefix(location, "file://")
		src, err := NewFileSource(path, "", ordinal)
		if err != nil {
			return nil, fmt.Errorf("location %s: %w", location, err)
		}
		f.logger().Debug("loaded configuration location", "location", path, "ordinal", src.Ordinal())
		sources = append(sources, src)

		for _, profile := range profiles {
			sibling := profileSibling(path, profile)
			if _, err := os.Stat(sibling); err != nil {
				continue
			}
			psrc, err := NewFileSource(sibling, src.Format(), ordinal+1)
			if err != nil {
				return nil, fmt.Errorf("location %s: %w", sibling, err)
			}
			f.logger().Debug("loaded profile location", "location", sibling, "profile", profile, "ordinal", psrc.Ordinal())
			sources = append(sources, psrc)
		}
	}
	return sources, nil
}

func (f *LocationSourceFactory) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// fetch downloads a remote location and parses it.
func (f *LocationSourceFactory) fetch(location string, ordinal int) (*FileSource, error) {
	timeout := f.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	tempDir, err := os.MkdirTemp("", "config-location-*")
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", location, err)
	}
	defer os.RemoveAll(tempDir)

	tempFile := filepath.Join(tempDir, "location")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client := &getter.Client{
		Ctx:  ctx,
		Src:  location,
		Dst:  tempFile,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return nil, fmt.Errorf("%w: failed to download %s: %w", ErrConfigNotFound, location, err)
	}

	data, err := os.ReadFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", location, err)
	}
	src, err := newFileSourceFromBytes(location, detectFileFormat(remotePath(location)), data, ordinal)
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", location, err)
	}
	src.remote = true
	f.logger().Debug("fetched remote configuration location", "location", location, "ordinal", src.Ordinal())
	return src, nil
}

// isRemoteLocation reports whether location needs go-getter rather than a plain file read.
func isRemoteLocation(location string) bool {
	if strings.HasPrefix(location, "file://") {
		return false
	}
	return strings.Contains(location, "://") || strings.Contains(location, "::")
}

// remotePath extracts the path of a remote location for format detection.
func remotePath(location string) string {
	if _, rest, ok := strings.Cut(location, "::"); ok {
		location = rest
	}
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		return u.Path
	}
	return location
}

// profileSibling returns the profile variant of path: conf/app.yaml becomes conf/app-dev.yaml.
func profileSibling(path, profile string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + profile + ext
}
