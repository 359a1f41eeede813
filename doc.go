// File: atbashEE/config/doc.go

// Package config resolves configuration properties from an ordered set of value
// sources through a chain of interceptors.
//
// Features:
//   - Pluggable sources ordered by ordinal: command line (400), environment (300),
//     files (100) and struct defaults (0); equal ordinals keep discovery order
//   - TOML, JSON, YAML, .properties and .env files, plus remote locations via go-getter
//   - Deferred source factories that read configuration to create more sources
//   - Profiles: %dev.server.port overrides server.port when the dev profile is active
//   - Expressions: ${name} and ${name:default}, with cycle detection
//   - Property names fixed at build time
//   - Typed accessors and struct scanning through mapstructure
//   - File watching with change notification
//
// Quick Start:
//
//	type Config struct {
//	    Server struct {
//	        Host string `toml:"host"`
//	        Port int    `toml:"port"`
//	    } `toml:"server"`
//	}
//
//	defaults := Config{}
//	defaults.Server.Host = "localhost"
//	defaults.Server.Port = 8080
//
//	cfg, err := config.Quick(defaults, "MYAPP_", "config.toml")
//	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
//	    log.Fatal(err)
//	}
//
//	host, _ := cfg.String("server.host")
//	port, _ := cfg.Int64("server.port")
//
// Default Precedence (highest to lowest):
//  1. Command-line arguments (--server.port=9090)
//  2. Environment variables (MYAPP_SERVER_PORT=9090)
//  3. Configuration files (config.toml, then config.locations)
//  4. Default values
//
// Custom Sources and Interceptors:
//
//	cfg, err := config.NewBuilder().
//	    WithSources(config.NewMapSource("overrides", values, 500)).
//	    WithInterceptors(config.InterceptorRegistration{
//	        Name:     "decrypt",
//	        Priority: config.PriorityApplication,
//	        Factory:  decryptFactory,
//	    }).
//	    AddDefaultSources().
//	    Build()
//
// Building runs in two phases. A provisional chain over the static sources determines
// the active profiles and feeds the source factories; the final chain is then built
// over all sources with freshly created interceptors.
//
// Thread Safety:
// A built Config is immutable apart from file reloads and may be shared freely.
package config
