// FILE: atbashEE/config/example/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/atbashEE/config"
)

// AppConfig shows the typed view of the resolved configuration.
type AppConfig struct {
	Server struct {
		Host     string `toml:"host"`
		Port     int64  `toml:"port"`
		LogLevel string `toml:"log_level"`
		URL      string `toml:"url"`
	} `toml:"server"`
	FeatureFlags map[string]bool `toml:"feature_flags"`
}

const initialConfig = `
[server]
host = "localhost"
port = 8080
log_level = "info"
url = "http://${server.host}:${server.port}"

[feature_flags]
enable_metrics = true

["%dev".server]
log_level = "debug"
`

func main() {
	// =========================================================================
	// PART 1: INITIAL SETUP
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 1: Creating initial configuration file...")

	dir, err := os.MkdirTemp("", "config-example-*")
	if err != nil {
		log.Fatalf("❌ Failed to create temp dir: %v", err)
	}
	defer func() {
		log.Println("---")
		log.Println("🧹 Cleaning up...")
		os.RemoveAll(dir)
		os.Unsetenv("APP_SERVER_PORT")
	}()

	configFilePath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configFilePath, []byte(initialConfig), 0o644); err != nil {
		log.Fatalf("❌ Failed during initial file creation: %v", err)
	}
	log.Printf("✅ Initial configuration saved to %s.", configFilePath)

	// =========================================================================
	// PART 2: BUILDER, PROFILES AND EXPRESSIONS
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 2: Configuring with the Builder...")

	// Env (ordinal 300) beats the file (ordinal 100).
	os.Setenv("APP_SERVER_PORT", "8888")
	log.Println("   (Set environment variable APP_SERVER_PORT=8888)")

	validator := func(c *config.Config) error {
		port, err := c.Int64("server.port")
		if err != nil {
			return err
		}
		if port < 1024 || port > 65535 {
			return fmt.Errorf("port %d is outside the recommended range (1024-65535)", port)
		}
		return nil
	}

	target := &AppConfig{}
	cfg, err := config.NewBuilder().
		AddDefaultSources().
		WithArgs(nil).
		WithEnvPrefix("APP_").
		WithFile(configFilePath).
		WithProfiles("dev").
		WithValidator(validator).
		BuildAndScan(target)
	if err != nil {
		log.Fatalf("❌ Builder failed: %v", err)
	}
	defer cfg.Close()

	log.Println("✅ Builder finished successfully.")
	printCurrentState(target, "Initial State (dev profile, Env overrides File)")

	url, _ := cfg.Value("server.url")
	log.Printf("   server.url raw %q resolved %q", url.RawValue, url.Value)

	// =========================================================================
	// PART 3: DYNAMIC RELOADING WITH THE WATCHER
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 3: Testing the file watcher...")

	if err := cfg.AutoUpdateWithOptions(config.WatchOptions{Debounce: 100 * time.Millisecond}); err != nil {
		log.Fatalf("❌ Watcher failed: %v", err)
	}
	changes := cfg.Watch()
	log.Println("✅ Watcher is now active with custom options.")

	go func() {
		time.Sleep(time.Second)
		log.Println("   (Modifier goroutine: now changing file on disk...)")
		updated := []byte(`
[server]
host = "0.0.0.0"
port = 8080
log_level = "info"
url = "http://${server.host}:${server.port}"

[feature_flags]
enable_metrics = false
`)
		if err := os.WriteFile(configFilePath, updated, 0o644); err != nil {
			log.Printf("❌ Modifier failed to save file: %v", err)
		}
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case name := <-changes:
			v, _ := cfg.Value(name)
			if v == nil {
				log.Printf("✅ Watcher: %s no longer defined", name)
				continue
			}
			log.Printf("✅ Watcher: %s = %s", name, v.Value)
		case <-deadline:
			final := &AppConfig{}
			if err := cfg.Scan("", final); err != nil {
				log.Fatalf("❌ Scan failed after update: %v", err)
			}
			printCurrentState(final, "Final State (Updated by Watcher)")
			return
		}
	}
}

// printCurrentState is a helper to display the typed config state.
func printCurrentState(cfg *AppConfig, title string) {
	fmt.Println("   --------------------------------------------------")
	fmt.Printf("             %s\n", title)
	fmt.Println("   --------------------------------------------------")
	fmt.Printf("     Server Host:      %s\n", cfg.Server.Host)
	fmt.Printf("     Server Port:      %d\n", cfg.Server.Port)
	fmt.Printf("     Server Log Level: %s\n", cfg.Server.LogLevel)
	fmt.Printf("     Server URL:       %s\n", cfg.Server.URL)
	fmt.Printf("     Feature Flags:    %v\n", cfg.FeatureFlags)
	fmt.Println("   --------------------------------------------------")
}
