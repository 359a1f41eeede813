// FILE: atbashEE/config/timing.go
package config

import "time"

// Core timing constants for production use.
const (
	ShutdownTimeout      = 100 * time.Millisecond // Graceful watcher termination window
	DefaultDebounce      = 500 * time.Millisecond // File change coalescence period
	DefaultReloadTimeout = 5 * time.Second        // Maximum duration for reload operations
	DefaultFetchTimeout  = 30 * time.Second       // Maximum duration for fetching a remote location
)

// Derived timing relationships for internal use.
const (
	// debounceSettleMultiplier ensures sufficient time for debounce to complete
	debounceSettleMultiplier = 3 // Wait 3x debounce period for value stabilization
)
