// FILE: atbashEE/config/cmd/mpconfig/main.go

// Command mpconfig resolves configuration the same way an application using the
// library would, and prints values, names, sources or a TOML dump.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
