package main

import (
	"os"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Cobra prints the error; the exit code is all that is left to report.
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
