// Package debug provides env-gated diagnostic output. Set ERK_DEBUG to any
// value (or pass --verbose) to see it; --quiet suppresses normal output.
package debug

import (
	"fmt"
	"os"
)

var (
	enabled     = os.Getenv("ERK_DEBUG") != ""
	verboseMode = false
	quietMode   = false
)

// Enabled reports whether debug output is active.
func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables debug output regardless of the environment.
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet suppresses non-essential output.
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet reports whether quiet mode is enabled.
func IsQuiet() bool {
	return quietMode
}

// Logf writes to stderr when debug output is active.
func Logf(format string, args ...any) {
	if enabled || verboseMode {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Printf writes normal informational output unless quiet mode is on.
func Printf(format string, args ...any) {
	if !quietMode {
		fmt.Printf(format, args...)
	}
}
