// Package testutil gates heavier test cases behind an opt-in flag.
package testutil

import (
	"flag"
	"testing"
)

var runLong = flag.Bool("long", false, "run long/heavy tests")

// RequireLong skips the test unless -long was passed.
func RequireLong(t *testing.T) {
	t.Helper()
	if !*runLong {
		t.Skip("skipping long test (use -long to enable)")
	}
}
