// Package ttyguard keeps terminal capability probes out of machine-readable
// output. Import it for side effects before any TUI package.
package ttyguard

import (
	"os"
	"strings"
)

// init runs before Bubble Tea acquires the terminal. Lipgloss background
// detection can write OSC/DSR queries to stdout, which corrupts JSON emitted
// by --robot-* flags. Termenv skips probing when CI is set.
func init() {
	if os.Getenv("CI") != "" {
		return
	}

	if !shouldSuppressTTYQueries(os.Args, os.Getenv("OPSCOST_ROBOT") == "1", os.Getenv("OPSCOST_TEST_MODE") != "") {
		return
	}

	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envRobot, envTest bool) bool {
	if envRobot || envTest {
		return true
	}

	for _, arg := range args {
		if strings.HasPrefix(arg, "--robot-") || strings.HasPrefix(arg, "--export-") {
			return true
		}
		switch arg {
		case "--version", "--help", "-h":
			return true
		}
	}

	return false
}
