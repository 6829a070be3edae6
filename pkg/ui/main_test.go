package ui

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	os.Setenv("OPSCOST_TEST_MODE", "1")
	// Keep clipboard and config writes out of the real home directory
	home, err := os.MkdirTemp("", "opscost-ui-test")
	if err == nil {
		os.Setenv("HOME", home)
	}

	code := m.Run()

	if home != "" {
		os.RemoveAll(home)
	}
	os.Exit(code)
}
