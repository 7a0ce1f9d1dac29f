package ui

import (
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"
)

// chromeAvailable is set by TestMain; UI tests skip without it.
var chromeAvailable bool

// chromeBinaries are the names chromedp's allocator looks for on PATH.
var chromeBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

// TestMain runs before all tests in the ui package
// It checks a browser is installed before running any UI tests
func TestMain(m *testing.M) {
	if path, err := findChrome(); err != nil {
		fmt.Fprintf(os.Stderr, "\n⚠ %v - UI tests will be skipped\n\n", err)
	} else {
		chromeAvailable = true
		fmt.Fprintf(os.Stderr, "✓ Using browser %s\n", path)
	}

	// Run all tests with cleanup guarantee
	var exitCode int
	func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "\n⚠ PANIC during test execution: %v\n", r)
				exitCode = 1
			}
			// Give deferred browser shutdowns a moment to finish
			time.Sleep(100 * time.Millisecond)
		}()
		exitCode = m.Run()
	}()

	os.Exit(exitCode)
}

func findChrome() (string, error) {
	if path := os.Getenv("CHROME_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("CHROME_PATH %s: %w", path, err)
		}
		return path, nil
	}
	for _, name := range chromeBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chrome or Chromium binary on PATH")
}
