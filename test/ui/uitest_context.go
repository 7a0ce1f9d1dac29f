// uitest_context.go - Shared UI test context and helpers for bsscheck
// This provides UITestContext and helper functions used by all UI tests.
// NOTE: This is NOT a test file - it contains shared test infrastructure.

package ui

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bsscheck/internal/browser"
	"github.com/ternarybob/bsscheck/internal/table"
	"github.com/ternarybob/bsscheck/test"
)

// UI test timeouts
const (
	// MaxUITestTimeout bounds a whole UI test including browser startup
	MaxUITestTimeout = 2 * time.Minute

	actionTimeout     = 10 * time.Second
	navigationTimeout = 30 * time.Second
)

// UITestContext holds shared state for UI tests
type UITestContext struct {
	T       *testing.T
	Ctx     context.Context
	Server  *test.MockServer
	Browser *browser.ChromeSession
	BaseURL string

	// Internal cleanup functions
	cleanup []func()

	// Screenshot counter for sequential naming
	screenshotNum int
}

// NewUITestContext starts a mock BS-Select server and a headless Chrome tab.
// The test is skipped when no Chrome binary is available.
func NewUITestContext(t *testing.T, timeout time.Duration) *UITestContext {
	if !chromeAvailable {
		t.Skip("Chrome not found; set CHROME_PATH or install chromium to run UI tests")
	}

	server := test.NewMockServer(0)
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start mock server: %v", err)
	}

	// Create a timeout context for the entire test
	ctx, cancelTimeout := context.WithTimeout(context.Background(), timeout)

	session, err := browser.NewChromeSession(browser.Options{
		Headless:          true,
		NoSandbox:         os.Geteuid() == 0,
		ExecPath:          os.Getenv("CHROME_PATH"),
		WindowWidth:       1280,
		WindowHeight:      900,
		ActionTimeout:     actionTimeout,
		NavigationTimeout: navigationTimeout,
	}, arbor.NewLogger())
	if err != nil {
		cancelTimeout()
		server.Stop()
		t.Fatalf("Failed to start browser: %v", err)
	}

	utc := &UITestContext{
		T:       t,
		Ctx:     ctx,
		Server:  server,
		Browser: session,
		BaseURL: server.URL(),
		cleanup: make([]func(), 0),
	}

	// Add cleanup functions in reverse order (LIFO)
	utc.cleanup = append(utc.cleanup, func() { server.Stop() })
	utc.cleanup = append(utc.cleanup, func() { cancelTimeout() })
	utc.cleanup = append(utc.cleanup, func() {
		if err := session.Close(); err != nil {
			t.Logf("Warning: browser close returned: %v", err)
		}
	})

	return utc
}

// Cleanup releases all resources. Call this with defer.
func (utc *UITestContext) Cleanup() {
	if utc.T.Failed() {
		utc.Log("=== TEST RESULT: FAIL ===")
		if err := utc.Screenshot("failure"); err != nil {
			utc.Log("Failed to capture failure screenshot: %v", err)
		}
	} else {
		utc.Log("=== TEST RESULT: PASS ===")
	}

	// Execute cleanup functions in reverse order
	for i := len(utc.cleanup) - 1; i >= 0; i-- {
		utc.cleanup[i]()
	}
}

// Log writes a message to the test log
func (utc *UITestContext) Log(format string, args ...interface{}) {
	utc.T.Helper()
	utc.T.Logf(format, args...)
}

// Screenshot takes a full page screenshot with a sequential number prefix
func (utc *UITestContext) Screenshot(name string) error {
	utc.screenshotNum++
	fullName := fmt.Sprintf("%s_%02d_%s", utc.T.Name(), utc.screenshotNum, name)
	return TakeScreenshot(utc.Ctx, utc.Browser, fullName)
}

// OpenList registers l on the mock server, loads its page and waits for the
// first render. It returns a Table bound to the list.
func (utc *UITestContext) OpenList(name string, l *test.MockList) (*table.Table, error) {
	utc.Server.AddList(name, l)

	url := fmt.Sprintf("%s/bss/lists/%s", utc.BaseURL, name)
	if err := utc.Browser.Navigate(utc.Ctx, url); err != nil {
		return nil, err
	}

	root := "#" + l.TableID
	if err := utc.Browser.Page().WaitVisible(utc.Ctx, root+" tbody tr", navigationTimeout); err != nil {
		return nil, fmt.Errorf("list %s did not render: %w", name, err)
	}

	cfg := table.DefaultConfig(root)
	cfg.SettleTimeout = 5 * time.Second
	cfg.PollInterval = 25 * time.Millisecond
	return table.New(utc.Browser.Page(), cfg, arbor.NewLogger()), nil
}

// Text reads the text of selector from the live page.
func (utc *UITestContext) Text(selector string) (string, error) {
	return utc.Browser.Page().Text(utc.Ctx, selector)
}
