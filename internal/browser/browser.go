// Package browser drives a real browser tab and exposes it as a table.Page.
//
// Two drivers are supported: chromedp (default) and playwright-go. Both keep a
// single tab open for the life of the session; the Page they return is bound to
// that tab and is not safe for concurrent use.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bsscheck/internal/common"
	"github.com/ternarybob/bsscheck/internal/table"
)

const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// Browser is one automated tab with its cookie jar.
type Browser interface {
	// Navigate loads url and waits for the document body.
	Navigate(ctx context.Context, url string) error
	// Page returns the table.Page bound to the tab.
	Page() table.Page
	// Cookies returns the cookies the tab would send to url.
	Cookies(ctx context.Context, url string) ([]*http.Cookie, error)
	// Screenshot writes a PNG of the full page to path.
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Options configures a browser session.
type Options struct {
	Driver            string
	Headless          bool
	NoSandbox         bool
	WindowWidth       int
	WindowHeight      int
	UserAgent         string
	ExecPath          string
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
}

// OptionsFromConfig maps the [browser] section onto Options.
func OptionsFromConfig(cfg *common.Config) Options {
	return Options{
		Driver:            cfg.Browser.Driver,
		Headless:          cfg.Browser.Headless,
		NoSandbox:         cfg.Browser.NoSandbox,
		WindowWidth:       cfg.Browser.WindowWidth,
		WindowHeight:      cfg.Browser.WindowHeight,
		UserAgent:         cfg.Browser.UserAgent,
		ExecPath:          cfg.Browser.ExecPath,
		ActionTimeout:     common.ParseDurationOr(cfg.Browser.ActionTimeout, 30*time.Second),
		NavigationTimeout: common.ParseDurationOr(cfg.Browser.NavigationTimeout, 60*time.Second),
	}
}

func (o Options) withDefaults() Options {
	if o.Driver == "" {
		o.Driver = DriverChromedp
	}
	if o.WindowWidth <= 0 {
		o.WindowWidth = 1920
	}
	if o.WindowHeight <= 0 {
		o.WindowHeight = 1080
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 30 * time.Second
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 60 * time.Second
	}
	return o
}

// Open starts a browser with the configured driver.
func Open(opts Options, logger arbor.ILogger) (Browser, error) {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	opts = opts.withDefaults()

	switch strings.ToLower(opts.Driver) {
	case DriverChromedp:
		return NewChromeSession(opts, logger)
	case DriverPlaywright:
		return NewPlaywrightSession(opts, logger)
	default:
		return nil, fmt.Errorf("unknown browser driver %q (want %s or %s)", opts.Driver, DriverChromedp, DriverPlaywright)
	}
}

// ScreenshotPath returns dir/screenshots/<name>-<timestamp>.png, creating the directory.
func ScreenshotPath(dir, name string) (string, error) {
	screenshotDir := filepath.Join(dir, "screenshots")
	if err := os.MkdirAll(screenshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshots directory: %w", err)
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(screenshotDir, fmt.Sprintf("%s-%s.png", sanitizeName(name), timestamp)), nil
}

// sanitizeName converts a name to a safe filename format
func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}

// actionDeadline is the earlier of ctx's deadline and now+timeout.
func actionDeadline(ctx context.Context, timeout time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			return remaining
		}
	}
	return timeout
}
