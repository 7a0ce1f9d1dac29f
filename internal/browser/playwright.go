package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bsscheck/internal/table"
)

// PlaywrightSession owns a Playwright driver, a Chromium browser and one page.
type PlaywrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    *PlaywrightPage
	opts    Options
	logger  arbor.ILogger
}

// NewPlaywrightSession starts the Playwright driver and opens a page. The
// driver and browsers must already be installed (playwright.Install).
func NewPlaywrightSession(opts Options, logger arbor.ILogger) (*PlaywrightSession, error) {
	opts = opts.withDefaults()
	startTime := time.Now()

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(opts.Headless)}
	if opts.NoSandbox {
		launch.Args = []string{"--no-sandbox"}
	}
	if opts.ExecPath != "" {
		launch.ExecutablePath = playwright.String(opts.ExecPath)
	}
	b, err := pw.Chromium.Launch(launch)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.WindowWidth, Height: opts.WindowHeight},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	bctx, err := b.NewContext(contextOpts)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.ActionTimeout.Milliseconds()))

	logger.Debug().
		Bool("headless", opts.Headless).
		Dur("startup_time", time.Since(startTime)).
		Msg("Playwright session started")

	return &PlaywrightSession{
		pw:      pw,
		browser: b,
		context: bctx,
		page:    NewPlaywrightPage(page, opts.ActionTimeout),
		opts:    opts,
		logger:  logger,
	}, nil
}

func (s *PlaywrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout, err := callTimeout(actionDeadline(ctx, s.opts.NavigationTimeout))
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	s.logger.Debug().Str("url", url).Msg("Navigating")
	_, err = s.page.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, timeoutErr(err))
	}
	return nil
}

func (s *PlaywrightSession) Page() table.Page { return s.page }

func (s *PlaywrightSession) Cookies(ctx context.Context, url string) ([]*http.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cookies, err := s.context.Cookies(url)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	return out, nil
}

func (s *PlaywrightSession) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return nil
}

// Close releases all Playwright resources.
func (s *PlaywrightSession) Close() error {
	var errs []error
	if err := s.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PlaywrightPage is a table.Page over a Playwright page. Playwright calls do not
// take a context: actions get ctx's deadline as their Playwright timeout, and
// evaluations and reads are abandoned when ctx ends or the action timeout passes.
type PlaywrightPage struct {
	page    playwright.Page
	timeout time.Duration
}

// NewPlaywrightPage wraps an existing Playwright page.
func NewPlaywrightPage(page playwright.Page, timeout time.Duration) *PlaywrightPage {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PlaywrightPage{page: page, timeout: timeout}
}

// callTimeout converts the time left for an action to Playwright's millisecond
// timeout. Playwright reads 0 as "no timeout", so an exhausted budget fails here
// and anything under a millisecond rounds up to one.
func callTimeout(remaining time.Duration) (*float64, error) {
	if remaining <= 0 {
		return nil, context.DeadlineExceeded
	}
	ms := remaining.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(float64(ms)), nil
}

// bounded runs fn until it returns, ctx ends or timeout passes. An abandoned
// call keeps running in the driver; its result is discarded.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	remaining := actionDeadline(ctx, timeout)
	if remaining <= 0 {
		return zero, context.DeadlineExceeded
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return zero, context.DeadlineExceeded
	}
}

// timeoutErr makes Playwright timeouts match context.DeadlineExceeded.
func timeoutErr(err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func (p *PlaywrightPage) eval(ctx context.Context, js string) (any, error) {
	v, err := bounded(ctx, p.timeout, func() (any, error) { return p.page.Evaluate(js) })
	if err != nil {
		return nil, timeoutErr(err)
	}
	return v, nil
}

func (p *PlaywrightPage) Count(ctx context.Context, selector string) (int, error) {
	n, err := bounded(ctx, p.timeout, func() (int, error) { return p.page.Locator(selector).Count() })
	if err != nil {
		return 0, fmt.Errorf("failed to count %q: %w", selector, timeoutErr(err))
	}
	return n, nil
}

func (p *PlaywrightPage) Text(ctx context.Context, selector string) (string, error) {
	v, err := p.eval(ctx, script(textScript, selector))
	if err != nil {
		return "", fmt.Errorf("failed to read text of %q: %w", selector, err)
	}
	res := toLookup(v)
	if !res.Found {
		return "", fmt.Errorf("%w: %q", table.ErrElementNotFound, selector)
	}
	return res.Value, nil
}

func (p *PlaywrightPage) Texts(ctx context.Context, selector string) ([]string, error) {
	texts, err := bounded(ctx, p.timeout, func() ([]string, error) { return p.page.Locator(selector).AllTextContents() })
	if err != nil {
		return nil, fmt.Errorf("failed to read texts of %q: %w", selector, timeoutErr(err))
	}
	if texts == nil {
		texts = []string{}
	}
	return texts, nil
}

func (p *PlaywrightPage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	v, err := p.eval(ctx, script(attributeScript, selector, name))
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s of %q: %w", name, selector, err)
	}
	res := toLookup(v)
	return res.Value, res.Present, nil
}

func (p *PlaywrightPage) Click(ctx context.Context, selector string) error {
	if err := p.mustExist(ctx, selector); err != nil {
		return err
	}
	timeout, err := callTimeout(actionDeadline(ctx, p.timeout))
	if err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	err = p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, timeoutErr(err))
	}
	return nil
}

func (p *PlaywrightPage) DoubleClick(ctx context.Context, selector string) error {
	if err := p.mustExist(ctx, selector); err != nil {
		return err
	}
	timeout, err := callTimeout(actionDeadline(ctx, p.timeout))
	if err != nil {
		return fmt.Errorf("failed to double-click %q: %w", selector, err)
	}
	err = p.page.Locator(selector).First().Dblclick(playwright.LocatorDblclickOptions{
		Timeout: timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to double-click %q: %w", selector, timeoutErr(err))
	}
	return nil
}

func (p *PlaywrightPage) mustExist(ctx context.Context, selector string) error {
	n, err := p.Count(ctx, selector)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", table.ErrElementNotFound, selector)
	}
	return nil
}

func (p *PlaywrightPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wait, err := callTimeout(actionDeadline(ctx, timeout))
	if err != nil {
		return fmt.Errorf("%q not visible within %s: %w", selector, timeout, err)
	}
	err = p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: wait,
	})
	if err != nil {
		return fmt.Errorf("%q not visible within %s: %w", selector, timeout, timeoutErr(err))
	}
	return nil
}

// toLookup converts the map Playwright returns for textScript/attributeScript.
func toLookup(v any) lookup {
	m, ok := v.(map[string]any)
	if !ok {
		return lookup{}
	}
	var res lookup
	res.Found, _ = m["found"].(bool)
	res.Present, _ = m["present"].(bool)
	res.Value, _ = m["value"].(string)
	return res
}

var (
	_ Browser    = (*PlaywrightSession)(nil)
	_ table.Page = (*PlaywrightPage)(nil)
)
