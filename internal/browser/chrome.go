package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bsscheck/internal/table"
)

// ChromeSession owns a chromedp allocator and one browser tab.
type ChromeSession struct {
	ctx     context.Context
	opts    Options
	logger  arbor.ILogger
	page    *ChromePage
	cleanup []func()
}

// NewChromeSession launches Chrome and checks it responds before returning.
func NewChromeSession(opts Options, logger arbor.ILogger) (*ChromeSession, error) {
	opts = opts.withDefaults()
	startTime := time.Now()

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", opts.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocatorOpts = append(allocatorOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	s := &ChromeSession{ctx: browserCtx, opts: opts, logger: logger}
	// Cleanup runs in reverse order (LIFO)
	s.cleanup = append(s.cleanup, allocatorCancel)
	s.cleanup = append(s.cleanup, browserCancel)

	// The first Run allocates the browser and ties its process to the context it
	// is given, so it must not be a context with a timeout.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	testCtx, testCancel := context.WithTimeout(browserCtx, opts.NavigationTimeout)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	s.page = NewChromePage(browserCtx, opts.ActionTimeout)

	logger.Debug().
		Bool("headless", opts.Headless).
		Dur("startup_time", time.Since(startTime)).
		Msg("Chrome session started")

	return s, nil
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	s.logger.Debug().Str("url", url).Msg("Navigating")
	err := run(ctx, s.ctx, s.opts.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *ChromeSession) Page() table.Page { return s.page }

// Cookies reads the tab's cookies for url through the DevTools network domain.
func (s *ChromeSession) Cookies(ctx context.Context, url string) ([]*http.Cookie, error) {
	var cookies []*network.Cookie
	err := run(ctx, s.ctx, s.opts.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().WithURLs([]string{url}).Do(ctx)
		return err
	}))
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
			HttpOnly: c.HTTPOnly,
		})
	}
	return out, nil
}

func (s *ChromeSession) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := run(ctx, s.ctx, s.opts.ActionTimeout, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	return nil
}

// Close releases all resources.
func (s *ChromeSession) Close() error {
	if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn().Err(err).Msg("Browser cancel returned an error")
	}
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	s.cleanup = nil
	return nil
}

// ChromePage is a table.Page over a chromedp tab.
type ChromePage struct {
	ctx     context.Context
	timeout time.Duration
}

// NewChromePage binds a table.Page to an existing chromedp context, e.g. one
// created by a test harness. timeout bounds each single operation.
func NewChromePage(browserCtx context.Context, timeout time.Duration) *ChromePage {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromePage{ctx: browserCtx, timeout: timeout}
}

// run executes actions against the tab in browserCtx. The caller's ctx only
// contributes cancellation and its deadline; chromedp needs the tab context.
func run(ctx, browserCtx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(browserCtx, actionDeadline(ctx, timeout))
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
	}
	return err
}

func (p *ChromePage) eval(ctx context.Context, js string, res any) error {
	return run(ctx, p.ctx, p.timeout, chromedp.Evaluate(js, res))
}

func (p *ChromePage) Count(ctx context.Context, selector string) (int, error) {
	var n int
	if err := p.eval(ctx, script(countScript, selector), &n); err != nil {
		return 0, fmt.Errorf("failed to count %q: %w", selector, err)
	}
	return n, nil
}

func (p *ChromePage) Text(ctx context.Context, selector string) (string, error) {
	var res lookup
	if err := p.eval(ctx, script(textScript, selector), &res); err != nil {
		return "", fmt.Errorf("failed to read text of %q: %w", selector, err)
	}
	if !res.Found {
		return "", fmt.Errorf("%w: %q", table.ErrElementNotFound, selector)
	}
	return res.Value, nil
}

func (p *ChromePage) Texts(ctx context.Context, selector string) ([]string, error) {
	var texts []string
	if err := p.eval(ctx, script(textsScript, selector), &texts); err != nil {
		return nil, fmt.Errorf("failed to read texts of %q: %w", selector, err)
	}
	if texts == nil {
		texts = []string{}
	}
	return texts, nil
}

func (p *ChromePage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	var res lookup
	if err := p.eval(ctx, script(attributeScript, selector, name), &res); err != nil {
		return "", false, fmt.Errorf("failed to read %s of %q: %w", name, selector, err)
	}
	return res.Value, res.Present, nil
}

func (p *ChromePage) Click(ctx context.Context, selector string) error {
	if err := p.mustExist(ctx, selector); err != nil {
		return err
	}
	return run(ctx, p.ctx, p.timeout, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *ChromePage) DoubleClick(ctx context.Context, selector string) error {
	if err := p.mustExist(ctx, selector); err != nil {
		return err
	}
	return run(ctx, p.ctx, p.timeout, chromedp.DoubleClick(selector, chromedp.ByQuery))
}

// mustExist fails fast on a missing element; chromedp would otherwise wait for
// it until the action timeout.
func (p *ChromePage) mustExist(ctx context.Context, selector string) error {
	n, err := p.Count(ctx, selector)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", table.ErrElementNotFound, selector)
	}
	return nil
}

func (p *ChromePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := run(ctx, p.ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%q not visible within %s: %w", selector, timeout, err)
	}
	return nil
}

var (
	_ Browser    = (*ChromeSession)(nil)
	_ table.Page = (*ChromePage)(nil)
)
