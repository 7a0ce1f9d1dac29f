package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/bsscheck/internal/browser"
)

var (
	screenshotDir     string
	screenshotDirErr  error
	screenshotDirOnce sync.Once
)

// runScreenshotDir is shared by every test in one `go test` invocation:
// $BSS_RESULTS_DIR/ui-<stamp>, or ../results/ui-<stamp>. ScreenshotPath adds screenshots/.
func runScreenshotDir() (string, error) {
	screenshotDirOnce.Do(func() {
		base := os.Getenv("BSS_RESULTS_DIR")
		if base == "" {
			base = filepath.Join("..", "results")
		}
		screenshotDir = filepath.Join(base, time.Now().Format("ui-20060102-150405"))
		if err := os.MkdirAll(screenshotDir, 0755); err != nil {
			screenshotDirErr = fmt.Errorf("failed to create test run directory: %w", err)
		}
	})
	return screenshotDir, screenshotDirErr
}

// TakeScreenshot saves the current tab under the run directory.
func TakeScreenshot(ctx context.Context, b browser.Browser, name string) error {
	dir, err := runScreenshotDir()
	if err != nil {
		return err
	}
	path, err := browser.ScreenshotPath(dir, name)
	if err != nil {
		return err
	}
	return b.Screenshot(ctx, path)
}
