package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/bsscheck/internal/browser"
	"github.com/ternarybob/bsscheck/internal/common"
	"github.com/ternarybob/bsscheck/internal/search"
	"github.com/ternarybob/bsscheck/internal/table"
)

// tableConfig applies the [table] section to the DataTables defaults for root.
func tableConfig(cfg *common.Config, root string) table.Config {
	tc := table.DefaultConfig(root)
	tc.MaxPages = cfg.Table.MaxPages
	tc.SettleTimeout = common.ParseDurationOr(cfg.Table.SettleTimeout, table.DefaultSettleTimeout)
	tc.PollInterval = common.ParseDurationOr(cfg.Table.PollInterval, table.DefaultPollInterval)
	return tc
}

func sortOptions(cfg *common.Config, caseInsensitive bool) []table.SortOption {
	opts := []table.SortOption{table.WithDateLayout(cfg.Table.DateLayout)}
	if caseInsensitive || cfg.Table.CaseInsensitive {
		opts = append(opts, table.WithCaseInsensitive())
	}
	return opts
}

// session is an open browser positioned on one list page.
type session struct {
	browser browser.Browser
	url     string
}

// openPage starts the configured browser and loads path, waiting for root to render.
func openPage(ctx context.Context, path, root string) (*session, error) {
	target, err := common.ResolveURL(config.App.BaseURL, path)
	if err != nil {
		return nil, err
	}

	b, err := browser.Open(browser.OptionsFromConfig(config), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info().Str("url", target).Str("driver", config.Browser.Driver).Msg("Opening page")
	if err := b.Navigate(ctx, target); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to load %s: %w", target, err)
	}
	if root != "" {
		if err := b.Page().WaitVisible(ctx, root, browser.OptionsFromConfig(config).NavigationTimeout); err != nil {
			b.Close()
			return nil, fmt.Errorf("table %s did not appear on %s: %w", root, target, err)
		}
	}
	return &session{browser: b, url: target}, nil
}

func (s *session) newTable(root string) *table.Table {
	return table.New(s.browser.Page(), tableConfig(config, root), logger)
}

// screenshot saves the current tab under the results directory, returning "" on failure.
func (s *session) screenshot(ctx context.Context, name string) string {
	if !config.Results.Screenshots {
		return ""
	}
	path, err := browser.ScreenshotPath(config.Results.Dir, name)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to prepare screenshot path")
		return ""
	}
	if err := s.browser.Screenshot(ctx, path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to capture screenshot")
		return ""
	}
	logger.Info().Str("path", path).Msg("Screenshot saved")
	return path
}

func (s *session) Close() {
	if err := s.browser.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close browser")
	}
}

// apiClient builds a search client. With s set, requests carry the tab's cookies.
func apiClient(ctx context.Context, s *session) (*search.Client, error) {
	timeout := common.ParseDurationOr(config.API.RequestTimeout, 30*time.Second)
	if s == nil {
		return search.NewClient(config.App.BaseURL, nil, timeout, logger)
	}
	cookies, err := s.browser.Cookies(ctx, config.App.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}
	logger.Debug().Int("cookies", len(cookies)).Msg("Reusing browser session for API calls")
	return search.NewClient(config.App.BaseURL, cookies, timeout, logger)
}
