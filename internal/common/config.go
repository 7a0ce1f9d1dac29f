package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	App     AppConfig     `toml:"app"`
	Browser BrowserConfig `toml:"browser"`
	Table   TableConfig   `toml:"table"`
	API     APIConfig     `toml:"api"`
	Logging LoggingConfig `toml:"logging"`
	Results ResultsConfig `toml:"results"`
}

type AppConfig struct {
	BaseURL     string `toml:"base_url" validate:"required,url"`  // BS-Select root, e.g. https://bss.example.nhs.uk
	Environment string `toml:"environment" validate:"required"` // Reported with every run, e.g. "dev", "uat"
}

type BrowserConfig struct {
	Driver            string `toml:"driver" validate:"oneof=chromedp playwright"`
	Headless          bool   `toml:"headless"`
	NoSandbox         bool   `toml:"no_sandbox"` // Required when running as root in containers
	WindowWidth       int    `toml:"window_width" validate:"gt=0"`
	WindowHeight      int    `toml:"window_height" validate:"gt=0"`
	UserAgent         string `toml:"user_agent"`
	ExecPath          string `toml:"exec_path"`          // Chrome/Chromium binary; empty searches PATH
	ActionTimeout     string `toml:"action_timeout"`     // e.g. "30s" - single click/read/wait
	NavigationTimeout string `toml:"navigation_timeout"` // e.g. "60s" - page loads
}

type TableConfig struct {
	MaxPages        int    `toml:"max_pages" validate:"gte=1"` // Pagination cap before giving up
	SettleTimeout   string `toml:"settle_timeout"`             // e.g. "10s" - wait for a re-render after a click
	PollInterval    string `toml:"poll_interval"`              // e.g. "100ms"
	DateLayout      string `toml:"date_layout" validate:"required"`
	CaseInsensitive bool   `toml:"case_insensitive"` // Fold case when checking string order
}

type APIConfig struct {
	RequestTimeout string `toml:"request_timeout"`
	InfoPath       string `toml:"info_path" validate:"required"` // Environment details endpoint
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
	Dir        string   `toml:"dir"`         // Log file directory when "file" output is enabled
}

type ResultsConfig struct {
	Dir         string `toml:"dir" validate:"required"` // Run reports and screenshots
	Screenshots bool   `toml:"screenshots"`             // Capture a screenshot when a check fails
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			BaseURL:     "http://localhost:8080",
			Environment: "local",
		},
		Browser: BrowserConfig{
			Driver:            "chromedp",
			Headless:          true,
			WindowWidth:       1920,
			WindowHeight:      1080,
			ActionTimeout:     "30s",
			NavigationTimeout: "60s",
		},
		Table: TableConfig{
			MaxPages:      100,
			SettleTimeout: "10s",
			PollInterval:  "100ms",
			DateLayout:    "02-Jan-2006", // BS-Select renders dates as 01-Jun-1987
		},
		API: APIConfig{
			RequestTimeout: "30s",
			InfoPath:       "/bss/info",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
			Dir:        "./logs",
		},
		Results: ResultsConfig{
			Dir:         "./results",
			Screenshots: true,
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files. Flags are applied by the caller with ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if baseURL := os.Getenv("BSS_BASE_URL"); baseURL != "" {
		config.App.BaseURL = baseURL
	}
	if env := os.Getenv("BSS_ENV"); env != "" {
		config.App.Environment = env
	}

	if driver := os.Getenv("BSS_BROWSER_DRIVER"); driver != "" {
		config.Browser.Driver = strings.ToLower(driver)
	}
	if execPath := os.Getenv("CHROME_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}
	if headless := os.Getenv("BSS_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}

	if maxPages := os.Getenv("BSS_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.Table.MaxPages = mp
		}
	}

	if level := os.Getenv("BSS_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}

	if dir := os.Getenv("BSS_RESULTS_DIR"); dir != "" {
		config.Results.Dir = dir
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, baseURL, driver, logLevel string) {
	if baseURL != "" {
		config.App.BaseURL = baseURL
	}
	if driver != "" {
		config.Browser.Driver = strings.ToLower(driver)
	}
	if logLevel != "" {
		config.Logging.Level = strings.ToLower(logLevel)
	}
}

// Validate checks struct tags and that every duration string parses.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"browser.action_timeout":     c.Browser.ActionTimeout,
		"browser.navigation_timeout": c.Browser.NavigationTimeout,
		"table.settle_timeout":       c.Table.SettleTimeout,
		"table.poll_interval":        c.Table.PollInterval,
		"api.request_timeout":        c.API.RequestTimeout,
	}
	var errs []error
	for key, value := range durations {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %s", key, value))
		}
	}
	return errors.Join(errs...)
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.App.Environment))
	return env == "production" || env == "prod" || env == "live"
}

// ParseDurationOr parses s, returning fallback when s is empty or invalid.
func ParseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
