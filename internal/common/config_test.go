package common

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestNewDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Table.MaxPages != 100 {
		t.Errorf("MaxPages = %d, want 100", cfg.Table.MaxPages)
	}
	if cfg.Table.DateLayout != "02-Jan-2006" {
		t.Errorf("DateLayout = %q", cfg.Table.DateLayout)
	}
}

func TestLoadFromFilesLayering(t *testing.T) {
	base := writeConfig(t, "base.toml", `
[app]
base_url = "https://bss.uat.example"
environment = "uat"

[table]
max_pages = 20
settle_timeout = "5s"

[logging]
level = "debug"
`)
	override := writeConfig(t, "override.toml", `
[table]
max_pages = 40
case_insensitive = true
`)

	cfg, err := LoadFromFiles(base, "", override)
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}

	if cfg.App.BaseURL != "https://bss.uat.example" {
		t.Errorf("BaseURL = %q", cfg.App.BaseURL)
	}
	if cfg.Table.MaxPages != 40 {
		t.Errorf("MaxPages = %d, want later file to win", cfg.Table.MaxPages)
	}
	if !cfg.Table.CaseInsensitive {
		t.Error("CaseInsensitive should come from override.toml")
	}
	if cfg.Table.SettleTimeout != "5s" {
		t.Errorf("SettleTimeout = %q, want value kept from base.toml", cfg.Table.SettleTimeout)
	}
	if cfg.Browser.Driver != "chromedp" {
		t.Errorf("Driver = %q, want default", cfg.Browser.Driver)
	}
}

func TestLoadFromFilesErrors(t *testing.T) {
	if _, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := writeConfig(t, "bad.toml", "[table\nmax_pages = ")
	_, err := LoadFromFiles(bad)
	if err == nil || !strings.Contains(err.Error(), "file 1 of 1") {
		t.Errorf("expected parse error naming the file position, got %v", err)
	}
}

func TestEnvOverridesBeatFiles(t *testing.T) {
	path := writeConfig(t, "bss.toml", `
[app]
base_url = "https://from-file.example"

[browser]
headless = true
`)
	t.Setenv("BSS_BASE_URL", "https://from-env.example")
	t.Setenv("BSS_ENV", "dev")
	t.Setenv("BSS_BROWSER_DRIVER", "Playwright")
	t.Setenv("BSS_HEADLESS", "false")
	t.Setenv("BSS_MAX_PAGES", "7")
	t.Setenv("BSS_LOG_LEVEL", "WARN")
	t.Setenv("BSS_RESULTS_DIR", "/tmp/bss-results")
	t.Setenv("CHROME_PATH", "/opt/chromium/chrome")

	cfg, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}

	if cfg.App.BaseURL != "https://from-env.example" {
		t.Errorf("BaseURL = %q", cfg.App.BaseURL)
	}
	if cfg.App.Environment != "dev" {
		t.Errorf("Environment = %q", cfg.App.Environment)
	}
	if cfg.Browser.Driver != "playwright" {
		t.Errorf("Driver = %q", cfg.Browser.Driver)
	}
	if cfg.Browser.Headless {
		t.Error("Headless should be false from env")
	}
	if cfg.Table.MaxPages != 7 {
		t.Errorf("MaxPages = %d", cfg.Table.MaxPages)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
	if cfg.Results.Dir != "/tmp/bss-results" {
		t.Errorf("Results.Dir = %q", cfg.Results.Dir)
	}
	if cfg.Browser.ExecPath != "/opt/chromium/chrome" {
		t.Errorf("ExecPath = %q", cfg.Browser.ExecPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("env-derived config should validate: %v", err)
	}
}

func TestInvalidEnvValuesAreIgnored(t *testing.T) {
	t.Setenv("BSS_HEADLESS", "sometimes")
	t.Setenv("BSS_MAX_PAGES", "many")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}
	if !cfg.Browser.Headless || cfg.Table.MaxPages != 100 {
		t.Errorf("unparseable env values should leave defaults, got headless=%v max_pages=%d",
			cfg.Browser.Headless, cfg.Table.MaxPages)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, "https://flag.example", "PLAYWRIGHT", "")

	if cfg.App.BaseURL != "https://flag.example" {
		t.Errorf("BaseURL = %q", cfg.App.BaseURL)
	}
	if cfg.Browser.Driver != "playwright" {
		t.Errorf("Driver = %q", cfg.Browser.Driver)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("empty flag should not override level, got %q", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Browser.Driver = "selenium" }, "Driver"},
		{"relative base url", func(c *Config) { c.App.BaseURL = "bss/subjects" }, "BaseURL"},
		{"zero max pages", func(c *Config) { c.Table.MaxPages = 0 }, "MaxPages"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "Level"},
		{"bad duration", func(c *Config) { c.Table.SettleTimeout = "soon" }, "table.settle_timeout"},
		{"negative duration", func(c *Config) { c.API.RequestTimeout = "-1s" }, "api.request_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDurationOr(t *testing.T) {
	if got := ParseDurationOr("250ms", time.Second); got != 250*time.Millisecond {
		t.Errorf("got %v", got)
	}
	if got := ParseDurationOr("", time.Second); got != time.Second {
		t.Errorf("empty: got %v", got)
	}
	if got := ParseDurationOr("later", time.Second); got != time.Second {
		t.Errorf("invalid: got %v", got)
	}
}

func TestIsProduction(t *testing.T) {
	cfg := NewDefaultConfig()
	for env, want := range map[string]bool{"prod": true, " Production ": true, "uat": false, "local": false} {
		cfg.App.Environment = env
		if got := cfg.IsProduction(); got != want {
			t.Errorf("IsProduction(%q) = %v, want %v", env, got, want)
		}
	}
}

func TestDeploymentConfigLoads(t *testing.T) {
	cfg, err := LoadFromFiles(filepath.Join("..", "..", "deployments", "local", "bsscheck.toml"))
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("deployment config should validate: %v", err)
	}
	if got := strings.Join(cfg.Logging.Output, ","); got != "stdout,file" {
		t.Errorf("Logging.Output = %q", got)
	}
}
