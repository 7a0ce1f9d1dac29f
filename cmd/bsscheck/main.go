package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bsscheck/internal/common"
)

var (
	// Command-line flags
	configFiles  []string // Multiple --config flags supported
	baseURLFlag  string
	driverFlag   string
	logLevelFlag string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

// errChecksFailed is returned when a run completes but a check did not pass.
var errChecksFailed = errors.New("one or more checks failed")

var rootCmd = &cobra.Command{
	Use:   "bsscheck",
	Short: "Verify BS-Select list tables in a real browser",
	Long: `bsscheck reads the DataTables lists of a BS-Select deployment through a
browser, checks sort order across every page and records the outcome as a
JSON run report.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "BS-Select base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Browser driver: chromedp or playwright (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(verifyCmd, dumpCmd, searchCmd, infoCmd, versionCmd)
}

func main() {
	defer common.RecoverWithCrashFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errChecksFailed):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup runs before every subcommand.
// Startup sequence (REQUIRED ORDER):
// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
// 2. Apply CLI overrides (highest priority)
// 3. Validate
// 4. Initialize logger and crash directory
func setup(cmd *cobra.Command, args []string) error {
	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("bsscheck.toml"); err == nil {
			configFiles = append(configFiles, "bsscheck.toml")
		} else if _, err := os.Stat("deployments/local/bsscheck.toml"); err == nil {
			// Fallback: check deployments/local for users running from project root
			configFiles = append(configFiles, "deployments/local/bsscheck.toml")
		}
	}

	cfg, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		return err
	}
	common.ApplyFlagOverrides(cfg, baseURLFlag, driverFlag, logLevelFlag)
	if err := cfg.Validate(); err != nil {
		return err
	}
	config = cfg

	logger = common.InitLogger(config)
	common.InstallCrashHandler(config.Logging.Dir)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("base_url", config.App.BaseURL).
		Str("environment", config.App.Environment).
		Str("driver", config.Browser.Driver).
		Bool("headless", config.Browser.Headless).
		Int("max_pages", config.Table.MaxPages).
		Msg("Resolved configuration")
	return nil
}
