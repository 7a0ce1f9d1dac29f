package common

import (
	"fmt"
	"io"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the target of the run.
func PrintBanner(w io.Writer, config *Config, logger arbor.ILogger) {
	banner.Print("BSSCheck", GetVersion())

	fmt.Fprintf(w, "  Environment: %s\n", config.App.Environment)
	fmt.Fprintf(w, "  Base URL:    %s\n", config.App.BaseURL)
	fmt.Fprintf(w, "  Browser:     %s (headless: %t)\n", config.Browser.Driver, config.Browser.Headless)
	fmt.Fprintf(w, "  Results:     %s\n\n", config.Results.Dir)

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.App.Environment).
		Str("base_url", config.App.BaseURL).
		Msg("bsscheck starting")
}
