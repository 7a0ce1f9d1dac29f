package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ternarybob/bsscheck/internal/common"
	"github.com/ternarybob/bsscheck/internal/report"
	"github.com/ternarybob/bsscheck/internal/search"
	"github.com/ternarybob/bsscheck/internal/table"
)

var verifyCmd = &cobra.Command{
	Use:   "verify-sort",
	Short: "Check a list column is sorted across every page",
	Long: `Opens a list page, optionally clicks a column header to sort it, then walks
every page of the table from the first and checks the column's values are in
order. The outcome is written to the results directory as a run report; the
command exits non-zero when the column is out of order or cannot be read.`,
	Example: `  bsscheck verify-sort --path /bss/gpPracticeGroup --table "#gpPracticeGroupList" --column "Group Name"
  bsscheck verify-sort --path /bss/subjects --table "#subjectList" --column "Date of Birth" --type date --desc --sort-clicks 2`,
	RunE: runVerify,
}

var (
	verifyPath            string
	verifyTable           string
	verifyColumn          string
	verifyType            string
	verifyDescending      bool
	verifySortClicks      int
	verifyCaseInsensitive bool
)

func init() {
	verifyCmd.Flags().StringVar(&verifyPath, "path", "", "Page path relative to the base URL")
	verifyCmd.Flags().StringVar(&verifyTable, "table", "", "CSS selector of the table element, e.g. #gpPracticeGroupList")
	verifyCmd.Flags().StringVar(&verifyColumn, "column", "", "Header text of the column to check")
	verifyCmd.Flags().StringVar(&verifyType, "type", "string", "Value type: string, integer, date or natural")
	verifyCmd.Flags().BoolVar(&verifyDescending, "desc", false, "Expect descending order")
	verifyCmd.Flags().IntVar(&verifySortClicks, "sort-clicks", 0, "Click the column header this many times before checking")
	verifyCmd.Flags().BoolVar(&verifyCaseInsensitive, "case-insensitive", false, "Fold case when comparing strings")
	verifyCmd.MarkFlagRequired("path")
	verifyCmd.MarkFlagRequired("table")
	verifyCmd.MarkFlagRequired("column")
}

// errNotSorted marks a column that was read but is out of order.
var errNotSorted = errors.New("column is not sorted")

func runVerify(cmd *cobra.Command, args []string) error {
	vt, err := table.ParseValueType(verifyType)
	if err != nil {
		return err
	}
	if err := table.ValidateRoot(verifyTable); err != nil {
		return err
	}
	if verifySortClicks < 0 {
		return fmt.Errorf("--sort-clicks must not be negative, got %d", verifySortClicks)
	}
	ctx := cmd.Context()
	common.PrintBanner(os.Stdout, config, logger)
	if config.IsProduction() {
		logger.Warn().Str("base_url", config.App.BaseURL).Msg("Running checks against a production deployment")
	}

	run := report.NewRun(config.App.Environment, config.App.BaseURL)
	// Environment details are fetched while the browser starts.
	envDone := common.Background(ctx, logger, "environmentInfo", func(ctx context.Context) error {
		return recordEnvironment(ctx, run)
	})
	waitEnvironment := func() {
		if err := <-envDone; err != nil {
			logger.Warn().Err(err).Msg("Environment info unavailable")
		}
	}

	s, err := openPage(ctx, verifyPath, verifyTable)
	if err != nil {
		run.Record(report.Check{Name: "open " + verifyPath, Outcome: report.Errored, Error: err.Error()})
		waitEnvironment()
		return finishRun(run)
	}
	defer s.Close()

	tbl := s.newTable(verifyTable)
	logger.Info().
		Str("table", tbl.Root()).
		Str("column", verifyColumn).
		Str("type", vt.String()).
		Bool("ascending", !verifyDescending).
		Msg("Verifying sort order")
	name := fmt.Sprintf("%s %s %s", verifyPath, verifyColumn, direction(!verifyDescending))
	description := fmt.Sprintf("%q on %s is sorted %s as %s", verifyColumn, verifyPath, direction(!verifyDescending), vt)

	run.Time(name, description, func(c *report.Check) error {
		for i := 0; i < verifySortClicks; i++ {
			if err := tbl.SortBy(ctx, verifyColumn); err != nil {
				return fmt.Errorf("failed to sort by %q: %w", verifyColumn, err)
			}
		}
		if dir, err := tbl.SortDirection(ctx, verifyColumn); err == nil && dir != "" {
			c.Details = map[string]any{"header_direction": dir}
		}

		v, err := tbl.VerifySort(ctx, verifyColumn, vt, !verifyDescending, sortOptions(config, verifyCaseInsensitive)...)
		if v != nil {
			if c.Details == nil {
				c.Details = map[string]any{}
			}
			c.Details["pages"] = v.Pages
			c.Details["values"] = len(v.Values)
			if v.BreakIndex >= 0 {
				c.Details["break_index"] = v.BreakIndex
				c.Details["break_values"] = []string{v.Values[v.BreakIndex-1], v.Values[v.BreakIndex]}
			}
		}
		if err == nil && !v.Sorted {
			err = fmt.Errorf("%w: %q is out of order at value %d", errNotSorted, verifyColumn, v.BreakIndex)
		}
		if err != nil {
			c.Screenshot = s.screenshot(ctx, name)
		}
		return err
	}, func(err error) bool {
		// Bad data in the column is a failed check, not a broken run.
		return errors.Is(err, errNotSorted) || errors.Is(err, table.ErrCoercion)
	})

	waitEnvironment()
	return finishRun(run)
}

// recordEnvironment attaches the deployment details from the info endpoint.
func recordEnvironment(ctx context.Context, run *report.Run) error {
	client, err := apiClient(ctx, nil)
	if err != nil {
		return err
	}
	info, err := client.EnvironmentInfo(ctx, config.API.InfoPath)
	if err != nil {
		return err
	}
	run.SetEnvironmentData(search.ApplicationDetails, info.Application)
	run.SetEnvironmentData(search.DatabaseDetails, info.Database)
	return nil
}

// finishRun writes the report and converts the outcome to the command's error.
func finishRun(run *report.Run) error {
	run.Finish()
	path, err := run.Write(config.Results.Dir)
	if err != nil {
		return err
	}

	counts := run.Counts()
	logger.Info().
		Str("run_id", run.ID).
		Int("passed", counts[report.Passed]).
		Int("failed", counts[report.Failed]).
		Int("errors", counts[report.Errored]).
		Str("report", path).
		Msg("Run complete")

	for _, c := range run.Checks {
		fmt.Printf("%-7s %s", c.Outcome, c.Name)
		if c.Error != "" {
			fmt.Printf(": %s", c.Error)
		}
		fmt.Println()
	}
	fmt.Printf("Report: %s\n", path)

	if !run.OK() {
		return errChecksFailed
	}
	return nil
}

func direction(ascending bool) string {
	if ascending {
		return "ascending"
	}
	return "descending"
}
