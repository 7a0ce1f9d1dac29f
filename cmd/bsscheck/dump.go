package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ternarybob/bsscheck/internal/dom"
	"github.com/ternarybob/bsscheck/internal/table"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print a list table as the checks see it",
	Long: `Prints the header and the rows of the current page of a table. With --column
and --all-pages, walks every page and prints that column only. --html reads a
saved page instead of opening a browser.`,
	Example: `  bsscheck dump --path /bss/gpPracticeGroup --table "#gpPracticeGroupList"
  bsscheck dump --html saved.html --table "#subjectList" --column "NHS Number"`,
	RunE: runDump,
}

var (
	dumpPath     string
	dumpTable    string
	dumpColumn   string
	dumpAllPages bool
	dumpHTML     string
)

func init() {
	dumpCmd.Flags().StringVar(&dumpPath, "path", "", "Page path relative to the base URL")
	dumpCmd.Flags().StringVar(&dumpTable, "table", "", "CSS selector of the table element")
	dumpCmd.Flags().StringVar(&dumpColumn, "column", "", "Print only this column")
	dumpCmd.Flags().BoolVar(&dumpAllPages, "all-pages", false, "Walk every page (requires --column)")
	dumpCmd.Flags().StringVar(&dumpHTML, "html", "", "Read a saved HTML file instead of opening a browser")
	dumpCmd.MarkFlagRequired("table")
}

func runDump(cmd *cobra.Command, args []string) error {
	if dumpAllPages && dumpColumn == "" {
		return fmt.Errorf("--all-pages requires --column")
	}
	if err := table.ValidateRoot(dumpTable); err != nil {
		return err
	}
	if dumpHTML == "" && dumpPath == "" {
		return fmt.Errorf("one of --path or --html is required")
	}
	ctx := cmd.Context()

	var tbl *table.Table
	if dumpHTML != "" {
		f, err := os.Open(dumpHTML)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", dumpHTML, err)
		}
		page, err := dom.FromReader(f)
		f.Close()
		if err != nil {
			return err
		}
		tbl = table.New(page, tableConfig(config, dumpTable), logger)
	} else {
		s, err := openPage(ctx, dumpPath, dumpTable)
		if err != nil {
			return err
		}
		defer s.Close()
		tbl = s.newTable(dumpTable)
	}

	return dumpTableTo(ctx, os.Stdout, tbl, dumpColumn, dumpAllPages)
}

// dumpTableTo renders every row of the current page, or column alone when set.
func dumpTableTo(ctx context.Context, w io.Writer, tbl *table.Table, column string, allPages bool) error {
	if column != "" {
		var values []string
		var err error
		if allPages {
			values, err = tbl.AllColumnData(ctx, column)
		} else {
			values, err = tbl.ColumnValues(ctx, column)
		}
		if err != nil {
			return err
		}
		data := make([][]string, len(values))
		for i, v := range values {
			data[i] = []string{fmt.Sprint(i + 1), v}
		}
		return render(w, []string{"#", column}, data)
	}

	headers, err := tbl.Headers(ctx)
	if err != nil {
		return err
	}
	rows, err := tbl.Rows(ctx)
	if err != nil {
		return err
	}
	names := headers.Names()
	data := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(names))
		for j, name := range names {
			cells[j] = row[name]
		}
		data[i] = cells
	}
	if err := render(w, names, data); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d row(s)\n", len(rows))
	return nil
}

func render(w io.Writer, header []string, data [][]string) error {
	tw := tablewriter.NewWriter(w)
	cols := make([]any, len(header))
	for i, h := range header {
		cols[i] = h
	}
	tw.Header(cols...)
	if err := tw.Bulk(data); err != nil {
		return fmt.Errorf("failed to build table: %w", err)
	}
	return tw.Render()
}
