package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/bsscheck/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <endpoint>",
	Short: "Call a list's search endpoint and print the results",
	Long: `Sends a DataTables search request to a BS-Select list endpoint and prints the
record counts and, with --field, the chosen field of every returned row.

With --session-path, a browser is opened on that page first and its cookies are
sent with the request, so the call runs as the browser's user. A 403 means the
user cannot see the list and exits non-zero.`,
	Example: `  bsscheck search /bss/gpPracticeGroup/search --filter groupName=bs1 --sort active:desc --field groupName
  bsscheck search /bss/subjects/search --session-path /bss/subjects --length -1`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var (
	searchSessionPath string
	searchText        string
	searchFilters     []string
	searchSorts       []string
	searchStart       int
	searchLength      int
	searchFields      []string
	searchSpec        string
	searchRaw         bool
)

func init() {
	searchCmd.Flags().StringVar(&searchSessionPath, "session-path", "", "Open this page in a browser and reuse its cookies")
	searchCmd.Flags().StringVar(&searchText, "text", "", "Global search text")
	searchCmd.Flags().StringArrayVar(&searchFilters, "filter", nil, "Column filter as column=text (repeatable)")
	searchCmd.Flags().StringArrayVar(&searchSorts, "sort", nil, "Sort as column[:asc|desc] (repeatable, first is primary)")
	searchCmd.Flags().IntVar(&searchStart, "start", 0, "Row offset")
	searchCmd.Flags().IntVar(&searchLength, "length", 10, "Page length, -1 for all rows")
	searchCmd.Flags().StringSliceVar(&searchFields, "field", nil, "Row fields to print, gjson paths such as gpPractice.code")
	searchCmd.Flags().StringVar(&searchSpec, "specification", "", "searchSpecification value")
	searchCmd.Flags().BoolVar(&searchRaw, "raw", false, "Print the response body as returned")
}

// buildSearchRequest turns the search flags into a request.
func buildSearchRequest(text string, filters, sorts []string, start, length int, spec string) (*search.Request, error) {
	req := search.NewRequest().Page(start, length).Search(text).Specification(spec)
	for _, f := range filters {
		column, value, ok := strings.Cut(f, "=")
		if !ok || column == "" {
			return nil, fmt.Errorf("invalid --filter %q, want column=text", f)
		}
		req.ColumnSearch(column, value)
	}
	for _, s := range sorts {
		column, dir, _ := strings.Cut(s, ":")
		if column == "" {
			return nil, fmt.Errorf("invalid --sort %q, want column[:asc|desc]", s)
		}
		switch strings.ToLower(dir) {
		case "", "asc":
			req.SortBy(column, false)
		case "desc":
			req.SortBy(column, true)
		default:
			return nil, fmt.Errorf("invalid --sort %q, direction must be asc or desc", s)
		}
	}
	return req, req.Validate()
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	req, err := buildSearchRequest(searchText, searchFilters, searchSorts, searchStart, searchLength, searchSpec)
	if err != nil {
		return err
	}

	var s *session
	if searchSessionPath != "" {
		if s, err = openPage(ctx, searchSessionPath, ""); err != nil {
			return err
		}
		defer s.Close()
	}

	client, err := apiClient(ctx, s)
	if err != nil {
		return err
	}

	res, err := client.Search(ctx, args[0], req)
	var se *search.StatusError
	if errors.As(err, &se) && se.Code == http.StatusForbidden {
		return fmt.Errorf("access denied to %s: the session user cannot view this list", args[0])
	}
	if err != nil {
		return err
	}

	if searchRaw {
		_, err := os.Stdout.Write(append(res.Raw(), '\n'))
		return err
	}

	fmt.Printf("recordsTotal: %d\nrecordsFiltered: %d\nreturned: %d\n", res.RecordsTotal, res.RecordsFiltered, len(res.Results))
	if len(searchFields) == 0 {
		return nil
	}

	data := make([][]string, len(res.Results))
	columns := make([][]string, len(searchFields))
	for i, f := range searchFields {
		columns[i] = res.Values(f)
	}
	for r := range res.Results {
		row := make([]string, len(searchFields))
		for c := range searchFields {
			row[c] = columns[c][r]
		}
		data[r] = row
	}
	return render(os.Stdout, searchFields, data)
}
