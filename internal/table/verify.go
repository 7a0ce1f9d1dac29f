package table

import (
	"context"
	"fmt"
	"strings"
)

// Verification is the outcome of VerifySort.
type Verification struct {
	Header    string
	Type      ValueType
	Ascending bool
	Values    []string
	Pages     int
	Sorted    bool
	// BreakIndex is the index of the first out-of-order value, or -1.
	BreakIndex int
}

// Direction returns "ascending" or "descending".
func (v *Verification) Direction() string {
	if v.Ascending {
		return "ascending"
	}
	return "descending"
}

// SortBy clicks the header cell named header and waits for the table to re-render.
// DataTables toggles direction on each click; the header class reflects the result.
func (t *Table) SortBy(ctx context.Context, header string) error {
	idx, err := t.columnIndex(ctx, header)
	if err != nil {
		return err
	}
	sel := fmt.Sprintf("%s:nth-child(%d)", t.scoped(t.cfg.HeaderSelector), idx+1)
	t.logger.Debug().Str("table", t.cfg.Root).Str("header", header).Msg("Sorting by column")
	return t.clickAndSettle(ctx, sel, sel)
}

// SortDirection reads the DataTables sort class of header: "asc", "desc" or "" when unsorted.
func (t *Table) SortDirection(ctx context.Context, header string) (string, error) {
	idx, err := t.columnIndex(ctx, header)
	if err != nil {
		return "", err
	}
	sel := fmt.Sprintf("%s:nth-child(%d)", t.scoped(t.cfg.HeaderSelector), idx+1)
	class, _, err := t.page.Attribute(ctx, sel, "class")
	if err != nil {
		return "", err
	}
	if v, _, err := t.page.Attribute(ctx, sel, "aria-sort"); err == nil {
		switch v {
		case "ascending":
			return "asc", nil
		case "descending":
			return "desc", nil
		}
	}
	for _, c := range strings.Fields(class) {
		switch c {
		case "sorting_asc", "dt-ordering-asc":
			return "asc", nil
		case "sorting_desc", "dt-ordering-desc":
			return "desc", nil
		}
	}
	return "", nil
}

// VerifySort reads header across every page, starting from the first, and checks
// the values are sorted. A coercion failure is returned as an error alongside the
// values that were read.
func (t *Table) VerifySort(ctx context.Context, header string, vt ValueType, ascending bool, opts ...SortOption) (*Verification, error) {
	idx, err := t.columnIndex(ctx, header)
	if err != nil {
		return nil, err
	}
	values, pages, err := t.collect(ctx, idx)
	v := &Verification{Header: header, Type: vt, Ascending: ascending, Values: values, Pages: pages, BreakIndex: -1}
	if err != nil {
		return v, err
	}

	v.BreakIndex, err = FirstOutOfOrder(values, vt, ascending, opts...)
	if err != nil {
		return v, err
	}
	v.Sorted = v.BreakIndex < 0

	t.logger.Info().
		Str("table", t.cfg.Root).
		Str("header", header).
		Str("type", vt.String()).
		Str("direction", v.Direction()).
		Int("values", len(values)).
		Int("pages", pages).
		Bool("sorted", v.Sorted).
		Msg("Verified column order")
	return v, nil
}
