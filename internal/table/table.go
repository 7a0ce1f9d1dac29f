// Package table reads and verifies DataTables-style HTML tables rendered in a live page.
//
// Every read goes back to the DOM: header maps, row counts and cell text are never
// cached, because sorting, filtering and paging re-render the table body in place.
package table

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
)

// Row maps header name to raw cell text for one table row.
type Row map[string]string

// HeaderMap is an ordered mapping from header name to zero-based column index.
type HeaderMap struct {
	names []string
	index map[string]int
}

// Len returns the number of columns.
func (h HeaderMap) Len() int { return len(h.names) }

// Names returns the header names in column order.
func (h HeaderMap) Names() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Index returns the zero-based column index for name.
func (h HeaderMap) Index(name string) (int, bool) {
	i, ok := h.index[name]
	return i, ok
}

// Name returns the header name at column i.
func (h HeaderMap) Name(i int) (string, bool) {
	if i < 0 || i >= len(h.names) {
		return "", false
	}
	return h.names[i], true
}

// Table is a handle on a rendered table. It holds no DOM state of its own and
// is not safe for concurrent use: the underlying page session is not reentrant.
type Table struct {
	page   Page
	cfg    Config
	logger arbor.ILogger
}

// New returns a Table reading through page. Zero fields of cfg take their defaults.
// cfg.Root is prefixed to the relative selectors as-is, so callers taking a root
// from user input should check it with ValidateRoot first.
func New(page Page, cfg Config, logger arbor.ILogger) *Table {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Table{page: page, cfg: cfg.withDefaults(), logger: logger}
}

// Root returns the root selector of the table.
func (t *Table) Root() string { return t.cfg.Root }

func (t *Table) scoped(rel string) string {
	return t.cfg.Root + " " + rel
}

func (t *Table) rowSelector(i int) string {
	return fmt.Sprintf("%s:nth-child(%d)", t.scoped(t.cfg.RowSelector), i+1)
}

// Headers reads the header row and builds the name to index mapping.
// Blank headers (icon or action columns) are keyed "#<position>".
func (t *Table) Headers(ctx context.Context) (HeaderMap, error) {
	sel := t.scoped(t.cfg.HeaderSelector)
	texts, err := t.page.Texts(ctx, sel)
	if err != nil {
		return HeaderMap{}, fmt.Errorf("failed to read headers %q: %w", sel, err)
	}
	if len(texts) == 0 {
		return HeaderMap{}, fmt.Errorf("%w: no header cells match %q", ErrStructuralMismatch, sel)
	}

	h := HeaderMap{names: make([]string, 0, len(texts)), index: make(map[string]int, len(texts))}
	for i, raw := range texts {
		name := strings.TrimSpace(raw)
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		if prev, dup := h.index[name]; dup {
			return HeaderMap{}, fmt.Errorf("%w: duplicate header %q at columns %d and %d of %q",
				ErrStructuralMismatch, name, prev, i, t.cfg.Root)
		}
		h.index[name] = i
		h.names = append(h.names, name)
	}
	return h, nil
}

// RowCount returns the number of rendered data rows, excluding the header and the
// "no matching records" placeholder. Callers wait for filters to settle first.
func (t *Table) RowCount(ctx context.Context) (int, error) {
	sel := t.scoped(t.cfg.RowSelector)
	n, err := t.page.Count(ctx, sel)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows %q: %w", sel, err)
	}
	if n == 0 {
		return 0, nil
	}
	empty, err := t.page.Count(ctx, t.scoped(t.cfg.EmptyCellSelector))
	if err != nil {
		return 0, fmt.Errorf("failed to count placeholder rows: %w", err)
	}
	if empty > n {
		empty = n
	}
	return n - empty, nil
}

// RowDataWithHeaders returns the cells of row i keyed by header name.
// Cell text is returned raw; trimming is left to the caller.
func (t *Table) RowDataWithHeaders(ctx context.Context, i int) (Row, error) {
	headers, err := t.Headers(ctx)
	if err != nil {
		return nil, err
	}
	count, err := t.RowCount(ctx)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= count {
		return nil, fmt.Errorf("%w: row %d requested, %d rendered in %q", ErrRowOutOfRange, i, count, t.cfg.Root)
	}

	cellSel := t.rowSelector(i) + " > " + t.cfg.CellSelector
	cells, err := t.page.Texts(ctx, cellSel)
	if err != nil {
		return nil, fmt.Errorf("failed to read cells %q: %w", cellSel, err)
	}
	if len(cells) != headers.Len() {
		return nil, fmt.Errorf("%w: row %d has %d cells, header has %d columns (%q)",
			ErrStructuralMismatch, i, len(cells), headers.Len(), cellSel)
	}

	row := make(Row, len(cells))
	for c, text := range cells {
		row[headers.names[c]] = text
	}
	return row, nil
}

// Rows returns every rendered row on the current page keyed by header name.
func (t *Table) Rows(ctx context.Context) ([]Row, error) {
	count, err := t.RowCount(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, count)
	for i := 0; i < count; i++ {
		row, err := t.RowDataWithHeaders(ctx, i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ColumnValues returns the raw text of one column, by header name, on the current page.
func (t *Table) ColumnValues(ctx context.Context, header string) ([]string, error) {
	idx, err := t.columnIndex(ctx, header)
	if err != nil {
		return nil, err
	}
	return t.columnAt(ctx, idx)
}

func (t *Table) columnIndex(ctx context.Context, header string) (int, error) {
	headers, err := t.Headers(ctx)
	if err != nil {
		return 0, err
	}
	idx, ok := headers.Index(header)
	if !ok {
		return 0, fmt.Errorf("%w: header %q not in %v (%q)", ErrColumnNotFound, header, headers.names, t.cfg.Root)
	}
	return idx, nil
}

func (t *Table) checkColumn(ctx context.Context, idx int) error {
	headers, err := t.Headers(ctx)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= headers.Len() {
		return fmt.Errorf("%w: column %d requested, header has %d columns (%q)",
			ErrColumnNotFound, idx, headers.Len(), t.cfg.Root)
	}
	return nil
}

// columnAt reads column idx of every rendered row on the current page.
func (t *Table) columnAt(ctx context.Context, idx int) ([]string, error) {
	count, err := t.RowCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []string{}, nil
	}
	sel := fmt.Sprintf("%s > %s:nth-child(%d)", t.scoped(t.cfg.RowSelector), t.cfg.CellSelector, idx+1)
	values, err := t.page.Texts(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to read column %q: %w", sel, err)
	}
	if len(values) != count {
		return nil, fmt.Errorf("%w: column %d has %d cells across %d rows (%q)",
			ErrStructuralMismatch, idx, len(values), count, sel)
	}
	return values, nil
}

// RowHandle addresses one rendered row for further interaction.
// It is resolved against the DOM on every call.
type RowHandle struct {
	page     Page
	index    int
	selector string
	cell     string
}

// PickRow returns a handle on row i without touching the page.
func (t *Table) PickRow(i int) (*RowHandle, error) {
	if i < 0 {
		return nil, fmt.Errorf("%w: negative row index %d", ErrRowOutOfRange, i)
	}
	return &RowHandle{page: t.page, index: i, selector: t.rowSelector(i), cell: t.cfg.CellSelector}, nil
}

// Index returns the zero-based row index.
func (r *RowHandle) Index() int { return r.index }

// Selector returns the CSS selector of the row.
func (r *RowHandle) Selector() string { return r.selector }

func (r *RowHandle) Click(ctx context.Context) error {
	return r.page.Click(ctx, r.selector)
}

// DoubleClick opens the row's detail view in DataTables lists that navigate on dblclick.
func (r *RowHandle) DoubleClick(ctx context.Context) error {
	return r.page.DoubleClick(ctx, r.selector)
}

func (r *RowHandle) Text(ctx context.Context) (string, error) {
	return r.page.Text(ctx, r.selector)
}

// Cells returns the raw text of every cell in the row.
func (r *RowHandle) Cells(ctx context.Context) ([]string, error) {
	return r.page.Texts(ctx, r.selector+" > "+r.cell)
}
