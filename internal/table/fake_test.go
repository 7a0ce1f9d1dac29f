package table_test

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/ternarybob/bsscheck/internal/dom"
)

// fakeDataTable renders DataTables 1.x markup from in-memory rows and reacts to
// pager and header clicks the way the widget does.
type fakeDataTable struct {
	id        string
	headers   []string
	rows      [][]string
	pageSize  int
	page      int
	sortCol   int
	sortAsc   bool
	firstBtn  bool
	noPager   bool
	stuckNext bool
	deadNext  bool
	advances  int
	dblClicks []int
}

func newFakeDataTable(id string, headers []string, rows [][]string, pageSize int) *fakeDataTable {
	return &fakeDataTable{id: id, headers: headers, rows: rows, pageSize: pageSize, sortCol: -1}
}

func (f *fakeDataTable) pages() int {
	if len(f.rows) == 0 {
		return 1
	}
	return (len(f.rows) + f.pageSize - 1) / f.pageSize
}

func (f *fakeDataTable) visible() [][]string {
	start := f.page * f.pageSize
	if start >= len(f.rows) {
		return nil
	}
	end := start + f.pageSize
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[start:end]
}

func (f *fakeDataTable) next() {
	switch {
	case f.deadNext:
	case f.stuckNext:
		f.advances++
	case f.page < f.pages()-1:
		f.page++
	}
}

func (f *fakeDataTable) goTo(p int) func() {
	return func() { f.page = p }
}

func (f *fakeDataTable) sortBy(col int) func() {
	return func() {
		if f.sortCol == col {
			f.sortAsc = !f.sortAsc
		} else {
			f.sortCol, f.sortAsc = col, true
		}
		sort.SliceStable(f.rows, func(i, j int) bool {
			if f.sortAsc {
				return f.rows[i][col] < f.rows[j][col]
			}
			return f.rows[i][col] > f.rows[j][col]
		})
		f.page = 0
	}
}

func (f *fakeDataTable) html() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><div id="%s_wrapper"><table id="%s"><thead><tr>`, f.id, f.id)
	for i, h := range f.headers {
		class := "sorting"
		if i == f.sortCol {
			class = "sorting_desc"
			if f.sortAsc {
				class = "sorting_asc"
			}
		}
		fmt.Fprintf(&b, `<th class="%s" data-col="%d">%s</th>`, class, i, html.EscapeString(h))
	}
	b.WriteString(`</tr></thead><tbody>`)

	rows := f.visible()
	if len(rows) == 0 {
		fmt.Fprintf(&b, `<tr class="odd"><td valign="top" colspan="%d" class="dataTables_empty">No matching records found</td></tr>`, len(f.headers))
	}
	for _, row := range rows {
		b.WriteString(`<tr>`)
		for _, cell := range row {
			fmt.Fprintf(&b, `<td>%s</td>`, html.EscapeString(cell))
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)

	from, to := f.page*f.pageSize+1, f.page*f.pageSize+len(rows)
	if len(rows) == 0 {
		from = 0
	}
	fmt.Fprintf(&b, `<div id="%s_info">Showing %d to %d of %d entries (advance %d)</div>`, f.id, from, to, len(f.rows), f.advances)

	if !f.noPager {
		last := f.page >= f.pages()-1 && !f.stuckNext
		fmt.Fprintf(&b, `<div id="%s_paginate">`, f.id)
		if f.firstBtn {
			fmt.Fprintf(&b, `<a class="paginate_button first%s">First</a>`, disabled(f.page == 0))
		}
		fmt.Fprintf(&b, `<a class="paginate_button previous%s">Previous</a><span>`, disabled(f.page == 0))
		for p := 0; p < f.pages(); p++ {
			current := ""
			if p == f.page {
				current = " current"
			}
			fmt.Fprintf(&b, `<a class="paginate_button%s" data-dt-idx="%d">%d</a>`, current, p, p+1)
		}
		fmt.Fprintf(&b, `</span><a class="paginate_button next%s">Next</a></div>`, disabled(last))
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func disabled(on bool) string {
	if on {
		return " disabled"
	}
	return ""
}

// page wires the fake's click handlers into an in-memory page.
func (f *fakeDataTable) domPage() *dom.Page {
	p := dom.NewPage(f.html)
	paginate := "#" + f.id + "_paginate"
	p.OnClick(paginate+" .paginate_button.next", f.next)
	p.OnClick(paginate+" .paginate_button.first", f.goTo(0))
	for i := 0; i < f.pages(); i++ {
		p.OnClick(fmt.Sprintf(`%s .paginate_button[data-dt-idx="%d"]`, paginate, i), f.goTo(i))
	}
	for i := range f.headers {
		p.OnClick(fmt.Sprintf(`#%s thead th[data-col="%d"]`, f.id, i), f.sortBy(i))
	}
	for i := 0; i < f.pageSize; i++ {
		i := i
		p.OnDoubleClick(fmt.Sprintf("#%s tbody > tr:nth-child(%d)", f.id, i+1), func() {
			f.dblClicks = append(f.dblClicks, f.page*f.pageSize+i)
		})
	}
	return p
}

func sequentialRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("%d", i+1), fmt.Sprintf("Subject %02d", i+1)}
	}
	return rows
}
