// Package search calls the BS-Select DataTables server-side search endpoints
// directly, reusing a browser session's cookies.
package search

import (
	"fmt"
	"net/url"
	"strconv"
)

// Request is a DataTables server-side search request in the BS-Select parameter
// dialect. Build it with NewRequest and the chained setters.
type Request struct {
	draw          int
	start         int
	length        int
	searchText    string
	columnSearch  []param
	sort          []param
	specification string
}

type param struct {
	key   string
	value string
}

// NewRequest returns the first page of ten rows, unfiltered and unsorted.
func NewRequest() *Request {
	return &Request{draw: 1, length: 10}
}

// Draw sets the draw counter echoed back by the server.
func (r *Request) Draw(n int) *Request {
	r.draw = n
	return r
}

// Page requests length rows starting at row offset start.
func (r *Request) Page(start, length int) *Request {
	r.start, r.length = start, length
	return r
}

// Search sets the global search text.
func (r *Request) Search(text string) *Request {
	r.searchText = text
	return r
}

// ColumnSearch filters column by text. Setting the same column twice keeps the last value.
func (r *Request) ColumnSearch(column, text string) *Request {
	for i := range r.columnSearch {
		if r.columnSearch[i].key == column {
			r.columnSearch[i].value = text
			return r
		}
	}
	r.columnSearch = append(r.columnSearch, param{key: column, value: text})
	return r
}

// SortBy appends a sort on column. The first call is the primary sort.
func (r *Request) SortBy(column string, descending bool) *Request {
	dir := "asc"
	if descending {
		dir = "desc"
	}
	r.sort = append(r.sort, param{key: column, value: dir})
	return r
}

// Specification sets the searchSpecification parameter used by some lists for saved filters.
func (r *Request) Specification(spec string) *Request {
	r.specification = spec
	return r
}

// Values encodes the request as query parameters:
//
//	draw, start, length, searchText, searchSpecification
//	columnSearchText[<column>]
//	columnSortDirectionWithOrder[<order><column>]
func (r *Request) Values() url.Values {
	v := url.Values{}
	v.Set("draw", strconv.Itoa(r.draw))
	v.Set("start", strconv.Itoa(r.start))
	v.Set("length", strconv.Itoa(r.length))
	v.Set("searchText", r.searchText)
	for _, p := range r.columnSearch {
		v.Set(fmt.Sprintf("columnSearchText[%s]", p.key), p.value)
	}
	for i, p := range r.sort {
		v.Set(fmt.Sprintf("columnSortDirectionWithOrder[%d%s]", i, p.key), p.value)
	}
	v.Set("searchSpecification", r.specification)
	return v
}

// Validate rejects requests the server would answer with a 400.
func (r *Request) Validate() error {
	switch {
	case r.draw < 0:
		return fmt.Errorf("draw must not be negative, got %d", r.draw)
	case r.start < 0:
		return fmt.Errorf("start must not be negative, got %d", r.start)
	case r.length == 0 || r.length < -1:
		return fmt.Errorf("length must be positive or -1 for all rows, got %d", r.length)
	}
	return nil
}
