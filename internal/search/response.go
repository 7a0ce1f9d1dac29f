package search

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Response is a parsed search response. Rows are kept as gjson results so callers
// can read any field path without a struct per list.
type Response struct {
	Draw            int
	RecordsTotal    int
	RecordsFiltered int
	Results         []gjson.Result
	raw             []byte
}

var errInvalidJSON = errors.New("response is not valid JSON")

// ParseResponse reads draw, recordsTotal, recordsFiltered and the row array.
// Rows are taken from "results", falling back to the DataTables default "data".
func ParseResponse(body []byte) (*Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, errInvalidJSON
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, fmt.Errorf("response is a JSON %s, want object", doc.Type)
	}

	rows := doc.Get("results")
	if !rows.Exists() {
		rows = doc.Get("data")
	}
	if rows.Exists() && !rows.IsArray() {
		return nil, fmt.Errorf("results is a JSON %s, want array", rows.Type)
	}

	return &Response{
		Draw:            int(doc.Get("draw").Int()),
		RecordsTotal:    int(doc.Get("recordsTotal").Int()),
		RecordsFiltered: int(doc.Get("recordsFiltered").Int()),
		Results:         rows.Array(),
		raw:             body,
	}, nil
}

// Values returns field of every row as a string, in row order. path uses gjson
// syntax, so nested fields such as "gpPractice.code" work.
func (r *Response) Values(path string) []string {
	out := make([]string, len(r.Results))
	for i, row := range r.Results {
		out[i] = row.Get(path).String()
	}
	return out
}

// Get reads any path from the raw response body.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

// Raw returns the response body.
func (r *Response) Raw() []byte { return r.raw }
