package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupsJSON = `{
	"draw": 1,
	"recordsTotal": 9,
	"recordsFiltered": 2,
	"results": [
		{"groupName": "BS1 North", "bsoCode": "BS1", "gpPractice": {"code": "A81001"}},
		{"groupName": "BS1 South", "bsoCode": "BS1", "gpPractice": {"code": "A81002"}}
	]
}`

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRequestValues(t *testing.T) {
	v := NewRequest().
		Page(20, 10).
		ColumnSearch("groupName", "bs1").
		ColumnSearch("active", "false").
		ColumnSearch("active", "true").
		SortBy("active", true).
		SortBy("groupName", false).
		Values()

	assert.Equal(t, "1", v.Get("draw"))
	assert.Equal(t, "20", v.Get("start"))
	assert.Equal(t, "10", v.Get("length"))
	assert.Equal(t, "", v.Get("searchText"))
	assert.Equal(t, "bs1", v.Get("columnSearchText[groupName]"))
	assert.Equal(t, "true", v.Get("columnSearchText[active]"))
	assert.Equal(t, "desc", v.Get("columnSortDirectionWithOrder[0active]"))
	assert.Equal(t, "asc", v.Get("columnSortDirectionWithOrder[1groupName]"))
	assert.Contains(t, v, "searchSpecification")
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, NewRequest().Validate())
	assert.NoError(t, NewRequest().Page(0, -1).Validate())
	assert.Error(t, NewRequest().Page(-10, 10).Validate())
	assert.Error(t, NewRequest().Page(0, 0).Validate())
	assert.Error(t, NewRequest().Draw(-1).Validate())
}

func TestSearch(t *testing.T) {
	var got url.Values
	var cookie string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bss/gpPracticeGroup/search", r.URL.Path)
		got = r.URL.Query()
		if c, err := r.Cookie("JSESSIONID"); err == nil {
			cookie = c.Value
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(groupsJSON))
	})

	cookies := []*http.Cookie{{Name: "JSESSIONID", Value: "abc123", Path: "/"}}
	client, err := NewClient(srv.URL, cookies, time.Second, nil)
	require.NoError(t, err)

	req := NewRequest().ColumnSearch("groupName", "bs1").SortBy("active", true)
	res, err := client.Search(context.Background(), "/bss/gpPracticeGroup/search", req)
	require.NoError(t, err)

	assert.Equal(t, "abc123", cookie, "session cookie should be sent")
	assert.Equal(t, "bs1", got.Get("columnSearchText[groupName]"))
	assert.Equal(t, "desc", got.Get("columnSortDirectionWithOrder[0active]"))

	assert.Equal(t, 1, res.Draw)
	assert.Equal(t, 9, res.RecordsTotal)
	assert.Equal(t, 2, res.RecordsFiltered)
	require.Len(t, res.Results, 2)
	assert.Equal(t, []string{"BS1", "BS1"}, res.Values("bsoCode"))
	assert.Equal(t, []string{"A81001", "A81002"}, res.Values("gpPractice.code"))
	assert.Equal(t, int64(9), res.Get("recordsTotal").Int())
}

func TestSearchForbidden(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Access Denied", http.StatusForbidden)
	})
	client, err := NewClient(srv.URL, nil, time.Second, nil)
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "/bss/gpPracticeGroup/search", NewRequest())
	var se *StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, "Access Denied", se.Body)
}

func TestSearchRejectsBadJSON(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login</html>"))
	})
	client, err := NewClient(srv.URL, nil, time.Second, nil)
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "/search", NewRequest())
	assert.ErrorIs(t, err, errInvalidJSON)
}

func TestSearchHonoursContext(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	client, err := NewClient(srv.URL, nil, 5*time.Second, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Search(ctx, "/search", NewRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		rows    int
		wantErr bool
	}{
		{"results array", groupsJSON, 2, false},
		{"datatables data array", `{"draw":3,"data":[{"a":1}]}`, 1, false},
		{"no rows", `{"draw":1,"recordsTotal":0}`, 0, false},
		{"results not array", `{"results":{"a":1}}`, 0, true},
		{"top level array", `[1,2]`, 0, true},
		{"not json", `{"draw":`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseResponse([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, res.Results, tt.rows)
		})
	}
}

func TestEnvironmentInfo(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bss/info", r.URL.Path)
		w.Write([]byte(`{
			"Application Details": {"Version": "5.2.1", "Build": "1234"},
			"Database Details": {"Schema": "bss", "Restored": "01-Jun-2025"}
		}`))
	})
	client, err := NewClient(srv.URL, nil, time.Second, nil)
	require.NoError(t, err)

	info, err := client.EnvironmentInfo(context.Background(), "/bss/info")
	require.NoError(t, err)

	assert.Equal(t, "5.2.1", info.Application["Version"])
	assert.Equal(t, "bss", info.Database["Schema"])
	assert.Equal(t, "Build: 1234\nVersion: 5.2.1", info.Summary(ApplicationDetails))
	assert.Equal(t, "", info.Summary("Unknown"))
}
