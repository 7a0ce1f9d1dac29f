package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tidwall/gjson"

	"github.com/ternarybob/bsscheck/internal/common"
	"github.com/ternarybob/bsscheck/internal/httpclient"
)

const (
	ApplicationDetails = "Application Details"
	DatabaseDetails    = "Database Details"
)

// maxErrorBody caps how much of a failed response is kept on a StatusError.
const maxErrorBody = 512

// StatusError is returned for non-2xx responses. Access checks assert on Code
// (403 for users without the list).
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.URL, e.Code, e.Body)
}

// Client calls BS-Select JSON endpoints as the user of a browser session.
type Client struct {
	baseURL string
	http    *http.Client
	logger  arbor.ILogger
}

// NewClient returns a Client for baseURL. cookies usually come from
// browser.Browser.Cookies after logging in; nil is allowed for open endpoints.
func NewClient(baseURL string, cookies []*http.Cookie, timeout time.Duration, logger arbor.ILogger) (*Client, error) {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc, err := httpclient.NewHTTPClientWithCookies(baseURL, cookies, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: baseURL, http: hc, logger: logger}, nil
}

func (c *Client) get(ctx context.Context, path string, query string) ([]byte, error) {
	target, err := common.ResolveURL(c.baseURL, path)
	if err != nil {
		return nil, err
	}
	if query != "" {
		target += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, URL: path, Body: strings.TrimSpace(snippet)}
	}
	return body, nil
}

// Search runs req against a list's search endpoint, e.g. "/bss/gpPracticeGroup/search".
func (c *Client) Search(ctx context.Context, path string, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}
	body, err := c.get(ctx, path, req.Values().Encode())
	if err != nil {
		return nil, err
	}
	res, err := ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	if res.Draw != req.draw {
		c.logger.Warn().Int("sent", req.draw).Int("received", res.Draw).Str("path", path).Msg("Draw counter mismatch")
	}
	return res, nil
}

// EnvironmentInfo describes the deployment under test, as served by the info endpoint.
type EnvironmentInfo struct {
	Application map[string]string
	Database    map[string]string
}

// Summary renders one section as sorted "key: value" lines.
func (e *EnvironmentInfo) Summary(section string) string {
	var m map[string]string
	switch section {
	case ApplicationDetails:
		m = e.Application
	case DatabaseDetails:
		m = e.Database
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + m[k]
	}
	return strings.Join(lines, "\n")
}

// EnvironmentInfo fetches path (normally "/bss/info") and flattens the
// application and database sections.
func (c *Client) EnvironmentInfo(ctx context.Context, path string) (*EnvironmentInfo, error) {
	body, err := c.get(ctx, path, "")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse %s response: %w", path, errInvalidJSON)
	}
	doc := gjson.ParseBytes(body)
	return &EnvironmentInfo{
		Application: flatten(doc.Get(gjson.Escape(ApplicationDetails))),
		Database:    flatten(doc.Get(gjson.Escape(DatabaseDetails))),
	}, nil
}

func flatten(section gjson.Result) map[string]string {
	out := map[string]string{}
	section.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.String()
		return true
	})
	return out
}
