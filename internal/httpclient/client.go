package httpclient

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// NewHTTPClientWithCookies creates an HTTP client whose cookie jar is seeded
// with cookies taken from a logged-in browser session, so API calls run as
// the same user.
func NewHTTPClientWithCookies(baseURL string, cookies []*http.Cookie, timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &http.Client{
		Jar:     jar,
		Timeout: timeout,
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	// Group cookies by domain so the jar accepts each one for its declared domain
	cookiesByDomain := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			domain = base.Hostname()
		}
		cookiesByDomain[domain] = append(cookiesByDomain[domain], c)
	}

	for domain, domainCookies := range cookiesByDomain {
		domainURL := &url.URL{Scheme: base.Scheme, Host: domain, Path: "/"}
		if domain == base.Hostname() {
			// Keep the port; the jar ignores it for matching but the URL must be valid
			domainURL.Host = base.Host
		}
		client.Jar.SetCookies(domainURL, domainCookies)
	}

	return client, nil
}
