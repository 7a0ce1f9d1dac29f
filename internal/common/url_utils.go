package common

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL joins path onto base. Absolute URLs in path are returned unchanged,
// and a query string on path is preserved.
// ResolveURL("https://bss.example/bss", "/subjects?x=1") -> "https://bss.example/bss/subjects?x=1"
func ResolveURL(base, path string) (string, error) {
	if path == "" {
		return base, nil
	}
	if p, err := url.Parse(path); err == nil && p.IsAbs() {
		return path, nil
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", base)
	}

	rel, query, _ := strings.Cut(path, "?")
	u.Path = joinPath(u.Path, rel)
	u.RawQuery = query
	return u.String(), nil
}

// joinPath joins two URL path segments with exactly one slash between them.
func joinPath(base, rel string) string {
	switch {
	case rel == "":
		return base
	case base == "":
		return rel
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
}
