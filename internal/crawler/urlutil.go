package crawler

import (
	"net/url"
	"strings"
)

// Canonicalize returns the canonical form of a URL, which defines node
// identity in the crawl graph: scheme and authority lowercased, empty
// path defaulted to "/", repeated slashes collapsed, trailing slash
// stripped (except for the root path), and query and fragment dropped.
//
// Two URLs that differ only by query, fragment, or trailing-slash and
// double-slash noise canonicalize identically. This is the sole
// node-identity rule.
//
// Canonicalize never fails: malformed input yields a best-effort
// canonical form (possibly with empty scheme or authority) rather than
// an error, and the rest of the pipeline tolerates degenerate forms.
func Canonicalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = normalizePath(u.Path)
	u.RawPath = ""
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	return u.String()
}

// normalizePath defaults an empty path to "/", collapses runs of
// slashes, and strips the trailing slash unless the whole path is the
// root.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}

	var b strings.Builder
	b.Grow(len(path))
	var prevSlash bool
	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}

	collapsed := strings.TrimRight(b.String(), "/")
	if collapsed == "" {
		return "/"
	}
	return collapsed
}

// StripFragment removes only the fragment from a URL, preserving
// scheme, authority, path, and query. The crawl engine fetches the
// fragment-stripped URL so the query string stays available for
// parameter detection before canonicalization discards it.
func StripFragment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// HasQuery reports whether the URL carries a query string.
func HasQuery(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.RawQuery != ""
}

// authority returns the authority (host:port) component of a URL, or
// the empty string if the URL cannot be parsed. Used for domain-scope
// checks against the seed.
func authority(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
