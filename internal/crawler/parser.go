package crawler

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// HTML element names that contribute named form fields.
const (
	htmlElementInput    = "input"
	htmlElementSelect   = "select"
	htmlElementTextarea = "textarea"
)

// DiscoveredLink is a single target discovered on a fetched page: an
// anchor href or a form action, resolved against the page's effective
// base URL with the fragment stripped.
type DiscoveredLink struct {
	// Target is the absolute, fragment-stripped URL of the discovered
	// endpoint. The query string is preserved so the engine can infer
	// parameter acceptance before canonicalization.
	Target string

	// ParamExample illustrates how the target accepts input. For anchors
	// it is set only when the resolved URL carries a query string (the
	// full URL itself). For forms it is always set: a synthesized GET
	// URL with name=example pairs, a "METHOD form -> action params: a,b"
	// descriptor for non-GET methods, or the bare action URL when the
	// form has no named fields.
	ParamExample string

	// FromForm is true when the link came from a form action rather
	// than an anchor. Form targets always accept parameters; anchor
	// targets only do so when parameter detection is enabled and a
	// query string was observed.
	FromForm bool
}

// Parser extracts discovered links from HTML content.
//
// Design decision: We use golang.org/x/net/html rather than regex
// because it correctly handles the malformed HTML that is common on the
// web, and a single DOM walk collects anchors and forms together.
type Parser struct {
	// baseURL is the effective (post-redirect) URL of the fetched page,
	// used for resolving relative references.
	baseURL *url.URL

	// logger receives warnings for per-element extraction failures.
	logger *slog.Logger
}

// NewParser creates a parser that resolves relative links against the
// given base URL.
func NewParser(baseURL string, logger *slog.Logger) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{baseURL: u, logger: logger}, nil
}

// Parse walks the HTML document and returns discovered links in a
// stable order: all anchors in document order, then all forms in
// document order. Per-element failures (unparseable hrefs or actions)
// are logged and skipped; they never fail the whole page.
func (p *Parser) Parse(content io.Reader) ([]DiscoveredLink, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var anchors []DiscoveredLink
	var forms []DiscoveredLink

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if link, ok := p.extractAnchor(n); ok {
					anchors = append(anchors, link)
				}
			case "form":
				if link, ok := p.extractForm(n); ok {
					forms = append(forms, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return append(anchors, forms...), nil
}

// extractAnchor turns an <a href> element into a discovered link.
// mailto: and javascript: schemes are skipped.
func (p *Parser) extractAnchor(n *html.Node) (DiscoveredLink, bool) {
	href := getAttr(n, "href")
	if href == "" {
		return DiscoveredLink{}, false
	}

	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") {
		return DiscoveredLink{}, false
	}

	resolved, err := p.resolve(href)
	if err != nil {
		p.logger.Warn("skipping unparseable href", "href", href, "error", err)
		return DiscoveredLink{}, false
	}

	link := DiscoveredLink{Target: resolved}
	if HasQuery(resolved) {
		link.ParamExample = resolved
	}
	return link, true
}

// extractForm turns a <form> element into a discovered link with a
// synthesized parameter example. The action defaults to the base URL,
// the method defaults to GET, and named input, select, and textarea
// fields are collected in document order without deduplication.
func (p *Parser) extractForm(n *html.Node) (DiscoveredLink, bool) {
	action := strings.TrimSpace(getAttr(n, "action"))

	var resolved string
	if action == "" {
		resolved = StripFragment(p.baseURL.String())
	} else {
		var err error
		resolved, err = p.resolve(action)
		if err != nil {
			p.logger.Warn("skipping unparseable form action", "action", action, "error", err)
			return DiscoveredLink{}, false
		}
	}

	method := strings.ToUpper(strings.TrimSpace(getAttr(n, "method")))
	if method == "" {
		method = "GET"
	}

	fields := collectFieldNames(n)

	example := resolved
	if len(fields) > 0 {
		if method == "GET" {
			pairs := make([]string, len(fields))
			for i, name := range fields {
				pairs[i] = name + "=example"
			}
			sep := "?"
			if strings.Contains(resolved, "?") {
				sep = "&"
			}
			example = resolved + sep + strings.Join(pairs, "&")
		} else {
			example = fmt.Sprintf("%s form -> %s params: %s", method, resolved, strings.Join(fields, ","))
		}
	}

	return DiscoveredLink{Target: resolved, ParamExample: example, FromForm: true}, true
}

// collectFieldNames gathers the name attributes of input, select, and
// textarea descendants in document order. Unnamed fields are ignored;
// duplicate names are kept.
func collectFieldNames(n *html.Node) []string {
	var fields []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case htmlElementInput, htmlElementSelect, htmlElementTextarea:
				if name := getAttr(n, "name"); name != "" {
					fields = append(fields, name)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return fields
}

// resolve resolves a reference against the base URL and strips the
// fragment.
func (p *Parser) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	resolved := p.baseURL.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String(), nil
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
