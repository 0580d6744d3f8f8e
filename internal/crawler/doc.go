// Package crawler implements webmap's crawl engine: URL
// canonicalization, the breadth-first frontier and visited set, link
// and form extraction, and parameter-acceptance inference.
//
// # Architecture
//
// The package is designed around the Spider type, which drives the
// fetch -> extract -> enqueue loop over a FIFO frontier. Node identity
// is the canonical URL produced by Canonicalize; the graph package owns
// accumulation, and the Fetcher interface owns transport.
//
// Design decision: We implement our own crawl loop rather than using a
// third-party crawling framework because:
//  1. The graph semantics (placeholder nodes, out-degree bookkeeping,
//     parameter inference) need tight control over every step
//  2. Budget and admission behavior must be exact for reproducibility
//  3. Frameworks own their frontier and visited set, which this engine
//     must own itself
//
// # Components
//
//   - Spider: the sequential crawl state machine
//   - Parser: HTML extraction of anchors and forms into DiscoveredLinks
//   - Fetcher: the HTTP GET collaborator with timeout and redirects
//   - Canonicalize/StripFragment/HasQuery: URL identity rules
//
// # Error model
//
// Transport and extraction failures are non-fatal: they degrade the
// affected node (absent status, zero links) and the crawl continues.
// Only configuration errors prevent a run from starting. Cancellation
// stops fetching but still finalizes the collected graph.
//
// # Usage
//
//	fetcher := crawler.NewHTTPFetcher(&http.Client{Timeout: 10 * time.Second})
//	spider := crawler.NewSpider(fetcher, crawler.WithMaxPages(100))
//	result, err := spider.Crawl(ctx, "https://example.com")
package crawler
