package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/webmap/internal/graph"
	"github.com/nao1215/webmap/internal/model"
)

// Configuration errors returned before a crawl run starts.
var (
	// ErrEmptySeedURL is returned when the seed URL is empty.
	ErrEmptySeedURL = fmt.Errorf("seed URL must not be empty")

	// ErrRelativeSeedURL is returned when the seed URL is not an
	// absolute URL with scheme and authority.
	ErrRelativeSeedURL = fmt.Errorf("seed URL must be absolute with scheme and host")
)

// Spider crawls a website breadth-first from a seed URL and builds a
// directed graph of pages annotated with HTTP status, out-degree, and
// parameter acceptance.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
//
// A Spider runs exactly one crawl. The frontier, visited set, and graph
// store belong to that single run and are never shared; create a new
// Spider for each run.
type Spider struct {
	// fetcher performs page fetches. Transport failures are non-fatal.
	fetcher Fetcher

	// maxPages limits the total number of processed pages. The visited
	// set, which also counts policy-skipped URLs, is measured against
	// this budget, matching the admission behavior described below.
	maxPages int

	// maxDepth limits how many hops from the seed are crawled.
	// 0 means only the seed page.
	maxDepth int

	// sameDomainOnly restricts fetching to the seed's authority.
	// Cross-domain URLs still appear as edge targets.
	sameDomainOnly bool

	// detectParams enables parameter-acceptance inference from query
	// strings on fetched and discovered URLs. Form actions are marked
	// as accepting parameters regardless of this setting.
	detectParams bool

	// delay is the politeness pause between frontier items.
	delay time.Duration

	// events receives progress notifications. Sends never block; when
	// the buffer is full the event is dropped with a warning.
	events chan model.ProgressEvent

	// dropped counts events discarded because the buffer was full.
	dropped int

	// logger is used for the crawl trace (fetches, skips, errors).
	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the page budget for the run.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = n
	}
}

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed plus directly linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithSameDomainOnly restricts fetching to the seed URL's authority.
func WithSameDomainOnly(same bool) SpiderOption {
	return func(s *Spider) {
		s.sameDomainOnly = same
	}
}

// WithDetectParams enables or disables parameter-acceptance inference.
func WithDetectParams(detect bool) SpiderOption {
	return func(s *Spider) {
		s.detectParams = detect
	}
}

// WithDelay sets the politeness delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithEventBuffer sets the progress event channel capacity.
func WithEventBuffer(size int) SpiderOption {
	return func(s *Spider) {
		if size > 0 {
			s.events = make(chan model.ProgressEvent, size)
		}
	}
}

// WithSpiderLogger sets the logger for the crawl trace.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider with the given fetcher.
func NewSpider(fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:        fetcher,
		maxPages:       200,
		maxDepth:       3,
		sameDomainOnly: true,
		detectParams:   true,
		events:         make(chan model.ProgressEvent, 256),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Events returns the progress event channel. The channel is closed when
// Crawl returns, so observers can range over it. Events are a lossy
// side channel: the CrawlResult returned by Crawl is the single source
// of truth.
func (s *Spider) Events() <-chan model.ProgressEvent {
	return s.events
}

// frontierItem is a pending fetch: the raw URL (query string intact)
// and its hop distance from the seed.
type frontierItem struct {
	rawURL string
	depth  int
}

// Crawl runs the breadth-first crawl from seedURL and returns the
// finalized graph. The run always reaches a terminal state: transport
// and extraction failures degrade individual nodes but never abort the
// run, and cancellation finalizes whatever was collected so far (the
// result's Cancelled flag is set instead of returning an error).
func (s *Spider) Crawl(ctx context.Context, seedURL string) (*model.CrawlResult, error) {
	defer close(s.events)

	seedURL = strings.TrimSpace(seedURL)
	if seedURL == "" {
		return nil, ErrEmptySeedURL
	}
	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	if seed.Scheme == "" || seed.Host == "" {
		return nil, ErrRelativeSeedURL
	}

	result := model.NewCrawlResult(seedURL)
	result.StartedAt = time.Now()

	seedAuthority := strings.ToLower(seed.Host)
	store := graph.New()
	visited := make(map[string]struct{})
	frontier := []frontierItem{{rawURL: seedURL, depth: 0}}

	for len(frontier) > 0 && len(visited) < s.maxPages {
		// Cancellation takes effect at the top of the step loop; the
		// finalize pass below still runs over everything collected.
		select {
		case <-ctx.Done():
			s.logger.Warn("crawl cancelled", "reason", ctx.Err())
			result.Cancelled = true
			frontier = nil
			continue
		default:
		}

		item := frontier[0]
		frontier = frontier[1:]

		if item.depth > s.maxDepth {
			continue
		}

		// Keep the query string for parameter detection; identity is
		// decided by the canonical form.
		norm := StripFragment(item.rawURL)
		canon := Canonicalize(norm)
		if _, seen := visited[canon]; seen {
			continue
		}

		if s.sameDomainOnly && authority(item.rawURL) != seedAuthority {
			s.logger.Info("skipping external domain", "url", item.rawURL)
			visited[canon] = struct{}{}
			continue
		}

		s.logger.Info("fetching",
			"progress", fmt.Sprintf("%d/%d", len(visited)+1, s.maxPages),
			"depth", item.depth,
			"url", norm,
		)

		res, err := s.fetcher.Fetch(ctx, norm)
		result.PagesFetched++

		node := store.UpsertNode(canon)
		if err != nil {
			s.logger.Warn("fetch failed", "url", norm, "error", err)
		} else {
			node.SetStatus(res.StatusCode)
		}
		visited[canon] = struct{}{}

		if s.detectParams && HasQuery(norm) {
			node.AddParamExample(norm)
			s.logger.Debug("params detected in URL", "url", norm)
		}
		s.emit(model.NodeUpdated(node))

		if res != nil && isHTML(res.ContentType) && len(res.Body) > 0 {
			frontier = s.processBody(item, canon, res, store, visited, frontier)
		}

		if s.delay > 0 && len(frontier) > 0 {
			select {
			case <-ctx.Done():
				s.logger.Warn("crawl cancelled during delay", "reason", ctx.Err())
				result.Cancelled = true
				frontier = nil
			case <-time.After(s.delay):
			}
		}
	}

	result.Nodes, result.Adjacency = store.Finalize()
	result.FinishedAt = time.Now()

	if s.dropped > 0 {
		s.logger.Warn("progress events dropped", "count", s.dropped)
	}
	s.logger.Info("crawl finished",
		"nodes", result.NodeCount(),
		"edges", result.EdgeCount(),
		"fetched", result.PagesFetched,
		"cancelled", result.Cancelled,
	)

	return result, nil
}

// processBody extracts links from a fetched HTML body, records edges
// and parameter examples, and admits new targets to the frontier.
// It returns the updated frontier.
func (s *Spider) processBody(item frontierItem, canon string, res *FetchResult, store *graph.Store, visited map[string]struct{}, frontier []frontierItem) []frontierItem {
	base := res.EffectiveURL
	if base == "" {
		base = StripFragment(item.rawURL)
	}

	parser, err := NewParser(base, s.logger)
	if err != nil {
		s.logger.Warn("HTML parse skipped", "url", base, "error", err)
		return frontier
	}
	links, err := parser.Parse(strings.NewReader(string(res.Body)))
	if err != nil {
		// A body-level parse failure degrades to "no links found".
		s.logger.Warn("HTML parse error", "url", base, "error", err)
		return frontier
	}

	edgesAdded := false
	for _, link := range links {
		toCanon := Canonicalize(link.Target)

		if store.AddEdge(canon, toCanon) {
			edgesAdded = true
			s.emit(model.EdgeAdded(canon, toCanon))
		}

		// Forms always mark their action as accepting parameters;
		// anchors only when detection is on and a query was observed.
		if link.ParamExample != "" && (link.FromForm || s.detectParams) {
			target := store.UpsertNode(toCanon)
			target.AddParamExample(link.ParamExample)
			s.emit(model.NodeUpdated(target))
		}

		// Soft admission check: the frontier is capped by the remaining
		// budget at enqueue time. Discard patterns (depth drops,
		// domain skips) can make this under- or over-admit relative to
		// the final visited count; the visited check at dequeue is what
		// actually guarantees the budget.
		if _, seen := visited[toCanon]; !seen && len(visited)+len(frontier) < s.maxPages {
			frontier = append(frontier, frontierItem{rawURL: link.Target, depth: item.depth + 1})
		}
	}

	// New edges changed the source's out-degree, so observers get a
	// fresh snapshot of the source node too.
	if edgesAdded {
		if src, ok := store.Node(canon); ok {
			s.emit(model.NodeUpdated(src))
		}
	}

	return frontier
}

// emit sends a progress event without ever blocking the crawl.
func (s *Spider) emit(ev model.ProgressEvent) {
	select {
	case s.events <- ev:
	default:
		s.dropped++
	}
}

// isHTML reports whether a Content-Type header indicates HTML.
func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "html")
}
