package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/webmap/internal/config"
	"github.com/nao1215/webmap/internal/crawler"
	"github.com/nao1215/webmap/internal/database"
	"github.com/nao1215/webmap/internal/model"
	"github.com/nao1215/webmap/internal/report"
)

// CrawlStep performs the web crawl for the result's seed URL.
// It owns the spider lifecycle: spawning it, draining its progress
// events, and copying the terminal result into the pipeline result.
//
// Design decision: Crawling is a pipeline step rather than a direct
// call because:
// 1. It composes uniformly with save and export steps
// 2. Batch processing reuses the same step wiring per seed
// 3. Event draining stays in one place instead of every caller
type CrawlStep struct {
	// client is the HTTP client used for fetching pages.
	client *http.Client

	// maxDepth limits crawl recursion.
	maxDepth int

	// maxPages limits total pages to process.
	maxPages int

	// sameDomainOnly restricts fetches to the seed's authority.
	sameDomainOnly bool

	// detectParams enables query-string parameter inference on anchors.
	detectParams bool

	// delay between requests for politeness.
	delay time.Duration

	// userAgent is the User-Agent header to send with requests.
	userAgent string

	// headers are additional HTTP headers to send with requests.
	headers map[string]string

	// maxBodySize limits the size of response bodies to read.
	// This prevents memory exhaustion from unexpectedly large responses.
	maxBodySize int64

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxDepth sets the maximum crawl depth.
func WithCrawlMaxDepth(depth int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxDepth = depth
	}
}

// WithCrawlMaxPages sets the maximum pages to process.
func WithCrawlMaxPages(maxPages int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxPages = maxPages
	}
}

// WithCrawlSameDomainOnly restricts fetches to the seed's domain.
func WithCrawlSameDomainOnly(same bool) CrawlStepOption {
	return func(s *CrawlStep) {
		s.sameDomainOnly = same
	}
}

// WithCrawlDetectParams enables query-string parameter inference.
func WithCrawlDetectParams(detect bool) CrawlStepOption {
	return func(s *CrawlStep) {
		s.detectParams = detect
	}
}

// WithCrawlDelay sets the delay between requests.
func WithCrawlDelay(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.delay = d
	}
}

// WithCrawlUserAgent sets the User-Agent header for HTTP requests.
// A descriptive User-Agent helps site operators identify crawler traffic.
func WithCrawlUserAgent(userAgent string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.userAgent = userAgent
	}
}

// WithCrawlHeaders sets additional HTTP headers for requests.
func WithCrawlHeaders(headers map[string]string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.headers = headers
	}
}

// WithCrawlMaxBodySize sets the maximum response body size in bytes.
// Responses larger than this are truncated to prevent memory exhaustion.
func WithCrawlMaxBodySize(maxBodySize int64) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxBodySize = maxBodySize
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawling step using the given HTTP client.
func NewCrawlStep(client *http.Client, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client:         client,
		maxDepth:       config.DefaultMaxDepth,
		maxPages:       config.DefaultMaxPages,
		sameDomainOnly: true,
		detectParams:   true,
		userAgent:      config.DefaultUserAgent,
		maxBodySize:    config.DefaultMaxBodySize,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step. The seed URL comes from the result, and
// the terminal crawl state is copied back into it.
func (s *CrawlStep) Do(ctx context.Context, result *model.CrawlResult) error {
	fetcherOpts := []crawler.FetcherOption{
		crawler.WithUserAgent(s.userAgent),
		crawler.WithMaxBodySize(s.maxBodySize),
	}
	if len(s.headers) > 0 {
		fetcherOpts = append(fetcherOpts, crawler.WithHeaders(s.headers))
	}

	spider := crawler.NewSpider(
		crawler.NewHTTPFetcher(s.client, fetcherOpts...),
		crawler.WithMaxPages(s.maxPages),
		crawler.WithMaxDepth(s.maxDepth),
		crawler.WithSameDomainOnly(s.sameDomainOnly),
		crawler.WithDetectParams(s.detectParams),
		crawler.WithDelay(s.delay),
		crawler.WithSpiderLogger(s.logger),
	)

	// Drain progress events in the background so the spider never
	// fills its buffer. The channel closes when Crawl returns.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range spider.Events() {
			switch ev.Kind {
			case model.EventNodeUpdated:
				s.logger.Debug("page processed",
					"url", ev.Node.URL,
					"out_degree", ev.Node.OutDegree,
				)
			case model.EventEdgeAdded:
				s.logger.Debug("link discovered",
					"from", ev.From,
					"to", ev.To,
				)
			}
		}
	}()

	crawled, err := spider.Crawl(ctx, result.SeedURL)
	<-drained
	if err != nil {
		return fmt.Errorf("crawl of %s failed: %w", result.SeedURL, err)
	}

	result.SeedURL = crawled.SeedURL
	result.StartedAt = crawled.StartedAt
	result.FinishedAt = crawled.FinishedAt
	result.Cancelled = crawled.Cancelled
	result.PagesFetched = crawled.PagesFetched
	result.Nodes = crawled.Nodes
	result.Adjacency = crawled.Adjacency

	s.logger.Info("crawl completed",
		"seed", result.SeedURL,
		"pages_fetched", result.PagesFetched,
		"nodes", result.NodeCount(),
		"edges", result.EdgeCount(),
		"cancelled", result.Cancelled,
	)

	return nil
}

// SaveStep persists the crawl result to the local crawl database so
// it can be listed and re-exported later.
type SaveStep struct {
	// db is the crawl history database.
	db *database.CrawlDB

	// logger for structured logging.
	logger *slog.Logger
}

// SaveStepOption configures a SaveStep.
type SaveStepOption func(*SaveStep)

// WithSaveLogger sets a custom logger for the save step.
func WithSaveLogger(logger *slog.Logger) SaveStepOption {
	return func(s *SaveStep) {
		s.logger = logger
	}
}

// NewSaveStep creates a step that saves results to the given database.
func NewSaveStep(db *database.CrawlDB, opts ...SaveStepOption) *SaveStep {
	s := &SaveStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do persists the result. Partial (cancelled) results are saved too,
// since a cancelled crawl still carries useful data.
func (s *SaveStep) Do(ctx context.Context, result *model.CrawlResult) error {
	runID, err := s.db.SaveResult(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to save crawl result: %w", err)
	}

	s.logger.Info("crawl result saved",
		"run_id", runID,
		"seed", result.SeedURL,
	)

	return nil
}

// ExportStep writes the crawl result through a report writer.
type ExportStep struct {
	// writer renders the result.
	writer report.Writer

	// format names the output format for logging.
	format string

	// logger for structured logging.
	logger *slog.Logger
}

// ExportStepOption configures an ExportStep.
type ExportStepOption func(*ExportStep)

// WithExportLogger sets a custom logger for the export step.
func WithExportLogger(logger *slog.Logger) ExportStepOption {
	return func(s *ExportStep) {
		s.logger = logger
	}
}

// NewExportStep creates a step that renders the result with the given
// writer. The format string is only used for logging.
func NewExportStep(writer report.Writer, format string, opts ...ExportStepOption) *ExportStep {
	s := &ExportStep{
		writer: writer,
		format: format,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ExportStep) Name() string {
	return "export_" + s.format
}

// Do renders the result.
func (s *ExportStep) Do(_ context.Context, result *model.CrawlResult) error {
	n, err := s.writer.Write(result)
	if err != nil {
		return fmt.Errorf("failed to export %s report: %w", s.format, err)
	}

	s.logger.Debug("report written",
		"format", s.format,
		"bytes", n,
	)

	return nil
}
