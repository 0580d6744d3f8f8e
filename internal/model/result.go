package model

import (
	"sort"
	"time"
)

// CrawlResult is the terminal output of a crawl run: the complete node
// table and adjacency mapping, plus run metadata. It is produced by the
// engine's finalize pass and is authoritative; incremental progress
// events are only a projection of intermediate state.
type CrawlResult struct {
	// SeedURL is the URL the crawl started from, as given by the user.
	SeedURL string `json:"seed_url"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run reached its terminal state.
	FinishedAt time.Time `json:"finished_at"`

	// Cancelled is true if the run was stopped by external cancellation
	// before the frontier was exhausted. The nodes and adjacency
	// collected up to that point are still finalized and valid.
	Cancelled bool `json:"cancelled"`

	// PagesFetched is the number of pages for which a fetch was actually
	// attempted (status recorded or transport failure). It never exceeds
	// the configured page budget.
	PagesFetched int `json:"pages_fetched"`

	// Nodes maps canonical URL to node data.
	Nodes map[string]*Node `json:"nodes"`

	// Adjacency maps canonical URL to the sorted set of canonical
	// targets it links to.
	Adjacency map[string][]string `json:"adjacency"`
}

// NewCrawlResult creates an empty result for the given seed URL.
func NewCrawlResult(seedURL string) *CrawlResult {
	return &CrawlResult{
		SeedURL:   seedURL,
		Nodes:     make(map[string]*Node),
		Adjacency: make(map[string][]string),
	}
}

// NodeCount returns the number of nodes in the graph.
func (r *CrawlResult) NodeCount() int {
	return len(r.Nodes)
}

// EdgeCount returns the total number of edges in the graph.
func (r *CrawlResult) EdgeCount() int {
	total := 0
	for _, targets := range r.Adjacency {
		total += len(targets)
	}
	return total
}

// SortedURLs returns all canonical node URLs in lexicographic order.
// Report writers use this for deterministic output.
func (r *CrawlResult) SortedURLs() []string {
	urls := make([]string, 0, len(r.Nodes))
	for u := range r.Nodes {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Duration returns the elapsed wall-clock time of the run.
func (r *CrawlResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
