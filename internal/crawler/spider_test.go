package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/webmap/internal/model"
)

// newTestSite starts an httptest server serving the given path -> HTML
// body mapping. Unknown paths return 404.
func newTestSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestSpider(server *httptest.Server, opts ...SpiderOption) *Spider {
	fetcher := NewHTTPFetcher(server.Client())
	return NewSpider(fetcher, opts...)
}

// TestCrawlScenario pins the exact behavior of the documented scenario:
// seed "/" links to "/b" and "/c" with maxPages=3 and maxDepth=1.
func TestCrawlScenario(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/": `<html><body><a href="/b">b</a><a href="/c">c</a></body></html>`,
		"/b": `<html><body>leaf</body></html>`,
		"/c": `<html><body>leaf</body></html>`,
	})

	spider := newTestSpider(server, WithMaxPages(3), WithMaxDepth(1))
	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	root := Canonicalize(server.URL + "/")
	b := Canonicalize(server.URL + "/b")
	c := Canonicalize(server.URL + "/c")

	if result.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes, got %d: %v", result.NodeCount(), result.SortedURLs())
	}
	if result.PagesFetched != 3 {
		t.Errorf("expected 3 pages fetched, got %d", result.PagesFetched)
	}

	for _, url := range []string{root, b, c} {
		node, ok := result.Nodes[url]
		if !ok {
			t.Fatalf("missing node %s", url)
		}
		if !node.Fetched() || *node.Status != http.StatusOK {
			t.Errorf("node %s: expected status 200, got %v", url, node.Status)
		}
	}

	targets := result.Adjacency[root]
	if len(targets) != 2 {
		t.Fatalf("expected 2 edges from root, got %v", targets)
	}
	if result.Nodes[root].OutDegree != 2 {
		t.Errorf("expected root out-degree 2, got %d", result.Nodes[root].OutDegree)
	}
	if result.Nodes[b].OutDegree != 0 || result.Nodes[c].OutDegree != 0 {
		t.Errorf("expected leaf out-degrees 0, got %d and %d",
			result.Nodes[b].OutDegree, result.Nodes[c].OutDegree)
	}
}

// TestCrawlBudget verifies the page budget is a hard bound on fetches.
func TestCrawlBudget(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/": `<a href="/b">b</a><a href="/c">c</a>`,
		"/b": `ok`,
		"/c": `ok`,
	})

	spider := newTestSpider(server, WithMaxPages(2), WithMaxDepth(5))
	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if result.PagesFetched != 2 {
		t.Errorf("expected exactly 2 pages fetched, got %d", result.PagesFetched)
	}

	fetched := 0
	for _, node := range result.Nodes {
		if node.Fetched() {
			fetched++
		}
	}
	if fetched > 2 {
		t.Errorf("budget exceeded: %d nodes carry a status", fetched)
	}

	// /c was discovered as an edge target but excluded by the soft
	// admission check, so it exists unfetched.
	c, ok := result.Nodes[Canonicalize(server.URL+"/c")]
	if !ok {
		t.Fatal("expected placeholder node for /c")
	}
	if c.Fetched() {
		t.Error("expected /c to remain unfetched")
	}
}

// TestCrawlDepth verifies that discoveries past maxDepth are recorded as
// edge targets but never fetched.
func TestCrawlDepth(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/": `<a href="/b">b</a>`,
		"/b": `<a href="/deep">deep</a>`,
	})

	spider := newTestSpider(server, WithMaxPages(10), WithMaxDepth(1))
	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	deep, ok := result.Nodes[Canonicalize(server.URL+"/deep")]
	if !ok {
		t.Fatal("expected /deep to exist as an edge target")
	}
	if deep.Fetched() {
		t.Error("expected /deep (depth 2) to remain unfetched with maxDepth 1")
	}

	edges := result.Adjacency[Canonicalize(server.URL+"/b")]
	if len(edges) != 1 {
		t.Errorf("expected edge /b -> /deep, got %v", edges)
	}
}

// TestCrawlSameDomainOnly verifies external authorities are never
// fetched while still appearing as edge targets.
func TestCrawlSameDomainOnly(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/": `<a href="http://external.invalid/x">out</a><a href="/b">b</a>`,
		"/b": `ok`,
	})

	spider := newTestSpider(server, WithMaxPages(10), WithMaxDepth(3), WithSameDomainOnly(true))
	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	ext, ok := result.Nodes["http://external.invalid/x"]
	if !ok {
		t.Fatal("expected external URL as edge target")
	}
	if ext.Fetched() {
		t.Error("expected external URL to never be fetched")
	}

	// Same-domain page still crawled.
	b, ok := result.Nodes[Canonicalize(server.URL+"/b")]
	if !ok || !b.Fetched() {
		t.Error("expected /b to be fetched")
	}
}

// TestCrawlParamInference verifies query-string parameter detection on
// linked targets.
func TestCrawlParamInference(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/": `<a href="/search?q=1">search</a>`,
		"/search": `results`,
	})

	spider := newTestSpider(server, WithMaxPages(10), WithMaxDepth(2), WithDetectParams(true))
	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	search, ok := result.Nodes[Canonicalize(server.URL+"/search")]
	if !ok {
		t.Fatal("expected /search node")
	}
	if !search.AcceptsParams {
		t.Error("expected /search to accept params")
	}

	wantExample := server.URL + "/search?q=1"
	found := false
	for _, ex := range search.ParamExamples {
		if ex == wantExample {
			found = true
		}
	}
	if !found {
		t.Errorf("expected param example %q, got %v", wantExample, search.ParamExamples)
	}
}

// TestCrawlParamDetectionDisabled verifies anchors with queries are not
// marked when detection is off, while form actions still are.
func TestCrawlParamDetectionDisabled(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/": `<a href="/search?q=1">s</a><form action="/login" method="post"><input name="user"></form>`,
	})

	spider := newTestSpider(server, WithMaxPages(1), WithDetectParams(false))
	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	search := result.Nodes[Canonicalize(server.URL+"/search")]
	if search == nil {
		t.Fatal("expected /search node")
	}
	if search.AcceptsParams {
		t.Error("expected /search unmarked with detection disabled")
	}

	login := result.Nodes[Canonicalize(server.URL+"/login")]
	if login == nil {
		t.Fatal("expected /login node")
	}
	if !login.AcceptsParams {
		t.Error("expected form action to accept params regardless of detection setting")
	}
}

// TestCrawlFormInference verifies the GET form example synthesis
// end to end.
func TestCrawlFormInference(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/": `<form action="/login" method="get">
			<input name="user"><input name="pass">
		</form>`,
		"/login": `login page`,
	})

	spider := newTestSpider(server, WithMaxPages(10), WithMaxDepth(2))
	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	login, ok := result.Nodes[Canonicalize(server.URL+"/login")]
	if !ok {
		t.Fatal("expected /login node")
	}
	if !login.AcceptsParams {
		t.Error("expected /login to accept params")
	}

	wantExample := server.URL + "/login?user=example&pass=example"
	found := false
	for _, ex := range login.ParamExamples {
		if ex == wantExample {
			found = true
		}
	}
	if !found {
		t.Errorf("expected example %q, got %v", wantExample, login.ParamExamples)
	}

	// The form action is also an edge and a frontier candidate.
	if !login.Fetched() {
		t.Error("expected /login to be fetched via the form action")
	}
}

// TestCrawlSeedQueryDetection verifies step 7: a seed URL carrying a
// query marks its own node.
func TestCrawlSeedQueryDetection(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/start": `hello`,
	})

	spider := newTestSpider(server, WithMaxPages(5))
	result, err := spider.Crawl(context.Background(), server.URL+"/start?id=7")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	node, ok := result.Nodes[Canonicalize(server.URL+"/start")]
	if !ok {
		t.Fatal("expected seed node under canonical URL")
	}
	if !node.AcceptsParams {
		t.Error("expected seed with query to accept params")
	}
	if len(node.ParamExamples) != 1 || node.ParamExamples[0] != server.URL+"/start?id=7" {
		t.Errorf("unexpected param examples: %v", node.ParamExamples)
	}
}

// TestCrawlDeduplication verifies canonical identity collapses repeated
// and noisy references to one node and one edge.
func TestCrawlDeduplication(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/": `<a href="/b">1</a><a href="/b/">2</a><a href="/b#x">3</a><a href="/b?v=1">4</a>`,
		"/b": `ok`,
	})

	spider := newTestSpider(server, WithMaxPages(10), WithMaxDepth(2))
	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	root := Canonicalize(server.URL + "/")
	if len(result.Adjacency[root]) != 1 {
		t.Errorf("expected 1 distinct edge, got %v", result.Adjacency[root])
	}
	if result.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d: %v", result.NodeCount(), result.SortedURLs())
	}
	if result.PagesFetched != 2 {
		t.Errorf("expected /b fetched once, got %d fetches", result.PagesFetched)
	}
}

// TestCrawlCycle verifies that link cycles terminate.
func TestCrawlCycle(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/": `<a href="/b">b</a>`,
		"/b": `<a href="/">back</a>`,
	})

	spider := newTestSpider(server, WithMaxPages(10), WithMaxDepth(10))
	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if result.PagesFetched != 2 {
		t.Errorf("expected 2 fetches in a 2-node cycle, got %d", result.PagesFetched)
	}
	if result.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", result.EdgeCount())
	}
}

// TestCrawlTransportFailure verifies a dead seed still yields a
// terminal result with one unreachable node.
func TestCrawlTransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close() // connection refused from now on

	fetcher := NewHTTPFetcher(&http.Client{Timeout: 2 * time.Second})
	spider := NewSpider(fetcher, WithMaxPages(5))

	result, err := spider.Crawl(context.Background(), url+"/")
	if err != nil {
		t.Fatalf("expected transport failure to be non-fatal, got %v", err)
	}

	if result.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", result.NodeCount())
	}
	node := result.Nodes[Canonicalize(url+"/")]
	if node == nil {
		t.Fatal("expected seed node")
	}
	if node.Fetched() {
		t.Error("expected absent status after transport failure")
	}
	if result.PagesFetched != 1 {
		t.Errorf("expected 1 attempted fetch, got %d", result.PagesFetched)
	}
}

// TestCrawlRedirect verifies links resolve against the effective
// post-redirect URL.
func TestCrawlRedirect(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/r", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/real/", http.StatusFound)
	})
	mux.HandleFunc("/real/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<a href="sub">sub</a>`)
	})
	mux.HandleFunc("/real/sub", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "leaf")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	spider := newTestSpider(server, WithMaxPages(10), WithMaxDepth(2))
	result, err := spider.Crawl(context.Background(), server.URL+"/r")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	// Node identity stays with the requested URL; the relative link
	// resolves against the redirect destination.
	from := Canonicalize(server.URL + "/r")
	to := Canonicalize(server.URL + "/real/sub")
	targets := result.Adjacency[from]
	if len(targets) != 1 || targets[0] != to {
		t.Errorf("expected edge %s -> %s, got %v", from, to, targets)
	}
}

// TestCrawlCancellation verifies cancellation finalizes partial results.
func TestCrawlCancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before first fetch", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t, map[string]string{"/": `ok`})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		spider := newTestSpider(server, WithMaxPages(5))
		result, err := spider.Crawl(ctx, server.URL+"/")
		if err != nil {
			t.Fatalf("cancellation must not be an error, got %v", err)
		}
		if !result.Cancelled {
			t.Error("expected Cancelled flag")
		}
		if result.PagesFetched != 0 {
			t.Errorf("expected no fetches, got %d", result.PagesFetched)
		}
	})

	t.Run("cancelled mid-crawl keeps collected nodes", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/b">b</a>`)
			cancel() // cancel once the first page is served
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		spider := newTestSpider(server, WithMaxPages(10), WithMaxDepth(3))
		result, err := spider.Crawl(ctx, server.URL+"/")
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if !result.Cancelled {
			t.Error("expected Cancelled flag")
		}
		if result.PagesFetched != 1 {
			t.Errorf("expected 1 fetch before cancellation, got %d", result.PagesFetched)
		}
		if result.NodeCount() == 0 {
			t.Error("expected partial results to be finalized")
		}
	})
}

// TestCrawlSeedValidation verifies configuration errors surface before
// any fetch.
func TestCrawlSeedValidation(t *testing.T) {
	t.Parallel()

	fetcher := NewHTTPFetcher(&http.Client{})
	tests := []struct {
		name string
		seed string
		want error
	}{
		{"empty seed", "", ErrEmptySeedURL},
		{"blank seed", "   ", ErrEmptySeedURL},
		{"relative seed", "/just/a/path", ErrRelativeSeedURL},
		{"missing scheme", "example.com/a", ErrRelativeSeedURL},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spider := NewSpider(fetcher)
			_, err := spider.Crawl(context.Background(), tt.seed)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestCrawlEvents verifies progress events are emitted and the channel
// closes at terminal state.
func TestCrawlEvents(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/": `<a href="/b">b</a>`,
		"/b": `ok`,
	})

	spider := newTestSpider(server, WithMaxPages(10), WithMaxDepth(2))

	var mu sync.Mutex
	var nodeEvents, edgeEvents int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range spider.Events() {
			mu.Lock()
			switch ev.Kind {
			case model.EventNodeUpdated:
				nodeEvents++
			case model.EventEdgeAdded:
				edgeEvents++
			}
			mu.Unlock()
		}
	}()

	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event channel was not closed at terminal state")
	}

	mu.Lock()
	defer mu.Unlock()
	if nodeEvents < 2 {
		t.Errorf("expected at least 2 node events, got %d", nodeEvents)
	}
	if edgeEvents != result.EdgeCount() {
		t.Errorf("expected %d edge events, got %d", result.EdgeCount(), edgeEvents)
	}
}

// TestCrawlEventsReflectOutDegree verifies a node-update event carries
// the source's out-degree after its outgoing edges are recorded, not
// just the zero-degree snapshot from the initial fetch.
func TestCrawlEventsReflectOutDegree(t *testing.T) {
	t.Parallel()

	server := newTestSite(t, map[string]string{
		"/":  `<a href="/b">b</a><a href="/c">c</a>`,
		"/b": `ok`,
		"/c": `ok`,
	})

	spider := newTestSpider(server, WithMaxPages(10), WithMaxDepth(2))
	seed := Canonicalize(server.URL + "/")

	var mu sync.Mutex
	maxSeedOutDegree := -1
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range spider.Events() {
			if ev.Kind != model.EventNodeUpdated || ev.Node.URL != seed {
				continue
			}
			mu.Lock()
			if ev.Node.OutDegree > maxSeedOutDegree {
				maxSeedOutDegree = ev.Node.OutDegree
			}
			mu.Unlock()
		}
	}()

	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event channel was not closed at terminal state")
	}

	mu.Lock()
	defer mu.Unlock()
	want := result.Nodes[seed].OutDegree
	if maxSeedOutDegree != want {
		t.Errorf("expected a seed node event with out-degree %d, got max %d", want, maxSeedOutDegree)
	}
}

// TestCrawlNonHTML verifies non-HTML bodies are not parsed for links.
func TestCrawlNonHTML(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"link": "<a href=\"/b\">not a link</a>"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	spider := newTestSpider(server, WithMaxPages(10))
	result, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if result.EdgeCount() != 0 {
		t.Errorf("expected no edges from a JSON body, got %d", result.EdgeCount())
	}
	if result.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", result.NodeCount())
	}
}
