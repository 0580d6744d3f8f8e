package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/webmap/internal/model"
)

func testResult() *model.CrawlResult {
	result := model.NewCrawlResult("https://example.test/")
	result.StartedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	result.FinishedAt = result.StartedAt.Add(2 * time.Second)
	result.PagesFetched = 2

	seed := model.NewNode("https://example.test/")
	seed.SetStatus(200)
	seed.OutDegree = 2

	about := model.NewNode("https://example.test/about")
	about.SetStatus(404)

	search := model.NewNode("https://example.test/search")
	search.AddParamExample("https://example.test/search?q=example")

	result.Nodes[seed.URL] = seed
	result.Nodes[about.URL] = about
	result.Nodes[search.URL] = search
	result.Adjacency[seed.URL] = []string{about.URL, search.URL}

	return result
}

func TestCrawlDBSaveAndGet(t *testing.T) {
	t.Parallel()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	want := testResult()

	runID, err := db.SaveResult(ctx, want)
	if err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if runID <= 0 {
		t.Errorf("SaveResult() runID = %d, want positive", runID)
	}

	got, err := db.GetResult(ctx, runID)
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}

	if got.SeedURL != want.SeedURL {
		t.Errorf("SeedURL = %q, want %q", got.SeedURL, want.SeedURL)
	}
	if got.PagesFetched != want.PagesFetched {
		t.Errorf("PagesFetched = %d, want %d", got.PagesFetched, want.PagesFetched)
	}
	if got.Cancelled {
		t.Error("Cancelled = true, want false")
	}
	if len(got.Nodes) != len(want.Nodes) {
		t.Fatalf("Nodes count = %d, want %d", len(got.Nodes), len(want.Nodes))
	}

	seed := got.Nodes["https://example.test/"]
	if seed == nil {
		t.Fatal("seed node missing from loaded result")
	}
	if seed.Status == nil || *seed.Status != 200 {
		t.Errorf("seed status = %v, want 200", seed.Status)
	}
	if seed.OutDegree != 2 {
		t.Errorf("seed out-degree = %d, want 2", seed.OutDegree)
	}

	search := got.Nodes["https://example.test/search"]
	if search == nil {
		t.Fatal("search node missing from loaded result")
	}
	if !search.AcceptsParams {
		t.Error("search AcceptsParams = false, want true")
	}
	if len(search.ParamExamples) != 1 || search.ParamExamples[0] != "https://example.test/search?q=example" {
		t.Errorf("search ParamExamples = %v", search.ParamExamples)
	}

	about := got.Nodes["https://example.test/about"]
	if about == nil {
		t.Fatal("about node missing from loaded result")
	}
	if about.Status == nil || *about.Status != 404 {
		t.Errorf("about status = %v, want 404", about.Status)
	}

	targets := got.Adjacency["https://example.test/"]
	if len(targets) != 2 {
		t.Fatalf("adjacency targets = %v, want 2 entries", targets)
	}
	if targets[0] != "https://example.test/about" || targets[1] != "https://example.test/search" {
		t.Errorf("adjacency targets = %v", targets)
	}
}

func TestCrawlDBNullStatusRoundTrip(t *testing.T) {
	t.Parallel()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	result := model.NewCrawlResult("https://dead.test/")
	result.StartedAt = time.Now().UTC()
	result.FinishedAt = result.StartedAt
	result.Nodes["https://dead.test/"] = model.NewNode("https://dead.test/")

	runID, err := db.SaveResult(ctx, result)
	if err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	got, err := db.GetResult(ctx, runID)
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}
	node := got.Nodes["https://dead.test/"]
	if node == nil {
		t.Fatal("node missing from loaded result")
	}
	if node.Status != nil {
		t.Errorf("status = %v, want nil for unfetched node", *node.Status)
	}
}

func TestCrawlDBListRuns(t *testing.T) {
	t.Parallel()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	records, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("ListRuns() on empty database = %d records, want 0", len(records))
	}

	first := testResult()
	if _, err := db.SaveResult(ctx, first); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	second := testResult()
	second.SeedURL = "https://other.test/"
	second.StartedAt = first.StartedAt.Add(time.Hour)
	second.FinishedAt = second.StartedAt.Add(time.Second)
	second.Cancelled = true
	if _, err := db.SaveResult(ctx, second); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	records, err = db.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListRuns() = %d records, want 2", len(records))
	}

	// Newest first.
	if records[0].SeedURL != "https://other.test/" {
		t.Errorf("records[0].SeedURL = %q, want newest run first", records[0].SeedURL)
	}
	if !records[0].Cancelled {
		t.Error("records[0].Cancelled = false, want true")
	}
	if records[1].NodeCount != 3 {
		t.Errorf("records[1].NodeCount = %d, want 3", records[1].NodeCount)
	}
	if records[1].EdgeCount != 2 {
		t.Errorf("records[1].EdgeCount = %d, want 2", records[1].EdgeCount)
	}
}

func TestCrawlDBOpenWithoutCreate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := Options{CreateIfNotExists: false, EnableWAL: false}

	if _, err := Open(dir, opts); err == nil {
		t.Error("Open() with missing database and CreateIfNotExists=false should fail")
	}

	db, err := Open(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(dir, opts)
	if err != nil {
		t.Fatalf("Open() existing database error = %v", err)
	}
	defer reopened.Close()

	if reopened.Path() != filepath.Join(dir, "webmap.db") {
		t.Errorf("Path() = %q", reopened.Path())
	}

	if _, err := reopened.GetResult(context.Background(), 999); err == nil {
		t.Error("GetResult() for missing run should fail")
	}
}
