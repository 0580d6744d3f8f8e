package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/webmap/internal/config"
	"github.com/nao1215/webmap/internal/report"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl [seed-url...]" {
			t.Errorf("expected use 'crawl [seed-url...]', got %q", cmd.Use)
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{
			"max-pages", "depth", "same-domain", "detect-params",
			"delay", "timeout", "user-agent", "batch", "config",
			"json", "csv", "markdown", "dot", "output",
		} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected flag %q", name)
			}
		}
	})
}

// TestBuildConfig tests flag-to-config mapping.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags(nil); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}

		if cfg.MaxPages != config.DefaultMaxPages {
			t.Errorf("MaxPages = %d, want %d", cfg.MaxPages, config.DefaultMaxPages)
		}
		if cfg.MaxDepth != config.DefaultMaxDepth {
			t.Errorf("MaxDepth = %d, want %d", cfg.MaxDepth, config.DefaultMaxDepth)
		}
		if !cfg.SameDomainOnly {
			t.Error("SameDomainOnly should default to true")
		}
		if !cfg.DetectParams {
			t.Error("DetectParams should default to true")
		}
		if !cfg.SaveToDB {
			t.Error("SaveToDB should be enabled")
		}
		if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "https://example.com" {
			t.Errorf("Seeds = %v", cfg.Seeds)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("default config should validate, got %v", err)
		}
	})

	t.Run("custom flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		args := []string{
			"-p", "25", "-d", "1",
			"--same-domain=false", "--detect-params=false",
			"--delay", "250ms", "-t", "3s",
			"--user-agent", "mapper/1.0",
			"-b", "2", "--csv",
		}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}

		if cfg.MaxPages != 25 {
			t.Errorf("MaxPages = %d, want 25", cfg.MaxPages)
		}
		if cfg.MaxDepth != 1 {
			t.Errorf("MaxDepth = %d, want 1", cfg.MaxDepth)
		}
		if cfg.SameDomainOnly {
			t.Error("SameDomainOnly should be false")
		}
		if cfg.DetectParams {
			t.Error("DetectParams should be false")
		}
		if cfg.Delay != 250*time.Millisecond {
			t.Errorf("Delay = %v, want 250ms", cfg.Delay)
		}
		if cfg.Timeout != 3*time.Second {
			t.Errorf("Timeout = %v, want 3s", cfg.Timeout)
		}
		if cfg.UserAgent != "mapper/1.0" {
			t.Errorf("UserAgent = %q", cfg.UserAgent)
		}
		if cfg.Concurrency != 2 {
			t.Errorf("Concurrency = %d, want 2", cfg.Concurrency)
		}
		if !cfg.CSVReport {
			t.Error("CSVReport should be true")
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", "/nonexistent/webmap.yaml"}); err != nil {
			t.Fatal(err)
		}

		if _, err := buildConfig(cmd, []string{"https://example.com"}); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})

	t.Run("loads site config file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "webmap.yaml")
		content := `sites:
  example.com:
    depth: 7
    maxPages: 42
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", path}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}

		site := getSiteConfig(cfg, "https://example.com/start")
		if site.Depth != 7 {
			t.Errorf("site Depth = %d, want 7", site.Depth)
		}
		if site.MaxPages != 42 {
			t.Errorf("site MaxPages = %d, want 42", site.MaxPages)
		}

		other := getSiteConfig(cfg, "https://other.test/")
		if other.Depth != 0 {
			t.Errorf("unconfigured host Depth = %d, want 0", other.Depth)
		}
	})
}

// TestCreatePipelineForSeed tests step assembly.
func TestCreatePipelineForSeed(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	logger := setupLogger(false)

	p := createPipelineForSeed(cfg, config.SiteConfig{}, nil, logger)

	names := p.StepNames()
	if len(names) != 1 || names[0] != "crawl" {
		t.Errorf("StepNames() = %v, want [crawl] without database", names)
	}
}

// TestNewReportWriter tests the format selection.
func TestNewReportWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "default is simple", mutate: func(*config.Config) {}, want: "*report.SimpleWriter"},
		{name: "json", mutate: func(c *config.Config) { c.JSONReport = true }, want: "*report.JSONWriter"},
		{name: "csv", mutate: func(c *config.Config) { c.CSVReport = true }, want: "*report.CSVWriter"},
		{name: "markdown", mutate: func(c *config.Config) { c.MarkdownReport = true }, want: "*report.MarkdownWriter"},
		{name: "dot", mutate: func(c *config.Config) { c.DOTReport = true }, want: "*report.DOTWriter"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			tt.mutate(cfg)

			var got string
			switch newReportWriter(cfg, os.Stdout).(type) {
			case *report.SimpleWriter:
				got = "*report.SimpleWriter"
			case *report.JSONWriter:
				got = "*report.JSONWriter"
			case *report.CSVWriter:
				got = "*report.CSVWriter"
			case *report.MarkdownWriter:
				got = "*report.MarkdownWriter"
			case *report.DOTWriter:
				got = "*report.DOTWriter"
			}

			if got != tt.want {
				t.Errorf("newReportWriter() = %s, want %s", got, tt.want)
			}
		})
	}
}
