package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These mirror the defaults of the
// interactive tool this crawler grew out of, tempered for unattended
// command-line use.
const (
	// DefaultMaxPages limits the total number of processed pages per
	// crawl. This prevents runaway crawling on large or
	// infinitely-generating sites.
	DefaultMaxPages = 200

	// DefaultMaxDepth limits how many hops from the seed are crawled.
	// Depth 0 means only the seed page.
	DefaultMaxDepth = 3

	// DefaultTimeout is the per-request timeout. 10 seconds is generous
	// for ordinary sites while keeping dead hosts from stalling a run.
	DefaultTimeout = 10 * time.Second

	// DefaultDelay is the politeness pause between requests.
	// Zero keeps crawls fast; raise it for fragile servers.
	DefaultDelay = 0 * time.Second

	// DefaultConcurrency is the number of seeds crawled in parallel
	// when several are given. Each seed's crawl is still sequential.
	DefaultConcurrency = 4

	// DefaultUserAgent identifies webmap in HTTP requests. A descriptive
	// User-Agent lets operators identify crawler traffic in their logs.
	DefaultUserAgent = "webmap/1.0 (+https://github.com/nao1215/webmap)"

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is sufficient for HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultEventBuffer is the progress event channel capacity.
	// Events beyond the buffer are dropped with a warning so a slow
	// observer can never stall the crawl.
	DefaultEventBuffer = 256

	// AppName is the application name used for XDG directory paths.
	AppName = "webmap"
)

// Config holds all configuration options for webmap.
// It is populated from CLI flags and passed through the application via
// dependency injection rather than global state.
type Config struct {
	// Seeds is the list of seed URLs to crawl. Each must be an absolute
	// URL with scheme and authority.
	Seeds []string

	// MaxPages is the page budget per crawl run. Must be at least 1.
	MaxPages int

	// MaxDepth is the maximum hop distance from the seed. Must be >= 0.
	MaxDepth int

	// SameDomainOnly restricts fetching to each seed's authority.
	// Cross-domain URLs still appear in the graph as edge targets.
	SameDomainOnly bool

	// DetectParams enables parameter-acceptance inference from query
	// strings on observed URLs.
	DetectParams bool

	// Delay is the pause between requests within one crawl run.
	Delay time.Duration

	// Timeout is the per-request timeout. A fetch exceeding it is
	// recorded as a transport failure, not a hang.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Concurrency is the number of seeds crawled in parallel when more
	// than one seed is given.
	Concurrency int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches for .webmap in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-host overrides loaded from the config file.
	SiteConfigs *File

	// JSONReport, CSVReport, MarkdownReport, and DOTReport select the
	// report format written after a crawl. They are mutually exclusive;
	// when none is set a human-readable summary is printed.
	JSONReport     bool
	CSVReport      bool
	MarkdownReport bool
	DOTReport      bool

	// ReportFile is the output file path for the report. When set, the
	// report is written there instead of stdout.
	ReportFile string

	// DBDir is the directory for the SQLite crawl-history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether crawl results are persisted for the
	// history subcommand.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero
// values because many defaults are non-zero (timeout, budget, user
// agent). It also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxPages:       DefaultMaxPages,
		MaxDepth:       DefaultMaxDepth,
		SameDomainOnly: true,
		DetectParams:   true,
		Delay:          DefaultDelay,
		Timeout:        DefaultTimeout,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		Concurrency:    DefaultConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for webmap.
// On Linux: ~/.local/share/webmap
// On macOS: ~/Library/Application Support/webmap
// On Windows: %LOCALAPPDATA%\webmap
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webmap.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid. It returns the first
// error found; fixing one error often makes others irrelevant.
// Validation happens once after CLI parsing, before any fetch occurs.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	for _, seed := range c.Seeds {
		u, err := url.Parse(strings.TrimSpace(seed))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrInvalidSeedURL
		}
	}

	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	formats := 0
	for _, set := range []bool{c.JSONReport, c.CSVReport, c.MarkdownReport, c.DOTReport} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	return nil
}
