// Package log provides logging utilities for webmap.
//
// The crawl trace logs raw URLs on nearly every line, and query strings
// in the wild carry session tokens, API keys, and OAuth codes. The
// RedactHandler wraps any slog.Handler and masks the values of
// sensitive query parameters in string attributes so that crawl logs
// can be shared or archived without leaking credentials observed on
// crawled pages.
package log
