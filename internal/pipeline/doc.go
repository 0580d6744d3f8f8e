// Package pipeline orchestrates crawl execution as a sequence of steps.
//
// A Pipeline runs Steps in order against a shared CrawlResult: the
// crawl step fills it, the save step persists it, and export steps
// render it. BatchProcessor fans a pipeline factory out over multiple
// seed URLs with a bounded concurrency limit.
package pipeline
