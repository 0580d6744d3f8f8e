// Package main provides the entry point for the webmap CLI.
//
// Webmap crawls a website from one or more seed URLs and builds a
// directed graph of its pages: which page links where, what HTTP
// status each page returned, and which pages accept parameters.
//
// Usage:
//
//	webmap crawl https://example.com
//	webmap history --list
//
// See --help for all available options.
package main

// main is the entry point for webmap.
func main() {
	Execute()
}
