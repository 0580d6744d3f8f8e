// Package database provides SQLite-based persistence for crawl results.
//
// Each crawl run is stored as a row in the runs table plus its node and
// edge tables, so past runs can be listed and re-exported without
// re-crawling. The database lives under the XDG data directory by
// default and uses modernc.org/sqlite, a pure-Go driver that keeps the
// binary free of cgo.
package database
