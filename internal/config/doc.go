// Package config provides configuration management for webmap.
//
// Configuration flows from three sources, in increasing precedence:
// built-in defaults (NewConfig), the optional .webmap YAML file with
// per-host overrides, and CLI flags. The resulting Config is validated
// once before a run starts; validation failures are the only errors
// that prevent a crawl from running at all.
package config
