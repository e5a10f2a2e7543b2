// Package config loads wikigraph's settings from an optional file and
// WIKIGRAPH_* environment variables (dots become underscores, so
// WIKIGRAPH_WIKI_URL sets wiki.url). Load applies defaults, and Validate
// reports every problem at once as a *ConfigurationError.
package config
