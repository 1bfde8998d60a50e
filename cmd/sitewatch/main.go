// Package main provides the entry point for the sitewatch CLI.
//
// sitewatch fetches a fixed set of web pages, compares them with the
// snapshots recorded by the previous run and reports which pages changed.
// It is meant to be run from cron or a CI schedule: the exit status tells
// the caller whether anything changed.
//
// Usage:
//
//	sitewatch run
//	sitewatch run https://example.com/terms https://example.com/pricing
//
// See --help for all available options.
package main

func main() {
	Execute()
}
