package config

import (
	"fmt"
	"maps"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig holds the configuration for a single watched URL.
//
// In the configuration file a source is either a bare URL string or a
// mapping with a url key:
//
//	sources:
//	  - https://example.com/changelog
//	  - url: https://example.com/private
//	    headers:
//	      Authorization: Bearer xyz
type SourceConfig struct {
	// URL is the watched document.
	URL string `yaml:"url"`

	// Headers are custom HTTP headers sent when fetching this source.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (s *SourceConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.URL = node.Value
		return nil
	case yaml.MappingNode:
		type plain SourceConfig
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*s = SourceConfig(p)
		return nil
	default:
		return fmt.Errorf("line %d: a source must be a URL or a mapping with a url key", node.Line)
	}
}

// Defaults holds settings applied to every source.
type Defaults struct {
	// Headers are sent with every fetch unless a source overrides them.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .sitewatch configuration file.
type File struct {
	// Sources is the ordered list of watched URLs.
	Sources []SourceConfig `yaml:"sources,omitempty"`

	// Defaults contains settings applied to all sources.
	Defaults Defaults `yaml:"defaults,omitempty"`

	// State overrides the state file location.
	State string `yaml:"state,omitempty"`

	// History overrides the run history database directory.
	History string `yaml:"history,omitempty"`

	// SaveHistory disables run history when set to false.
	SaveHistory *bool `yaml:"saveHistory,omitempty"`

	// Timeout bounds each fetch, e.g. "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Concurrency is the number of sources fetched at once.
	Concurrency int `yaml:"concurrency,omitempty"`

	// MaxDiffLines bounds each diff excerpt; 0 disables truncation.
	MaxDiffLines *int `yaml:"maxDiffLines,omitempty"`

	// MaxRedirects caps redirects per fetch.
	MaxRedirects *int `yaml:"maxRedirects,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// MaxBodySize is the response body limit in bytes.
	MaxBodySize int64 `yaml:"maxBodySize,omitempty"`

	// Proxy is a SOCKS5 proxy address in "host:port" format.
	Proxy string `yaml:"proxy,omitempty"`

	// Algorithm is the fingerprint algorithm (sha256 or sha3-256).
	Algorithm string `yaml:"algorithm,omitempty"`

	// FailOnFetchError controls the exit status of runs whose only problem
	// is a fetch failure.
	FailOnFetchError *bool `yaml:"failOnFetchError,omitempty"`
}

// SourceURLs returns the configured URLs in file order.
func (cf *File) SourceURLs() []string {
	urls := make([]string, 0, len(cf.Sources))
	for _, s := range cf.Sources {
		urls = append(urls, s.URL)
	}
	return urls
}

// HeadersFor returns the headers for source: the defaults overlaid with
// the source's own headers. The result is a fresh map.
func (cf *File) HeadersFor(source string) map[string]string {
	result := maps.Clone(cf.Defaults.Headers)
	for _, s := range cf.Sources {
		if s.URL != source || len(s.Headers) == 0 {
			continue
		}
		if result == nil {
			result = make(map[string]string, len(s.Headers))
		}
		maps.Copy(result, s.Headers)
	}
	return result
}
