package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/sitewatch/internal/diff"
	"github.com/nao1215/sitewatch/internal/fetch"
	"github.com/nao1215/sitewatch/internal/fingerprint"
	"github.com/nao1215/sitewatch/internal/pipeline"
	"github.com/nao1215/sitewatch/internal/state"
)

// Default configuration values. Values owned by another package alias it.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitewatch"

	// DefaultTimeout bounds each fetch, including reading the body.
	DefaultTimeout = fetch.DefaultTimeout

	// DefaultConcurrency is the number of sources fetched at once.
	DefaultConcurrency = pipeline.DefaultConcurrency

	// DefaultMaxDiffLines is the length of a diff excerpt before truncation.
	DefaultMaxDiffLines = diff.DefaultMaxLines

	// DefaultMaxRedirects is the number of redirects followed per fetch.
	DefaultMaxRedirects = fetch.DefaultMaxRedirects

	// DefaultUserAgent identifies sitewatch in HTTP requests.
	DefaultUserAgent = fetch.DefaultUserAgent

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = fetch.DefaultMaxBodySize

	// StateFileName is the state file name inside the data directory.
	StateFileName = state.DefaultFileName
)

// Config holds all configuration options for sitewatch.
// It is populated from defaults, then the configuration file, then CLI flags,
// and passed through the application rather than kept in global state.
type Config struct {
	// Sources is the ordered list of URLs to watch.
	Sources []string

	// StatePath is the state file location.
	// Defaults to state.json in the XDG data directory.
	StatePath string

	// HistoryDir is the directory holding the run history database.
	// Defaults to the XDG data directory.
	HistoryDir string

	// SaveHistory records every run in the history database.
	SaveHistory bool

	// Timeout bounds each fetch.
	Timeout time.Duration

	// Concurrency is the number of sources fetched at once.
	Concurrency int

	// MaxDiffLines bounds each diff excerpt. Zero or negative disables
	// truncation.
	MaxDiffLines int

	// MaxRedirects caps redirects per fetch. Negative disables redirects.
	MaxRedirects int

	// UserAgent is the User-Agent header sent with every fetch.
	UserAgent string

	// MaxBodySize is the response body limit in bytes. Zero means the default.
	MaxBodySize int64

	// Proxy is an optional SOCKS5 proxy address in "host:port" format.
	Proxy string

	// Algorithm is the fingerprint algorithm name.
	Algorithm string

	// FailOnFetchError makes a run with fetch failures but no changes exit
	// with a distinct non-zero status. When false such runs count as clean.
	FailOnFetchError bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches the current directory, the home directory
	// and the XDG config directory.
	ConfigFilePath string

	// SourceConfigs holds the parsed configuration file, if any.
	SourceConfigs *File

	// JSONReport selects JSON report output.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		StatePath:        DefaultStatePath(),
		HistoryDir:       XDGDataDir(),
		SaveHistory:      true,
		Timeout:          DefaultTimeout,
		Concurrency:      DefaultConcurrency,
		MaxDiffLines:     DefaultMaxDiffLines,
		MaxRedirects:     DefaultMaxRedirects,
		UserAgent:        DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
		Algorithm:        string(fingerprint.Default),
		FailOnFetchError: true,
	}
}

// XDGDataDir returns the XDG data directory for sitewatch.
// On Linux: ~/.local/share/sitewatch
// On macOS: ~/Library/Application Support/sitewatch
// On Windows: %LOCALAPPDATA%\sitewatch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitewatch.
// On Linux: ~/.config/sitewatch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultStatePath returns the default state file location.
func DefaultStatePath() string {
	return filepath.Join(XDGDataDir(), StateFileName)
}

// ApplyFile copies every setting present in f onto c.
// Settings absent from the file keep their current value.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SourceConfigs = f

	if urls := f.SourceURLs(); len(urls) > 0 {
		c.Sources = urls
	}
	if f.State != "" {
		c.StatePath = f.State
	}
	if f.History != "" {
		c.HistoryDir = f.History
	}
	if f.SaveHistory != nil {
		c.SaveHistory = *f.SaveHistory
	}
	if f.Timeout > 0 {
		c.Timeout = f.Timeout
	}
	if f.Concurrency > 0 {
		c.Concurrency = f.Concurrency
	}
	if f.MaxDiffLines != nil {
		c.MaxDiffLines = *f.MaxDiffLines
	}
	if f.MaxRedirects != nil {
		c.MaxRedirects = *f.MaxRedirects
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.MaxBodySize > 0 {
		c.MaxBodySize = f.MaxBodySize
	}
	if f.Proxy != "" {
		c.Proxy = f.Proxy
	}
	if f.Algorithm != "" {
		c.Algorithm = f.Algorithm
	}
	if f.FailOnFetchError != nil {
		c.FailOnFetchError = *f.FailOnFetchError
	}
}

// HeadersFor returns the request headers configured for source.
func (c *Config) HeadersFor(source string) map[string]string {
	if c.SourceConfigs == nil {
		return nil
	}
	return c.SourceConfigs.HeadersFor(source)
}

// DefaultHeaders returns the headers applied to every source.
func (c *Config) DefaultHeaders() map[string]string {
	if c.SourceConfigs == nil {
		return nil
	}
	return c.SourceConfigs.Defaults.Headers
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	for _, source := range c.Sources {
		if err := ValidateSource(source); err != nil {
			return err
		}
	}

	if c.StatePath == "" {
		return ErrNoStatePath
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if _, err := fingerprint.ParseAlgorithm(c.Algorithm); err != nil {
		return err
	}

	return nil
}

// ValidateSource checks that source is an absolute http or https URL.
func ValidateSource(source string) error {
	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	return nil
}
