package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
var (
	// ErrNoSources is returned when neither the configuration file nor the
	// command line names a source to watch.
	ErrNoSources = errors.New("no sources specified: list them under 'sources' in the config file or pass URLs as arguments")

	// ErrInvalidSource is returned for sources that are not absolute http(s) URLs.
	ErrInvalidSource = errors.New("invalid source: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoStatePath is returned when the state file location is empty.
	ErrNoStatePath = errors.New("no state file path configured")

	// ErrEmptySourceURL is returned by LoadConfigFile when a source entry
	// has no URL.
	ErrEmptySourceURL = errors.New("source entry without url")
)
