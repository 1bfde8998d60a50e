package detect

import (
	"log/slog"
	"time"

	"github.com/nao1215/sitewatch/internal/fingerprint"
)

// Option configures a Driver.
type Option func(*Driver)

// WithMaxDiffLines bounds the diff excerpt of each ChangeReport.
// Zero or a negative value disables truncation.
func WithMaxDiffLines(n int) Option {
	return func(d *Driver) {
		d.maxDiffLines = n
	}
}

// WithConcurrency sets how many sources are fetched at once.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithFingerprinter sets the fingerprint algorithm. Stored snapshots written
// with a different algorithm are re-fingerprinted on the next run.
func WithFingerprinter(f *fingerprint.Fingerprinter) Option {
	return func(d *Driver) {
		if f != nil {
			d.fingerprinter = f
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock sets the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}
