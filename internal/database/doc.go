// Package database provides SQLite-based run history for sitewatch.
//
// Every detection run is stored in HistoryDB:
//   - one row in runs with the outcome, counters and the full report as JSON
//   - one row in changes per changed source
//   - one row in failures per source that could not be fetched
//
// The state file stays the source of truth for change detection. The
// history database is an append-only log that backs the history command,
// and losing it never affects what the next run reports.
//
// modernc.org/sqlite is used so the binary stays CGO-free.
package database
