// Package model defines the run-level data structures shared by the
// detection driver, the report writers and the history database.
//
// This package contains the following main types:
//   - RunResult: everything one detection run observed
//   - ChangeReport: the fingerprints and diff excerpt of one changed source
//   - FetchFailure: a source whose document could not be retrieved
//   - Outcome: the overall classification of a run
//
// The types are serializable to JSON for report output and database storage.
package model
