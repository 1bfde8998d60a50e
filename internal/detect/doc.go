// Package detect runs one change-detection pass over a list of sources.
//
// A Driver loads the previous state, fetches every source through a Fetcher,
// normalizes and fingerprints each document, compares it with the stored
// snapshot and saves the updated state once. The outcome is a
// model.RunResult; translating it into a process exit status is left to the
// caller.
//
// Per source the Driver distinguishes four cases:
//   - the fetch failed: the failure is recorded and the stored snapshot is kept
//   - the source has no stored snapshot: a baseline is recorded, no change
//   - the fingerprint matches: nothing changed
//   - the fingerprint differs: a ChangeReport with a diff excerpt is produced
//
// Every successful fetch refreshes the stored snapshot.
package detect
