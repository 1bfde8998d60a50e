// Package state persists the last observed snapshot of every watched source.
//
// The state file is a single versioned JSON document. It is read once at the
// start of a run and written back once at the end, atomically, by writing a
// temporary file next to the target and renaming it into place. A state file
// that exists but cannot be decoded is reported as a CorruptStateError and is
// never silently replaced with an empty state.
//
// The Store does not merge states. The caller loads the previous State,
// derives the next one and saves it.
package state
