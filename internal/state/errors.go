package state

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVersion is wrapped by CorruptStateError when a state file was
// written by a newer format version.
var ErrUnsupportedVersion = errors.New("unsupported state version")

// CorruptStateError is returned by Load when a state file exists but cannot
// be decoded as a State.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state file %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// PersistError is returned by Save when the new state could not be written.
// The previous state file, if any, is left in place.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist state to %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
