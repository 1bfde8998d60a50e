package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DefaultFileName is the state file name used inside the data directory.
const DefaultFileName = "state.json"

// Store loads and saves a State at a fixed path.
type Store struct {
	path string
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used to stamp a freshly created State.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields an empty State.
// A file that exists but cannot be decoded yields a *CorruptStateError.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(s.now().UTC()), nil
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	st, err := decode(data)
	if err != nil {
		return nil, &CorruptStateError{Path: s.path, Err: err}
	}
	return st, nil
}

// Save writes st to the state file atomically: the new content is written to
// a temporary file in the same directory, synced and renamed over the target.
// Failures are reported as *PersistError.
func (s *Store) Save(st *State) error {
	data, err := encode(st)
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}

func encode(st *State) ([]byte, error) {
	if st == nil {
		return nil, errors.New("nil state")
	}
	out := *st
	if out.Snapshots == nil {
		out.Snapshots = make(map[string]Snapshot)
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return append(data, '\n'), nil
}

func decode(data []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}

	if st.Version < 1 {
		return nil, fmt.Errorf("missing or invalid version %d", st.Version)
	}
	if st.Version > CurrentVersion {
		return nil, fmt.Errorf("%w %d (this build supports up to %d)", ErrUnsupportedVersion, st.Version, CurrentVersion)
	}
	for source, snap := range st.Snapshots {
		if source == "" {
			return nil, errors.New("snapshot with empty source")
		}
		if snap.Fingerprint == "" {
			return nil, fmt.Errorf("snapshot for %s has no fingerprint", source)
		}
	}
	if st.Snapshots == nil {
		st.Snapshots = make(map[string]Snapshot)
	}
	return &st, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath) //nolint:errcheck // best effort cleanup
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // the write error is reported
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // the sync error is reported
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	committed = true
	return nil
}
