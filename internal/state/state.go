package state

import (
	"maps"
	"slices"
	"time"

	"github.com/nao1215/sitewatch/internal/fingerprint"
)

// CurrentVersion is the state format version written by this package.
const CurrentVersion = 1

// Snapshot is the last observed content of one source.
// Fingerprint is always the digest of NormalizedText under the State's
// algorithm.
type Snapshot struct {
	Fingerprint    string `json:"fingerprint"`
	NormalizedText string `json:"normalizedText"`
}

// State is the full persisted collection of snapshots.
type State struct {
	// Version is the format version, used for forward migration.
	Version int `json:"version"`

	// LastUpdatedAt is the time of the last successful save.
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`

	// Algorithm is the fingerprint algorithm of every stored snapshot.
	// Files written before the field existed decode with an empty value,
	// which means fingerprint.Default.
	Algorithm fingerprint.Algorithm `json:"algorithm,omitempty"`

	// Snapshots maps a source identifier to its last snapshot.
	Snapshots map[string]Snapshot `json:"snapshots"`
}

// New returns an empty State stamped with now.
func New(now time.Time) *State {
	return &State{
		Version:       CurrentVersion,
		LastUpdatedAt: now,
		Algorithm:     fingerprint.Default,
		Snapshots:     make(map[string]Snapshot),
	}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.Snapshots = maps.Clone(s.Snapshots)
	if c.Snapshots == nil {
		c.Snapshots = make(map[string]Snapshot)
	}
	return &c
}

// Lookup returns the snapshot for source, if any.
func (s *State) Lookup(source string) (Snapshot, bool) {
	snap, ok := s.Snapshots[source]
	return snap, ok
}

// Put records snap as the latest snapshot of source.
func (s *State) Put(source string, snap Snapshot) {
	if s.Snapshots == nil {
		s.Snapshots = make(map[string]Snapshot)
	}
	s.Snapshots[source] = snap
}

// Sources returns the tracked sources in sorted order.
func (s *State) Sources() []string {
	return slices.Sorted(maps.Keys(s.Snapshots))
}

// EffectiveAlgorithm returns the algorithm of the stored fingerprints,
// resolving the empty value to fingerprint.Default.
func (s *State) EffectiveAlgorithm() fingerprint.Algorithm {
	if s.Algorithm == "" {
		return fingerprint.Default
	}
	return s.Algorithm
}

// Rehash recomputes every stored fingerprint with f and records f's
// algorithm. It returns the number of snapshots whose fingerprint changed.
func (s *State) Rehash(f *fingerprint.Fingerprinter) int {
	changed := 0
	for source, snap := range s.Snapshots {
		fp := f.Sum(snap.NormalizedText)
		if fp != snap.Fingerprint {
			snap.Fingerprint = fp
			s.Snapshots[source] = snap
			changed++
		}
	}
	s.Algorithm = f.Algorithm()
	return changed
}

// Prune removes snapshots for sources not in keep and returns the removed
// sources in sorted order.
func (s *State) Prune(keep []string) []string {
	wanted := make(map[string]struct{}, len(keep))
	for _, source := range keep {
		wanted[source] = struct{}{}
	}

	var removed []string
	for _, source := range s.Sources() {
		if _, ok := wanted[source]; !ok {
			delete(s.Snapshots, source)
			removed = append(removed, source)
		}
	}
	return removed
}
