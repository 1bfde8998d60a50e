package model

import "fmt"

// Outcome classifies a finished run.
type Outcome int

const (
	// OutcomeClean means every source was fetched and none changed.
	// Baselines recorded on first observation count as clean.
	OutcomeClean Outcome = iota

	// OutcomeChanged means at least one source changed. Fetch failures
	// may be present as well.
	OutcomeChanged

	// OutcomeFetchFailed means nothing changed but at least one source
	// could not be fetched.
	OutcomeFetchFailed
)

// String returns the lower-case name used in reports and the history database.
func (o Outcome) String() string {
	switch o {
	case OutcomeClean:
		return "clean"
	case OutcomeChanged:
		return "changed"
	case OutcomeFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "clean":
		return OutcomeClean, nil
	case "changed":
		return OutcomeChanged, nil
	case "fetch_failed":
		return OutcomeFetchFailed, nil
	default:
		return OutcomeClean, fmt.Errorf("unknown outcome %q", s)
	}
}
