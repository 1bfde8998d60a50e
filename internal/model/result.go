package model

import (
	"encoding/json"
	"time"
)

// ChangeReport describes one source whose fingerprint differs from the
// stored snapshot.
type ChangeReport struct {
	// Source is the changed source.
	Source string `json:"source"`

	// PreviousFingerprint is the fingerprint stored before this run.
	PreviousFingerprint string `json:"previous_fingerprint"`

	// CurrentFingerprint is the fingerprint of the freshly fetched content.
	CurrentFingerprint string `json:"current_fingerprint"`

	// DiffExcerpt is a bounded unified diff between the previous and current
	// normalized text. It may be empty.
	DiffExcerpt string `json:"diff_excerpt"`
}

// FetchFailure records a source that could not be retrieved.
// The previous snapshot of the source is left untouched.
type FetchFailure struct {
	// Source is the failed source.
	Source string `json:"source"`

	// Reason is the human-readable failure cause.
	Reason string `json:"reason"`

	// Err is the underlying error. It is not serialized.
	Err error `json:"-"`
}

// RunResult is everything one detection run observed.
// All source lists follow the configured source order.
type RunResult struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run finished evaluating sources.
	FinishedAt time.Time `json:"finished_at"`

	// Sources is the de-duplicated source list the run processed.
	Sources []string `json:"sources"`

	// ChangedSources lists sources whose content changed.
	ChangedSources []string `json:"changed_sources"`

	// Reports maps each changed source to its ChangeReport.
	Reports map[string]ChangeReport `json:"reports"`

	// Failures lists sources that could not be fetched.
	Failures []FetchFailure `json:"failures"`

	// Baselines lists sources observed for the first time.
	Baselines []string `json:"baselines"`

	// Unchanged lists sources whose fingerprint matched the stored one.
	Unchanged []string `json:"unchanged"`
}

// NewRunResult returns an empty RunResult for sources started at startedAt.
func NewRunResult(startedAt time.Time, sources []string) *RunResult {
	return &RunResult{
		StartedAt:      startedAt,
		Sources:        sources,
		ChangedSources: []string{},
		Reports:        make(map[string]ChangeReport),
		Failures:       []FetchFailure{},
		Baselines:      []string{},
		Unchanged:      []string{},
	}
}

// AddChange records a changed source.
func (r *RunResult) AddChange(report ChangeReport) {
	r.ChangedSources = append(r.ChangedSources, report.Source)
	r.Reports[report.Source] = report
}

// AddFailure records a fetch failure for source.
func (r *RunResult) AddFailure(source string, err error) {
	r.Failures = append(r.Failures, FetchFailure{
		Source: source,
		Reason: err.Error(),
		Err:    err,
	})
}

// AddBaseline records a first observation of source.
func (r *RunResult) AddBaseline(source string) {
	r.Baselines = append(r.Baselines, source)
}

// AddUnchanged records a source whose content did not change.
func (r *RunResult) AddUnchanged(source string) {
	r.Unchanged = append(r.Unchanged, source)
}

// HasChanges reports whether any source changed.
func (r *RunResult) HasChanges() bool {
	return len(r.ChangedSources) > 0
}

// HasFailures reports whether any source failed to fetch.
func (r *RunResult) HasFailures() bool {
	return len(r.Failures) > 0
}

// Outcome derives the run classification. Changes take precedence over
// fetch failures.
func (r *RunResult) Outcome() Outcome {
	switch {
	case r.HasChanges():
		return OutcomeChanged
	case r.HasFailures():
		return OutcomeFetchFailed
	default:
		return OutcomeClean
	}
}

// Duration returns how long the run took.
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ChangeReports returns the ChangeReports in ChangedSources order.
func (r *RunResult) ChangeReports() []ChangeReport {
	reports := make([]ChangeReport, 0, len(r.ChangedSources))
	for _, source := range r.ChangedSources {
		reports = append(reports, r.Reports[source])
	}
	return reports
}

// runResultJSON is the wire form of RunResult with the derived outcome.
type runResultJSON struct {
	Outcome Outcome `json:"outcome"`
	*runResultAlias
}

type runResultAlias RunResult

// MarshalJSON adds the derived outcome to the serialized form.
func (r *RunResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(runResultJSON{
		Outcome:        r.Outcome(),
		runResultAlias: (*runResultAlias)(r),
	})
}

// UnmarshalJSON decodes a RunResult. The outcome field is ignored because it
// is always derived.
func (r *RunResult) UnmarshalJSON(data []byte) error {
	var aux runResultJSON
	aux.runResultAlias = (*runResultAlias)(r)
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.Reports == nil {
		r.Reports = make(map[string]ChangeReport)
	}
	return nil
}
