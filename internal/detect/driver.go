package detect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitewatch/internal/diff"
	"github.com/nao1215/sitewatch/internal/fingerprint"
	"github.com/nao1215/sitewatch/internal/model"
	"github.com/nao1215/sitewatch/internal/normalize"
	"github.com/nao1215/sitewatch/internal/pipeline"
	"github.com/nao1215/sitewatch/internal/state"
)

// Store loads and saves the persisted state. *state.Store implements it.
type Store interface {
	Load() (*state.State, error)
	Save(st *state.State) error
}

// Driver runs change detection passes.
type Driver struct {
	store         Store
	fetcher       Fetcher
	maxDiffLines  int
	concurrency   int
	fingerprinter *fingerprint.Fingerprinter
	logger        *slog.Logger
	now           func() time.Time
}

// New returns a Driver that persists through store and retrieves documents
// through fetcher.
func New(store Store, fetcher Fetcher, opts ...Option) *Driver {
	d := &Driver{
		store:         store,
		fetcher:       fetcher,
		maxDiffLines:  diff.DefaultMaxLines,
		concurrency:   pipeline.DefaultConcurrency,
		fingerprinter: fingerprint.DefaultFingerprinter(),
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run performs one detection pass over sources.
//
// The state is loaded before anything is fetched; a *state.CorruptStateError
// aborts the run without fetching or saving. Fetch failures are isolated per
// source and reported in the RunResult. The updated state is saved exactly
// once; a *state.PersistError is returned if that fails.
//
// Duplicate sources are processed once, at their first position. Snapshots of
// sources missing from the list are carried over unchanged.
func (d *Driver) Run(ctx context.Context, sources []string) (*model.RunResult, error) {
	st, err := d.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	sources = d.dedupe(sources)
	d.migrate(st)

	fetcher := pipeline.NewBatchFetcher(d.fetcher.Fetch,
		pipeline.WithConcurrency(d.concurrency),
		pipeline.WithBatchLogger(d.logger),
	)

	result := model.NewRunResult(d.now(), sources)
	d.logger.Info("starting detection run",
		"sources", len(sources),
		"tracked", len(st.Snapshots),
		"algorithm", d.fingerprinter.Algorithm(),
		"concurrency", fetcher.Concurrency(),
	)

	fetched := fetcher.FetchAll(ctx, sources)

	// Merge strictly in configured order.
	for _, r := range fetched {
		d.evaluate(st, result, r)
	}

	result.FinishedAt = d.now()
	st.Version = state.CurrentVersion
	st.LastUpdatedAt = result.FinishedAt.UTC()

	if err := d.store.Save(st); err != nil {
		return nil, fmt.Errorf("failed to save state: %w", err)
	}

	d.logger.Info("detection run complete",
		"outcome", result.Outcome(),
		"changed", len(result.ChangedSources),
		"failed", len(result.Failures),
		"baselines", len(result.Baselines),
		"elapsed", result.Duration(),
	)
	return result, nil
}

func (d *Driver) evaluate(st *state.State, result *model.RunResult, r pipeline.Result) {
	if r.Err != nil {
		result.AddFailure(r.Source, r.Err)
		return
	}

	text := normalize.Text(r.Body)
	current := state.Snapshot{
		Fingerprint:    d.fingerprinter.Sum(text),
		NormalizedText: text,
	}

	previous, ok := st.Lookup(r.Source)
	switch {
	case !ok:
		d.logger.Info("recorded baseline", "source", r.Source, "fingerprint", fingerprint.Short(current.Fingerprint))
		result.AddBaseline(r.Source)
	case previous.Fingerprint == current.Fingerprint:
		d.logger.Debug("unchanged", "source", r.Source)
		result.AddUnchanged(r.Source)
	default:
		excerpt := diff.Excerpt(previous.NormalizedText, current.NormalizedText, d.maxDiffLines)
		d.logger.Info("source changed",
			"source", r.Source,
			"previous", fingerprint.Short(previous.Fingerprint),
			"current", fingerprint.Short(current.Fingerprint),
			"truncated", diff.IsTruncated(excerpt),
		)
		result.AddChange(model.ChangeReport{
			Source:              r.Source,
			PreviousFingerprint: previous.Fingerprint,
			CurrentFingerprint:  current.Fingerprint,
			DiffExcerpt:         excerpt,
		})
	}

	st.Put(r.Source, current)
}

// migrate re-fingerprints stored snapshots written with another algorithm so
// every fingerprint matches the driver's algorithm before comparison.
func (d *Driver) migrate(st *state.State) {
	alg := d.fingerprinter.Algorithm()
	if st.EffectiveAlgorithm() == alg {
		st.Algorithm = alg
		return
	}
	from := st.EffectiveAlgorithm()
	n := st.Rehash(d.fingerprinter)
	d.logger.Info("re-fingerprinted stored snapshots",
		"from", from,
		"to", alg,
		"snapshots", n,
	)
}

func (d *Driver) dedupe(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, source := range sources {
		if _, dup := seen[source]; dup {
			d.logger.Warn("ignoring duplicate source", "source", source)
			continue
		}
		seen[source] = struct{}{}
		out = append(out, source)
	}
	return out
}
