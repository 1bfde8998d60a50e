package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/sitewatch/internal/model"
)

func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleResult(started time.Time) *model.RunResult {
	r := model.NewRunResult(started, []string{"https://a.example", "https://b.example", "https://c.example"})
	r.AddChange(model.ChangeReport{
		Source:              "https://a.example",
		PreviousFingerprint: "aaa",
		CurrentFingerprint:  "bbb",
		DiffExcerpt:         "--- previous\n+++ current\n-x\n+y",
	})
	r.AddFailure("https://b.example", errors.New("GET https://b.example: 503 Service Unavailable"))
	r.AddUnchanged("https://c.example")
	r.FinishedAt = started.Add(2 * time.Second)
	return r
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopen keeps data", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, err := db.SaveRun(context.Background(), sampleResult(time.Now())); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("got %d runs, want 1", len(runs))
		}
	})
}

func TestSaveRunAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	id, err := db.SaveRun(ctx, sampleResult(started))
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if id <= 0 {
		t.Fatalf("SaveRun() id = %d", id)
	}

	got, err := db.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.Outcome() != model.OutcomeChanged {
		t.Errorf("Outcome() = %v, want changed", got.Outcome())
	}
	if report, ok := got.Reports["https://a.example"]; !ok || report.CurrentFingerprint != "bbb" {
		t.Errorf("Reports = %+v", got.Reports)
	}
	if len(got.Failures) != 1 || got.Failures[0].Source != "https://b.example" {
		t.Errorf("Failures = %+v", got.Failures)
	}
	if len(got.Unchanged) != 1 {
		t.Errorf("Unchanged = %v", got.Unchanged)
	}
}

func TestSaveRunNil(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if _, err := db.SaveRun(context.Background(), nil); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	_, err := db.GetRun(context.Background(), 42)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	clean := model.NewRunResult(base, []string{"https://a.example"})
	clean.AddUnchanged("https://a.example")
	clean.FinishedAt = base.Add(time.Second)

	failed := model.NewRunResult(base.Add(time.Hour), []string{"https://a.example"})
	failed.AddFailure("https://a.example", errors.New("timeout"))
	failed.FinishedAt = base.Add(time.Hour + time.Second)

	changed := sampleResult(base.Add(2 * time.Hour))

	for _, r := range []*model.RunResult{clean, failed, changed} {
		if _, err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	t.Run("all runs newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("got %d runs, want 3", len(runs))
		}
		want := []model.Outcome{model.OutcomeChanged, model.OutcomeFetchFailed, model.OutcomeClean}
		for i, run := range runs {
			if run.Outcome != want[i] {
				t.Errorf("runs[%d].Outcome = %v, want %v", i, run.Outcome, want[i])
			}
		}
		if runs[0].ChangedCount != 1 || runs[0].FailedCount != 1 || runs[0].SourceCount != 3 {
			t.Errorf("runs[0] counters = %+v", runs[0])
		}
		if !runs[2].StartedAt.Equal(base) {
			t.Errorf("runs[2].StartedAt = %v, want %v", runs[2].StartedAt, base)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("got %d runs, want 2", len(runs))
		}
	})
}

func TestSourceHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	first := sampleResult(base)
	second := model.NewRunResult(base.Add(time.Hour), []string{"https://a.example"})
	second.AddFailure("https://a.example", errors.New("connection refused"))
	second.FinishedAt = base.Add(time.Hour)

	for _, r := range []*model.RunResult{first, second} {
		if _, err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	events, err := db.SourceHistory(ctx, "https://a.example")
	if err != nil {
		t.Fatalf("SourceHistory() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != "fetch_failed" || events[0].Detail != "connection refused" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Kind != "changed" || events[1].Detail != "bbb" {
		t.Errorf("events[1] = %+v", events[1])
	}

	none, err := db.SourceHistory(ctx, "https://unknown.example")
	if err != nil {
		t.Fatalf("SourceHistory() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d events for unknown source", len(none))
	}
}

func TestDeleteBefore(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := range 3 {
		if _, err := db.SaveRun(ctx, sampleResult(base.Add(time.Duration(i)*24*time.Hour))); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	n, err := db.DeleteBefore(ctx, base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d runs, want 2", n)
	}

	runs, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs, want 1", len(runs))
	}

	events, err := db.SourceHistory(ctx, "https://a.example")
	if err != nil {
		t.Fatalf("SourceHistory() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("got %d events after delete, want 1", len(events))
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"stored layout", "2026-03-01T08:00:00.000000000Z", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		{"sqlite default", "2026-03-01 08:00:00", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		{"rfc3339", "2026-03-01T08:00:00Z", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		{"garbage", "yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
