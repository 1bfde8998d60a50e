package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitewatch/internal/model"
)

// SimpleWriter outputs plain text reports.
//
// A clean run produces no output at all unless verbose is set, so a
// scheduler that mails non-empty output only notifies on changes.
type SimpleWriter struct {
	baseWriter

	// verbose adds the run summary and the unchanged and baseline sources.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the result in human-readable format.
func (w *SimpleWriter) Write(result *model.RunResult) (int, error) {
	var sb strings.Builder

	if w.verbose {
		w.writeSummary(&sb, result)
	}
	w.writeChanges(&sb, result)
	w.writeFailures(&sb, result)
	if w.verbose {
		w.writeSourceList(&sb, "NEW (baseline recorded):", result.Baselines)
		w.writeSourceList(&sb, "UNCHANGED:", result.Unchanged)
	}

	if sb.Len() == 0 {
		return 0, nil
	}
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.RunResult) {
	fmt.Fprintf(sb, "Run:       %s (%s)\n", result.StartedAt.Format(timeLayout), result.Duration().Round(1e6))
	fmt.Fprintf(sb, "Outcome:   %s\n", result.Outcome())
	fmt.Fprintf(sb, "Sources:   %d (changed %d, failed %d, new %d, unchanged %d)\n\n",
		len(result.Sources),
		len(result.ChangedSources),
		len(result.Failures),
		len(result.Baselines),
		len(result.Unchanged),
	)
}

func (w *SimpleWriter) writeChanges(sb *strings.Builder, result *model.RunResult) {
	if !result.HasChanges() {
		return
	}

	sb.WriteString("CHANGED:\n")
	for _, source := range result.ChangedSources {
		sb.WriteString(source)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	for _, report := range result.ChangeReports() {
		sb.WriteString(strings.Repeat("=", 70))
		sb.WriteString("\n")
		sb.WriteString(report.Source)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("=", 70))
		sb.WriteString("\n")
		if report.DiffExcerpt == "" {
			sb.WriteString("(no line-level difference)\n")
		} else {
			sb.WriteString(report.DiffExcerpt)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, result *model.RunResult) {
	if !result.HasFailures() {
		return
	}

	sb.WriteString("FETCH FAILED:\n")
	for _, f := range result.Failures {
		fmt.Fprintf(sb, "%s: %s\n", f.Source, f.Reason)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSourceList(sb *strings.Builder, title string, sources []string) {
	if len(sources) == 0 {
		return
	}
	sb.WriteString(title)
	sb.WriteString("\n")
	for _, source := range sources {
		sb.WriteString(source)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}
