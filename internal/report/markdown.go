package report

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitewatch/internal/diff"
	"github.com/nao1215/sitewatch/internal/fingerprint"
	"github.com/nao1215/sitewatch/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for pasting into issues and chat.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.RunResult) (int, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeChanges(md, result)
	w.writeFailures(md, result)
	w.writeFooter(md)

	if err := md.Build(); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.RunResult) {
	md.H1("sitewatch Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run Started", result.StartedAt.Format(timeLayout)},
			{"Duration", result.Duration().Round(1e6).String()},
			{"Sources", strconv.Itoa(len(result.Sources))},
			{"Outcome", outcomeText(result.Outcome())},
		},
	})
	md.PlainText("")
}

func outcomeText(o model.Outcome) string {
	switch o {
	case model.OutcomeChanged:
		return "🔔 Changed"
	case model.OutcomeFetchFailed:
		return "⚠️ Fetch failures"
	default:
		return "✅ Clean"
	}
}

// writeSummary writes the per-status counts, a pie chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.RunResult) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"Changed", strconv.Itoa(len(result.ChangedSources))},
			{"Fetch failed", strconv.Itoa(len(result.Failures))},
			{"New", strconv.Itoa(len(result.Baselines))},
			{"Unchanged", strconv.Itoa(len(result.Unchanged))},
		},
	})
	md.PlainText("")

	if len(result.Sources) > 0 {
		w.writePieChart(md, result)
	}

	switch result.Outcome() {
	case model.OutcomeChanged:
		md.Warningf("%d watched source(s) changed since the last run.", len(result.ChangedSources))
	case model.OutcomeFetchFailed:
		md.Cautionf("%d source(s) could not be fetched. Their previous content is kept.", len(result.Failures))
	default:
		md.Tip("No changes detected.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of source statuses.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *model.RunResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Source Status"),
		piechart.WithShowData(true),
	)

	slices := []struct {
		label string
		n     int
	}{
		{"Changed", len(result.ChangedSources)},
		{"Fetch failed", len(result.Failures)},
		{"New", len(result.Baselines)},
		{"Unchanged", len(result.Unchanged)},
	}
	for _, s := range slices {
		if s.n > 0 {
			chart.LabelAndIntValue(s.label, uint64(s.n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeChanges writes one section per changed source with its diff excerpt.
func (w *MarkdownWriter) writeChanges(md *markdown.Markdown, result *model.RunResult) {
	if !result.HasChanges() {
		return
	}

	md.H2("Changes")
	md.PlainText("")

	for _, report := range result.ChangeReports() {
		md.H3(report.Source)
		md.PlainText("")
		md.PlainTextf("Fingerprint `%s` → `%s`",
			fingerprint.Short(report.PreviousFingerprint),
			fingerprint.Short(report.CurrentFingerprint),
		)
		md.PlainText("")
		if report.DiffExcerpt == "" {
			md.Note("The content changed but no line-level difference remains after normalization.")
		} else {
			md.PlainText(fencedBlock("diff", report.DiffExcerpt))
			if diff.IsTruncated(report.DiffExcerpt) {
				md.PlainText("")
				md.Note("The excerpt was truncated. Set maxDiffLines to 0 for the full diff.")
			}
		}
		md.PlainText("")
	}
}

// writeFailures writes the table of sources that could not be fetched.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *model.RunResult) {
	if !result.HasFailures() {
		return
	}

	md.H2("Fetch Failures")
	md.PlainText("")

	rows := make([][]string, len(result.Failures))
	for i, f := range result.Failures {
		rows[i] = []string{f.Source, truncateString(f.Reason, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitewatch](https://github.com/nao1215/sitewatch)*")
}

// fencedBlock wraps code in a fence longer than any backtick run inside it,
// so page content cannot close the block early.
func fencedBlock(lang, code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	fence := strings.Repeat("`", max(3, longest+1))
	return fence + lang + "\n" + code + "\n" + fence
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
