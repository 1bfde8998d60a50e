// Package diff produces bounded, human-readable line diffs between two
// versions of a normalized document.
package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/nao1215/sitewatch/internal/normalize"
)

const (
	// DefaultMaxLines is the default excerpt length.
	DefaultMaxLines = 60

	// ContextLines is the number of unchanged lines shown around each change.
	ContextLines = 3

	fromLabel = "previous"
	toLabel   = "current"
)

// Excerpt returns a unified diff from oldText to newText, truncated to
// maxLines lines plus one truncation marker line.
//
// Both texts are expected to be normalized. Identical texts produce the
// empty string. A maxLines of zero or less disables truncation.
func Excerpt(oldText, newText string, maxLines int) string {
	if oldText == newText {
		return ""
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(oldText),
		B:        splitLines(newText),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  ContextLines,
	})
	if err != nil || unified == "" {
		return ""
	}

	lines := strings.Split(strings.TrimSuffix(unified, "\n"), "\n")
	return strings.Join(Truncate(lines, maxLines), "\n")
}

// Truncate keeps the first maxLines lines and appends a marker line
// describing how many were dropped. Short inputs are returned as is.
func Truncate(lines []string, maxLines int) []string {
	if maxLines <= 0 || len(lines) <= maxLines {
		return lines
	}
	kept := make([]string, 0, maxLines+1)
	kept = append(kept, lines[:maxLines]...)
	return append(kept, Marker(len(lines)-maxLines))
}

// Marker returns the line appended to a truncated excerpt.
func Marker(dropped int) string {
	return fmt.Sprintf("... (%d more lines truncated)", dropped)
}

// IsTruncated reports whether an excerpt ends with a truncation marker.
func IsTruncated(excerpt string) bool {
	last := excerpt
	if i := strings.LastIndexByte(excerpt, '\n'); i >= 0 {
		last = excerpt[i+1:]
	}
	return strings.HasPrefix(last, "... (") && strings.HasSuffix(last, " more lines truncated)")
}

// splitLines turns normalized text into difflib input lines, each carrying
// its own line terminator.
func splitLines(text string) []string {
	lines := normalize.Lines(text)
	for i := range lines {
		lines[i] += "\n"
	}
	return lines
}
