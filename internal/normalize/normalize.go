package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
)

// Separator is the line separator used in normalized text.
const Separator = "\n"

// lineBreaks maps CRLF and lone CR onto LF. CRLF must come first so that it
// is not turned into two line breaks.
var lineBreaks = strings.NewReplacer("\r\n", Separator, "\r", Separator)

// Text returns the canonical form of raw.
//
// Lines are split on CR, LF and CRLF alike, trailing whitespace is stripped
// from each line, lines that end up empty are dropped and the rest are joined
// with Separator. The result never ends with a separator. Invalid UTF-8 is
// replaced with U+FFFD before anything else happens.
//
// Text is pure and idempotent: Text(Text(x)) == Text(x).
func Text(raw string) string {
	raw = ValidUTF8(raw)

	lines := strings.Split(lineBreaks.Replace(raw), Separator)
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, Separator)
}

// Lines splits normalized text back into its lines.
// The empty string has no lines.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, Separator)
}

// ValidUTF8 returns s with every invalid byte sequence replaced by U+FFFD.
// Valid input is returned unchanged.
func ValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := xunicode.UTF8.NewDecoder().String(s)
	if err != nil || !utf8.ValidString(decoded) {
		return strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return decoded
}
