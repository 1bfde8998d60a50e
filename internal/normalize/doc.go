// Package normalize converts fetched documents into a canonical text form.
//
// The canonical form suppresses formatting churn that does not change what a
// reader sees: line-ending conventions, trailing whitespace and blank lines.
// Everything else, including the order of non-empty lines, is preserved, so
// any change to actual textual content still changes the canonical form.
package normalize
