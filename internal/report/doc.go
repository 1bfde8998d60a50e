// Package report renders a detection run for people and tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: plain text for terminals and scheduler mail
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub Flavored Markdown for issues and chat
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
