// Package report renders crawl reports.
//
// A Report combines the run record, the engine counters of that run and
// the aggregate contents of the store. Writers render it:
//   - SimpleWriter: aligned plain text for the terminal
//   - MarkdownWriter: GitHub Flavored Markdown with tables, alerts and a
//     mermaid pie chart of page types
//   - JSONWriter: structured JSON for other tools
//
// Writers implement the Writer interface and can be combined with
// NewMultiWriter.
package report
