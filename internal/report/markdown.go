package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/gocrawler/internal/model"
)

// failureAlertRatio is the failure share above which the report warns.
const failureAlertRatio = 0.5

// MarkdownWriter renders reports as GitHub Flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	if report.Stats != nil {
		w.writeStats(md, report)
	}
	w.writeSummary(md, &report.Summary)
	w.writeTopSites(md, report.Summary.TopSites)
	w.writeFooter(md, report)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	md.H1("Crawl Report")
	md.PlainText("")

	rows := [][]string{}
	if run := report.Run; run != nil {
		rows = append(rows,
			[]string{"Run", "`" + run.ID.String() + "`"},
			[]string{"Started", run.StartedAt.Format(timeLayout)},
		)
		if run.Finished() {
			rows = append(rows, []string{"Finished", run.FinishedAt.Format(timeLayout)})
		}
		rows = append(rows, []string{"Seeds", strconv.Itoa(len(run.Seeds))})
	}
	rows = append(rows, []string{"Status", report.Status()})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStats(md *markdown.Markdown, report *Report) {
	stats := report.Stats

	md.H2("This Run")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Processed", formatInt(stats.Processed)},
			{"HTML pages", formatInt(stats.HTML)},
			{"Duplicates", formatInt(stats.Duplicate)},
			{"Binaries", formatInt(stats.Binary)},
			{"Images", formatInt(stats.Images)},
			{"Links queued", formatInt(stats.LinksQueued)},
			{"Failed", formatInt(stats.Failed)},
			{"Elapsed", stats.Elapsed.Round(time.Second).String()},
		},
	})
	md.PlainText("")

	switch {
	case report.FailureRatio() > failureAlertRatio:
		md.Warningf("%d of %d items failed. Check connectivity, the proxy, or the seeds.",
			stats.Failed, stats.Processed)
	case stats.Failed > 0:
		md.Note(fmt.Sprintf("%d item(s) failed and were dropped.", stats.Failed))
	default:
		md.Tip("Every item was processed without failure.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H2("Database")
	md.PlainText("")

	rows := [][]string{{"Sites", strconv.Itoa(summary.Sites)}}
	for _, t := range model.PageTypes {
		rows = append(rows, []string{t.String() + " pages", strconv.Itoa(summary.Pages[t])})
	}
	rows = append(rows,
		[]string{"Links", strconv.Itoa(summary.Links)},
		[]string{"Pending links", strconv.Itoa(summary.PendingLinks)},
		[]string{"Images", strconv.Itoa(summary.Images)},
		[]string{"Binary blobs", strconv.Itoa(summary.BinaryBlobs)},
	)
	md.Table(markdown.TableSet{
		Header: []string{"Record", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.TotalPages() > 0 {
		w.writePieChart(md, summary)
	}
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.CrawlSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Types"),
		piechart.WithShowData(true),
	)
	for _, t := range model.PageTypes {
		if n := summary.Pages[t]; n > 0 {
			chart.LabelAndIntValue(t.String(), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeTopSites(md *markdown.Markdown, sites []model.SiteCount) {
	md.H2("Top Sites")
	md.PlainText("")

	if len(sites) == 0 {
		md.PlainText("No pages stored yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(sites))
	for i, site := range sites {
		rows[i] = []string{strconv.Itoa(i + 1), "`" + site.Domain + "`", strconv.Itoa(site.Pages)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Site", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, report *Report) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [gocrawler](https://github.com/nao1215/gocrawler) at %s*",
		report.GeneratedAt.Format(timeLayout))
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
