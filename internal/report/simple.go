package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/gocrawler/internal/model"
)

// SimpleWriter renders reports as aligned plain text.
type SimpleWriter struct {
	baseWriter

	// showSites lists the top sites.
	showSites bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithTopSites toggles the top sites section. It is on by default.
func WithTopSites(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showSites = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showSites:  true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	if report.Stats != nil {
		w.writeStats(&sb, report.Stats)
	}
	w.writeSummary(&sb, &report.Summary)
	if w.showSites {
		w.writeTopSites(&sb, report.Summary.TopSites)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                      CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	if run := report.Run; run != nil {
		fmt.Fprintf(sb, "Run:            %s\n", run.ID)
		fmt.Fprintf(sb, "Started:        %s\n", run.StartedAt.Format(timeLayout))
		if run.Finished() {
			fmt.Fprintf(sb, "Finished:       %s\n", run.FinishedAt.Format(timeLayout))
		}
		fmt.Fprintf(sb, "Seeds:          %s\n", strings.Join(run.Seeds, ", "))
	}
	fmt.Fprintf(sb, "Status:         %s\n", report.Status())
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeStats(sb *strings.Builder, stats *model.RunStats) {
	writeSection(sb, "THIS RUN")
	rows := []struct {
		label string
		value int64
	}{
		{"Processed", stats.Processed},
		{"HTML pages", stats.HTML},
		{"Duplicates", stats.Duplicate},
		{"Binaries", stats.Binary},
		{"Images", stats.Images},
		{"Links queued", stats.LinksQueued},
		{"Failed", stats.Failed},
	}
	for _, row := range rows {
		fmt.Fprintf(sb, "  %-14s %8d\n", row.label+":", row.value)
	}
	fmt.Fprintf(sb, "  %-14s %8s\n", "Elapsed:", stats.Elapsed.Round(time.Second))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.CrawlSummary) {
	writeSection(sb, "DATABASE")
	fmt.Fprintf(sb, "  %-14s %8d\n", "Sites:", summary.Sites)
	fmt.Fprintf(sb, "  %-14s %8d\n", "Pages:", summary.TotalPages())
	for _, t := range model.PageTypes {
		fmt.Fprintf(sb, "    %-12s %8d\n", strings.ToLower(t.String())+":", summary.Pages[t])
	}
	fmt.Fprintf(sb, "  %-14s %8d\n", "Links:", summary.Links)
	fmt.Fprintf(sb, "  %-14s %8d\n", "Pending links:", summary.PendingLinks)
	fmt.Fprintf(sb, "  %-14s %8d\n", "Images:", summary.Images)
	fmt.Fprintf(sb, "  %-14s %8d\n", "Binary blobs:", summary.BinaryBlobs)
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTopSites(sb *strings.Builder, sites []model.SiteCount) {
	if len(sites) == 0 {
		return
	}
	writeSection(sb, "TOP SITES")
	for i, site := range sites {
		fmt.Fprintf(sb, "  %2d. %-40s %6d\n", i+1, site.Domain, site.Pages)
	}
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", len(title)))
	sb.WriteString("\n")
}
