package report

import (
	"time"

	"github.com/nao1215/gocrawler/internal/model"
)

// Report is what the writers render.
type Report struct {
	// Run is the crawl run the report belongs to. It is nil when the report
	// only describes the store.
	Run *model.CrawlRun `json:"run,omitempty"`

	// Stats are the engine counters of Run, if known.
	Stats *model.RunStats `json:"stats,omitempty"`

	// Summary aggregates the store's contents.
	Summary model.CrawlSummary `json:"summary"`

	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// New builds a Report. Stats are taken from run when it carries them.
func New(run *model.CrawlRun, summary model.CrawlSummary) *Report {
	r := &Report{
		Run:         run,
		Summary:     summary,
		GeneratedAt: time.Now(),
	}
	if run != nil && run.Stats != nil {
		r.Stats = run.Stats
	}
	return r
}

// Status is a one-word state of the run: "complete", "running" or
// "unknown" when there is no run.
func (r *Report) Status() string {
	switch {
	case r.Run == nil:
		return "unknown"
	case r.Run.Finished():
		return "complete"
	default:
		return "running"
	}
}

// FailureRatio is the share of processed items that failed, in [0, 1].
func (r *Report) FailureRatio() float64 {
	if r.Stats == nil || r.Stats.Processed == 0 {
		return 0
	}
	return float64(r.Stats.Failed) / float64(r.Stats.Processed)
}
