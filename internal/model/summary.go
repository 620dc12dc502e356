package model

import (
	"time"

	"github.com/google/uuid"
)

// CrawlRun records one invocation of the crawler.
type CrawlRun struct {
	// ID uniquely identifies the run.
	ID uuid.UUID `json:"id"`

	// Seeds are the addresses the frontier was seeded with.
	Seeds []string `json:"seeds"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is zero while the run is in progress.
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// Stats holds the engine counters serialized when the run finished.
	Stats *RunStats `json:"stats,omitempty"`
}

// Finished reports whether the run has completed.
func (r *CrawlRun) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// RunStats are the counters reported by the crawl engine.
type RunStats struct {
	Processed   int64         `json:"processed"`
	Failed      int64         `json:"failed"`
	HTML        int64         `json:"html"`
	Duplicate   int64         `json:"duplicate"`
	Binary      int64         `json:"binary"`
	Images      int64         `json:"images"`
	LinksQueued int64         `json:"links_queued"`
	Elapsed     time.Duration `json:"elapsed"`
}

// SiteCount is the number of pages stored for one site.
type SiteCount struct {
	Domain string `json:"domain" db:"domain"`
	Pages  int    `json:"pages" db:"pages"`
}

// CrawlSummary aggregates the contents of the store.
type CrawlSummary struct {
	Sites        int              `json:"sites"`
	Pages        map[PageType]int `json:"pages"`
	Images       int              `json:"images"`
	Links        int              `json:"links"`
	PendingLinks int              `json:"pending_links"`
	BinaryBlobs  int              `json:"binary_blobs"`
	TopSites     []SiteCount      `json:"top_sites"`
}

// TotalPages returns the number of page records of every type.
func (s CrawlSummary) TotalPages() int {
	total := 0
	for _, n := range s.Pages {
		total += n
	}
	return total
}
