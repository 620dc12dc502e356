package database

import (
	"context"
	"fmt"

	"github.com/nao1215/gocrawler/internal/model"
)

// topSitesLimit is the number of sites listed in a summary.
const topSitesLimit = 10

// Summary aggregates the store's contents.
func (s *Store) Summary(ctx context.Context) (model.CrawlSummary, error) {
	summary := model.CrawlSummary{
		Pages: make(map[model.PageType]int, len(model.PageTypes)),
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM sites`, &summary.Sites},
		{`SELECT COUNT(*) FROM images`, &summary.Images},
		{`SELECT COUNT(*) FROM links`, &summary.Links},
		{`SELECT COUNT(*) FROM pending_links`, &summary.PendingLinks},
		{`SELECT COUNT(*) FROM page_data`, &summary.BinaryBlobs},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dest, c.query); err != nil {
			return model.CrawlSummary{}, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	var byType []struct {
		Type  string `db:"page_type_code"`
		Count int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &byType,
		`SELECT page_type_code, COUNT(*) AS n FROM pages GROUP BY page_type_code`); err != nil {
		return model.CrawlSummary{}, fmt.Errorf("failed to count pages: %w", err)
	}
	for _, t := range model.PageTypes {
		summary.Pages[t] = 0
	}
	for _, row := range byType {
		summary.Pages[model.PageType(row.Type)] = row.Count
	}

	query := s.db.Rebind(`
	SELECT s.domain AS domain, COUNT(p.id) AS pages
	FROM sites s JOIN pages p ON p.site_id = s.id
	GROUP BY s.domain
	ORDER BY pages DESC, s.domain ASC
	LIMIT ?
	`)
	if err := s.db.SelectContext(ctx, &summary.TopSites, query, topSitesLimit); err != nil {
		return model.CrawlSummary{}, fmt.Errorf("failed to count pages per site: %w", err)
	}

	return summary, nil
}
