package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/gocrawler/internal/model"
)

// StartRun records the start of a crawl seeded with seeds.
func (s *Store) StartRun(ctx context.Context, seeds []string) (model.CrawlRun, error) {
	run := model.CrawlRun{
		ID:        uuid.New(),
		Seeds:     append([]string(nil), seeds...),
		StartedAt: time.Now().UTC(),
	}

	seedsJSON, err := json.Marshal(run.Seeds)
	if err != nil {
		return model.CrawlRun{}, fmt.Errorf("failed to serialize seeds: %w", err)
	}

	query := s.db.Rebind(`INSERT INTO crawl_runs (id, seeds, started_at) VALUES (?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, run.ID.String(), string(seedsJSON), run.StartedAt); err != nil {
		return model.CrawlRun{}, fmt.Errorf("failed to insert crawl run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final counters of run id.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, stats model.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to serialize stats: %w", err)
	}

	query := s.db.Rebind(`UPDATE crawl_runs SET finished_at = ?, stats = ? WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), string(statsJSON), id.String())
	if err != nil {
		return fmt.Errorf("failed to update crawl run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("crawl run %s: %w", id, ErrNotFound)
	}
	return nil
}

// runRow is the scan target for crawl_runs.
type runRow struct {
	ID         string         `db:"id"`
	Seeds      string         `db:"seeds"`
	StartedAt  string         `db:"started_at"`
	FinishedAt sql.NullString `db:"finished_at"`
	Stats      sql.NullString `db:"stats"`
}

// LatestRun returns the most recently started run, or ErrNotFound.
func (s *Store) LatestRun(ctx context.Context) (model.CrawlRun, error) {
	var row runRow
	query := `SELECT id, seeds, started_at, finished_at, stats FROM crawl_runs ORDER BY started_at DESC LIMIT 1`
	err := s.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CrawlRun{}, ErrNotFound
	}
	if err != nil {
		return model.CrawlRun{}, fmt.Errorf("failed to get latest crawl run: %w", err)
	}
	return row.toModel()
}

func (r runRow) toModel() (model.CrawlRun, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.CrawlRun{}, fmt.Errorf("failed to parse run id: %w", err)
	}

	run := model.CrawlRun{
		ID:        id,
		StartedAt: parseTimestamp(r.StartedAt),
	}
	if err := json.Unmarshal([]byte(r.Seeds), &run.Seeds); err != nil {
		return model.CrawlRun{}, fmt.Errorf("failed to parse seeds: %w", err)
	}
	if r.FinishedAt.Valid {
		run.FinishedAt = parseTimestamp(r.FinishedAt.String)
	}
	if r.Stats.Valid && r.Stats.String != "" {
		var stats model.RunStats
		if err := json.Unmarshal([]byte(r.Stats.String), &stats); err != nil {
			return model.CrawlRun{}, fmt.Errorf("failed to parse stats: %w", err)
		}
		run.Stats = &stats
	}
	return run, nil
}

// timestampFormats are the layouts SQLite and PostgreSQL drivers hand back
// for timestamp columns scanned into strings, most specific first.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries every known layout and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
