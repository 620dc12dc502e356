package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/gocrawler/internal/model"
)

// GetOrCreateSite returns the id of the site for domain, creating it when
// absent. Concurrent callers for one domain receive the same id.
func (s *Store) GetOrCreateSite(ctx context.Context, domain string) (int64, error) {
	insert := s.db.Rebind(`INSERT INTO sites (domain) VALUES (?) ON CONFLICT (domain) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, insert, domain); err != nil {
		return 0, fmt.Errorf("failed to insert site: %w", err)
	}

	var id int64
	query := s.db.Rebind(`SELECT id FROM sites WHERE domain = ?`)
	if err := s.db.GetContext(ctx, &id, query, domain); err != nil {
		return 0, fmt.Errorf("failed to get site: %w", err)
	}
	return id, nil
}

// ListSites returns every site ordered by id.
func (s *Store) ListSites(ctx context.Context) ([]model.Site, error) {
	var sites []model.Site
	if err := s.db.SelectContext(ctx, &sites, `SELECT id, domain FROM sites ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return sites, nil
}

// StorePage writes page and returns its id, which is also set on page.
//
// A page carrying a hash claims that hash atomically: when another page
// already holds it nothing is written and ErrDuplicateContent is returned.
// In the same transaction, links parked in pending_links for the page's
// address become real links to the new page.
func (s *Store) StorePage(ctx context.Context, page *model.PageRecord) (int64, error) {
	return s.storePage(ctx, page, nil)
}

// StoreBinaryPage writes a BINARY page together with its payload. Either
// both rows are written or neither is. blob.PageID is set to the new id.
func (s *Store) StoreBinaryPage(ctx context.Context, page *model.PageRecord, blob *model.BinaryBlob) (int64, error) {
	return s.storePage(ctx, page, blob)
}

// storePage inserts page, resolves its pending links and, when blob is not
// nil, inserts its payload, all in one transaction.
func (s *Store) storePage(ctx context.Context, page *model.PageRecord, blob *model.BinaryBlob) (int64, error) {
	accessed := page.AccessedAt
	if accessed.IsZero() {
		accessed = time.Now()
	}

	var content sql.NullString
	if page.HasContent() {
		content = sql.NullString{String: page.Content, Valid: true}
	}
	hash := sql.NullString{String: page.Hash, Valid: page.Hash != ""}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	insert := tx.Rebind(`
	INSERT INTO pages (site_id, page_type_code, url, html_content, http_status_code, accessed_time, html_hash)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (html_hash) DO NOTHING
	RETURNING id
	`)

	var id int64
	err = tx.QueryRowxContext(ctx, insert,
		page.SiteID,
		string(page.Type),
		page.URL,
		content,
		page.StatusCode,
		accessed.UTC(),
		hash,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateContent, page.URL)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert page: %w", err)
	}

	if blob != nil {
		data := tx.Rebind(`INSERT INTO page_data (page_id, data_type_code, data) VALUES (?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, data, id, string(blob.DataType), blob.Data); err != nil {
			return 0, fmt.Errorf("failed to insert binary blob: %w", err)
		}
	}

	resolve := tx.Rebind(`
	INSERT INTO links (from_page, to_page)
	SELECT from_page, ? FROM pending_links WHERE to_url = ?
	ON CONFLICT DO NOTHING
	`)
	if _, err := tx.ExecContext(ctx, resolve, id, page.URL); err != nil {
		return 0, fmt.Errorf("failed to resolve pending links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM pending_links WHERE to_url = ?`), page.URL); err != nil {
		return 0, fmt.Errorf("failed to clear pending links: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit page: %w", err)
	}

	page.ID = id
	page.AccessedAt = accessed
	if blob != nil {
		blob.PageID = id
	}
	return id, nil
}

// RecordLink records that fromPage links to toAddress. When a page for
// toAddress exists the link is stored at once; otherwise it waits in
// pending_links until StorePage writes that address.
func (s *Store) RecordLink(ctx context.Context, fromPage int64, toAddress string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	var toPage int64
	lookup := tx.Rebind(`SELECT id FROM pages WHERE url = ? ORDER BY id DESC LIMIT 1`)
	err = tx.GetContext(ctx, &toPage, lookup, toAddress)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		park := tx.Rebind(`INSERT INTO pending_links (from_page, to_url) VALUES (?, ?) ON CONFLICT DO NOTHING`)
		if _, err := tx.ExecContext(ctx, park, fromPage, toAddress); err != nil {
			return fmt.Errorf("failed to insert pending link: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up link target: %w", err)
	default:
		link := tx.Rebind(`INSERT INTO links (from_page, to_page) VALUES (?, ?) ON CONFLICT DO NOTHING`)
		if _, err := tx.ExecContext(ctx, link, fromPage, toPage); err != nil {
			return fmt.Errorf("failed to insert link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit link: %w", err)
	}
	return nil
}

// StoreLink stores a link between two existing pages. Storing the same
// link twice is a no-op.
func (s *Store) StoreLink(ctx context.Context, fromPage, toPage int64) error {
	query := s.db.Rebind(`INSERT INTO links (from_page, to_page) VALUES (?, ?) ON CONFLICT DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, query, fromPage, toPage); err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

// LinksFrom returns the links stored for fromPage.
func (s *Store) LinksFrom(ctx context.Context, fromPage int64) ([]model.LinkRecord, error) {
	var links []model.LinkRecord
	query := s.db.Rebind(`SELECT from_page, to_page FROM links WHERE from_page = ? ORDER BY to_page`)
	if err := s.db.SelectContext(ctx, &links, query, fromPage); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// StoreImage writes image and returns its id. The filename is truncated to
// model.MaxImageAddressLength characters.
func (s *Store) StoreImage(ctx context.Context, image *model.ImageRecord) (int64, error) {
	accessed := image.AccessedAt
	if accessed.IsZero() {
		accessed = time.Now()
	}

	query := s.db.Rebind(`
	INSERT INTO images (page_id, filename, content_type, data, accessed_time)
	VALUES (?, ?, ?, ?, ?)
	RETURNING id
	`)

	var id int64
	err := s.db.QueryRowxContext(ctx, query,
		image.PageID,
		model.TruncateAddress(image.Filename, model.MaxImageAddressLength),
		image.ContentType,
		image.Data,
		accessed.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert image: %w", err)
	}
	return id, nil
}

// StoreBinaryBlob writes the payload of an existing BINARY page. New
// documents go through StoreBinaryPage.
func (s *Store) StoreBinaryBlob(ctx context.Context, blob *model.BinaryBlob) error {
	query := s.db.Rebind(`INSERT INTO page_data (page_id, data_type_code, data) VALUES (?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, blob.PageID, string(blob.DataType), blob.Data); err != nil {
		return fmt.Errorf("failed to insert binary blob: %w", err)
	}
	return nil
}

// LookupPageIDByAddress returns the id of the most recent page stored for
// address, or ErrNotFound.
func (s *Store) LookupPageIDByAddress(ctx context.Context, address string) (int64, error) {
	var id int64
	query := s.db.Rebind(`SELECT id FROM pages WHERE url = ? ORDER BY id DESC LIMIT 1`)
	err := s.db.GetContext(ctx, &id, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up page: %w", err)
	}
	return id, nil
}

// HasContentHash reports whether a page with hash is stored.
func (s *Store) HasContentHash(ctx context.Context, hash string) (bool, error) {
	var count int
	query := s.db.Rebind(`SELECT COUNT(*) FROM pages WHERE html_hash = ?`)
	if err := s.db.GetContext(ctx, &count, query, hash); err != nil {
		return false, fmt.Errorf("failed to check content hash: %w", err)
	}
	return count > 0, nil
}

// pageRow is the scan target of GetPage.
type pageRow struct {
	ID         int64          `db:"id"`
	SiteID     int64          `db:"site_id"`
	Type       string         `db:"page_type_code"`
	URL        string         `db:"url"`
	Content    sql.NullString `db:"html_content"`
	StatusCode sql.NullInt64  `db:"http_status_code"`
	AccessedAt string         `db:"accessed_time"`
	Hash       sql.NullString `db:"html_hash"`
}

// GetPage returns the page with id, or ErrNotFound.
func (s *Store) GetPage(ctx context.Context, id int64) (*model.PageRecord, error) {
	var row pageRow
	query := s.db.Rebind(`
	SELECT id, site_id, page_type_code, url, html_content, http_status_code, accessed_time, html_hash
	FROM pages WHERE id = ?
	`)
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	return &model.PageRecord{
		ID:         row.ID,
		SiteID:     row.SiteID,
		Type:       model.PageType(row.Type),
		URL:        row.URL,
		Content:    row.Content.String,
		StatusCode: int(row.StatusCode.Int64),
		AccessedAt: parseTimestamp(row.AccessedAt),
		Hash:       row.Hash.String,
	}, nil
}
