package database

// sqliteSchema creates the SQLite tables. Statements run one by one.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		seeds TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		stats TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS sites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_id INTEGER NOT NULL REFERENCES sites(id),
		page_type_code TEXT NOT NULL,
		url TEXT NOT NULL,
		html_content TEXT,
		http_status_code INTEGER,
		accessed_time TIMESTAMP NOT NULL,
		html_hash TEXT UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_site ON pages(site_id)`,
	`CREATE TABLE IF NOT EXISTS links (
		from_page INTEGER NOT NULL REFERENCES pages(id),
		to_page INTEGER NOT NULL REFERENCES pages(id),
		PRIMARY KEY (from_page, to_page)
	)`,
	`CREATE TABLE IF NOT EXISTS pending_links (
		from_page INTEGER NOT NULL REFERENCES pages(id),
		to_url TEXT NOT NULL,
		PRIMARY KEY (from_page, to_url)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_links_url ON pending_links(to_url)`,
	`CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_id INTEGER NOT NULL REFERENCES pages(id),
		filename VARCHAR(255) NOT NULL,
		content_type VARCHAR(50),
		data BLOB,
		accessed_time TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS page_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_id INTEGER NOT NULL REFERENCES pages(id),
		data_type_code TEXT NOT NULL,
		data BLOB
	)`,
}

// postgresSchema creates the PostgreSQL tables.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS crawl_runs (
		id UUID PRIMARY KEY,
		seeds TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		stats TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS sites (
		id BIGSERIAL PRIMARY KEY,
		domain TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS pages (
		id BIGSERIAL PRIMARY KEY,
		site_id BIGINT NOT NULL REFERENCES sites(id),
		page_type_code TEXT NOT NULL,
		url TEXT NOT NULL,
		html_content TEXT,
		http_status_code INTEGER,
		accessed_time TIMESTAMPTZ NOT NULL,
		html_hash TEXT UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_site ON pages(site_id)`,
	`CREATE TABLE IF NOT EXISTS links (
		from_page BIGINT NOT NULL REFERENCES pages(id),
		to_page BIGINT NOT NULL REFERENCES pages(id),
		PRIMARY KEY (from_page, to_page)
	)`,
	`CREATE TABLE IF NOT EXISTS pending_links (
		from_page BIGINT NOT NULL REFERENCES pages(id),
		to_url TEXT NOT NULL,
		PRIMARY KEY (from_page, to_url)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_links_url ON pending_links(to_url)`,
	`CREATE TABLE IF NOT EXISTS images (
		id BIGSERIAL PRIMARY KEY,
		page_id BIGINT NOT NULL REFERENCES pages(id),
		filename VARCHAR(255) NOT NULL,
		content_type VARCHAR(50),
		data BYTEA,
		accessed_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS page_data (
		id BIGSERIAL PRIMARY KEY,
		page_id BIGINT NOT NULL REFERENCES pages(id),
		data_type_code TEXT NOT NULL,
		data BYTEA
	)`,
}
