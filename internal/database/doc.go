// Package database persists crawl results.
//
// The Store keeps sites, pages, the links between pages, images found on
// pages, binary document payloads and a record of every crawl run. SQLite
// (via modernc.org/sqlite, CGO-free) is the default backend and lives in a
// single file; PostgreSQL is available through the pgx driver for crawls
// shared by several processes.
//
// Two constraints carry the crawler's consistency guarantees:
//   - sites.domain is unique, and GetOrCreateSite inserts with
//     ON CONFLICT DO NOTHING before selecting, so racing callers agree on
//     one identifier.
//   - pages.html_hash is unique, and StorePage inserts with
//     ON CONFLICT DO NOTHING RETURNING id. When another page already
//     claimed the hash no row comes back and ErrDuplicateContent is
//     returned, which makes the duplicate check and the hash record one
//     atomic step.
//
// Links discovered towards addresses that have no page yet are parked in
// pending_links and turned into real links when the target page is stored.
package database
