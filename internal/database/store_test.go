package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/gocrawler/internal/model"
)

// setupTestStore opens a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// storeHTML stores an HTML page on a fresh site and returns its id.
func storeHTML(t *testing.T, s *Store, siteID int64, address, hash string) int64 {
	t.Helper()

	id, err := s.StorePage(context.Background(), &model.PageRecord{
		SiteID:     siteID,
		Type:       model.PageTypeHTML,
		URL:        address,
		Content:    "<p>" + address + "</p>",
		StatusCode: 200,
		Hash:       hash,
	})
	if err != nil {
		t.Fatalf("StorePage(%s) error = %v", address, err)
	}
	return id
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "newdir", "subdir")
		s, err := Open(context.Background(), DefaultOptions(dir))
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer s.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if s.Path() != filepath.Join(dir, FileName) {
			t.Errorf("Path() = %q", s.Path())
		}
		if s.Driver() != DriverSQLite {
			t.Errorf("Driver() = %q", s.Driver())
		}
	})

	t.Run("missing database without create", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions(t.TempDir())
		opts.CreateIfNotExists = false
		if _, err := Open(context.Background(), opts); !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("Open() error = %v, want ErrDatabaseNotFound", err)
		}
	})

	t.Run("reopen existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		s, err := Open(context.Background(), DefaultOptions(dir))
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		id, err := s.GetOrCreateSite(context.Background(), "a.test")
		if err != nil {
			t.Fatalf("GetOrCreateSite() error = %v", err)
		}
		_ = s.Close()

		opts := DefaultOptions(dir)
		opts.CreateIfNotExists = false
		s, err = Open(context.Background(), opts)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer s.Close()

		again, err := s.GetOrCreateSite(context.Background(), "a.test")
		if err != nil {
			t.Fatalf("GetOrCreateSite() error = %v", err)
		}
		if again != id {
			t.Errorf("site id after reopen = %d, want %d", again, id)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()

		if _, err := Open(context.Background(), Options{Driver: "oracle"}); !errors.Is(err, ErrUnknownDriver) {
			t.Errorf("Open() error = %v, want ErrUnknownDriver", err)
		}
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		t.Parallel()

		if _, err := Open(context.Background(), Options{Driver: DriverPostgres}); !errors.Is(err, ErrMissingDSN) {
			t.Errorf("Open() error = %v, want ErrMissingDSN", err)
		}
	})

	t.Run("tracing wrapper", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions(t.TempDir())
		opts.Tracing = true
		s, err := Open(context.Background(), opts)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer s.Close()

		if _, err := s.GetOrCreateSite(context.Background(), "traced.test"); err != nil {
			t.Errorf("GetOrCreateSite() error = %v", err)
		}
	})
}

func TestGetOrCreateSite(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	a, err := s.GetOrCreateSite(ctx, "a.test")
	if err != nil {
		t.Fatalf("GetOrCreateSite() error = %v", err)
	}
	b, err := s.GetOrCreateSite(ctx, "b.test")
	if err != nil {
		t.Fatalf("GetOrCreateSite() error = %v", err)
	}
	if a == b {
		t.Errorf("distinct domains share id %d", a)
	}

	const callers = 16
	ids := make([]int64, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.GetOrCreateSite(ctx, "a.test")
			if err != nil {
				t.Errorf("GetOrCreateSite() error = %v", err)
			}
			ids[i] = id
		}()
	}
	wg.Wait()
	for _, id := range ids {
		if id != a {
			t.Errorf("concurrent GetOrCreateSite() = %d, want %d", id, a)
		}
	}

	sites, err := s.ListSites(ctx)
	if err != nil {
		t.Fatalf("ListSites() error = %v", err)
	}
	if len(sites) != 2 {
		t.Errorf("len(ListSites()) = %d, want 2", len(sites))
	}
}

func TestStorePage(t *testing.T) {
	t.Parallel()

	t.Run("stores and reads back an html page", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		ctx := context.Background()
		site, _ := s.GetOrCreateSite(ctx, "a.test")

		accessed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		page := &model.PageRecord{
			SiteID:     site,
			Type:       model.PageTypeHTML,
			URL:        "http://a.test/",
			Content:    "<p>hello</p>",
			StatusCode: 200,
			AccessedAt: accessed,
			Hash:       "abc",
		}
		id, err := s.StorePage(ctx, page)
		if err != nil {
			t.Fatalf("StorePage() error = %v", err)
		}
		if page.ID != id {
			t.Errorf("page.ID = %d, want %d", page.ID, id)
		}

		got, err := s.GetPage(ctx, id)
		if err != nil {
			t.Fatalf("GetPage() error = %v", err)
		}
		if got.Content != "<p>hello</p>" || got.Hash != "abc" || got.Type != model.PageTypeHTML {
			t.Errorf("GetPage() = %+v", got)
		}
		if !got.AccessedAt.Equal(accessed) {
			t.Errorf("AccessedAt = %v, want %v", got.AccessedAt, accessed)
		}

		if _, err := s.GetPage(ctx, id+100); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetPage(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("second page with same hash is rejected", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		ctx := context.Background()
		site, _ := s.GetOrCreateSite(ctx, "a.test")

		storeHTML(t, s, site, "http://a.test/one", "samehash")
		_, err := s.StorePage(ctx, &model.PageRecord{
			SiteID: site, Type: model.PageTypeHTML, URL: "http://a.test/two",
			Content: "<p>same</p>", StatusCode: 200, Hash: "samehash",
		})
		if !errors.Is(err, ErrDuplicateContent) {
			t.Fatalf("StorePage() error = %v, want ErrDuplicateContent", err)
		}
		if _, err := s.LookupPageIDByAddress(ctx, "http://a.test/two"); !errors.Is(err, ErrNotFound) {
			t.Errorf("rejected page was stored: %v", err)
		}
	})

	t.Run("pages without hash never conflict", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		ctx := context.Background()
		site, _ := s.GetOrCreateSite(ctx, "a.test")

		for range 3 {
			_, err := s.StorePage(ctx, &model.PageRecord{
				SiteID: site, Type: model.PageTypeDuplicate, URL: "http://a.test/dup", StatusCode: 200,
			})
			if err != nil {
				t.Fatalf("StorePage(DUPLICATE) error = %v", err)
			}
		}

		got, err := s.Summary(ctx)
		if err != nil {
			t.Fatalf("Summary() error = %v", err)
		}
		if got.Pages[model.PageTypeDuplicate] != 3 {
			t.Errorf("duplicate pages = %d, want 3", got.Pages[model.PageTypeDuplicate])
		}
	})

	t.Run("concurrent identical content stores exactly one html page", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		ctx := context.Background()
		site, _ := s.GetOrCreateSite(ctx, "a.test")

		const writers = 8
		var (
			wg         sync.WaitGroup
			mu         sync.Mutex
			stored     int
			duplicates int
		)
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.StorePage(ctx, &model.PageRecord{
					SiteID: site, Type: model.PageTypeHTML,
					URL:     "http://a.test/p" + string(rune('a'+i)),
					Content: "<p>same</p>", StatusCode: 200, Hash: "racehash",
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					stored++
				case errors.Is(err, ErrDuplicateContent):
					duplicates++
				default:
					t.Errorf("StorePage() error = %v", err)
				}
			}()
		}
		wg.Wait()

		if stored != 1 || duplicates != writers-1 {
			t.Errorf("stored = %d, duplicates = %d; want 1 and %d", stored, duplicates, writers-1)
		}
	})
}

func TestLinks(t *testing.T) {
	t.Parallel()

	t.Run("link to existing page is stored at once", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		ctx := context.Background()
		site, _ := s.GetOrCreateSite(ctx, "a.test")
		from := storeHTML(t, s, site, "http://a.test/", "h1")
		to := storeHTML(t, s, site, "http://a.test/b", "h2")

		if err := s.RecordLink(ctx, from, "http://a.test/b"); err != nil {
			t.Fatalf("RecordLink() error = %v", err)
		}
		links, err := s.LinksFrom(ctx, from)
		if err != nil {
			t.Fatalf("LinksFrom() error = %v", err)
		}
		if len(links) != 1 || links[0].ToPage != to {
			t.Errorf("LinksFrom() = %+v, want one link to %d", links, to)
		}
	})

	t.Run("pending link resolves when target is stored", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		ctx := context.Background()
		a, _ := s.GetOrCreateSite(ctx, "a.test")
		b, _ := s.GetOrCreateSite(ctx, "b.test")
		from := storeHTML(t, s, a, "http://a.test/", "h1")

		if err := s.RecordLink(ctx, from, "http://b.test/"); err != nil {
			t.Fatalf("RecordLink() error = %v", err)
		}
		if err := s.RecordLink(ctx, from, "http://b.test/"); err != nil {
			t.Fatalf("RecordLink() twice error = %v", err)
		}

		sum, _ := s.Summary(ctx)
		if sum.PendingLinks != 1 || sum.Links != 0 {
			t.Fatalf("before target: pending = %d, links = %d", sum.PendingLinks, sum.Links)
		}

		to := storeHTML(t, s, b, "http://b.test/", "h2")

		links, err := s.LinksFrom(ctx, from)
		if err != nil {
			t.Fatalf("LinksFrom() error = %v", err)
		}
		if len(links) != 1 || links[0].ToPage != to {
			t.Errorf("LinksFrom() = %+v, want one link to %d", links, to)
		}
		sum, _ = s.Summary(ctx)
		if sum.PendingLinks != 0 {
			t.Errorf("pending links after resolve = %d, want 0", sum.PendingLinks)
		}
	})

	t.Run("store link is idempotent", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		ctx := context.Background()
		site, _ := s.GetOrCreateSite(ctx, "a.test")
		p1 := storeHTML(t, s, site, "http://a.test/", "h1")
		p2 := storeHTML(t, s, site, "http://a.test/", "h2")

		for range 2 {
			if err := s.StoreLink(ctx, p1, p2); err != nil {
				t.Fatalf("StoreLink() error = %v", err)
			}
		}
		links, _ := s.LinksFrom(ctx, p1)
		if len(links) != 1 {
			t.Errorf("len(links) = %d, want 1", len(links))
		}
	})
}

func TestLookupPageIDByAddress(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "a.test")

	if _, err := s.LookupPageIDByAddress(ctx, "http://a.test/"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LookupPageIDByAddress() error = %v, want ErrNotFound", err)
	}

	storeHTML(t, s, site, "http://a.test/", "v1")
	latest := storeHTML(t, s, site, "http://a.test/", "v2")

	got, err := s.LookupPageIDByAddress(ctx, "http://a.test/")
	if err != nil {
		t.Fatalf("LookupPageIDByAddress() error = %v", err)
	}
	if got != latest {
		t.Errorf("LookupPageIDByAddress() = %d, want latest %d", got, latest)
	}
}

func TestHasContentHash(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "a.test")
	storeHTML(t, s, site, "http://a.test/", "present")

	ok, err := s.HasContentHash(ctx, "present")
	if err != nil || !ok {
		t.Errorf("HasContentHash(present) = %v, %v", ok, err)
	}
	ok, err = s.HasContentHash(ctx, "absent")
	if err != nil || ok {
		t.Errorf("HasContentHash(absent) = %v, %v", ok, err)
	}
}

func TestImagesAndBlobs(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "a.test")
	page := storeHTML(t, s, site, "http://a.test/", "h1")

	long := "http://a.test/" + strings.Repeat("x", 400) + ".png"
	if _, err := s.StoreImage(ctx, &model.ImageRecord{
		PageID: page, Filename: long, ContentType: "image/png", Data: []byte{1, 2, 3},
	}); err != nil {
		t.Fatalf("StoreImage() error = %v", err)
	}

	var filename string
	if err := s.db.GetContext(ctx, &filename, `SELECT filename FROM images`); err != nil {
		t.Fatalf("select filename: %v", err)
	}
	if len([]rune(filename)) != model.MaxImageAddressLength {
		t.Errorf("stored filename length = %d, want %d", len([]rune(filename)), model.MaxImageAddressLength)
	}

	binPage, err := s.StorePage(ctx, &model.PageRecord{
		SiteID: site, Type: model.PageTypeBinary, URL: "http://a.test/doc.pdf", StatusCode: 200,
	})
	if err != nil {
		t.Fatalf("StorePage(BINARY) error = %v", err)
	}
	if err := s.StoreBinaryBlob(ctx, &model.BinaryBlob{
		PageID: binPage, DataType: model.ClassPDF, Data: []byte("%PDF"),
	}); err != nil {
		t.Fatalf("StoreBinaryBlob() error = %v", err)
	}

	var code string
	if err := s.db.GetContext(ctx, &code, `SELECT data_type_code FROM page_data`); err != nil {
		t.Fatalf("select data_type_code: %v", err)
	}
	if code != "PDF" {
		t.Errorf("data_type_code = %q, want PDF", code)
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.Images != 1 || sum.BinaryBlobs != 1 || sum.Pages[model.PageTypeBinary] != 1 {
		t.Errorf("Summary() = %+v", sum)
	}
}

func TestStoreBinaryPage(t *testing.T) {
	t.Parallel()

	t.Run("page and payload are written together", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		ctx := context.Background()
		site, _ := s.GetOrCreateSite(ctx, "a.test")
		from := storeHTML(t, s, site, "http://a.test/", "h1")
		if err := s.RecordLink(ctx, from, "http://a.test/doc.pdf"); err != nil {
			t.Fatalf("RecordLink() error = %v", err)
		}

		blob := &model.BinaryBlob{DataType: model.ClassPDF, Data: []byte("%PDF")}
		id, err := s.StoreBinaryPage(ctx, &model.PageRecord{
			SiteID: site, Type: model.PageTypeBinary, URL: "http://a.test/doc.pdf", StatusCode: 200,
		}, blob)
		if err != nil {
			t.Fatalf("StoreBinaryPage() error = %v", err)
		}
		if blob.PageID != id {
			t.Errorf("blob.PageID = %d, want %d", blob.PageID, id)
		}

		var data []byte
		if err := s.db.GetContext(ctx, &data, s.db.Rebind(`SELECT data FROM page_data WHERE page_id = ?`), id); err != nil {
			t.Fatalf("select page_data: %v", err)
		}
		if string(data) != "%PDF" {
			t.Errorf("stored payload = %q, want %%PDF", data)
		}

		links, err := s.LinksFrom(ctx, from)
		if err != nil {
			t.Fatalf("LinksFrom() error = %v", err)
		}
		if len(links) != 1 || links[0].ToPage != id {
			t.Errorf("LinksFrom() = %+v, want pending link resolved to %d", links, id)
		}
	})

	t.Run("failed payload insert leaves no page", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		ctx := context.Background()
		site, _ := s.GetOrCreateSite(ctx, "a.test")
		if _, err := s.db.ExecContext(ctx, `DROP TABLE page_data`); err != nil {
			t.Fatalf("drop page_data: %v", err)
		}

		blob := &model.BinaryBlob{DataType: model.ClassPDF, Data: []byte("%PDF")}
		if _, err := s.StoreBinaryPage(ctx, &model.PageRecord{
			SiteID: site, Type: model.PageTypeBinary, URL: "http://a.test/doc.pdf", StatusCode: 200,
		}, blob); err == nil {
			t.Fatal("StoreBinaryPage() error = nil, want blob insert failure")
		}

		var pages int
		if err := s.db.GetContext(ctx, &pages, `SELECT COUNT(*) FROM pages`); err != nil {
			t.Fatalf("count pages: %v", err)
		}
		if pages != 0 {
			t.Errorf("pages = %d, want 0 after rolled back payload", pages)
		}
		if _, err := s.LookupPageIDByAddress(ctx, "http://a.test/doc.pdf"); !errors.Is(err, ErrNotFound) {
			t.Errorf("LookupPageIDByAddress() error = %v, want ErrNotFound", err)
		}
	})
}

func TestRuns(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestRun(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LatestRun() on empty store error = %v, want ErrNotFound", err)
	}

	run, err := s.StartRun(ctx, []string{"http://a.test/", "http://b.test/"})
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	got, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if got.ID != run.ID || len(got.Seeds) != 2 || got.Finished() {
		t.Errorf("LatestRun() = %+v", got)
	}
	if got.StartedAt.IsZero() {
		t.Error("StartedAt was not parsed")
	}

	stats := model.RunStats{Processed: 5, HTML: 3, Duplicate: 1, Binary: 1, Elapsed: 2 * time.Second}
	if err := s.FinishRun(ctx, run.ID, stats); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	got, err = s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if !got.Finished() || got.Stats == nil || *got.Stats != stats {
		t.Errorf("finished run = %+v", got)
	}
}

func TestSummaryTopSites(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()
	a, _ := s.GetOrCreateSite(ctx, "a.test")
	b, _ := s.GetOrCreateSite(ctx, "b.test")
	storeHTML(t, s, a, "http://a.test/1", "1")
	storeHTML(t, s, a, "http://a.test/2", "2")
	storeHTML(t, s, b, "http://b.test/1", "3")

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.Sites != 2 || sum.TotalPages() != 3 {
		t.Errorf("Summary() sites = %d, pages = %d", sum.Sites, sum.TotalPages())
	}
	if len(sum.TopSites) != 2 || sum.TopSites[0].Domain != "a.test" || sum.TopSites[0].Pages != 2 {
		t.Errorf("TopSites = %+v", sum.TopSites)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"2024-05-01 12:00:00",
		"2024-05-01T12:00:00Z",
		"2024-05-01 12:00:00.123456789+00:00",
		"2024-05-01T12:00:00.5+02:00",
	} {
		if parseTimestamp(s).IsZero() {
			t.Errorf("parseTimestamp(%q) is zero", s)
		}
	}
	if !parseTimestamp("yesterday").IsZero() {
		t.Error("parseTimestamp(yesterday) is not zero")
	}
}
