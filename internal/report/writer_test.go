package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/gocrawler/internal/model"
)

func testSummary() model.CrawlSummary {
	return model.CrawlSummary{
		Sites: 2,
		Pages: map[model.PageType]int{
			model.PageTypeHTML:      5,
			model.PageTypeBinary:    1,
			model.PageTypeDuplicate: 2,
		},
		Images:       3,
		Links:        7,
		PendingLinks: 1,
		BinaryBlobs:  1,
		TopSites: []model.SiteCount{
			{Domain: "gov.si", Pages: 6},
			{Domain: "evem.gov.si", Pages: 2},
		},
	}
}

func testReport(failed int64) *Report {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := &model.CrawlRun{
		ID:         uuid.MustParse("3f1c2b6e-8a4d-4a36-9b1e-1d2c3b4a5f60"),
		Seeds:      []string{"http://gov.si/", "http://evem.gov.si/"},
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Stats: &model.RunStats{
			Processed:   10,
			Failed:      failed,
			HTML:        5,
			Duplicate:   2,
			Binary:      1,
			Images:      3,
			LinksQueued: 9,
			Elapsed:     90 * time.Second,
		},
	}
	return New(run, testSummary())
}

func TestReport(t *testing.T) {
	t.Parallel()

	t.Run("stats come from the run", func(t *testing.T) {
		t.Parallel()
		r := testReport(2)
		if r.Stats == nil || r.Stats.Processed != 10 {
			t.Fatalf("unexpected stats %+v", r.Stats)
		}
		if r.Status() != "complete" {
			t.Errorf("Status() = %q", r.Status())
		}
		if r.FailureRatio() != 0.2 {
			t.Errorf("FailureRatio() = %v", r.FailureRatio())
		}
	})

	t.Run("store only", func(t *testing.T) {
		t.Parallel()
		r := New(nil, testSummary())
		if r.Stats != nil || r.Status() != "unknown" || r.FailureRatio() != 0 {
			t.Errorf("unexpected report %+v", r)
		}
	})

	t.Run("unfinished run", func(t *testing.T) {
		t.Parallel()
		r := New(&model.CrawlRun{ID: uuid.New(), StartedAt: time.Now()}, model.CrawlSummary{})
		if r.Status() != "running" {
			t.Errorf("Status() = %q", r.Status())
		}
	})
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes every section", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(testReport(1))
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() {
			t.Errorf("Write() = %d, buffer has %d bytes", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"CRAWL REPORT",
			"3f1c2b6e-8a4d-4a36-9b1e-1d2c3b4a5f60",
			"http://gov.si/, http://evem.gov.si/",
			"Status:         complete",
			"THIS RUN",
			"Elapsed:",
			"1m30s",
			"DATABASE",
			"duplicate:",
			"Pending links:",
			"TOP SITES",
			"gov.si",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output does not contain %q:\n%s", want, out)
			}
		}
	})

	t.Run("store only report omits run sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithTopSites(false)).Write(New(nil, testSummary())); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		out := buf.String()
		if strings.Contains(out, "THIS RUN") || strings.Contains(out, "TOP SITES") {
			t.Errorf("unexpected sections:\n%s", out)
		}
		if !strings.Contains(out, "DATABASE") {
			t.Errorf("missing database section:\n%s", out)
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("tables and pie chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(testReport(1)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"# Crawl Report",
			"## This Run",
			"## Database",
			"## Top Sites",
			"`gov.si`",
			"```mermaid",
			"pie",
			"HTML",
			"[!NOTE]",
			"gocrawler",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output does not contain %q:\n%s", want, out)
			}
		}
		if !strings.Contains(strings.ToUpper(out), "PROPERTY") {
			t.Errorf("header table missing:\n%s", out)
		}
	})

	t.Run("warns when most items failed", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(testReport(8)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Errorf("expected a warning alert:\n%s", buf.String())
		}
	})

	t.Run("tip without failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(testReport(0)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Errorf("expected a tip alert:\n%s", buf.String())
		}
	})

	t.Run("empty store has no chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(New(nil, model.CrawlSummary{})); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		if strings.Contains(out, "```mermaid") {
			t.Errorf("unexpected chart:\n%s", out)
		}
		if !strings.Contains(out, "No pages stored yet.") {
			t.Errorf("missing empty notice:\n%s", out)
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(testReport(1)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("output does not end with a newline")
	}

	var decoded struct {
		Run struct {
			ID string `json:"id"`
		} `json:"run"`
		Stats struct {
			Processed int `json:"processed"`
		} `json:"stats"`
		Summary struct {
			Sites int            `json:"sites"`
			Pages map[string]int `json:"pages"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Run.ID != "3f1c2b6e-8a4d-4a36-9b1e-1d2c3b4a5f60" || decoded.Stats.Processed != 10 {
		t.Errorf("unexpected run fields %+v", decoded)
	}
	if decoded.Summary.Sites != 2 || decoded.Summary.Pages["HTML"] != 5 {
		t.Errorf("unexpected summary %+v", decoded.Summary)
	}
}

type failingWriter struct{}

func (failingWriter) Write(*Report) (int, error) {
	return 0, errors.New("disk full")
}

type countingWriter struct{ calls int }

func (c *countingWriter) Write(*Report) (int, error) {
	c.calls++
	return 1, nil
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all", func(t *testing.T) {
		t.Parallel()

		a, b := &countingWriter{}, &countingWriter{}
		n, err := NewMultiWriter(a, b).Write(testReport(0))
		if err != nil || n != 2 || a.calls != 1 || b.calls != 1 {
			t.Errorf("n = %d, err = %v, calls = %d/%d", n, err, a.calls, b.calls)
		}
	})

	t.Run("stops at the first error", func(t *testing.T) {
		t.Parallel()

		after := &countingWriter{}
		if _, err := NewMultiWriter(failingWriter{}, after).Write(testReport(0)); err == nil {
			t.Error("expected an error")
		}
		if after.calls != 0 {
			t.Error("writer after the failing one was called")
		}
	})
}
