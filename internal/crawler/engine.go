package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/gocrawler/internal/classify"
	"github.com/nao1215/gocrawler/internal/frontier"
	"github.com/nao1215/gocrawler/internal/model"
)

const (
	// DefaultWorkers is the size of the worker pool.
	DefaultWorkers = 4

	// DefaultDelay is the pause each worker takes after an item.
	DefaultDelay = 5 * time.Second

	tracerName = "github.com/nao1215/gocrawler/internal/crawler"
)

// Fetcher downloads resources.
type Fetcher interface {
	Fetch(ctx context.Context, address string) ([]byte, int, error)
	FetchImage(ctx context.Context, pageAddress, imageAddress string) ([]byte, error)
}

// Classifier decides the processing path of an address.
type Classifier interface {
	Classify(address string) model.ContentClass
	ContentType(address string) string
}

// Store persists crawl results.
type Store interface {
	StorePage(ctx context.Context, page *model.PageRecord) (int64, error)
	RecordLink(ctx context.Context, fromPage int64, toAddress string) error
	StoreLink(ctx context.Context, fromPage, toPage int64) error
	StoreImage(ctx context.Context, image *model.ImageRecord) (int64, error)
	StoreBinaryPage(ctx context.Context, page *model.PageRecord, blob *model.BinaryBlob) (int64, error)
	LookupPageIDByAddress(ctx context.Context, address string) (int64, error)
}

// SiteResolver maps an address to its site id.
type SiteResolver interface {
	SiteID(ctx context.Context, address string) (int64, error)
}

// DuplicateDetector recognizes content that was already stored.
type DuplicateDetector interface {
	IsDuplicate(ctx context.Context, content []byte) bool
	Hash(content []byte) (string, error)
	Canonicalize(address string) string
}

// PageParser extracts links and images from a fetched page.
type PageParser interface {
	Parse(body []byte, baseURL string) (*ParseResult, error)
}

// Dependencies are the collaborators of the Engine. Classifier and Parser
// default to the address classifier and the HTML parser.
type Dependencies struct {
	Fetcher    Fetcher
	Classifier Classifier
	Store      Store
	Sites      SiteResolver
	Dedup      DuplicateDetector
	Parser     PageParser
}

// Stats are the counters of one run.
type Stats = model.RunStats

// Engine runs a crawl with a fixed pool of workers.
type Engine struct {
	deps     Dependencies
	workers  int
	delay    time.Duration
	frontier *frontier.Frontier
	logger   *slog.Logger
	tracer   trace.Tracer
	scope    scope

	processed   atomic.Int64
	failed      atomic.Int64
	html        atomic.Int64
	duplicate   atomic.Int64
	binary      atomic.Int64
	images      atomic.Int64
	linksQueued atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of workers.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithDelay sets the pause each worker takes after an item. Zero disables
// the pause.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.delay = d
		}
	}
}

// WithFrontier uses f instead of a new unbounded frontier.
func WithFrontier(f *frontier.Frontier) Option {
	return func(e *Engine) {
		if f != nil {
			e.frontier = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer used for per-item spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithIgnorePatterns skips discovered links whose path matches any glob
// pattern (e.g. "/admin/*", "*.zip"). Seeds are never filtered.
func WithIgnorePatterns(patterns []string) Option {
	return func(e *Engine) {
		e.scope.ignore = patterns
	}
}

// WithFollowPatterns restricts discovered links to paths matching at least
// one glob pattern. Empty means every path is followed.
func WithFollowPatterns(patterns []string) Option {
	return func(e *Engine) {
		e.scope.follow = patterns
	}
}

// NewEngine creates an Engine. Fetcher, Store, Sites and Dedup are required.
func NewEngine(deps Dependencies, opts ...Option) (*Engine, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("%w: fetcher", ErrMissingDependency)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	case deps.Sites == nil:
		return nil, fmt.Errorf("%w: site resolver", ErrMissingDependency)
	case deps.Dedup == nil:
		return nil, fmt.Errorf("%w: duplicate detector", ErrMissingDependency)
	}
	if deps.Classifier == nil {
		deps.Classifier = classify.New()
	}
	if deps.Parser == nil {
		deps.Parser = HTMLParser{}
	}

	e := &Engine{
		deps:    deps,
		workers: DefaultWorkers,
		delay:   DefaultDelay,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.frontier == nil {
		e.frontier = frontier.New()
	}

	return e, nil
}

// Frontier returns the engine's frontier.
func (e *Engine) Frontier() *frontier.Frontier {
	return e.frontier
}

// Run crawls from seeds until the frontier is durably empty or ctx ends,
// and returns the counters of the run. Item failures never make Run fail;
// it returns an error only for unusable seeds or when ctx is cancelled, in
// which case the counters so far are returned as well.
func (e *Engine) Run(ctx context.Context, seeds []string) (Stats, error) {
	start := time.Now()

	queued := 0
	for _, seed := range seeds {
		address := e.deps.Dedup.Canonicalize(seed)
		if address == "" {
			continue
		}
		if _, err := e.deps.Sites.SiteID(ctx, address); err != nil {
			e.logger.Warn("failed to register seed site", "url", address, "error", err)
			continue
		}
		if err := e.frontier.Add(ctx, address); err != nil {
			return e.stats(start), fmt.Errorf("failed to queue seed %s: %w", address, err)
		}
		queued++
	}
	if queued == 0 {
		return e.stats(start), ErrNoSeeds
	}

	e.logger.Info("crawl started",
		"seeds", queued,
		"workers", e.workers,
		"delay", e.delay,
	)

	g, gctx := errgroup.WithContext(ctx)
	for id := 1; id <= e.workers; id++ {
		g.Go(func() error {
			return e.work(gctx, id)
		})
	}
	err := g.Wait()

	stats := e.stats(start)
	e.logger.Info("crawl finished",
		"processed", stats.Processed,
		"failed", stats.Failed,
		"html", stats.HTML,
		"duplicate", stats.Duplicate,
		"binary", stats.Binary,
		"elapsed", stats.Elapsed,
	)

	if err != nil {
		return stats, err
	}
	return stats, nil
}

// work is one worker's loop.
func (e *Engine) work(ctx context.Context, id int) error {
	logger := e.logger.With("worker", id)

	for {
		address, err := e.frontier.Pop(ctx)
		if err != nil {
			if errors.Is(err, frontier.ErrDrained) || errors.Is(err, frontier.ErrClosed) {
				logger.Debug("worker finished")
				return nil
			}
			return err
		}

		e.process(ctx, id, logger, address)
		e.processed.Add(1)
		e.frontier.Done()

		if !sleep(ctx, e.delay) {
			return ctx.Err()
		}
	}
}

func (e *Engine) stats(start time.Time) Stats {
	return Stats{
		Processed:   e.processed.Load(),
		Failed:      e.failed.Load(),
		HTML:        e.html.Load(),
		Duplicate:   e.duplicate.Load(),
		Binary:      e.binary.Load(),
		Images:      e.images.Load(),
		LinksQueued: e.linksQueued.Load(),
		Elapsed:     time.Since(start),
	}
}

// sleep pauses for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
