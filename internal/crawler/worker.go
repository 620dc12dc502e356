package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nao1215/gocrawler/internal/database"
	"github.com/nao1215/gocrawler/internal/model"
)

// Outcomes recorded on the per-item span.
const (
	outcomeHTML      = "html"
	outcomeDuplicate = "duplicate"
	outcomeBinary    = "binary"
	outcomeFailed    = "failed"
	outcomePanic     = "panic"
)

// process handles one popped address. It never panics and never returns an
// error: every failure is logged and counted.
func (e *Engine) process(ctx context.Context, worker int, logger *slog.Logger, address string) {
	ctx, span := e.tracer.Start(ctx, "crawl.process", trace.WithAttributes(
		attribute.String("url", address),
		attribute.Int("worker", worker),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			e.failed.Add(1)
			logger.Error("panic while processing", "url", address, "panic", r)
			span.SetAttributes(attribute.String("outcome", outcomePanic))
			span.SetStatus(codes.Error, fmt.Sprint(r))
		}
	}()

	outcome, err := e.processAddress(ctx, logger, address)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		e.failed.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// processAddress runs the fetch, classify and store steps for address.
func (e *Engine) processAddress(ctx context.Context, logger *slog.Logger, address string) (string, error) {
	siteID, err := e.deps.Sites.SiteID(ctx, address)
	if err != nil {
		logger.Warn("failed to resolve site", "url", address, "error", err)
		return outcomeFailed, err
	}

	body, status, err := e.deps.Fetcher.Fetch(ctx, address)
	if err != nil {
		logger.Warn("fetch failed", "url", address, "error", err)
		return outcomeFailed, err
	}
	if status != http.StatusOK {
		logger.Warn("unexpected status", "url", address, "status", status)
		return outcomeFailed, fmt.Errorf("unexpected status %d for %s", status, address)
	}

	class := e.deps.Classifier.Classify(address)
	if class.IsHTML() {
		return e.processHTML(ctx, logger, siteID, address, body, status)
	}
	return e.processBinary(ctx, logger, siteID, address, class, body, status)
}

// processHTML stores an HTML page, or a DUPLICATE record when its content is
// already known, then stores its images and queues its links.
func (e *Engine) processHTML(ctx context.Context, logger *slog.Logger, siteID int64, address string, body []byte, status int) (string, error) {
	now := time.Now()

	if e.deps.Dedup.IsDuplicate(ctx, body) {
		return e.storeDuplicate(ctx, logger, siteID, address, status, now)
	}

	result, err := e.deps.Parser.Parse(body, address)
	if err != nil {
		logger.Debug("failed to parse page", "url", address, "error", err)
		result = &ParseResult{}
	}

	hash, err := e.deps.Dedup.Hash(body)
	if err != nil {
		logger.Warn("failed to hash page", "url", address, "error", err)
		hash = ""
	}

	prior, err := e.deps.Store.LookupPageIDByAddress(ctx, address)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logger.Warn("failed to look up prior page", "url", address, "error", err)
		}
		prior = 0
	}

	page := &model.PageRecord{
		SiteID:     siteID,
		Type:       model.PageTypeHTML,
		URL:        address,
		Content:    string(body),
		StatusCode: status,
		AccessedAt: now,
		Hash:       hash,
	}
	pageID, err := e.deps.Store.StorePage(ctx, page)
	if errors.Is(err, database.ErrDuplicateContent) {
		// Another worker stored the same content first.
		return e.storeDuplicate(ctx, logger, siteID, address, status, now)
	}
	if err != nil {
		logger.Error("failed to store page", "url", address, "error", err)
		return outcomeFailed, err
	}
	e.html.Add(1)

	if prior != 0 {
		if err := e.deps.Store.StoreLink(ctx, prior, pageID); err != nil {
			logger.Warn("failed to link prior version", "url", address, "error", err)
		}
	}

	e.storeImages(ctx, logger, pageID, address, result.Images)
	e.queueLinks(ctx, logger, pageID, address, result.Links)

	logger.Info("stored page",
		"url", address,
		"page_id", pageID,
		"links", len(result.Links),
		"images", len(result.Images),
	)
	return outcomeHTML, nil
}

func (e *Engine) storeDuplicate(ctx context.Context, logger *slog.Logger, siteID int64, address string, status int, accessed time.Time) (string, error) {
	page := &model.PageRecord{
		SiteID:     siteID,
		Type:       model.PageTypeDuplicate,
		URL:        address,
		StatusCode: status,
		AccessedAt: accessed,
	}
	if _, err := e.deps.Store.StorePage(ctx, page); err != nil {
		logger.Error("failed to store duplicate page", "url", address, "error", err)
		return outcomeFailed, err
	}

	e.duplicate.Add(1)
	logger.Info("duplicate content", "url", address)
	return outcomeDuplicate, nil
}

// storeImages downloads and stores every image of a page. A failed download
// is stored without payload; a failed insert only loses that image.
func (e *Engine) storeImages(ctx context.Context, logger *slog.Logger, pageID int64, pageAddress string, images []string) {
	for _, image := range images {
		contentType := e.deps.Classifier.ContentType(image)

		data, err := e.deps.Fetcher.FetchImage(ctx, pageAddress, image)
		if err != nil {
			logger.Warn("failed to fetch image", "url", pageAddress, "image", model.TruncateAddress(image, 80), "error", err)
			data = nil
		}

		record := &model.ImageRecord{
			PageID:      pageID,
			Filename:    model.TruncateAddress(image, model.MaxImageAddressLength),
			ContentType: contentType,
			Data:        data,
			AccessedAt:  time.Now(),
		}
		if _, err := e.deps.Store.StoreImage(ctx, record); err != nil {
			logger.Warn("failed to store image", "url", pageAddress, "image", record.Filename, "error", err)
			continue
		}
		e.images.Add(1)
	}
}

// queueLinks records and enqueues every link of a page.
func (e *Engine) queueLinks(ctx context.Context, logger *slog.Logger, pageID int64, pageAddress string, links []Link) {
	for _, link := range links {
		target := e.deps.Dedup.Canonicalize(link.URL)
		if target == "" || !e.scope.allows(target) {
			continue
		}

		if err := e.deps.Store.RecordLink(ctx, pageID, target); err != nil {
			logger.Warn("failed to record link", "url", pageAddress, "target", target, "error", err)
		}

		if err := e.frontier.Add(ctx, target); err != nil {
			logger.Warn("failed to queue link", "url", pageAddress, "target", target, "error", err)
			return
		}
		e.linksQueued.Add(1)
	}
}

// processBinary stores an already downloaded document as a BINARY page
// with its payload.
func (e *Engine) processBinary(ctx context.Context, logger *slog.Logger, siteID int64, address string, class model.ContentClass, payload []byte, status int) (string, error) {
	if len(payload) == 0 {
		logger.Warn("empty binary payload", "url", address)
		return outcomeFailed, fmt.Errorf("%w: %s", ErrEmptyPayload, address)
	}

	page := &model.PageRecord{
		SiteID:     siteID,
		Type:       model.PageTypeBinary,
		URL:        address,
		StatusCode: status,
		AccessedAt: time.Now(),
	}
	blob := &model.BinaryBlob{DataType: class, Data: payload}
	pageID, err := e.deps.Store.StoreBinaryPage(ctx, page, blob)
	if err != nil {
		logger.Error("failed to store binary page", "url", address, "error", err)
		return outcomeFailed, err
	}

	e.binary.Add(1)
	logger.Info("stored binary", "url", address, "page_id", pageID, "type", class, "bytes", len(payload))
	return outcomeBinary, nil
}
