package dedup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// HashStore is the persistence the detector checks hashes against.
type HashStore interface {
	HasContentHash(ctx context.Context, hash string) (bool, error)
}

// Detector decides whether fetched HTML duplicates stored content.
type Detector struct {
	store  HashStore
	logger *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger used to report hashing and lookup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Detector backed by store.
func New(store HashStore, opts ...Option) *Detector {
	d := &Detector{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Hash returns the content digest of an HTML document as lowercase hex.
// Documents without visible text are hashed by their whitespace-collapsed
// markup instead, so image-only pages do not all share one digest.
func (d *Detector) Hash(content []byte) (string, error) {
	return Hash(content)
}

// IsDuplicate reports whether content hashes to a digest the store already
// holds. Any hashing or lookup failure is logged and reported as false.
func (d *Detector) IsDuplicate(ctx context.Context, content []byte) bool {
	hash, err := Hash(content)
	if err != nil {
		d.logger.Warn("failed to hash content", "error", err)
		return false
	}

	exists, err := d.store.HasContentHash(ctx, hash)
	if err != nil {
		d.logger.Warn("failed to look up content hash", "hash", hash, "error", err)
		return false
	}
	return exists
}

// Canonicalize is the method form of the package-level Canonicalize.
func (d *Detector) Canonicalize(address string) string {
	return Canonicalize(address)
}

// Hash is the package-level form of Detector.Hash.
func Hash(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse content: %w", err)
	}

	text := collapse(normalizeText(doc.Text()))
	if text == "" {
		text = collapse(normalizeText(string(content)))
	}

	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:]), nil
}

// normalizeText converts s to Unicode normalization form C.
func normalizeText(s string) string {
	return norm.NFC.String(s)
}

// collapse joins the whitespace-separated fields of s with single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
