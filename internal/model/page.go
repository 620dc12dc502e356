package model

import (
	"time"
	"unicode/utf8"
)

// PageType is the kind of a stored page record.
type PageType string

const (
	// PageTypeHTML is an HTML page whose content was not seen before.
	PageTypeHTML PageType = "HTML"

	// PageTypeBinary is a non-HTML document (PDF, DOC, ...).
	PageTypeBinary PageType = "BINARY"

	// PageTypeDuplicate is an HTML page whose content hash was already stored.
	// Duplicate records carry neither content nor hash.
	PageTypeDuplicate PageType = "DUPLICATE"
)

// PageTypes lists every page type in a stable order for reporting.
var PageTypes = []PageType{PageTypeHTML, PageTypeBinary, PageTypeDuplicate}

// String implements fmt.Stringer.
func (t PageType) String() string {
	return string(t)
}

// MaxImageAddressLength is the storage limit for image addresses, in characters.
const MaxImageAddressLength = 255

// Site is a host seen during the crawl. One Site exists per distinct host and
// it is never mutated or deleted once created.
type Site struct {
	// ID is the durable identifier assigned by the store.
	ID int64 `json:"id" db:"id"`

	// Domain is the host (with port, if any) in lower case.
	Domain string `json:"domain" db:"domain"`
}

// PageRecord is one processed address. It is written exactly once and never
// updated in place.
type PageRecord struct {
	// ID is assigned by the store when the record is written.
	ID int64 `json:"id"`

	// SiteID references the Site of the page's host.
	SiteID int64 `json:"site_id"`

	// Type is HTML, BINARY or DUPLICATE.
	Type PageType `json:"page_type"`

	// URL is the canonical address that was fetched.
	URL string `json:"url"`

	// Content is the raw HTML. It is empty for BINARY and DUPLICATE pages.
	Content string `json:"-"`

	// StatusCode is the HTTP status of the fetch.
	StatusCode int `json:"http_status_code"`

	// AccessedAt is when the page was fetched.
	AccessedAt time.Time `json:"accessed_time"`

	// Hash is the content hash of an HTML page. Empty means "no hash"
	// and is stored as NULL.
	Hash string `json:"html_hash,omitempty"`
}

// HasContent reports whether the record carries a body that should be stored.
func (p *PageRecord) HasContent() bool {
	return p.Type == PageTypeHTML && p.Content != ""
}

// LinkRecord is a directed edge between two stored pages.
type LinkRecord struct {
	FromPage int64 `json:"from_page" db:"from_page"`
	ToPage   int64 `json:"to_page" db:"to_page"`
}

// ImageRecord is an image referenced by an HTML page.
type ImageRecord struct {
	// PageID is the page the image was found on.
	PageID int64 `json:"page_id"`

	// Filename is the image address, truncated to MaxImageAddressLength characters.
	Filename string `json:"filename"`

	// ContentType is the MIME type derived from the address.
	ContentType string `json:"content_type"`

	// Data is the image payload. It may be empty when the download failed.
	Data []byte `json:"-"`

	// AccessedAt is when the image was processed.
	AccessedAt time.Time `json:"accessed_time"`
}

// BinaryBlob is the payload of a BINARY page.
type BinaryBlob struct {
	PageID   int64        `json:"page_id"`
	DataType ContentClass `json:"data_type_code"`
	Data     []byte       `json:"-"`
}

// TruncateAddress shortens address to at most limit characters (runes),
// never splitting a multi-byte character.
func TruncateAddress(address string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(address) <= limit {
		return address
	}

	count := 0
	for i := range address {
		if count == limit {
			return address[:i]
		}
		count++
	}
	return address
}
