// Package model defines the records produced by a crawl.
//
// This package contains the following main types:
//   - Site: A registered host with a stable identifier
//   - PageRecord: One stored fetch attempt (HTML, BINARY or DUPLICATE)
//   - LinkRecord: A directed edge between two stored pages
//   - ImageRecord: An image found on an HTML page
//   - BinaryBlob: The payload of a BINARY page
//   - CrawlRun and CrawlSummary: Bookkeeping used by reports
//
// Models live in their own package so that the crawler, the database layer
// and the report writers can share them without import cycles.
package model
