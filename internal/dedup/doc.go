// Package dedup detects pages whose content was already stored and
// canonicalizes addresses before they are queued.
//
// Content identity is a SHA-256 digest of the page's visible text after
// Unicode NFC normalization and whitespace collapsing, so two pages that
// differ only in markup or spacing hash equally. The digest is compared with
// the hashes already persisted by the store. The lookup is advisory: the
// store's unique index on the hash column is what finally decides a race
// between two workers holding identical content.
package dedup
