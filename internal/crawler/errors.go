package crawler

import "errors"

var (
	// ErrNoSeeds is returned by Run when no seed address survives
	// canonicalization.
	ErrNoSeeds = errors.New("no seed addresses to crawl")

	// ErrMissingDependency is returned by NewEngine when a required
	// collaborator is nil.
	ErrMissingDependency = errors.New("missing crawler dependency")

	// ErrEmptyPayload is recorded for a document that answered 200 OK
	// without a body.
	ErrEmptyPayload = errors.New("empty document payload")
)
