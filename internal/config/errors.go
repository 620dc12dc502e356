package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	// ErrNoSeeds is returned when there is no address to start from.
	ErrNoSeeds = errors.New("no seeds: provide at least one address to crawl")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidDelay is returned when the per-worker delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidFrontierCapacity is returned when the frontier capacity is
	// negative. Zero means unbounded.
	ErrInvalidFrontierCapacity = errors.New("invalid frontier capacity: must be non-negative")

	// ErrInvalidRateLimit is returned when the global rate limit is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the body limit is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrUnknownDriver is returned for a database driver other than sqlite or pgx.
	ErrUnknownDriver = errors.New("unknown database driver: use sqlite or pgx")

	// ErrMissingDSN is returned when the pgx driver is selected without a DSN.
	ErrMissingDSN = errors.New("missing DSN: the pgx driver needs a connection string")
)
