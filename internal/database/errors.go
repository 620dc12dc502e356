package database

import "errors"

var (
	// ErrDuplicateContent is returned by StorePage when a page with the same
	// content hash already exists.
	ErrDuplicateContent = errors.New("page content already stored")

	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrUnknownDriver is returned by Open for unsupported driver names.
	ErrUnknownDriver = errors.New("unknown database driver")

	// ErrMissingDSN is returned by Open when PostgreSQL is selected without a
	// connection string.
	ErrMissingDSN = errors.New("database DSN is required for the pgx driver")

	// ErrDatabaseNotFound is returned by Open when the SQLite file is absent
	// and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")
)
