// Package log builds the crawler's slog loggers.
//
// Every logger returned by New passes its records through a
// RedactingHandler, which masks secrets before they reach the output:
//   - attributes whose key names a secret (password, token, cookie, ...)
//   - values that look like credentials (bearer tokens, JWTs, private keys)
//   - URL values with a userinfo password or secret query parameters,
//     such as a PostgreSQL DSN or a page address carrying ?token=...
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Level: log.LevelFor(verbose)})
//	slog.SetDefault(logger)
//
//	logger.Info("database opened", "dsn", "postgres://crawler:hunter2@db/crawl")
//	// dsn=postgres://crawler:***REDACTED***@db/crawl
//
// NewFileWriter returns a size-rotated log file that can be combined with
// stderr through io.MultiWriter.
package log
