package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	_ "modernc.org/sqlite" // SQLite driver "sqlite"
)

const (
	// DriverSQLite selects the embedded SQLite backend.
	DriverSQLite = "sqlite"

	// DriverPostgres selects PostgreSQL through pgx.
	DriverPostgres = "pgx"

	// FileName is the SQLite database file created inside Options.Dir.
	FileName = "gocrawler.db"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store is the SQL-backed persistence of the crawler. It is safe for
// concurrent use.
type Store struct {
	db     *sqlx.DB
	driver string

	// path is the SQLite file, empty for PostgreSQL.
	path string
}

// Options configures Open.
type Options struct {
	// Driver is DriverSQLite or DriverPostgres.
	Driver string

	// Dir is the directory holding the SQLite file.
	Dir string

	// DSN is the PostgreSQL connection string.
	DSN string

	// CreateIfNotExists creates the SQLite directory and file when missing.
	CreateIfNotExists bool

	// EnableWAL enables SQLite write-ahead logging.
	EnableWAL bool

	// Tracing wraps the connection with OpenTelemetry spans.
	Tracing bool
}

// DefaultOptions returns SQLite options that create the database on demand.
func DefaultOptions(dir string) Options {
	return Options{
		Driver:            DriverSQLite,
		Dir:               dir,
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open connects to the database and creates the schema when needed.
func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return openSQLite(ctx, opts)
	case DriverPostgres:
		return openPostgres(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

func openSQLite(ctx context.Context, opts Options) (*Store, error) {
	path := filepath.Join(opts.Dir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	dsn := path + "?mode=" + mode + "&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := connect(DriverSQLite, dsn, opts.Tracing, semconv.DBSystemSqlite)
	if err != nil {
		return nil, err
	}

	// SQLite has a single writer; one connection serializes transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db, driver: DriverSQLite, path: path}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func openPostgres(ctx context.Context, opts Options) (*Store, error) {
	if opts.DSN == "" {
		return nil, ErrMissingDSN
	}

	db, err := connect(DriverPostgres, opts.DSN, opts.Tracing, semconv.DBSystemPostgreSQL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, driver: DriverPostgres}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// connect opens driver, through otelsqlx when tracing is on.
func connect(driver, dsn string, tracing bool, system attribute.KeyValue) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	if tracing {
		db, err = otelsqlx.Open(driver, dsn, otelsql.WithAttributes(system))
	} else {
		db, err = sqlx.Open(driver, dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Path returns the SQLite file path, or "" for PostgreSQL.
func (s *Store) Path() string {
	return s.path
}

// migrate creates the schema of the store's dialect.
func (s *Store) migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == DriverPostgres {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
