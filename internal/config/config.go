package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "gocrawler"

	// DefaultWorkers is the size of the worker pool.
	DefaultWorkers = 4

	// DefaultDelay is the pause each worker takes after every item.
	DefaultDelay = 5 * time.Second

	// DefaultTimeout bounds one HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 << 20

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "gocrawler/1.0 (+https://github.com/nao1215/gocrawler)"

	// DriverSQLite and DriverPostgres are the supported database drivers.
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// DefaultSeeds are crawled when no seed is given.
var DefaultSeeds = []string{
	"http://gov.si",
	"http://evem.gov.si",
	"http://e-uprava.gov.si",
	"http://e-prostor.gov.si",
}

// Config holds every setting of a crawl. It is built from defaults, then
// overridden by the config file, the environment and CLI flags, and passed
// to the components explicitly.
type Config struct {
	// Seeds are the addresses the frontier starts with.
	Seeds []string

	// Workers is the number of concurrent workers.
	Workers int

	// Delay is the fixed pause each worker takes after an item.
	Delay time.Duration

	// Timeout bounds one HTTP request.
	Timeout time.Duration

	// FrontierCapacity bounds the frontier. Zero means unbounded.
	FrontierCapacity int

	// RateLimit caps requests per second across all workers. Zero disables it.
	RateLimit float64

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize limits how many bytes of a response are read.
	MaxBodySize int64

	// DBDriver is "sqlite" or "pgx".
	DBDriver string

	// DBDir is the SQLite database directory.
	DBDir string

	// DSN is the PostgreSQL connection string.
	DSN string

	// IgnorePatterns skip discovered links whose path matches.
	IgnorePatterns []string

	// FollowPatterns, when set, restrict discovered links to matching paths.
	FollowPatterns []string

	// ReportFile receives a Markdown summary after the crawl, if set.
	ReportFile string

	// LogFile receives a rotated copy of the log, if set.
	LogFile string

	// JSONLog switches log output to JSON.
	JSONLog bool

	// Verbose enables debug logging.
	Verbose bool

	// OTLPEndpoint enables trace export over OTLP/gRPC when set.
	OTLPEndpoint string

	// ConfigFilePath is an explicit config file location.
	ConfigFilePath string
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Seeds:       append([]string(nil), DefaultSeeds...),
		Workers:     DefaultWorkers,
		Delay:       DefaultDelay,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		DBDriver:    DriverSQLite,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/gocrawler on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/gocrawler on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate returns the first problem found in c, or nil.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.FrontierCapacity < 0 {
		return ErrInvalidFrontierCapacity
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return ErrUnknownDriver
	}

	return nil
}
