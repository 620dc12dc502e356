package config

import "time"

// File is the YAML configuration file. Fields left out keep the value they
// already have in the Config.
type File struct {
	Seeds            []string       `yaml:"seeds,omitempty"`
	Workers          *int           `yaml:"workers,omitempty"`
	Delay            *time.Duration `yaml:"delay,omitempty"`
	Timeout          *time.Duration `yaml:"timeout,omitempty"`
	FrontierCapacity *int           `yaml:"frontierCapacity,omitempty"`
	RateLimit        *float64       `yaml:"rateLimit,omitempty"`
	Proxy            string         `yaml:"proxy,omitempty"`
	UserAgent        string         `yaml:"userAgent,omitempty"`
	MaxBodySize      *int64         `yaml:"maxBodySize,omitempty"`
	Database         DatabaseFile   `yaml:"database,omitempty"`
	Scope            ScopeFile      `yaml:"scope,omitempty"`
	Log              LogFile        `yaml:"log,omitempty"`
	Telemetry        TelemetryFile  `yaml:"telemetry,omitempty"`
}

// DatabaseFile is the database section of the config file.
type DatabaseFile struct {
	Driver string `yaml:"driver,omitempty"`
	Dir    string `yaml:"dir,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

// ScopeFile lists path patterns that limit which discovered links are queued.
type ScopeFile struct {
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// LogFile is the logging section of the config file.
type LogFile struct {
	File string `yaml:"file,omitempty"`
	JSON bool   `yaml:"json,omitempty"`
}

// TelemetryFile is the tracing section of the config file.
type TelemetryFile struct {
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty"`
}

// Apply copies every value set in f into cfg.
func (f *File) Apply(cfg *Config) {
	if len(f.Seeds) > 0 {
		cfg.Seeds = append([]string(nil), f.Seeds...)
	}
	if f.Workers != nil {
		cfg.Workers = *f.Workers
	}
	if f.Delay != nil {
		cfg.Delay = *f.Delay
	}
	if f.Timeout != nil {
		cfg.Timeout = *f.Timeout
	}
	if f.FrontierCapacity != nil {
		cfg.FrontierCapacity = *f.FrontierCapacity
	}
	if f.RateLimit != nil {
		cfg.RateLimit = *f.RateLimit
	}
	if f.Proxy != "" {
		cfg.ProxyAddress = f.Proxy
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.MaxBodySize != nil {
		cfg.MaxBodySize = *f.MaxBodySize
	}

	if f.Database.Driver != "" {
		cfg.DBDriver = f.Database.Driver
	}
	if f.Database.Dir != "" {
		cfg.DBDir = f.Database.Dir
	}
	if f.Database.DSN != "" {
		cfg.DSN = f.Database.DSN
	}

	if len(f.Scope.IgnorePatterns) > 0 {
		cfg.IgnorePatterns = f.Scope.IgnorePatterns
	}
	if len(f.Scope.FollowPatterns) > 0 {
		cfg.FollowPatterns = f.Scope.FollowPatterns
	}

	if f.Log.File != "" {
		cfg.LogFile = f.Log.File
	}
	if f.Log.JSON {
		cfg.JSONLog = true
	}
	if f.Telemetry.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = f.Telemetry.OTLPEndpoint
	}
}
