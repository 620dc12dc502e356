package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the config file name looked up in the current directory.
	DefaultConfigFile = ".gocrawler.yaml"

	// XDGConfigFile is the config file name inside XDGConfigDir.
	XDGConfigFile = "config.yaml"

	// DefaultEnvFile is the dotenv file read by ApplyEnv.
	DefaultEnvFile = ".env"
)

// Environment variables read by ApplyEnv.
const (
	EnvDSN          = "GOCRAWLER_DSN"
	EnvDBDriver     = "GOCRAWLER_DB_DRIVER"
	EnvProxy        = "GOCRAWLER_PROXY"
	EnvOTLPEndpoint = "GOCRAWLER_OTLP_ENDPOINT"
	EnvUserAgent    = "GOCRAWLER_USER_AGENT"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// FindConfigFile returns the first existing config file among:
//  1. configPath, when given
//  2. .gocrawler.yaml in the current directory
//  3. config.yaml in XDGConfigDir
//
// It returns an empty string when none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	candidate := filepath.Join(XDGConfigDir(), XDGConfigFile)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}

	return ""
}

// ApplyEnv overrides cfg with GOCRAWLER_* variables. Values are taken from
// the process environment first, then from envFile (a dotenv file) when it
// exists. A missing envFile is not an error.
func ApplyEnv(cfg *Config, envFile string) error {
	fileValues := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileValues = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileValues[key]
	}

	if v := lookup(EnvDSN); v != "" {
		cfg.DSN = v
	}
	if v := lookup(EnvDBDriver); v != "" {
		cfg.DBDriver = v
	}
	if v := lookup(EnvProxy); v != "" {
		cfg.ProxyAddress = v
	}
	if v := lookup(EnvOTLPEndpoint); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := lookup(EnvUserAgent); v != "" {
		cfg.UserAgent = v
	}
	return nil
}

// Load builds a Config from defaults, the config file found by
// FindConfigFile(configPath) and the environment. An explicit configPath
// that does not exist is an error; a missing default file is not.
func Load(configPath, envFile string) (*Config, error) {
	cfg := NewConfig()
	cfg.ConfigFilePath = configPath

	path := FindConfigFile(configPath)
	if path == "" && configPath != "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	if path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		f.Apply(cfg)
		cfg.ConfigFilePath = path
	}

	if err := ApplyEnv(cfg, envFile); err != nil {
		return nil, err
	}
	return cfg, nil
}
