// Package config holds the crawler's settings: built-in defaults, the YAML
// configuration file, environment overrides (optionally read from a .env
// file), validation, and the XDG directories used for data and config.
//
// Precedence, lowest first: defaults, config file, environment, CLI flags.
package config
