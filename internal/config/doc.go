// Package config loads, defaults and validates the YAML configuration
// shared by the collector daemon, the backfill CLI and the query API server.
//
// Files may reference environment variables with ${VAR}; they are expanded
// before parsing so credentials stay out of the config file.
package config
