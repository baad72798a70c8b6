// Package config loads and validates the TOML configuration consumed by the
// pipeline: source endpoints and rate limits, filter rules, notification
// recipient and sinks, and cycle timing.
package config
