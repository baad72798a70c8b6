// Package testsupport provides shared helpers for package tests: temp-dir
// configs and pre-opened catalog stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"shiori/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Notify.Recipient = "viewer@example.com"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithFilters sets deny-list keywords and platforms on the test config.
func WithFilters(keywords, platforms []string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Filters.Keywords = keywords
		cfg.Filters.Platforms = platforms
	}
}
