package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Source contains connection settings shared by all collectors.
type Source struct {
	Enabled            bool   `toml:"enabled"`
	BaseURL            string `toml:"base_url"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// RSSSource extends Source with the feed URLs to poll.
type RSSSource struct {
	Source
	FeedURLs []string `toml:"feed_urls"`
}

// Sources groups the per-source collector settings.
type Sources struct {
	AniList AniListSource `toml:"anilist"`
	Jikan   Source        `toml:"jikan"`
	RSS     RSSSource     `toml:"rss"`
	Syoboi  Source        `toml:"syoboi"`
}

// AniListSource extends Source with GraphQL pagination settings.
type AniListSource struct {
	Source
	PerPage int `toml:"per_page"`
}

// Filters contains the deny-list rules applied before persistence and at
// notification selection.
type Filters struct {
	Keywords  []string `toml:"keywords"`
	Platforms []string `toml:"platforms"`
}

// Notify contains notification sink configuration. Token acquisition is owned
// by external tooling; the pipeline only consumes a bearer token.
type Notify struct {
	Recipient         string `toml:"recipient"`
	EmailEnabled      bool   `toml:"email_enabled"`
	CalendarEnabled   bool   `toml:"calendar_enabled"`
	EmailEndpoint     string `toml:"email_endpoint"`
	CalendarEndpoint  string `toml:"calendar_endpoint"`
	CalendarID        string `toml:"calendar_id"`
	TokenFile         string `toml:"token_file"`
	RequestTimeout    int    `toml:"request_timeout"`
	MaxFailuresPerRun int    `toml:"max_failures_per_run"`
}

// Pipeline contains cycle timing and retry policy.
type Pipeline struct {
	CycleIntervalMinutes int `toml:"cycle_interval_minutes"`
	CycleTimeoutSeconds  int `toml:"cycle_timeout_seconds"`
	CollectorWorkers     int `toml:"collector_workers"`
	RetryMaxAttempts     int `toml:"retry_max_attempts"`
	RetryBaseDelayMillis int `toml:"retry_base_delay_millis"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Shiori.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Sources: per-collector endpoint, rate limit, timeout
//   - Filters: deny-list keywords and platform patterns
//   - Notify: recipient identity and sink endpoints
//   - Pipeline: cycle interval, worker count, retry policy
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Sources  Sources  `toml:"sources"`
	Filters  Filters  `toml:"filters"`
	Notify   Notify   `toml:"notify"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shiori/config.toml")
}

// Load locates, parses, normalizes, and validates a configuration file. When no
// file exists the defaults are returned with exists=false so callers can decide
// whether that is fatal.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shiori.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Notify.TokenFile) != "" {
		if c.Notify.TokenFile, err = expandPath(c.Notify.TokenFile); err != nil {
			return fmt.Errorf("notify.token_file: %w", err)
		}
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	for _, src := range []*Source{&c.Sources.AniList.Source, &c.Sources.Jikan, &c.Sources.RSS.Source, &c.Sources.Syoboi} {
		src.BaseURL = strings.TrimRight(strings.TrimSpace(src.BaseURL), "/")
	}
	return nil
}

// EnsureDirectories creates the directories the pipeline needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the catalog database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
