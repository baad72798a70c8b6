package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateSources() error {
	anyEnabled := false
	named := []struct {
		name string
		src  *Source
	}{
		{"sources.anilist", &c.Sources.AniList.Source},
		{"sources.jikan", &c.Sources.Jikan},
		{"sources.rss", &c.Sources.RSS.Source},
		{"sources.syoboi", &c.Sources.Syoboi},
	}
	for _, entry := range named {
		if !entry.src.Enabled {
			continue
		}
		anyEnabled = true
		if entry.src.RateLimitPerMinute <= 0 {
			return fmt.Errorf("%s.rate_limit_per_minute must be positive", entry.name)
		}
		if entry.src.TimeoutSeconds <= 0 {
			return fmt.Errorf("%s.timeout_seconds must be positive", entry.name)
		}
	}
	if !anyEnabled {
		return errors.New("at least one source must be enabled")
	}
	if c.Sources.AniList.Enabled && c.Sources.AniList.BaseURL == "" {
		return errors.New("sources.anilist.base_url must be set")
	}
	if c.Sources.Jikan.Enabled && c.Sources.Jikan.BaseURL == "" {
		return errors.New("sources.jikan.base_url must be set")
	}
	if c.Sources.Syoboi.Enabled && c.Sources.Syoboi.BaseURL == "" {
		return errors.New("sources.syoboi.base_url must be set")
	}
	if c.Sources.RSS.Enabled {
		if len(c.Sources.RSS.FeedURLs) == 0 {
			return errors.New("sources.rss.feed_urls must list at least one feed")
		}
		for _, feed := range c.Sources.RSS.FeedURLs {
			if err := validateHTTPURL(feed); err != nil {
				return fmt.Errorf("sources.rss.feed_urls: %w", err)
			}
		}
	}
	return nil
}

func (c *Config) validateNotify() error {
	if !c.Notify.EmailEnabled && !c.Notify.CalendarEnabled {
		return nil
	}
	if strings.TrimSpace(c.Notify.Recipient) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/shiori/config.toml"
		}
		return fmt.Errorf("notify.recipient is required when a sink is enabled. Edit %s (create with 'shiori config init')", defaultPath)
	}
	if c.Notify.EmailEnabled {
		if err := validateHTTPURL(c.Notify.EmailEndpoint); err != nil {
			return fmt.Errorf("notify.email_endpoint: %w", err)
		}
	}
	if c.Notify.CalendarEnabled {
		if err := validateHTTPURL(c.Notify.CalendarEndpoint); err != nil {
			return fmt.Errorf("notify.calendar_endpoint: %w", err)
		}
	}
	if c.Notify.RequestTimeout <= 0 {
		return errors.New("notify.request_timeout must be positive")
	}
	if c.Notify.MaxFailuresPerRun <= 0 {
		return errors.New("notify.max_failures_per_run must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.CycleIntervalMinutes <= 0 {
		return errors.New("pipeline.cycle_interval_minutes must be positive")
	}
	if c.Pipeline.CycleTimeoutSeconds <= 0 {
		return errors.New("pipeline.cycle_timeout_seconds must be positive")
	}
	if c.Pipeline.CollectorWorkers <= 0 {
		return errors.New("pipeline.collector_workers must be positive")
	}
	if c.Pipeline.RetryMaxAttempts <= 0 {
		return errors.New("pipeline.retry_max_attempts must be positive")
	}
	if c.Pipeline.RetryBaseDelayMillis <= 0 {
		return errors.New("pipeline.retry_base_delay_millis must be positive")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("url %q is missing a host", raw)
	}
	return nil
}
