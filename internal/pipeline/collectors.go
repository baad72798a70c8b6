package pipeline

import (
	"time"

	"shiori/internal/config"
	"shiori/internal/sources"
	"shiori/internal/sources/anilist"
	"shiori/internal/sources/jikan"
	"shiori/internal/sources/rssfeed"
	"shiori/internal/sources/syoboi"
)

// BuildCollectors constructs one collector per enabled source, each with its
// own rate-limited HTTP client.
func BuildCollectors(cfg *config.Config) []sources.Collector {
	var collectors []sources.Collector
	if cfg.Sources.AniList.Enabled {
		collectors = append(collectors, anilist.New(
			cfg.Sources.AniList.BaseURL,
			cfg.Sources.AniList.PerPage,
			newHTTPClient(cfg, cfg.Sources.AniList.Source),
		))
	}
	if cfg.Sources.Jikan.Enabled {
		collectors = append(collectors, jikan.New(
			cfg.Sources.Jikan.BaseURL,
			newHTTPClient(cfg, cfg.Sources.Jikan),
		))
	}
	if cfg.Sources.RSS.Enabled {
		collectors = append(collectors, rssfeed.New(
			cfg.Sources.RSS.FeedURLs,
			newHTTPClient(cfg, cfg.Sources.RSS.Source),
		))
	}
	if cfg.Sources.Syoboi.Enabled {
		collectors = append(collectors, syoboi.New(
			cfg.Sources.Syoboi.BaseURL,
			newHTTPClient(cfg, cfg.Sources.Syoboi),
		))
	}
	return collectors
}

func newHTTPClient(cfg *config.Config, source config.Source) *sources.Client {
	return sources.NewClient(sources.ClientOptions{
		RatePerMinute: source.RateLimitPerMinute,
		Timeout:       time.Duration(source.TimeoutSeconds) * time.Second,
		MaxAttempts:   cfg.Pipeline.RetryMaxAttempts,
		BaseDelay:     time.Duration(cfg.Pipeline.RetryBaseDelayMillis) * time.Millisecond,
	})
}
