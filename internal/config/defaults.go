package config

const (
	defaultDataDir = "~/.local/share/shiori"
	defaultLogDir  = "~/.local/share/shiori/logs"

	defaultAniListBaseURL = "https://graphql.anilist.co"
	defaultAniListPerPage = 50
	defaultJikanBaseURL   = "https://api.jikan.moe/v4"
	defaultSyoboiBaseURL  = "https://cal.syoboi.jp"

	defaultAniListRateLimit = 90
	defaultJikanRateLimit   = 60
	defaultRSSRateLimit     = 40
	defaultSyoboiRateLimit  = 30

	defaultSourceTimeoutSeconds = 15

	defaultEmailEndpoint    = "https://gmail.googleapis.com/gmail/v1"
	defaultCalendarEndpoint = "https://www.googleapis.com/calendar/v3"
	defaultCalendarID       = "primary"
	defaultNotifyTimeout    = 10
	defaultNotifyMaxFails   = 5

	defaultCycleIntervalMinutes = 60
	defaultCycleTimeoutSeconds  = 300
	defaultCollectorWorkers     = 4
	defaultRetryMaxAttempts     = 3
	defaultRetryBaseDelayMillis = 500

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Sources: Sources{
			AniList: AniListSource{
				Source: Source{
					Enabled:            true,
					BaseURL:            defaultAniListBaseURL,
					RateLimitPerMinute: defaultAniListRateLimit,
					TimeoutSeconds:     defaultSourceTimeoutSeconds,
				},
				PerPage: defaultAniListPerPage,
			},
			Jikan: Source{
				Enabled:            true,
				BaseURL:            defaultJikanBaseURL,
				RateLimitPerMinute: defaultJikanRateLimit,
				TimeoutSeconds:     defaultSourceTimeoutSeconds,
			},
			RSS: RSSSource{
				Source: Source{
					Enabled:            false,
					RateLimitPerMinute: defaultRSSRateLimit,
					TimeoutSeconds:     defaultSourceTimeoutSeconds,
				},
			},
			Syoboi: Source{
				Enabled:            false,
				BaseURL:            defaultSyoboiBaseURL,
				RateLimitPerMinute: defaultSyoboiRateLimit,
				TimeoutSeconds:     defaultSourceTimeoutSeconds,
			},
		},
		Notify: Notify{
			EmailEnabled:      true,
			CalendarEnabled:   true,
			EmailEndpoint:     defaultEmailEndpoint,
			CalendarEndpoint:  defaultCalendarEndpoint,
			CalendarID:        defaultCalendarID,
			RequestTimeout:    defaultNotifyTimeout,
			MaxFailuresPerRun: defaultNotifyMaxFails,
		},
		Pipeline: Pipeline{
			CycleIntervalMinutes: defaultCycleIntervalMinutes,
			CycleTimeoutSeconds:  defaultCycleTimeoutSeconds,
			CollectorWorkers:     defaultCollectorWorkers,
			RetryMaxAttempts:     defaultRetryMaxAttempts,
			RetryBaseDelayMillis: defaultRetryBaseDelayMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
