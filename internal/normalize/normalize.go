// Package normalize converts each source's typed raw items into canonical
// catalog candidates. Dispatch is a tagged switch over the concrete raw item
// types; unknown or incomplete items are rejected with a recorded reason,
// never a pipeline abort.
//
// Timezone policy per source: AniList and Jikan report UTC instants, feed
// dates carry their own offsets, and Syoboi start times are JST. All of them
// normalize to the UTC calendar date.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"shiori/internal/catalog"
	"shiori/internal/services"
	"shiori/internal/sources"
	"shiori/internal/sources/anilist"
	"shiori/internal/sources/jikan"
	"shiori/internal/sources/rssfeed"
	"shiori/internal/sources/syoboi"
)

var jst = time.FixedZone("JST", 9*60*60)

// Normalizer converts raw source items into catalog candidates.
type Normalizer struct {
	now func() time.Time
}

// New constructs a Normalizer using the wall clock for date bounds.
func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithNow constructs a Normalizer with a fixed clock (used in tests).
func NewWithNow(now func() time.Time) *Normalizer {
	if now == nil {
		return New()
	}
	return &Normalizer{now: now}
}

// Normalize maps a raw item to a candidate. Errors are tagged ErrValidation
// and describe why the item was dropped.
func (n *Normalizer) Normalize(raw sources.RawItem) (catalog.Candidate, error) {
	switch item := raw.(type) {
	case anilist.Item:
		return n.fromAniList(item)
	case jikan.Item:
		return n.fromJikan(item)
	case rssfeed.Item:
		return n.fromFeed(item)
	case syoboi.Item:
		return n.fromSyoboi(item)
	default:
		return catalog.Candidate{}, services.Wrap(services.ErrValidation, "normalizer", "dispatch",
			fmt.Sprintf("unknown raw item type for source %q", raw.SourceID()), nil)
	}
}

func (n *Normalizer) fromAniList(item anilist.Item) (catalog.Candidate, error) {
	title := firstNonEmpty(item.TitleRomaji, item.TitleEnglish, item.TitleNative)
	if title == "" {
		return catalog.Candidate{}, dropError(anilist.SourceName, "missing title")
	}
	workType := catalog.WorkAnime
	if strings.EqualFold(item.MediaType, "MANGA") {
		workType = catalog.WorkManga
	}
	if item.Episode <= 0 {
		return catalog.Candidate{}, dropError(anilist.SourceName, "missing episode number")
	}
	releaseDate, err := n.boundDate(anilist.SourceName, time.Unix(item.AiringAt, 0).UTC())
	if err != nil {
		return catalog.Candidate{}, err
	}

	releaseType := catalog.ReleaseEpisode
	if workType == catalog.WorkManga {
		releaseType = catalog.ReleaseChapter
	}
	return catalog.Candidate{
		Title:       title,
		TitleEn:     item.TitleEnglish,
		TitleNative: item.TitleNative,
		OfficialURL: item.SiteURL,
		Type:        workType,
		ReleaseType: releaseType,
		Number:      strconv.Itoa(item.Episode),
		Platform:    "TV",
		ReleaseDate: releaseDate,
		Source:      anilist.SourceName,
		SourceURL:   item.SiteURL,
	}, nil
}

func (n *Normalizer) fromJikan(item jikan.Item) (catalog.Candidate, error) {
	if strings.TrimSpace(item.AnimeTitle) == "" {
		return catalog.Candidate{}, dropError(jikan.SourceName, "missing title")
	}
	if item.Episode <= 0 {
		return catalog.Candidate{}, dropError(jikan.SourceName, "missing episode number")
	}
	if item.Aired.IsZero() {
		return catalog.Candidate{}, dropError(jikan.SourceName, "missing air date")
	}
	if strings.TrimSpace(item.Platform) == "" {
		return catalog.Candidate{}, dropError(jikan.SourceName, "missing platform")
	}
	releaseDate, err := n.boundDate(jikan.SourceName, item.Aired.UTC())
	if err != nil {
		return catalog.Candidate{}, err
	}

	return catalog.Candidate{
		Title:       item.AnimeTitle,
		TitleEn:     item.AnimeTitleEn,
		OfficialURL: item.AnimeURL,
		Type:        catalog.WorkAnime,
		ReleaseType: catalog.ReleaseEpisode,
		Number:      strconv.Itoa(item.Episode),
		Platform:    item.Platform,
		ReleaseDate: releaseDate,
		Source:      jikan.SourceName,
		SourceURL:   item.AnimeURL,
	}, nil
}

func (n *Normalizer) fromFeed(item rssfeed.Item) (catalog.Candidate, error) {
	if strings.TrimSpace(item.Title) == "" {
		return catalog.Candidate{}, dropError(rssfeed.SourceName, "missing title")
	}
	if item.Published.IsZero() {
		return catalog.Candidate{}, dropError(rssfeed.SourceName, "missing publication date")
	}
	platform := strings.TrimSpace(item.FeedTitle)
	if platform == "" {
		return catalog.Candidate{}, dropError(rssfeed.SourceName, "missing platform")
	}
	releaseDate, err := n.boundDate(rssfeed.SourceName, item.Published.UTC())
	if err != nil {
		return catalog.Candidate{}, err
	}

	parsed := ParseInstallment(item.Title)
	if parsed.Title == "" {
		return catalog.Candidate{}, dropError(rssfeed.SourceName, "empty title after installment parse")
	}
	return catalog.Candidate{
		Title:       parsed.Title,
		Type:        parsed.WorkType,
		ReleaseType: parsed.ReleaseType,
		Number:      parsed.Number,
		Platform:    platform,
		ReleaseDate: releaseDate,
		Source:      rssfeed.SourceName,
		SourceURL:   item.Link,
	}, nil
}

func (n *Normalizer) fromSyoboi(item syoboi.Item) (catalog.Candidate, error) {
	if strings.TrimSpace(item.Title) == "" {
		return catalog.Candidate{}, dropError(syoboi.SourceName, "missing title")
	}
	platform := strings.TrimSpace(item.Channel)
	if platform == "" {
		return catalog.Candidate{}, dropError(syoboi.SourceName, "missing channel")
	}
	// Syoboi timestamps are JST wall-clock; resolve the local date first.
	local := time.Unix(item.StartAt, 0).In(jst)
	releaseDate, err := n.boundDate(syoboi.SourceName,
		time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC))
	if err != nil {
		return catalog.Candidate{}, err
	}

	candidate := catalog.Candidate{
		Title:       item.Title,
		Type:        catalog.WorkAnime,
		ReleaseType: catalog.ReleaseEpisode,
		Platform:    platform,
		ReleaseDate: releaseDate,
		Source:      syoboi.SourceName,
	}
	if item.Count > 0 {
		candidate.Number = strconv.Itoa(item.Count)
	} else {
		candidate.ReleaseType = catalog.ReleaseSeason
	}
	return candidate, nil
}

func dropError(source, reason string) error {
	return services.Wrap(services.ErrValidation, source, "normalize", reason, nil)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
