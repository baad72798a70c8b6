package normalize

import (
	"errors"
	"strings"
	"testing"
	"time"

	"shiori/internal/catalog"
	"shiori/internal/services"
	"shiori/internal/sources/anilist"
	"shiori/internal/sources/jikan"
	"shiori/internal/sources/rssfeed"
	"shiori/internal/sources/syoboi"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return NewWithNow(func() time.Time { return testNow })
}

func TestNormalizeAniListItem(t *testing.T) {
	n := newTestNormalizer()
	airing := time.Date(2026, time.March, 12, 15, 30, 0, 0, time.UTC)
	candidate, err := n.Normalize(anilist.Item{
		AiringAt:     airing.Unix(),
		Episode:      7,
		MediaType:    "ANIME",
		SiteURL:      "https://anilist.co/anime/1",
		TitleRomaji:  "Sousou no Frieren",
		TitleEnglish: "Frieren: Beyond Journey's End",
		TitleNative:  "葬送のフリーレン",
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if candidate.Title != "Sousou no Frieren" {
		t.Fatalf("expected romaji title, got %q", candidate.Title)
	}
	if candidate.Type != catalog.WorkAnime || candidate.ReleaseType != catalog.ReleaseEpisode {
		t.Fatalf("unexpected types: %s/%s", candidate.Type, candidate.ReleaseType)
	}
	if candidate.Number != "7" {
		t.Fatalf("expected number 7, got %q", candidate.Number)
	}
	if !candidate.ReleaseDate.Equal(time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected UTC date 2026-03-12, got %s", candidate.ReleaseDate)
	}
	if candidate.Source != "anilist" {
		t.Fatalf("expected source anilist, got %q", candidate.Source)
	}
}

func TestNormalizeAniListFallsBackToEnglishTitle(t *testing.T) {
	n := newTestNormalizer()
	candidate, err := n.Normalize(anilist.Item{
		AiringAt:     testNow.Unix(),
		Episode:      1,
		TitleEnglish: "Some Show",
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if candidate.Title != "Some Show" {
		t.Fatalf("expected english fallback, got %q", candidate.Title)
	}
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	n := newTestNormalizer()
	cases := []struct {
		name string
		item interface {
			SourceID() string
		}
		reason string
	}{
		{"anilist no title", anilist.Item{AiringAt: testNow.Unix(), Episode: 3}, "missing title"},
		{"anilist no episode", anilist.Item{AiringAt: testNow.Unix(), TitleRomaji: "X"}, "missing episode number"},
		{"jikan no platform", jikan.Item{AnimeTitle: "X", Episode: 2, Aired: testNow}, "missing platform"},
		{"jikan no air date", jikan.Item{AnimeTitle: "X", Episode: 2, Platform: "TV"}, "missing air date"},
		{"feed no title", rssfeed.Item{FeedTitle: "Blog", Published: testNow}, "missing title"},
		{"feed no feed title", rssfeed.Item{Title: "X 第1話", Published: testNow}, "missing platform"},
		{"syoboi no channel", syoboi.Item{Title: "X", StartAt: testNow.Unix()}, "missing channel"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize(tc.item)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.reason) {
				t.Fatalf("expected reason %q in %v", tc.reason, err)
			}
		})
	}
}

func TestNormalizeRejectsDatesOutsideBounds(t *testing.T) {
	n := newTestNormalizer()
	_, err := n.Normalize(jikan.Item{
		AnimeTitle: "X", Episode: 1, Platform: "TV",
		Aired: time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for ancient date, got %v", err)
	}
	_, err = n.Normalize(jikan.Item{
		AnimeTitle: "X", Episode: 1, Platform: "TV",
		Aired: testNow.AddDate(1, 0, 2),
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for far-future date, got %v", err)
	}
	if !strings.Contains(err.Error(), "more than a year ahead") {
		t.Fatalf("unexpected reason: %v", err)
	}
}

func TestNormalizeSyoboiUsesJSTDate(t *testing.T) {
	n := newTestNormalizer()
	// 2026-03-11 23:30 UTC is already 2026-03-12 08:30 in JST.
	start := time.Date(2026, time.March, 11, 23, 30, 0, 0, time.UTC)
	candidate, err := n.Normalize(syoboi.Item{
		Title: "ワンピース", Channel: "フジテレビ", Count: 1100, StartAt: start.Unix(),
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got := candidate.ReleaseDate.Format("2006-01-02"); got != "2026-03-12" {
		t.Fatalf("expected JST date 2026-03-12, got %s", got)
	}
	if candidate.Number != "1100" {
		t.Fatalf("expected number 1100, got %q", candidate.Number)
	}
}

func TestNormalizeSyoboiWithoutCountIsSeasonLevel(t *testing.T) {
	n := newTestNormalizer()
	candidate, err := n.Normalize(syoboi.Item{
		Title: "特別番組", Channel: "NHK", StartAt: testNow.Unix(),
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if candidate.ReleaseType != catalog.ReleaseSeason || candidate.Number != "" {
		t.Fatalf("expected season-level release, got %s number %q", candidate.ReleaseType, candidate.Number)
	}
}

func TestNormalizeFeedParsesInstallment(t *testing.T) {
	n := newTestNormalizer()
	candidate, err := n.Normalize(rssfeed.Item{
		FeedTitle: "Kodansha News",
		Title:     "ブルーロック 第32巻",
		Link:      "https://example.com/bluelock-32",
		Published: testNow,
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if candidate.Type != catalog.WorkManga || candidate.ReleaseType != catalog.ReleaseVolume {
		t.Fatalf("unexpected types: %s/%s", candidate.Type, candidate.ReleaseType)
	}
	if candidate.Title != "ブルーロック" || candidate.Number != "32" {
		t.Fatalf("unexpected parse: title %q number %q", candidate.Title, candidate.Number)
	}
	if candidate.Platform != "Kodansha News" {
		t.Fatalf("expected feed title as platform, got %q", candidate.Platform)
	}
}

func TestNormalizeRejectsUnknownRawItem(t *testing.T) {
	n := newTestNormalizer()
	_, err := n.Normalize(fakeRawItem{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type fakeRawItem struct{}

func (fakeRawItem) SourceID() string { return "mystery" }

func TestParseInstallment(t *testing.T) {
	cases := []struct {
		headline    string
		title       string
		workType    catalog.WorkType
		releaseType catalog.ReleaseType
		number      string
	}{
		{"呪術廻戦 第48話", "呪術廻戦", catalog.WorkAnime, catalog.ReleaseEpisode, "48"},
		{"SPY×FAMILY 第12巻", "SPY×FAMILY", catalog.WorkManga, catalog.ReleaseVolume, "12"},
		{"Chainsaw Man Vol. 15", "Chainsaw Man", catalog.WorkManga, catalog.ReleaseVolume, "15"},
		{"One Piece Chapter 1102", "One Piece", catalog.WorkManga, catalog.ReleaseChapter, "1102"},
		{"Frieren Episode 28", "Frieren", catalog.WorkAnime, catalog.ReleaseEpisode, "28"},
		{"Dandadan #12", "Dandadan", catalog.WorkAnime, catalog.ReleaseEpisode, "12"},
		{"Oshi no Ko - 11", "Oshi no Ko", catalog.WorkAnime, catalog.ReleaseEpisode, "11"},
		{"New Season Announced", "New Season Announced", catalog.WorkAnime, catalog.ReleaseSeason, ""},
	}
	for _, tc := range cases {
		t.Run(tc.headline, func(t *testing.T) {
			got := ParseInstallment(tc.headline)
			if got.Title != tc.title || got.WorkType != tc.workType ||
				got.ReleaseType != tc.releaseType || got.Number != tc.number {
				t.Fatalf("ParseInstallment(%q) = %+v", tc.headline, got)
			}
		})
	}
}
