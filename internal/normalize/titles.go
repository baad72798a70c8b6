package normalize

import (
	"regexp"
	"strings"

	"shiori/internal/catalog"
)

// Installment is the result of splitting a feed headline into the work title
// and the numbered unit it announces.
type Installment struct {
	Title       string
	WorkType    catalog.WorkType
	ReleaseType catalog.ReleaseType
	Number      string
}

type installmentPattern struct {
	re          *regexp.Regexp
	workType    catalog.WorkType
	releaseType catalog.ReleaseType
}

// Ordered by specificity: Japanese counters first, then English unit words,
// then bare trailing numerals. First match wins.
var installmentPatterns = []installmentPattern{
	{regexp.MustCompile(`第\s*(\d+)\s*話`), catalog.WorkAnime, catalog.ReleaseEpisode},
	{regexp.MustCompile(`第\s*(\d+)\s*巻`), catalog.WorkManga, catalog.ReleaseVolume},
	{regexp.MustCompile(`第\s*(\d+)\s*集`), catalog.WorkManga, catalog.ReleaseVolume},
	{regexp.MustCompile(`(?i)\bepisode\s*(\d+)`), catalog.WorkAnime, catalog.ReleaseEpisode},
	{regexp.MustCompile(`(?i)\bep\.?\s*(\d+)`), catalog.WorkAnime, catalog.ReleaseEpisode},
	{regexp.MustCompile(`(?i)\bvol(?:ume)?\.?\s*(\d+)`), catalog.WorkManga, catalog.ReleaseVolume},
	{regexp.MustCompile(`(?i)\bchapter\s*(\d+)`), catalog.WorkManga, catalog.ReleaseChapter},
	{regexp.MustCompile(`(?i)\bch\.\s*(\d+)`), catalog.WorkManga, catalog.ReleaseChapter},
	{regexp.MustCompile(`#(\d+)\s*$`), catalog.WorkAnime, catalog.ReleaseEpisode},
	{regexp.MustCompile(`\s[-–]\s*(\d+)\s*$`), catalog.WorkAnime, catalog.ReleaseEpisode},
}

// ParseInstallment extracts the announced unit from a feed headline. A
// headline with no recognizable counter becomes a season-level anime
// announcement for the whole title.
func ParseInstallment(headline string) Installment {
	headline = strings.TrimSpace(headline)
	for _, pattern := range installmentPatterns {
		match := pattern.re.FindStringSubmatchIndex(headline)
		if match == nil {
			continue
		}
		title := cleanTitle(headline[:match[0]] + headline[match[1]:])
		if title == "" {
			// Counter-only headlines keep the full text as the title.
			title = cleanTitle(headline)
		}
		return Installment{
			Title:       title,
			WorkType:    pattern.workType,
			ReleaseType: pattern.releaseType,
			Number:      headline[match[2]:match[3]],
		}
	}
	return Installment{
		Title:       cleanTitle(headline),
		WorkType:    catalog.WorkAnime,
		ReleaseType: catalog.ReleaseSeason,
	}
}

var titleSeparators = regexp.MustCompile(`\s+`)

func cleanTitle(title string) string {
	title = strings.Trim(title, " \t-–—:|「」『』[]()")
	return titleSeparators.ReplaceAllString(strings.TrimSpace(title), " ")
}
