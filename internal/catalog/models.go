package catalog

import (
	"strings"
	"time"
)

// WorkType distinguishes tracked title kinds.
type WorkType string

const (
	WorkAnime WorkType = "anime"
	WorkManga WorkType = "manga"
)

// ValidWorkType reports whether value is a known work type.
func ValidWorkType(value WorkType) bool {
	return value == WorkAnime || value == WorkManga
}

// ReleaseType identifies what kind of installment a release is.
type ReleaseType string

const (
	ReleaseEpisode ReleaseType = "episode"
	ReleaseVolume  ReleaseType = "volume"
	ReleaseSeason  ReleaseType = "season"
	ReleaseChapter ReleaseType = "chapter"
)

var releaseTypes = map[ReleaseType]struct{}{
	ReleaseEpisode: {},
	ReleaseVolume:  {},
	ReleaseSeason:  {},
	ReleaseChapter: {},
}

// ValidReleaseType reports whether value is a known release type.
func ValidReleaseType(value ReleaseType) bool {
	_, ok := releaseTypes[value]
	return ok
}

// Work is a tracked anime or manga title. Title variants beyond the primary
// title are optional and fill in as sources contribute them.
type Work struct {
	ID          int64
	Title       string
	TitleEn     string
	TitleKana   string
	TitleNative string
	Type        WorkType
	OfficialURL string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TitleVariants returns the non-empty title variants in a stable order.
func (w *Work) TitleVariants() []string {
	variants := make([]string, 0, 4)
	for _, title := range []string{w.Title, w.TitleEn, w.TitleKana, w.TitleNative} {
		if strings.TrimSpace(title) != "" {
			variants = append(variants, title)
		}
	}
	return variants
}

// Release is one dated installment of a Work on a platform. Number is empty
// for season-level releases. The tuple (WorkID, Type, Number, Platform, Date)
// is the business key; no two rows may share it.
type Release struct {
	ID          int64
	WorkID      int64
	Type        ReleaseType
	Number      string
	Platform    string
	ReleaseDate time.Time
	Source      string
	SourceURL   string
	Notified    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Label renders a short human-readable installment label ("episode 5",
// "season", "volume 12").
func (r *Release) Label() string {
	if r.Number == "" {
		return string(r.Type)
	}
	return string(r.Type) + " " + r.Number
}

// WorkRef pairs a work with the number of releases already attached to it.
// The matcher uses the count to break ambiguous title matches.
type WorkRef struct {
	Work
	ReleaseCount int
}

// DueRelease is a release joined with its work, as returned by
// SelectUnnotifiedDue.
type DueRelease struct {
	Release
	Work Work
}

// Candidate is a normalized, unpersisted release produced by a source
// collector. It carries the raw title variants needed for work matching.
type Candidate struct {
	Title       string
	TitleEn     string
	TitleKana   string
	TitleNative string
	OfficialURL string
	Type        WorkType
	ReleaseType ReleaseType
	Number      string
	Platform    string
	ReleaseDate time.Time
	Source      string
	SourceURL   string
}

// TitleVariants returns the candidate's non-empty title variants.
func (c *Candidate) TitleVariants() []string {
	variants := make([]string, 0, 4)
	for _, title := range []string{c.Title, c.TitleEn, c.TitleKana, c.TitleNative} {
		if strings.TrimSpace(title) != "" {
			variants = append(variants, title)
		}
	}
	return variants
}

// NewWork builds the Work row a first-seen candidate should create.
func (c *Candidate) NewWork() Work {
	return Work{
		Title:       c.Title,
		TitleEn:     c.TitleEn,
		TitleKana:   c.TitleKana,
		TitleNative: c.TitleNative,
		Type:        c.Type,
		OfficialURL: c.OfficialURL,
	}
}

// NewRelease builds the Release row for a candidate resolved to workID.
func (c *Candidate) NewRelease(workID int64) Release {
	return Release{
		WorkID:      workID,
		Type:        c.ReleaseType,
		Number:      c.Number,
		Platform:    c.Platform,
		ReleaseDate: c.ReleaseDate,
		Source:      c.Source,
		SourceURL:   c.SourceURL,
	}
}

// Stats summarizes catalog contents for operator tooling.
type Stats struct {
	Works              int64
	Releases           int64
	UnnotifiedReleases int64
}
