// Package jikan collects recently published episode entries from the Jikan
// REST API (the unofficial MyAnimeList mirror). The cursor is the RFC 3339
// timestamp of the newest episode seen.
package jikan

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"shiori/internal/sources"
)

// SourceName identifies this collector in cursors, provenance, and reports.
const SourceName = "jikan"

// maxPages bounds one fetch so a cold start cannot walk the whole archive.
const maxPages = 5

// Item is one published episode entry, the raw item this source produces.
type Item struct {
	AnimeID      int64
	AnimeTitle   string
	AnimeTitleEn string
	AnimeURL     string
	Episode      int
	Platform     string
	Aired        time.Time
}

// SourceID tags the item for normalizer dispatch.
func (Item) SourceID() string { return SourceName }

type episodesResponse struct {
	Pagination struct {
		HasNextPage bool `json:"has_next_page"`
	} `json:"pagination"`
	Data []struct {
		Entry struct {
			MalID  int64  `json:"mal_id"`
			Title  string `json:"title"`
			TitleE string `json:"title_english"`
			URL    string `json:"url"`
		} `json:"entry"`
		Broadcast struct {
			Network string `json:"network"`
		} `json:"broadcast"`
		Episodes []struct {
			MalID int64  `json:"mal_id"`
			Aired string `json:"aired"`
		} `json:"episodes"`
	} `json:"data"`
}

// Client collects from the Jikan REST endpoint.
type Client struct {
	baseURL string
	http    *sources.Client
}

var _ sources.Collector = (*Client)(nil)

// New creates a Jikan collector.
func New(baseURL string, httpClient *sources.Client) *Client {
	return &Client{baseURL: baseURL, http: httpClient}
}

// Name implements sources.Collector.
func (c *Client) Name() string { return SourceName }

// Fetch returns episodes aired after the cursor timestamp, walking pages of
// the recent-episodes listing until it reaches already-seen entries.
func (c *Client) Fetch(ctx context.Context, cursor string) ([]sources.RawItem, string, error) {
	since := parseCursor(cursor)

	var items []sources.RawItem
	latest := since
	for page := 1; page <= maxPages; page++ {
		endpoint := fmt.Sprintf("%s/watch/episodes?page=%s", c.baseURL, url.QueryEscape(fmt.Sprint(page)))
		var resp episodesResponse
		if err := c.http.GetJSON(ctx, SourceName, endpoint, &resp); err != nil {
			return nil, "", err
		}

		pageHadNew := false
		for _, entry := range resp.Data {
			platform := entry.Broadcast.Network
			if platform == "" {
				platform = "MyAnimeList"
			}
			for _, episode := range entry.Episodes {
				aired, err := time.Parse(time.RFC3339, episode.Aired)
				if err != nil {
					// Items with unusable dates are dropped later by the
					// normalizer; keep the raw zero value for its report.
					aired = time.Time{}
				}
				if !aired.IsZero() && !aired.After(since) {
					continue
				}
				pageHadNew = true
				if aired.After(latest) {
					latest = aired
				}
				items = append(items, Item{
					AnimeID:      entry.Entry.MalID,
					AnimeTitle:   entry.Entry.Title,
					AnimeTitleEn: entry.Entry.TitleE,
					AnimeURL:     entry.Entry.URL,
					Episode:      int(episode.MalID),
					Platform:     platform,
					Aired:        aired,
				})
			}
		}
		if !resp.Pagination.HasNextPage || !pageHadNew {
			break
		}
	}

	return items, formatCursor(latest), nil
}

func parseCursor(cursor string) time.Time {
	if cursor == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, cursor)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func formatCursor(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
