// Package anilist collects airing-schedule entries from the AniList GraphQL
// API. The cursor is the unix timestamp of the last airing seen; the initial
// window starts 24 hours in the past.
package anilist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"shiori/internal/services"
	"shiori/internal/sources"
)

// SourceName identifies this collector in cursors, provenance, and reports.
const SourceName = "anilist"

// airingQuery pages through airing schedule entries newer than the cursor.
const airingQuery = `
query ($page: Int, $perPage: Int, $airedSince: Int) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { hasNextPage }
    airingSchedules(airingAt_greater: $airedSince, sort: TIME) {
      airingAt
      episode
      media {
        id
        type
        siteUrl
        title { romaji english native }
      }
    }
  }
}`

// Item is one airing schedule entry, the raw item this source produces.
type Item struct {
	AiringAt     int64
	Episode      int
	MediaID      int64
	MediaType    string
	SiteURL      string
	TitleRomaji  string
	TitleEnglish string
	TitleNative  string
}

// SourceID tags the item for normalizer dispatch.
func (Item) SourceID() string { return SourceName }

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Page struct {
			PageInfo struct {
				HasNextPage bool `json:"hasNextPage"`
			} `json:"pageInfo"`
			AiringSchedules []struct {
				AiringAt int64 `json:"airingAt"`
				Episode  int   `json:"episode"`
				Media    struct {
					ID      int64  `json:"id"`
					Type    string `json:"type"`
					SiteURL string `json:"siteUrl"`
					Title   struct {
						Romaji  string `json:"romaji"`
						English string `json:"english"`
						Native  string `json:"native"`
					} `json:"title"`
				} `json:"media"`
			} `json:"airingSchedules"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Client collects from the AniList GraphQL endpoint.
type Client struct {
	endpoint string
	perPage  int
	http     *sources.Client
	now      func() time.Time
}

var _ sources.Collector = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithNow overrides the clock (used in tests).
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an AniList collector.
func New(endpoint string, perPage int, httpClient *sources.Client, opts ...Option) *Client {
	if perPage <= 0 {
		perPage = 50
	}
	client := &Client{
		endpoint: endpoint,
		perPage:  perPage,
		http:     httpClient,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name implements sources.Collector.
func (c *Client) Name() string { return SourceName }

// Fetch returns airing entries newer than the cursor, paging until the API
// reports no further pages.
func (c *Client) Fetch(ctx context.Context, cursor string) ([]sources.RawItem, string, error) {
	airedSince := c.sinceFromCursor(cursor)

	var items []sources.RawItem
	latest := airedSince
	for page := 1; ; page++ {
		var resp graphQLResponse
		req := graphQLRequest{
			Query: airingQuery,
			Variables: map[string]any{
				"page":       page,
				"perPage":    c.perPage,
				"airedSince": airedSince,
			},
		}
		if err := c.http.PostJSON(ctx, SourceName, c.endpoint, req, &resp); err != nil {
			return nil, "", err
		}
		if len(resp.Errors) > 0 {
			return nil, "", services.Wrap(services.ErrPermanent, SourceName, "query",
				fmt.Sprintf("graphql error: %s", resp.Errors[0].Message), nil)
		}

		for _, schedule := range resp.Data.Page.AiringSchedules {
			items = append(items, Item{
				AiringAt:     schedule.AiringAt,
				Episode:      schedule.Episode,
				MediaID:      schedule.Media.ID,
				MediaType:    schedule.Media.Type,
				SiteURL:      schedule.Media.SiteURL,
				TitleRomaji:  schedule.Media.Title.Romaji,
				TitleEnglish: schedule.Media.Title.English,
				TitleNative:  schedule.Media.Title.Native,
			})
			if schedule.AiringAt > latest {
				latest = schedule.AiringAt
			}
		}
		if !resp.Data.Page.PageInfo.HasNextPage {
			break
		}
	}

	return items, strconv.FormatInt(latest, 10), nil
}

func (c *Client) sinceFromCursor(cursor string) int64 {
	if cursor != "" {
		if parsed, err := strconv.ParseInt(cursor, 10, 64); err == nil {
			return parsed
		}
	}
	return c.now().Add(-24 * time.Hour).Unix()
}
