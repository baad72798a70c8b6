// Package syoboi collects broadcast schedule entries from a Syoboi-style JSON
// calendar API. Timestamps from this source are JST; the normalizer converts
// them to UTC dates. The cursor is the unix start time of the newest program
// seen.
package syoboi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"shiori/internal/sources"
)

// SourceName identifies this collector in cursors, provenance, and reports.
const SourceName = "syoboi"

// Item is one scheduled program, the raw item this source produces.
type Item struct {
	TitleID int64
	Title   string
	Channel string
	Count   int
	StartAt int64
}

// SourceID tags the item for normalizer dispatch.
func (Item) SourceID() string { return SourceName }

type calendarResponse struct {
	Programs map[string]struct {
		TID     string `json:"TID"`
		Title   string `json:"Title"`
		ChName  string `json:"ChName"`
		Count   string `json:"Count"`
		StTime  string `json:"StTime"`
		Comment string `json:"ProgComment"`
	} `json:"Programs"`
}

// Client collects from the Syoboi calendar endpoint.
type Client struct {
	baseURL string
	http    *sources.Client
	now     func() time.Time
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

// New creates a Syoboi calendar collector.
func New(baseURL string, httpClient *sources.Client, opts ...Option) *Client {
	client := &Client{baseURL: baseURL, http: httpClient, now: time.Now}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name implements sources.Collector.
func (c *Client) Name() string { return SourceName }

// Fetch returns programs starting after the cursor timestamp.
func (c *Client) Fetch(ctx context.Context, cursor string) ([]sources.RawItem, string, error) {
	since := c.sinceFromCursor(cursor)

	endpoint := fmt.Sprintf("%s/json.php?Req=ProgramByTime&Start=%d", c.baseURL, since)
	var resp calendarResponse
	if err := c.http.GetJSON(ctx, SourceName, endpoint, &resp); err != nil {
		return nil, "", err
	}

	var items []sources.RawItem
	latest := since
	for _, program := range resp.Programs {
		startAt, err := strconv.ParseInt(program.StTime, 10, 64)
		if err != nil || startAt <= since {
			continue
		}
		titleID, _ := strconv.ParseInt(program.TID, 10, 64)
		count, _ := strconv.Atoi(program.Count)
		if startAt > latest {
			latest = startAt
		}
		items = append(items, Item{
			TitleID: titleID,
			Title:   program.Title,
			Channel: program.ChName,
			Count:   count,
			StartAt: startAt,
		})
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
