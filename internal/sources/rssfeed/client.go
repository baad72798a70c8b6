// Package rssfeed collects release announcements from configured RSS 2.0 and
// Atom feeds. The cursor is the RFC 3339 timestamp of the newest item seen
// across all feeds.
package rssfeed

import (
	"context"
	"encoding/xml"
	"net/url"
	"strings"
	"time"

	"shiori/internal/services"
	"shiori/internal/sources"
)

// SourceName identifies this collector in cursors, provenance, and reports.
const SourceName = "rss"

// Item is one feed entry, the raw item this source produces.
type Item struct {
	FeedTitle string
	Title     string
	Link      string
	Published time.Time
}

// SourceID tags the item for normalizer dispatch.
func (Item) SourceID() string { return SourceName }

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title   string `xml:"title"`
			Link    string `xml:"link"`
			PubDate string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

type atomDocument struct {
	XMLName xml.Name `xml:"feed"`
	Title   string   `xml:"title"`
	Entries []struct {
		Title string `xml:"title"`
		Links []struct {
			Rel  string `xml:"rel,attr"`
			Href string `xml:"href,attr"`
		} `xml:"link"`
		Updated   string `xml:"updated"`
		Published string `xml:"published"`
	} `xml:"entry"`
}

// Client collects from a set of feed URLs.
type Client struct {
	feedURLs []string
	http     *sources.Client
}

var _ sources.Collector = (*Client)(nil)

// New creates an RSS/Atom collector over the configured feed URLs.
func New(feedURLs []string, httpClient *sources.Client) *Client {
	return &Client{feedURLs: feedURLs, http: httpClient}
}

// Name implements sources.Collector.
func (c *Client) Name() string { return SourceName }

// Fetch downloads every configured feed and returns entries newer than the
// cursor. A feed that fails to parse aborts the fetch; per-feed partial
// tolerance is handled a level up by the orchestrator's per-source isolation.
func (c *Client) Fetch(ctx context.Context, cursor string) ([]sources.RawItem, string, error) {
	since := parseCursor(cursor)

	var items []sources.RawItem
	latest := since
	for _, feedURL := range c.feedURLs {
		raw, err := c.http.GetRaw(ctx, SourceName, feedURL)
		if err != nil {
			return nil, "", err
		}
		entries, err := parseFeed(raw, feedURL)
		if err != nil {
			return nil, "", err
		}
		for _, entry := range entries {
			if !entry.Published.IsZero() && !entry.Published.After(since) {
				continue
			}
			if entry.Published.After(latest) {
				latest = entry.Published
			}
			items = append(items, entry)
		}
	}

	return items, formatCursor(latest), nil
}

func parseFeed(raw []byte, feedURL string) ([]Item, error) {
	var rss rssDocument
	if err := xml.Unmarshal(raw, &rss); err == nil && len(rss.Channel.Items) > 0 {
		feedTitle := fallbackFeedTitle(rss.Channel.Title, feedURL)
		entries := make([]Item, 0, len(rss.Channel.Items))
		for _, item := range rss.Channel.Items {
			entries = append(entries, Item{
				FeedTitle: feedTitle,
				Title:     strings.TrimSpace(item.Title),
				Link:      strings.TrimSpace(item.Link),
				Published: parseFeedTime(item.PubDate),
			})
		}
		return entries, nil
	}

	var atom atomDocument
	if err := xml.Unmarshal(raw, &atom); err == nil && len(atom.Entries) > 0 {
		feedTitle := fallbackFeedTitle(atom.Title, feedURL)
		entries := make([]Item, 0, len(atom.Entries))
		for _, entry := range atom.Entries {
			published := entry.Published
			if published == "" {
				published = entry.Updated
			}
			link := ""
			for _, candidate := range entry.Links {
				if candidate.Rel == "" || candidate.Rel == "alternate" {
					link = candidate.Href
					break
				}
			}
			entries = append(entries, Item{
				FeedTitle: feedTitle,
				Title:     strings.TrimSpace(entry.Title),
				Link:      strings.TrimSpace(link),
				Published: parseFeedTime(published),
			})
		}
		return entries, nil
	}

	return nil, services.Wrap(services.ErrPermanent, SourceName, "parse feed", feedURL, nil)
}

func fallbackFeedTitle(title, feedURL string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	if parsed, err := url.Parse(feedURL); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return feedURL
}

// parseFeedTime accepts the date formats seen across real feeds.
func parseFeedTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339,
		"2006-01-02T15:04:05Z0700",
		"Mon, 2 Jan 2006 15:04:05 -0700",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
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
