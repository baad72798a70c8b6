package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoogleCalendarSink creates all-day events through the Calendar REST API.
type GoogleCalendarSink struct {
	endpoint   string
	calendarID string
	tokens     TokenSource
	client     *http.Client
}

var _ CalendarSink = (*GoogleCalendarSink)(nil)

// NewCalendarSink creates a calendar sink for the given API base URL and
// calendar ID ("primary" for the recipient's default calendar).
func NewCalendarSink(endpoint, calendarID string, tokens TokenSource, client *http.Client) *GoogleCalendarSink {
	if client == nil {
		client = &http.Client{}
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendarSink{
		endpoint:   strings.TrimRight(endpoint, "/"),
		calendarID: calendarID,
		tokens:     tokens,
		client:     client,
	}
}

type calendarEvent struct {
	Summary     string       `json:"summary"`
	Description string       `json:"description,omitempty"`
	Start       calendarDate `json:"start"`
	End         calendarDate `json:"end"`
}

type calendarDate struct {
	Date string `json:"date"`
}

// CreateCalendarEvent inserts an all-day event on the release date.
func (g *GoogleCalendarSink) CreateCalendarEvent(ctx context.Context, title string, date time.Time, details string) error {
	day := date.Format("2006-01-02")
	next := date.AddDate(0, 0, 1).Format("2006-01-02")
	payload, err := json.Marshal(calendarEvent{
		Summary:     title,
		Description: details,
		Start:       calendarDate{Date: day},
		End:         calendarDate{Date: next},
	})
	if err != nil {
		return fmt.Errorf("encode calendar event: %w", err)
	}

	token, err := g.tokens()
	if err != nil {
		return fmt.Errorf("calendar token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", g.endpoint, url.PathEscape(g.calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build calendar request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("calendar returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
