// Package notify delivers release announcements via pluggable sinks.
//
// The default implementations publish through the Gmail and Google Calendar
// REST APIs using a bearer token minted by external tooling and gracefully
// degrade to no-ops when a channel is disabled. Dispatch code depends only on
// the sink interfaces, so alternative transports drop in without touching the
// pipeline.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"shiori/internal/config"
)

const userAgent = "Shiori/0.1"

// EmailSink sends one release summary email. Implementations must return a
// non-nil error on anything short of provider acknowledgment.
type EmailSink interface {
	SendEmail(ctx context.Context, recipient, subject, body string) error
}

// CalendarSink creates one all-day event for a release date.
type CalendarSink interface {
	CreateCalendarEvent(ctx context.Context, title string, date time.Time, details string) error
}

// TokenSource supplies the bearer token for provider requests. Token refresh
// is external; the pipeline only reads the current value.
type TokenSource func() (string, error)

// FileTokenSource reads the token from path on every call so external refresh
// tooling can rotate it between cycles.
func FileTokenSource(path string) TokenSource {
	return func() (string, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		token := strings.TrimSpace(string(raw))
		if token == "" {
			return "", fmt.Errorf("token file %s is empty", path)
		}
		return token, nil
	}
}

// Sinks bundles the channels enabled for a run.
type Sinks struct {
	Email    EmailSink
	Calendar CalendarSink
}

// NewSinks builds the sink set from configuration. Disabled channels get noop
// implementations so dispatch code never branches on configuration.
func NewSinks(cfg *config.Config) Sinks {
	timeout := time.Duration(cfg.Notify.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	tokens := FileTokenSource(cfg.Notify.TokenFile)

	sinks := Sinks{
		Email:    noopEmailSink{},
		Calendar: noopCalendarSink{},
	}
	if cfg.Notify.EmailEnabled {
		sinks.Email = NewGmailSink(cfg.Notify.EmailEndpoint, tokens, client)
	}
	if cfg.Notify.CalendarEnabled {
		sinks.Calendar = NewCalendarSink(cfg.Notify.CalendarEndpoint, cfg.Notify.CalendarID, tokens, client)
	}
	return sinks
}

type noopEmailSink struct{}

func (noopEmailSink) SendEmail(context.Context, string, string, string) error { return nil }

type noopCalendarSink struct{}

func (noopCalendarSink) CreateCalendarEvent(context.Context, string, time.Time, string) error {
	return nil
}
