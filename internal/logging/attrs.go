package logging

import (
	"log/slog"
	"time"
)

// Standardized structured logging keys shared across components.
const (
	// FieldComponent identifies the pipeline component emitting the record.
	FieldComponent = "component"
	// FieldSource is the external source identifier (anilist, jikan, ...).
	FieldSource = "source"
	// FieldCycleID correlates records belonging to one pipeline cycle.
	FieldCycleID = "cycle_id"
	// FieldWorkID is the catalog work identifier.
	FieldWorkID = "work_id"
	// FieldReleaseID is the catalog release identifier.
	FieldReleaseID = "release_id"
	// FieldChannel is the notification channel (email, calendar).
	FieldChannel = "channel"
	// FieldReason records why an item was dropped or rejected.
	FieldReason = "reason"
	// FieldEventType tags machine-filterable lifecycle events.
	FieldEventType = "event_type"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attrs into the variadic any form slog methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}
