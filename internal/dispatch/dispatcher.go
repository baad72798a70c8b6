// Package dispatch selects due, unnotified releases and walks each one
// through the send state machine: pending until every enabled channel
// acknowledges, then committed via MarkNotified. A release is never marked
// notified before acknowledgment; a crash between send and commit therefore
// re-sends rather than silently dropping, and the per-channel send log keeps
// the re-send from duplicating on channels that already acknowledged.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shiori/internal/catalog"
	"shiori/internal/config"
	"shiori/internal/filter"
	"shiori/internal/logging"
	"shiori/internal/notify"
)

// Channel names as recorded in the send log.
const (
	ChannelEmail    = "email"
	ChannelCalendar = "calendar"
)

// Dispatcher drives notification delivery for one recipient.
type Dispatcher struct {
	store       *catalog.Store
	filters     *filter.Engine
	sinks       notify.Sinks
	logger      *slog.Logger
	recipient   string
	email       bool
	calendar    bool
	maxFailures int
}

// New creates a Dispatcher over the configured channels.
func New(store *catalog.Store, filters *filter.Engine, sinks notify.Sinks, cfg *config.Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxFailures := cfg.Notify.MaxFailuresPerRun
	if maxFailures <= 0 {
		maxFailures = 10
	}
	return &Dispatcher{
		store:       store,
		filters:     filters,
		sinks:       sinks,
		logger:      logger.With(logging.String(logging.FieldComponent, "dispatcher")),
		recipient:   cfg.Notify.Recipient,
		email:       cfg.Notify.EmailEnabled,
		calendar:    cfg.Notify.CalendarEnabled,
		maxFailures: maxFailures,
	}
}

// Run dispatches every due release as of the given instant. Sink failures are
// counted, capped, and reported; they never abort the cycle. The returned
// error covers store failures only.
func (d *Dispatcher) Run(ctx context.Context, asOf time.Time) (Report, error) {
	report := Report{}
	if !d.email && !d.calendar {
		return report, nil
	}

	due, err := d.store.SelectUnnotifiedDue(ctx, asOf)
	if err != nil {
		return report, fmt.Errorf("select due releases: %w", err)
	}
	report.Selected = len(due)

	var emailBatch []catalog.DueRelease
	var ordered []*releaseState
	pending := make(map[int64]*releaseState, len(due))
	for index := range due {
		release := &due[index]
		allowed, reason := d.filters.AllowDue(release)
		if !allowed {
			report.Denied = append(report.Denied, DeniedRelease{
				ReleaseID: release.ID,
				Title:     release.Work.Title,
				Reason:    reason,
			})
			d.logger.Debug("release denied by filter",
				logging.Int64(logging.FieldReleaseID, release.ID),
				logging.String(logging.FieldReason, reason))
			continue
		}

		state := &releaseState{release: release}
		pending[release.ID] = state
		ordered = append(ordered, state)
		if d.email {
			sent, err := d.store.ChannelSent(ctx, release.ID, ChannelEmail)
			if err != nil {
				return report, fmt.Errorf("check email send log: %w", err)
			}
			state.emailDone = sent
			if !sent {
				emailBatch = append(emailBatch, *release)
			}
		} else {
			state.emailDone = true
		}
		if !d.calendar {
			state.calendarDone = true
		}
	}

	failures := 0
	if len(emailBatch) > 0 {
		if err := d.sendEmailBatch(ctx, emailBatch, pending); err != nil {
			failures++
			report.Failed += len(emailBatch)
			d.logger.Warn("email batch failed",
				logging.Int("releases", len(emailBatch)),
				logging.Error(err))
		} else {
			report.EmailsSent = 1
		}
	}

	if d.calendar {
		d.sendCalendarEvents(ctx, ordered, failures, &report)
	}

	for _, state := range ordered {
		if !state.emailDone || !state.calendarDone {
			continue
		}
		if err := d.store.MarkNotified(ctx, state.release.ID); err != nil {
			return report, fmt.Errorf("mark notified: %w", err)
		}
		report.Notified++
		d.logger.Info("release notified",
			logging.Int64(logging.FieldReleaseID, state.release.ID),
			logging.String("release", state.release.Work.Title+" "+state.release.Label()))
	}
	return report, nil
}

type releaseState struct {
	release      *catalog.DueRelease
	emailDone    bool
	calendarDone bool
}

func (d *Dispatcher) sendEmailBatch(ctx context.Context, batch []catalog.DueRelease, pending map[int64]*releaseState) error {
	subject := EmailSubject(len(batch))
	body := EmailBody(batch)
	if err := d.sinks.Email.SendEmail(ctx, d.recipient, subject, body); err != nil {
		return err
	}
	for _, release := range batch {
		if err := d.store.RecordChannelSent(ctx, release.ID, ChannelEmail); err != nil {
			return fmt.Errorf("record email send: %w", err)
		}
		pending[release.ID].emailDone = true
	}
	return nil
}

func (d *Dispatcher) sendCalendarEvents(ctx context.Context, ordered []*releaseState, failures int, report *Report) {
	for _, state := range ordered {
		if state.calendarDone {
			continue
		}
		sent, err := d.store.ChannelSent(ctx, state.release.ID, ChannelCalendar)
		if err != nil {
			d.logger.Warn("check calendar send log", logging.Error(err))
			continue
		}
		if sent {
			state.calendarDone = true
			continue
		}
		if failures >= d.maxFailures {
			report.Failed++
			continue
		}

		title := EventTitle(state.release)
		details := EventDetails(state.release)
		if err := d.sinks.Calendar.CreateCalendarEvent(ctx, title, state.release.ReleaseDate, details); err != nil {
			failures++
			report.Failed++
			d.logger.Warn("calendar event failed",
				logging.Int64(logging.FieldReleaseID, state.release.ID),
				logging.Error(err))
			continue
		}
		if err := d.store.RecordChannelSent(ctx, state.release.ID, ChannelCalendar); err != nil {
			d.logger.Warn("record calendar send", logging.Error(err))
			continue
		}
		state.calendarDone = true
		report.EventsCreated++
	}
}
