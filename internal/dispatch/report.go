package dispatch

import (
	"fmt"
	"strings"

	"shiori/internal/catalog"
)

// Report summarizes one dispatch pass for the cycle report.
type Report struct {
	Selected      int
	Notified      int
	Failed        int
	EmailsSent    int
	EventsCreated int
	Denied        []DeniedRelease
}

// DeniedRelease records a stored release withheld at selection time by a
// filter rule added after ingestion.
type DeniedRelease struct {
	ReleaseID int64
	Title     string
	Reason    string
}

// EmailSubject renders the batch email subject line.
func EmailSubject(count int) string {
	if count == 1 {
		return "1 new release"
	}
	return fmt.Sprintf("%d new releases", count)
}

// EmailBody renders one line per release with title, installment, platform,
// and the provenance link when a source recorded one.
func EmailBody(releases []catalog.DueRelease) string {
	var builder strings.Builder
	for _, release := range releases {
		builder.WriteString(fmt.Sprintf("%s %s on %s (%s)",
			release.Work.Title, release.Label(), release.Platform,
			release.ReleaseDate.Format("2006-01-02")))
		if release.SourceURL != "" {
			builder.WriteString("\n  " + release.SourceURL)
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// EventTitle renders the calendar event summary for one release.
func EventTitle(release *catalog.DueRelease) string {
	return release.Work.Title + " " + release.Label()
}

// EventDetails renders the calendar event description.
func EventDetails(release *catalog.DueRelease) string {
	details := "Platform: " + release.Platform + "\nSource: " + release.Source
	if release.SourceURL != "" {
		details += "\n" + release.SourceURL
	}
	return details
}
