package pipeline

import (
	"time"

	"shiori/internal/dispatch"
)

// SourceReport summarizes one collector's contribution to a cycle.
type SourceReport struct {
	Name         string
	Fetched      int
	Created      int
	Duplicate    int
	WorksCreated int
	Dropped      []DropRecord
	Err          string
}

// DropRecord explains why a single raw item never became a release. Dropped
// items are a per-item outcome, not a source failure.
type DropRecord struct {
	Reason string
}

// CycleReport is the outcome of one full pipeline cycle.
type CycleReport struct {
	CycleID         string
	StartedAt       time.Time
	Duration        time.Duration
	Sources         []SourceReport
	WorksCreated    int
	ReleasesCreated int
	Duplicates      int
	Dispatch        dispatch.Report
}

// TotalFetched sums raw item counts across sources.
func (r *CycleReport) TotalFetched() int {
	total := 0
	for _, source := range r.Sources {
		total += source.Fetched
	}
	return total
}

// TotalDropped sums per-item drops across sources.
func (r *CycleReport) TotalDropped() int {
	total := 0
	for _, source := range r.Sources {
		total += len(source.Dropped)
	}
	return total
}

// FailedSources lists sources that errored this cycle.
func (r *CycleReport) FailedSources() []string {
	var failed []string
	for _, source := range r.Sources {
		if source.Err != "" {
			failed = append(failed, source.Name)
		}
	}
	return failed
}
