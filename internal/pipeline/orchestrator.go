// Package pipeline runs the collection cycle: fan out over enabled source
// collectors with bounded concurrency, fan in raw items, then normalize,
// filter, match, and persist sequentially before handing due releases to the
// dispatcher. Source failures degrade that source for the cycle only.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"shiori/internal/catalog"
	"shiori/internal/config"
	"shiori/internal/dispatch"
	"shiori/internal/filter"
	"shiori/internal/logging"
	"shiori/internal/matcher"
	"shiori/internal/normalize"
	"shiori/internal/notify"
	"shiori/internal/sources"
)

// Orchestrator owns one recipient's pipeline over a single catalog store.
type Orchestrator struct {
	cfg        *config.Config
	store      *catalog.Store
	collectors []sources.Collector
	normalizer *normalize.Normalizer
	filters    *filter.Engine
	matcher    *matcher.Matcher
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCollectors replaces the config-derived collector set (used in tests).
func WithCollectors(collectors []sources.Collector) Option {
	return func(o *Orchestrator) { o.collectors = collectors }
}

// WithSinks replaces the config-derived notification sinks (used in tests).
func WithSinks(sinks notify.Sinks) Option {
	return func(o *Orchestrator) {
		o.dispatcher = dispatch.New(o.store, o.filters, sinks, o.cfg, o.logger)
	}
}

// WithNow overrides the clock (used in tests).
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
			o.normalizer = normalize.NewWithNow(now)
		}
	}
}

// New wires an orchestrator from configuration.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	filters := filter.New(cfg.Filters.Keywords, cfg.Filters.Platforms)
	orchestrator := &Orchestrator{
		cfg:        cfg,
		store:      store,
		collectors: BuildCollectors(cfg),
		normalizer: normalize.New(),
		filters:    filters,
		matcher:    matcher.New(store, logger),
		dispatcher: dispatch.New(store, filters, notify.NewSinks(cfg), cfg, logger),
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(orchestrator)
	}
	return orchestrator
}

type fetchResult struct {
	name   string
	items  []sources.RawItem
	cursor string
	err    error
}

// RunCycle executes one full cycle and returns its report. The returned error
// covers catalog failures; source and sink failures are carried in the report.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleReport, error) {
	cycleID := uuid.NewString()
	started := o.now()
	logger := o.logger.With(logging.String(logging.FieldCycleID, cycleID))

	timeout := time.Duration(o.cfg.Pipeline.CycleTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("cycle started", logging.Int("collectors", len(o.collectors)))
	results := o.collect(ctx, timeout)

	report := &CycleReport{CycleID: cycleID, StartedAt: started}
	for _, result := range results {
		report.Sources = append(report.Sources, o.ingest(ctx, logger, result))
	}
	for _, source := range report.Sources {
		report.WorksCreated += source.WorksCreated
		report.ReleasesCreated += source.Created
		report.Duplicates += source.Duplicate
	}

	dispatchReport, err := o.dispatcher.Run(ctx, o.now())
	if err != nil {
		return report, err
	}
	report.Dispatch = dispatchReport
	report.Duration = o.now().Sub(started)

	logger.Info("cycle finished",
		logging.Int("fetched", report.TotalFetched()),
		logging.Int("works_created", report.WorksCreated),
		logging.Int("releases_created", report.ReleasesCreated),
		logging.Int("duplicates", report.Duplicates),
		logging.Int("notified", report.Dispatch.Notified),
		logging.Int("failed", report.Dispatch.Failed),
		logging.Duration("duration", report.Duration))
	return report, nil
}

// collect fans Fetch out over the collectors with bounded concurrency. One
// source failing or timing out never blocks the others.
func (o *Orchestrator) collect(ctx context.Context, cycleTimeout time.Duration) []fetchResult {
	workers := o.cfg.Pipeline.CollectorWorkers
	if workers <= 0 {
		workers = 1
	}

	results := make([]fetchResult, len(o.collectors))
	group := new(errgroup.Group)
	group.SetLimit(workers)
	for index, collector := range o.collectors {
		index, collector := index, collector
		group.Go(func() error {
			result := fetchResult{name: collector.Name()}
			cursor, err := o.store.Cursor(ctx, collector.Name())
			if err != nil {
				result.err = err
				results[index] = result
				return nil
			}

			fetchCtx, cancel := context.WithTimeout(ctx, cycleTimeout/2)
			defer cancel()
			result.items, result.cursor, result.err = collector.Fetch(fetchCtx, cursor)
			results[index] = result
			return nil
		})
	}
	_ = group.Wait()
	return results
}

// ingest runs one source's raw items through normalize, filter, match, and
// persist. Store writes stay on this single goroutine.
func (o *Orchestrator) ingest(ctx context.Context, logger *slog.Logger, result fetchResult) SourceReport {
	report := SourceReport{Name: result.name}
	if result.err != nil {
		report.Err = result.err.Error()
		logger.Warn("source failed",
			logging.String(logging.FieldSource, result.name),
			logging.Error(result.err))
		return report
	}
	report.Fetched = len(result.items)

	for _, raw := range result.items {
		candidate, err := o.normalizer.Normalize(raw)
		if err != nil {
			report.Dropped = append(report.Dropped, DropRecord{Reason: err.Error()})
			continue
		}
		if allowed, reason := o.filters.AllowCandidate(&candidate); !allowed {
			report.Dropped = append(report.Dropped, DropRecord{Reason: "filtered: " + reason})
			continue
		}

		resolution, err := o.matcher.Resolve(ctx, &candidate)
		if err != nil {
			report.Dropped = append(report.Dropped, DropRecord{Reason: err.Error()})
			continue
		}
		if resolution.IsNewWork {
			report.WorksCreated++
		}

		_, created, err := o.store.InsertReleaseIfAbsent(ctx, candidate.NewRelease(resolution.WorkID))
		if err != nil {
			report.Dropped = append(report.Dropped, DropRecord{Reason: err.Error()})
			continue
		}
		if created {
			report.Created++
		} else {
			report.Duplicate++
		}
	}

	if result.cursor != "" {
		if err := o.store.SetCursor(ctx, result.name, result.cursor); err != nil {
			logger.Warn("persist cursor",
				logging.String(logging.FieldSource, result.name),
				logging.Error(err))
		}
	}
	return report
}
