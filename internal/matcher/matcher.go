// Package matcher resolves normalized candidates against the existing Work
// catalog. Matching is a case-insensitive exact comparison over folded title
// variants within the same work type; first-seen candidates create their Work.
package matcher

import (
	"context"
	"fmt"
	"log/slog"

	"shiori/internal/catalog"
	"shiori/internal/logging"
	"shiori/internal/services"
)

// Matcher resolves candidates to catalog works.
type Matcher struct {
	store  *catalog.Store
	logger *slog.Logger
}

// New constructs a Matcher. A nil logger is replaced with a no-op logger.
func New(store *catalog.Store, logger *slog.Logger) *Matcher {
	return &Matcher{
		store:  store,
		logger: logging.NewComponentLogger(logger, "matcher"),
	}
}

// Resolution describes the outcome of resolving one candidate.
type Resolution struct {
	WorkID    int64
	IsNewWork bool
	Ambiguous bool
}

// Resolve finds the Work a candidate belongs to, creating one when no existing
// work of the same type shares any folded title variant. When several works
// match (a data quality issue), the one with the most prior releases wins and
// the ambiguity is logged, not surfaced as an error.
func (m *Matcher) Resolve(ctx context.Context, candidate *catalog.Candidate) (Resolution, error) {
	if candidate == nil {
		return Resolution{}, services.Wrap(services.ErrValidation, "matcher", "resolve", "nil candidate", nil)
	}
	if !catalog.ValidWorkType(candidate.Type) {
		return Resolution{}, services.Wrap(services.ErrValidation, "matcher", "resolve",
			fmt.Sprintf("invalid work type %q", candidate.Type), nil)
	}

	works, err := m.store.WorksByType(ctx, candidate.Type)
	if err != nil {
		return Resolution{}, services.Wrap(nil, "matcher", "list works", "", err)
	}

	candidateKeys := make(map[string]struct{}, 4)
	for _, variant := range candidate.TitleVariants() {
		candidateKeys[FoldTitle(variant)] = struct{}{}
	}

	var matches []catalog.WorkRef
	for _, work := range works {
		for _, variant := range work.TitleVariants() {
			if _, ok := candidateKeys[FoldTitle(variant)]; ok {
				matches = append(matches, work)
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		created, err := m.store.InsertWork(ctx, candidate.NewWork())
		if err != nil {
			return Resolution{}, services.Wrap(nil, "matcher", "create work", candidate.Title, err)
		}
		m.logger.Debug("created work",
			logging.Int64(logging.FieldWorkID, created.ID),
			logging.String("title", created.Title),
		)
		return Resolution{WorkID: created.ID, IsNewWork: true}, nil
	case 1:
		return m.adopt(ctx, matches[0], candidate, false)
	default:
		best := matches[0]
		for _, match := range matches[1:] {
			if match.ReleaseCount > best.ReleaseCount {
				best = match
			}
		}
		m.logger.Warn("candidate matches multiple works; using the one with most releases",
			logging.String("title", candidate.Title),
			logging.Int64(logging.FieldWorkID, best.ID),
			logging.Int("matches", len(matches)),
		)
		return m.adopt(ctx, best, candidate, true)
	}
}

// adopt attaches the candidate to an existing work, backfilling any title
// variants the work is still missing.
func (m *Matcher) adopt(ctx context.Context, work catalog.WorkRef, candidate *catalog.Candidate, ambiguous bool) (Resolution, error) {
	if _, err := m.store.UpsertWork(ctx, catalog.Work{
		ID:          work.ID,
		TitleEn:     candidate.TitleEn,
		TitleKana:   candidate.TitleKana,
		TitleNative: candidate.TitleNative,
		OfficialURL: candidate.OfficialURL,
	}); err != nil {
		return Resolution{}, services.Wrap(nil, "matcher", "merge variants", candidate.Title, err)
	}
	return Resolution{WorkID: work.ID, Ambiguous: ambiguous}, nil
}
