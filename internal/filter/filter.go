// Package filter implements the deny-list engine. Rules are configured
// externally and read-only to the pipeline; the engine runs both before
// persistence and again at notification selection so rules added after
// ingestion still suppress stored releases.
package filter

import (
	"strings"

	"shiori/internal/catalog"
)

// Engine evaluates candidates and stored releases against deny-list rules.
// Keyword rules match as case-insensitive substrings of the title or english
// title; platform rules match the platform with optional '*' wildcards.
type Engine struct {
	keywords  []string
	platforms []string
}

// New builds an engine from configured keyword and platform rules. Empty and
// whitespace-only rules are ignored.
func New(keywords, platforms []string) *Engine {
	engine := &Engine{}
	for _, keyword := range keywords {
		if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
			engine.keywords = append(engine.keywords, keyword)
		}
	}
	for _, platform := range platforms {
		if platform = strings.ToLower(strings.TrimSpace(platform)); platform != "" {
			engine.platforms = append(engine.platforms, platform)
		}
	}
	return engine
}

// Empty reports whether the engine has no rules.
func (e *Engine) Empty() bool {
	return len(e.keywords) == 0 && len(e.platforms) == 0
}

// AllowCandidate reports whether the candidate passes the deny list. The
// second return value names the matched rule when it does not.
func (e *Engine) AllowCandidate(candidate *catalog.Candidate) (bool, string) {
	return e.allow(candidate.Title, candidate.TitleEn, candidate.Platform)
}

// AllowDue reports whether a stored release may be selected for notification.
func (e *Engine) AllowDue(due *catalog.DueRelease) (bool, string) {
	return e.allow(due.Work.Title, due.Work.TitleEn, due.Platform)
}

func (e *Engine) allow(title, titleEn, platform string) (bool, string) {
	title = strings.ToLower(title)
	titleEn = strings.ToLower(titleEn)
	platform = strings.ToLower(platform)

	for _, keyword := range e.keywords {
		if strings.Contains(title, keyword) || (titleEn != "" && strings.Contains(titleEn, keyword)) {
			return false, "keyword:" + keyword
		}
	}
	for _, pattern := range e.platforms {
		if wildcardMatch(pattern, platform) {
			return false, "platform:" + pattern
		}
	}
	return true, ""
}

// wildcardMatch matches value against pattern where '*' spans any run of
// characters. Both inputs are already lowercased.
func wildcardMatch(pattern, value string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == value
	}
	parts := strings.Split(pattern, "*")
	if prefix := parts[0]; !strings.HasPrefix(value, prefix) {
		return false
	}
	if suffix := parts[len(parts)-1]; !strings.HasSuffix(value, suffix) {
		return false
	}
	rest := value
	for _, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}
	return true
}
