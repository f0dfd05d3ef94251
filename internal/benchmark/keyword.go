package benchmark

import (
	"context"
	"strings"

	"github.com/feever-health/feever/internal/model"
	"github.com/feever-health/feever/internal/normalize"
)

// KeywordMatcher matches descriptions against an ordered in-memory table by
// plain substring containment. The table is fixed at construction and never
// mutated, so the matcher is safe for concurrent use.
type KeywordMatcher struct {
	entries []model.Rate
}

// NewKeywordMatcher builds a matcher over the given table. Entries are
// checked in table order and the first hit wins, so order encodes priority.
// A nil table uses the built-in default rates.
func NewKeywordMatcher(entries []model.Rate) *KeywordMatcher {
	if entries == nil {
		entries = DefaultRates()
	}
	return &KeywordMatcher{entries: entries}
}

// Match scans the table for the first entry whose keywords appear in the
// cleaned description. Entries without keywords fall back to bidirectional
// containment on their canonical description, which catches both
// "Urinalysis" inside "Urinalysis (Routine)" and a truncated scan of the
// full name. Never returns an error.
func (m *KeywordMatcher) Match(_ context.Context, description string) (*model.RateMatch, error) {
	desc := strings.ToLower(normalize.CleanDescription(description))
	if desc == "" {
		return nil, nil
	}

	for _, entry := range m.entries {
		if m.entryMatches(entry, desc) {
			return &model.RateMatch{Rate: entry, Confidence: 1.0}, nil
		}
	}
	return nil, nil
}

func (m *KeywordMatcher) entryMatches(entry model.Rate, desc string) bool {
	if len(entry.Keywords) > 0 {
		for _, kw := range entry.Keywords {
			if kw != "" && strings.Contains(desc, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	}

	canonical := strings.ToLower(strings.TrimSpace(entry.Description))
	if canonical == "" {
		return false
	}
	return strings.Contains(desc, canonical) || strings.Contains(canonical, desc)
}
