package benchmark

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/feever-health/feever/internal/model"
	"github.com/feever-health/feever/internal/normalize"
	"github.com/feever-health/feever/internal/resilience"
)

// DefaultSimilarityThreshold is the minimum trigram similarity for a fuzzy
// match to be accepted.
const DefaultSimilarityThreshold = 0.3

// SimilarityMatcher resolves descriptions through a database-backed fuzzy
// search (pg_trgm similarity with a substring fallback, or plain substring
// search on SQLite). A circuit breaker in front of the store keeps a dead
// database from costing one timed-out round trip per line item.
type SimilarityMatcher struct {
	store     RateSearcher
	threshold float64
	breaker   *resilience.CircuitBreaker
}

// NewSimilarityMatcher creates a SimilarityMatcher. A threshold <= 0 uses
// the default of 0.3.
func NewSimilarityMatcher(store RateSearcher, threshold float64) *SimilarityMatcher {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &SimilarityMatcher{
		store:     store,
		threshold: threshold,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			ShouldTrip: resilience.IsTransient,
		}),
	}
}

// Match looks the description up in the rate store. A nil, nil return means
// no entry cleared the threshold; an error means the store was unreachable
// and the caller should fall back to heuristic pricing.
func (m *SimilarityMatcher) Match(ctx context.Context, description string) (*model.RateMatch, error) {
	term := strings.ToLower(normalize.CleanDescription(description))
	if term == "" {
		return nil, nil
	}

	match, err := resilience.ExecuteVal(ctx, m.breaker, func(ctx context.Context) (*model.RateMatch, error) {
		return m.store.SearchRates(ctx, term, m.threshold)
	})
	if err != nil {
		zap.L().Warn("benchmark: rate lookup unavailable",
			zap.String("term", term),
			zap.Error(err),
		)
		return nil, eris.Wrapf(err, "benchmark: search rates for %q", term)
	}
	return match, nil
}
