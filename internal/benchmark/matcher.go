// Package benchmark resolves free-text line-item descriptions against the
// reference rate table. Two strategies exist: an in-process keyword table
// and a database-backed trigram similarity search.
package benchmark

import (
	"context"

	"github.com/feever-health/feever/internal/model"
)

// Matcher resolves a line-item description to a reference rate.
//
// A nil match with a nil error means "no reference entry"; that is a normal
// outcome, not a failure. A non-nil error means the lookup backend was
// unavailable; callers degrade to heuristic pricing rather than aborting the
// analysis.
type Matcher interface {
	Match(ctx context.Context, description string) (*model.RateMatch, error)
}

// RateSearcher is the store-side lookup the similarity strategy delegates to.
type RateSearcher interface {
	SearchRates(ctx context.Context, term string, threshold float64) (*model.RateMatch, error)
}
