// Package store persists and searches the reference rate table. PostgreSQL
// is the production backend (trigram similarity via pg_trgm); SQLite serves
// local runs with plain substring search.
package store

import (
	"context"

	"github.com/feever-health/feever/internal/model"
)

// RateStore defines the persistence interface for the reference rate table.
// The table is read-only from the analyzer's perspective; writes only happen
// through seed loading.
type RateStore interface {
	// SearchRates resolves a cleaned, lowercased term to the closest rate
	// entry. Returns (nil, nil) when nothing matches; that is a normal
	// outcome, not an error.
	SearchRates(ctx context.Context, term string, threshold float64) (*model.RateMatch, error)

	// LoadRates bulk-loads rate entries, replacing rows that share a code.
	LoadRates(ctx context.Context, rates []model.Rate) (int64, error)

	// Count returns the number of rate entries.
	Count(ctx context.Context) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
