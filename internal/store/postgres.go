package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/feever-health/feever/internal/config"
	"github.com/feever-health/feever/internal/db"
	"github.com/feever-health/feever/internal/model"
)

// PostgresStore implements RateStore using pgxpool and pg_trgm.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool. The pool is
// bounded and acquires time out with the connect timeout, so concurrent
// per-item lookups from parallel analyses never share a connection.
func NewPostgres(ctx context.Context, connString string, poolCfg config.PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(20)
	minConns := int32(2)
	if poolCfg.MaxConns > 0 {
		maxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		minConns = poolCfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	pgxCfg.ConnConfig.ConnectTimeout = 2 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS medical_rates (
	id          BIGSERIAL PRIMARY KEY,
	code        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL,
	rates       DOUBLE PRECISION NOT NULL,
	min_rates   DOUBLE PRECISION NOT NULL DEFAULT 0,
	max_rates   DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_medical_rates_description_gin
	ON medical_rates USING gin (description gin_trgm_ops);
`

const similarityQuery = `
SELECT code, description, rates, min_rates, max_rates,
       similarity(LOWER(description), $1) AS sim_score
FROM medical_rates
WHERE similarity(LOWER(description), $1) > $2
ORDER BY sim_score DESC
LIMIT 1`

// The fallback prefers the shortest matching description: shortest is the
// most specific row a plain substring search can justify.
const substringFallbackQuery = `
SELECT code, description, rates, min_rates, max_rates
FROM medical_rates
WHERE LOWER(description) ILIKE '%' || $1 || '%'
ORDER BY LENGTH(description) ASC
LIMIT 1`

// fallbackConfidence is reported for substring matches, which carry no
// similarity score of their own.
const fallbackConfidence = 0.5

// SearchRates runs the trigram similarity search and, when no candidate
// clears the threshold, falls back to a case-insensitive substring search.
func (s *PostgresStore) SearchRates(ctx context.Context, term string, threshold float64) (*model.RateMatch, error) {
	var rate model.Rate
	var score float64

	err := s.pool.QueryRow(ctx, similarityQuery, term, threshold).
		Scan(&rate.Code, &rate.Description, &rate.Rate, &rate.MinRate, &rate.MaxRate, &score)
	if err == nil {
		return &model.RateMatch{Rate: rate, Confidence: score}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: similarity search %q", term)
	}

	err = s.pool.QueryRow(ctx, substringFallbackQuery, term).
		Scan(&rate.Code, &rate.Description, &rate.Rate, &rate.MinRate, &rate.MaxRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: substring search %q", term)
	}
	return &model.RateMatch{Rate: rate, Confidence: fallbackConfidence}, nil
}

var rateColumns = []string{"code", "description", "rates", "min_rates", "max_rates"}

// LoadRates loads rate entries keyed on code. A fresh table takes the plain
// COPY path; a populated one goes through the upsert so reloading an updated
// seed refreshes prices in place.
func (s *PostgresStore) LoadRates(ctx context.Context, rates []model.Rate) (int64, error) {
	rows := make([][]any, 0, len(rates))
	for _, r := range rates {
		rows = append(rows, []any{r.Code, r.Description, r.Rate, r.MinRate, r.MaxRate})
	}

	existing, err := s.Count(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: load rates")
	}
	if existing == 0 {
		n, err := db.CopyFrom(ctx, s.pool, "medical_rates", rateColumns, rows)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: load rates")
		}
		return n, nil
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "medical_rates",
		Columns:      rateColumns,
		ConflictKeys: []string{"code"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: load rates")
	}
	return n, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM medical_rates`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count rates")
	}
	return n, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
