package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/feever-health/feever/internal/model"
)

// SQLiteStore implements RateStore using modernc.org/sqlite. SQLite has no
// trigram support, so SearchRates goes straight to substring containment;
// the similarity threshold is accepted and ignored.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS medical_rates (
	code        TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	rates       REAL NOT NULL,
	min_rates   REAL NOT NULL DEFAULT 0,
	max_rates   REAL NOT NULL DEFAULT 0
);
`

// SearchRates finds the shortest description containing the term. Substring
// hits report the same fixed confidence as the PostgreSQL fallback path.
func (s *SQLiteStore) SearchRates(ctx context.Context, term string, _ float64) (*model.RateMatch, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}

	var rate model.Rate
	err := s.db.QueryRowContext(ctx, `
		SELECT code, description, rates, min_rates, max_rates
		FROM medical_rates
		WHERE LOWER(description) LIKE '%' || ? || '%'
		ORDER BY LENGTH(description) ASC
		LIMIT 1`, term).
		Scan(&rate.Code, &rate.Description, &rate.Rate, &rate.MinRate, &rate.MaxRate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: substring search %q", term)
	}
	return &model.RateMatch{Rate: rate, Confidence: fallbackConfidence}, nil
}

// LoadRates replaces rate entries sharing a code.
func (s *SQLiteStore) LoadRates(ctx context.Context, rates []model.Rate) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO medical_rates (code, description, rates, min_rates, max_rates)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare load")
	}
	defer stmt.Close()

	var n int64
	for _, r := range rates {
		if _, err := stmt.ExecContext(ctx, r.Code, r.Description, r.Rate, r.MinRate, r.MaxRate); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert rate %s", r.Code)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit load")
	}
	return n, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM medical_rates`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count rates")
	}
	return n, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
