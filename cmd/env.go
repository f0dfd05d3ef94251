package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/feever-health/feever/internal/analyze"
	"github.com/feever-health/feever/internal/benchmark"
	"github.com/feever-health/feever/internal/dify"
	"github.com/feever-health/feever/internal/extract"
	"github.com/feever-health/feever/internal/report"
	"github.com/feever-health/feever/internal/store"
)

// analysisEnv holds the initialized store, matcher, and analyzer shared by
// the serve/analyze/rates commands.
type analysisEnv struct {
	Store    store.RateStore // nil when driver is "none"
	Analyzer *analyze.Analyzer
}

// Close releases resources held by the environment.
func (e *analysisEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the rate store and builds the matcher and analyzer.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*analysisEnv, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	matcher, err := buildMatcher(st)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, err
	}

	return &analysisEnv{
		Store:    st,
		Analyzer: analyze.New(matcher, analyze.OptionsFromConfig(cfg.Analyzer)),
	}, nil
}

// openStore opens the configured rate store. Driver "none" runs without one;
// rate endpoints are then unavailable and matching falls back to the
// built-in keyword table.
func openStore(ctx context.Context) (store.RateStore, error) {
	switch cfg.Store.Driver {
	case "none":
		return nil, nil
	case "sqlite":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store: sqlite driver requires store.database_url")
		}
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "", "postgres":
		if cfg.Store.DatabaseURL == "" {
			zap.L().Warn("store.database_url not set, running without a rate store")
			return nil, nil
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}

func buildMatcher(st store.RateStore) (benchmark.Matcher, error) {
	switch cfg.Benchmark.Strategy {
	case "trigram":
		if st == nil {
			return nil, eris.New("benchmark: trigram strategy requires a rate store")
		}
		return benchmark.NewSimilarityMatcher(st, cfg.Benchmark.SimilarityThreshold), nil
	case "", "keyword":
		return benchmark.NewKeywordMatcher(benchmark.DefaultRates()), nil
	default:
		return nil, eris.Errorf("benchmark: unknown strategy %q", cfg.Benchmark.Strategy)
	}
}

// newService assembles the full review service, including the extraction
// provider and the email drafter.
func (e *analysisEnv) newService() (*report.Service, error) {
	extractor, err := extract.NewExtractor(cfg.Extract, cfg.Dify, cfg.Anthropic)
	if err != nil {
		return nil, err
	}
	return report.NewService(extractor, e.Analyzer, newEmailer()), nil
}

// localService builds a service for offline analysis of already-extracted
// bill data, with no extraction provider.
func (e *analysisEnv) localService() *report.Service {
	return report.NewService(nil, e.Analyzer, newEmailer())
}

func newEmailer() report.Emailer {
	if cfg.Dify.Key == "" {
		return nil
	}
	client, err := dify.NewClient(cfg.Dify)
	if err != nil {
		zap.L().Warn("email drafting unavailable", zap.Error(err))
		return nil
	}
	return client
}
