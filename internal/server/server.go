// Package server exposes the bill analysis engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/feever-health/feever/internal/config"
	"github.com/feever-health/feever/internal/report"
	"github.com/feever-health/feever/internal/store"
)

const (
	defaultMaxUploadMB  = 15
	shutdownGracePeriod = 10 * time.Second
)

// Server holds the HTTP surface and its dependencies. The rate store is
// optional; rate and database endpoints report unavailable without it.
type Server struct {
	svc       *report.Service
	store     store.RateStore
	cfg       config.ServerConfig
	threshold float64
	router    chi.Router
}

// New assembles the router. threshold is the similarity threshold forwarded
// to rate searches.
func New(cfg config.ServerConfig, svc *report.Service, rateStore store.RateStore, threshold float64) *Server {
	s := &Server{
		svc:       svc,
		store:     rateStore,
		cfg:       cfg,
		threshold: threshold,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the assembled handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/generate-email", s.handleGenerateEmail)
		r.Get("/rates/search", s.handleRateSearch)
		r.Post("/rates/search", s.handleRateBatchSearch)
		r.Get("/db/health", s.handleDBHealth)
		r.Post("/db/migrate", s.handleDBMigrate)
	})

	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.AllowedOrigins
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return int64(mb) << 20
}

// Run serves until the context is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	zap.L().Info("http server stopped")
	return nil
}

// requestID tags every request with a correlation ID, honoring one supplied
// by the client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, id)))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
