package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/feever-health/feever/internal/extract"
	"github.com/feever-health/feever/internal/model"
)

// batchSearchLimit bounds concurrent store lookups for one batch request.
const batchSearchLimit = 8

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts a multipart bill upload and returns the full
// analysis report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close() //nolint:errcheck

	prompt := r.FormValue("prompt")

	rep, err := s.svc.AnalyzeUpload(r.Context(), header.Filename, file, prompt)
	if err != nil {
		var malformed *extract.MalformedOutputError
		if errors.As(err, &malformed) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":     "failed to parse bill data from extraction output",
				"debugText": malformed.Raw,
			})
			return
		}
		zap.L().Error("analyze upload", zap.String("file", header.Filename), zap.Error(err))
		writeError(w, http.StatusBadGateway, "bill extraction failed")
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

type generateEmailRequest struct {
	AnalysisData json.RawMessage `json:"analysis_data"`
	SystemPrompt string          `json:"system_prompt"`
}

func (s *Server) handleGenerateEmail(w http.ResponseWriter, r *http.Request) {
	var req generateEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.AnalysisData) == 0 || req.SystemPrompt == "" {
		writeError(w, http.StatusBadRequest, "missing analysis data or system prompt")
		return
	}

	var analysis any
	if err := json.Unmarshal(req.AnalysisData, &analysis); err != nil {
		writeError(w, http.StatusBadRequest, "analysis data is not valid JSON")
		return
	}

	draft, err := s.svc.DraftEmail(r.Context(), req.SystemPrompt, analysis)
	if err != nil {
		zap.L().Error("generate email", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to generate reassessment email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"email": draft})
}

type rateSearchResult struct {
	SearchTerm string           `json:"searchTerm"`
	Found      bool             `json:"found"`
	Match      *model.RateMatch `json:"match,omitempty"`
}

func (s *Server) handleRateSearch(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "rate store is not configured")
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	match, err := s.store.SearchRates(r.Context(), strings.ToLower(term), s.threshold)
	if err != nil {
		zap.L().Error("rate search", zap.String("term", term), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "rate search failed")
		return
	}

	writeJSON(w, http.StatusOK, rateSearchResult{
		SearchTerm: term,
		Found:      match != nil,
		Match:      match,
	})
}

type rateBatchSearchRequest struct {
	SearchTerms []string `json:"searchTerms"`
}

func (s *Server) handleRateBatchSearch(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "rate store is not configured")
		return
	}

	var req rateBatchSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SearchTerms == nil {
		writeError(w, http.StatusBadRequest, "searchTerms must be an array")
		return
	}

	results := make([]rateSearchResult, len(req.SearchTerms))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(batchSearchLimit)

	for i, term := range req.SearchTerms {
		g.Go(func() error {
			match, err := s.store.SearchRates(ctx, strings.ToLower(strings.TrimSpace(term)), s.threshold)
			if err != nil {
				return err
			}
			results[i] = rateSearchResult{SearchTerm: term, Found: match != nil, Match: match}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("batch rate search", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "batch search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

func (s *Server) handleDBHealth(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "rate store is not configured")
		return
	}

	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("db health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"message": "database connection failed",
		})
		return
	}

	count, err := s.store.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"message": "rate table is unreadable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "database connection successful",
		"totalRates": count,
	})
}

func (s *Server) handleDBMigrate(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "rate store is not configured")
		return
	}

	if err := s.store.Migrate(r.Context()); err != nil {
		zap.L().Error("db migrate", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "database initialization failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "database initialized successfully",
	})
}
