package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feever-health/feever/internal/analyze"
	"github.com/feever-health/feever/internal/benchmark"
	"github.com/feever-health/feever/internal/config"
	"github.com/feever-health/feever/internal/model"
	"github.com/feever-health/feever/internal/report"
)

type fakeExtractor struct {
	answer any
	err    error
}

func (f *fakeExtractor) ExtractBill(_ context.Context, _ string, _ io.Reader, _ string) (any, error) {
	return f.answer, f.err
}

type fakeEmailer struct {
	draft string
	err   error
}

func (f *fakeEmailer) GenerateEmail(_ context.Context, _ string, _ any) (string, error) {
	return f.draft, f.err
}

type fakeStore struct {
	mu       sync.Mutex
	match    *model.RateMatch
	searched []string
	err      error
	pingErr  error
	count    int64
}

func (f *fakeStore) SearchRates(_ context.Context, term string, _ float64) (*model.RateMatch, error) {
	f.mu.Lock()
	f.searched = append(f.searched, term)
	f.mu.Unlock()
	return f.match, f.err
}

func (f *fakeStore) LoadRates(_ context.Context, rates []model.Rate) (int64, error) {
	return int64(len(rates)), nil
}

func (f *fakeStore) Count(context.Context) (int64, error) { return f.count, nil }
func (f *fakeStore) Migrate(context.Context) error        { return f.err }
func (f *fakeStore) Ping(context.Context) error           { return f.pingErr }
func (f *fakeStore) Close() error                         { return nil }

func newTestServer(t *testing.T, ext *fakeExtractor, emailer report.Emailer, st *fakeStore) *Server {
	t.Helper()
	analyzer := analyze.New(benchmark.NewKeywordMatcher(benchmark.DefaultRates()), analyze.Options{})
	svc := report.NewService(ext, analyzer, emailer)
	if st == nil {
		return New(config.ServerConfig{}, svc, nil, benchmark.DefaultSimilarityThreshold)
	}
	return New(config.ServerConfig{}, svc, st, benchmark.DefaultSimilarityThreshold)
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{}, nil, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAnalyze(t *testing.T) {
	ext := &fakeExtractor{
		answer: `{"charges":[{"description":"CBC","amount":900},{"description":"CBC","amount":900}],"deductions":[]}`,
	}
	s := newTestServer(t, ext, nil, nil)

	body, contentType := multipartBody(t, "bill.jpg", "jpegbytes")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var rep report.BillReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, "bill.jpg", rep.FileName)
	assert.Equal(t, 1800.0, rep.Summary.TotalCharges)
	require.Len(t, rep.Duplicates, 1)
	assert.Equal(t, 2, rep.Duplicates[0].Occurrences)
}

func TestAnalyze_NoFile(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{}, nil, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("user", "someone"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file provided")
}

func TestAnalyze_MalformedExtraction(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{answer: "sorry, I could not read this image"}, nil, nil)

	body, contentType := multipartBody(t, "bill.jpg", "jpegbytes")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sorry, I could not read this image", resp["debugText"])
}

func TestAnalyze_ExtractorFailure(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{err: errors.New("workflow down")}, nil, nil)

	body, contentType := multipartBody(t, "bill.jpg", "jpegbytes")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGenerateEmail(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{}, &fakeEmailer{draft: "Dear Billing Department,"}, nil)

	body := `{"analysis_data":{"flaggedAmount":140},"system_prompt":"Dispute: [JSON_DATA_HERE]"}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate-email", strings.NewReader(body))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Dear Billing Department,", resp["email"])
}

func TestGenerateEmail_MissingFields(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{}, &fakeEmailer{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-email", strings.NewReader(`{"system_prompt":"x"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing analysis data or system prompt")
}

func TestRateSearch(t *testing.T) {
	st := &fakeStore{match: &model.RateMatch{
		Rate:       model.Rate{Code: "LAB-002", Description: "CBC", Rate: 300, MinRate: 180, MaxRate: 450},
		Confidence: 0.72,
	}}
	s := newTestServer(t, &fakeExtractor{}, nil, st)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rates/search?q=CBC+Blood", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp rateSearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	assert.Equal(t, "LAB-002", resp.Match.Rate.Code)
	assert.Equal(t, []string{"cbc blood"}, st.searched, "terms are lowercased before lookup")
}

func TestRateSearch_MissingQuery(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{}, nil, &fakeStore{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rates/search", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateSearch_NoStore(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{}, nil, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rates/search?q=cbc", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateBatchSearch(t *testing.T) {
	st := &fakeStore{match: &model.RateMatch{
		Rate: model.Rate{Code: "LAB-001", Description: "Urinalysis", Rate: 100},
	}}
	s := newTestServer(t, &fakeExtractor{}, nil, st)

	body := `{"searchTerms":["Urinalysis","CBC","Chest X-Ray"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/rates/search", strings.NewReader(body))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool               `json:"success"`
		Results []rateSearchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "Urinalysis", resp.Results[0].SearchTerm, "result order follows input order")
	assert.Equal(t, "CBC", resp.Results[1].SearchTerm)
	assert.Len(t, st.searched, 3)
}

func TestRateBatchSearch_NotAnArray(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{}, nil, &fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/rates/search", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "searchTerms must be an array")
}

func TestDBHealth(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{}, nil, &fakeStore{count: 8})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/db/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(8), resp["totalRates"])
}

func TestDBHealth_PingFails(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{}, nil, &fakeStore{pingErr: errors.New("conn refused")})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/db/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database connection failed")
}

func TestDBMigrate(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{}, nil, &fakeStore{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/db/migrate", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "database initialized successfully")
}
