package report

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feever-health/feever/internal/analyze"
	"github.com/feever-health/feever/internal/benchmark"
	"github.com/feever-health/feever/internal/extract"
)

type fakeExtractor struct {
	answer any
	err    error
}

func (f *fakeExtractor) ExtractBill(_ context.Context, _ string, _ io.Reader, _ string) (any, error) {
	return f.answer, f.err
}

type fakeEmailer struct {
	prompt string
	draft  string
	err    error
}

func (f *fakeEmailer) GenerateEmail(_ context.Context, systemPrompt string, _ any) (string, error) {
	f.prompt = systemPrompt
	return f.draft, f.err
}

func newTestService(ext extract.Extractor, emailer Emailer) *Service {
	analyzer := analyze.New(benchmark.NewKeywordMatcher(benchmark.DefaultRates()), analyze.Options{})
	return NewService(ext, analyzer, emailer)
}

func TestAnalyzeUpload(t *testing.T) {
	ext := &fakeExtractor{
		answer: `{"charges":[{"description":"CBC","amount":"₱900.00"},{"description":"CBC","amount":900}],"deductions":[{"description":"HMO Payment","amount":500}]}`,
	}
	svc := newTestService(ext, nil)

	rep, err := svc.AnalyzeUpload(context.Background(), "bill.jpg", strings.NewReader("img"), "")
	require.NoError(t, err)

	assert.Equal(t, "bill.jpg", rep.FileName)
	assert.Contains(t, rep.DebugText, "CBC")
	require.Len(t, rep.RawItems, 2)

	assert.Equal(t, 1800.0, rep.Summary.TotalCharges)
	assert.Equal(t, 500.0, rep.Summary.HMOCovered)
	assert.Equal(t, 1300.0, rep.Summary.PatientResponsibility)
	require.Len(t, rep.Duplicates, 1)
	assert.Equal(t, 2, rep.Duplicates[0].Occurrences)
	require.NotEmpty(t, rep.BenchmarkIssues)
}

func TestAnalyzeUpload_ExtractFailure(t *testing.T) {
	svc := newTestService(&fakeExtractor{err: errors.New("workflow down")}, nil)

	_, err := svc.AnalyzeUpload(context.Background(), "bill.jpg", strings.NewReader("img"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow down")
}

func TestAnalyzeUpload_MalformedAnswer(t *testing.T) {
	svc := newTestService(&fakeExtractor{answer: "no json here at all"}, nil)

	_, err := svc.AnalyzeUpload(context.Background(), "bill.jpg", strings.NewReader("img"), "")
	require.Error(t, err)

	var malformed *extract.MalformedOutputError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "no json here at all", malformed.Raw)
}

func TestAnalyzeBill_EmptyData(t *testing.T) {
	svc := newTestService(&fakeExtractor{}, nil)

	rep := svc.AnalyzeBill(context.Background(), &extract.BillData{})
	assert.Equal(t, "0%", rep.Summary.PercentageFlagged)
	assert.NotNil(t, rep.Duplicates)
}

func TestDraftEmail(t *testing.T) {
	emailer := &fakeEmailer{draft: "Dear Billing Department,"}
	svc := newTestService(&fakeExtractor{}, emailer)

	draft, err := svc.DraftEmail(context.Background(), "Dispute: [JSON_DATA_HERE]", map[string]any{"flaggedAmount": 140})
	require.NoError(t, err)
	assert.Equal(t, "Dear Billing Department,", draft)
	assert.Equal(t, "Dispute: [JSON_DATA_HERE]", emailer.prompt)
}

func TestDraftEmail_NotConfigured(t *testing.T) {
	svc := newTestService(&fakeExtractor{}, nil)

	_, err := svc.DraftEmail(context.Background(), "prompt", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
