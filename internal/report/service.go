// Package report orchestrates a full bill review: extraction, normalization,
// anomaly analysis, and dispute-email drafting.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/feever-health/feever/internal/analyze"
	"github.com/feever-health/feever/internal/extract"
	"github.com/feever-health/feever/internal/model"
	"github.com/feever-health/feever/internal/normalize"
)

// Emailer drafts a dispute email from an analysis report.
type Emailer interface {
	GenerateEmail(ctx context.Context, systemPrompt string, analysis any) (string, error)
}

// BillReport is the full client-facing result for one analyzed bill.
type BillReport struct {
	*model.AnalysisReport

	RawItems  []normalize.RawItem `json:"rawItems"`
	FileID    string              `json:"fileId,omitempty"`
	FileName  string              `json:"fileName,omitempty"`
	DebugText string              `json:"debugText,omitempty"`
}

// Service wires the extraction provider and the analyzer together. Emailer
// may be nil when email drafting is not configured.
type Service struct {
	extractor extract.Extractor
	analyzer  *analyze.Analyzer
	emailer   Emailer
}

// NewService creates a Service.
func NewService(extractor extract.Extractor, analyzer *analyze.Analyzer, emailer Emailer) *Service {
	return &Service{extractor: extractor, analyzer: analyzer, emailer: emailer}
}

// AnalyzeUpload runs the full review for an uploaded bill image: extract,
// parse, normalize, analyze.
func (s *Service) AnalyzeUpload(ctx context.Context, filename string, content io.Reader, prompt string) (*BillReport, error) {
	if prompt == "" {
		prompt = extract.DefaultPrompt
	}

	answer, err := s.extractor.ExtractBill(ctx, filename, content, prompt)
	if err != nil {
		return nil, eris.Wrapf(err, "report: extract %s", filename)
	}

	data, err := extract.ParseBill(answer)
	if err != nil {
		return nil, err
	}

	rep := s.AnalyzeBill(ctx, data)
	rep.FileName = filename
	rep.DebugText = debugText(answer)

	zap.L().Info("bill analyzed",
		zap.String("file", filename),
		zap.Int("charges", len(data.Charges)),
		zap.Int("deductions", len(data.Deductions)),
		zap.Float64("total_charges", rep.Summary.TotalCharges),
		zap.Float64("flagged_amount", rep.Summary.FlaggedAmount))

	return rep, nil
}

// AnalyzeBill normalizes already-extracted bill data and runs the anomaly
// analysis. It never fails; malformed amounts degrade to zero.
func (s *Service) AnalyzeBill(ctx context.Context, data *extract.BillData) *BillReport {
	charges := normalize.Charges(data.Charges)
	deductions := normalize.Deductions(data.Deductions)

	return &BillReport{
		AnalysisReport: s.analyzer.Analyze(ctx, charges, deductions),
		RawItems:       data.Charges,
	}
}

// DraftEmail generates a dispute email for an analysis report.
func (s *Service) DraftEmail(ctx context.Context, systemPrompt string, analysis any) (string, error) {
	if s.emailer == nil {
		return "", eris.New("report: email drafting is not configured")
	}
	draft, err := s.emailer.GenerateEmail(ctx, systemPrompt, analysis)
	if err != nil {
		return "", eris.Wrap(err, "report: draft email")
	}
	return draft, nil
}

func debugText(answer any) string {
	if s, ok := answer.(string); ok {
		return s
	}
	encoded, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", answer)
	}
	return string(encoded)
}
