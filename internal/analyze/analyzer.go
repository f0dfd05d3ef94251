// Package analyze implements the bill anomaly engine: duplicate detection,
// benchmark price-variance flagging, and the coverage display ledger.
package analyze

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/feever-health/feever/internal/benchmark"
	"github.com/feever-health/feever/internal/config"
	"github.com/feever-health/feever/internal/model"
	"github.com/feever-health/feever/internal/normalize"
)

// Duplicate flagging policies. FlagAll adds a duplicated description's whole
// summed total to the flagged amount; FlagRedundant adds only the repeated
// portion.
const (
	PolicyFlagAll       = "flag_all"
	PolicyFlagRedundant = "flag_redundant"
)

// defaultFacility labels issue records when the bill carries no facility
// name of its own.
const defaultFacility = "Medical Facility"

// Options tune analyzer policy knobs. The zero value selects the defaults.
type Options struct {
	// DuplicatePolicy is PolicyFlagAll or PolicyFlagRedundant.
	DuplicatePolicy string

	// ClampPercentage caps percentageFlagged to [0, 100].
	ClampPercentage bool

	// UnmatchedFlagThreshold flags charges with no reference entry above
	// this amount. UnmatchedBenchmark is the synthetic benchmark assigned
	// to them.
	UnmatchedFlagThreshold float64
	UnmatchedBenchmark     float64

	// FallbackFlagThreshold and FallbackBenchmarkRatio govern the per-item
	// degradation when the lookup backend itself fails: charges above the
	// threshold get a synthetic benchmark of ratio * amount.
	FallbackFlagThreshold  float64
	FallbackBenchmarkRatio float64
}

// OptionsFromConfig maps analyzer configuration onto Options.
func OptionsFromConfig(cfg config.AnalyzerConfig) Options {
	return Options{
		DuplicatePolicy:        cfg.DuplicatePolicy,
		ClampPercentage:        cfg.ClampPercentage,
		UnmatchedFlagThreshold: cfg.UnmatchedFlagThreshold,
		UnmatchedBenchmark:     cfg.UnmatchedBenchmark,
		FallbackFlagThreshold:  cfg.FallbackFlagThreshold,
		FallbackBenchmarkRatio: cfg.FallbackBenchmarkRatio,
	}
}

func (o Options) withDefaults() Options {
	if o.DuplicatePolicy == "" {
		o.DuplicatePolicy = PolicyFlagAll
	}
	if o.UnmatchedFlagThreshold <= 0 {
		o.UnmatchedFlagThreshold = 15000
	}
	if o.UnmatchedBenchmark <= 0 {
		o.UnmatchedBenchmark = 10000
	}
	if o.FallbackFlagThreshold <= 0 {
		o.FallbackFlagThreshold = 10000
	}
	if o.FallbackBenchmarkRatio <= 0 || o.FallbackBenchmarkRatio >= 1 {
		o.FallbackBenchmarkRatio = 0.8
	}
	return o
}

// Analyzer runs the anomaly analysis. It holds no mutable state, so one
// Analyzer serves concurrent requests.
type Analyzer struct {
	matcher benchmark.Matcher
	opts    Options
}

// New creates an Analyzer with the given matcher and options.
func New(matcher benchmark.Matcher, opts Options) *Analyzer {
	return &Analyzer{matcher: matcher, opts: opts.withDefaults()}
}

// dupGroup accumulates charges sharing a normalized description key.
type dupGroup struct {
	item  string
	count int
	total float64
}

// Analyze produces the anomaly report for one bill. Identical input yields
// identical output; the report carries no timestamps and the analyzer no
// state.
func (a *Analyzer) Analyze(ctx context.Context, charges []model.ChargeItem, deductions []model.DeductionItem) *model.AnalysisReport {
	report := model.NewAnalysisReport()

	groups := make(map[string]*dupGroup)
	groupOrder := make([]string, 0, len(charges))

	var totalCharges, totalCovered float64

	for _, charge := range charges {
		desc := charge.Description
		if desc == "" {
			desc = normalize.UnknownItem
		}
		amount := charge.Amount
		totalCharges += amount
		totalCovered += charge.CoverageAmount

		benchmarkPrice := a.checkBenchmark(ctx, report, desc, amount)

		report.HMOItems = append(report.HMOItems, model.LedgerItem{
			Item:           desc,
			Type:           model.LedgerCharge,
			Covered:        coverageLabel(charge),
			Amount:         amount,
			BenchmarkPrice: benchmarkPrice,
		})

		key := normalize.GroupKey(desc)
		group, ok := groups[key]
		if !ok {
			group = &dupGroup{item: desc}
			groups[key] = group
			groupOrder = append(groupOrder, key)
		}
		group.count++
		group.total += amount
	}

	for _, deduction := range deductions {
		totalCovered += deduction.Amount
		report.HMOItems = append(report.HMOItems, model.LedgerItem{
			Item:    deduction.Description,
			Type:    model.LedgerDeduction,
			Covered: model.CoveredYes,
			Amount:  deduction.Amount,
		})
	}

	for _, key := range groupOrder {
		group := groups[key]
		if group.count < 2 {
			continue
		}
		report.Duplicates = append(report.Duplicates, model.DuplicateCharge{
			Item:         group.item,
			Occurrences:  group.count,
			TotalCharged: group.total,
			Facility:     defaultFacility,
		})
		report.Summary.FlaggedAmount += a.duplicateFlagAmount(group)
	}

	report.Summary.TotalCharges = totalCharges
	report.Summary.HMOCovered = totalCovered
	report.Summary.PatientResponsibility = math.Max(0, totalCharges-totalCovered)
	report.Summary.PercentageFlagged = a.formatPercentage(report.Summary.FlaggedAmount, totalCharges)

	return report
}

// checkBenchmark resolves one charge against the reference table, appending
// a benchmark issue and adding to the flagged amount when the charge is
// overpriced. It returns the benchmark price to show in the ledger, nil when
// the charge was not flagged.
func (a *Analyzer) checkBenchmark(ctx context.Context, report *model.AnalysisReport, desc string, amount float64) *float64 {
	match, err := a.matcher.Match(ctx, desc)
	if err != nil {
		return a.flagUnverified(report, desc, amount)
	}

	if match == nil {
		if amount <= a.opts.UnmatchedFlagThreshold {
			return nil
		}
		bench := a.opts.UnmatchedBenchmark
		report.BenchmarkIssues = append(report.BenchmarkIssues, model.BenchmarkIssue{
			Item:      desc,
			Charged:   amount,
			Benchmark: bench,
			Variance:  "High Value (Unverified)",
			Facility:  defaultFacility,
		})
		report.Summary.FlaggedAmount += amount - bench
		return &bench
	}

	rate := match.Rate
	if !rate.Overpriced(amount) {
		return nil
	}

	percentOver := int(math.Round((amount - rate.Rate) / rate.Rate * 100))
	report.BenchmarkIssues = append(report.BenchmarkIssues, model.BenchmarkIssue{
		Item:       desc,
		Charged:    amount,
		Benchmark:  rate.Rate,
		Variance:   fmt.Sprintf("%d%% Overpriced", percentOver),
		Facility:   defaultFacility,
		Code:       rate.Code,
		Confidence: match.Confidence,
		PriceRange: &model.PriceRange{Min: rate.MinRate, Max: rate.MaxRate},
	})
	report.Summary.FlaggedAmount += amount - rate.Rate

	bench := rate.Rate
	return &bench
}

// flagUnverified is the per-item degradation path for lookup backend
// failures: high-value charges still get flagged against an estimated
// benchmark instead of passing unexamined.
func (a *Analyzer) flagUnverified(report *model.AnalysisReport, desc string, amount float64) *float64 {
	if amount <= a.opts.FallbackFlagThreshold {
		return nil
	}
	bench := amount * a.opts.FallbackBenchmarkRatio
	overPercent := int(math.Round((1 - a.opts.FallbackBenchmarkRatio) * 100))

	zap.L().Warn("benchmark lookup unavailable, using estimated benchmark",
		zap.String("item", desc),
		zap.Float64("charged", amount),
		zap.Float64("estimated_benchmark", bench))

	report.BenchmarkIssues = append(report.BenchmarkIssues, model.BenchmarkIssue{
		Item:      desc,
		Charged:   amount,
		Benchmark: bench,
		Variance:  fmt.Sprintf("%d%% Overpriced (estimated)", overPercent),
		Facility:  defaultFacility,
	})
	report.Summary.FlaggedAmount += amount - bench
	return &bench
}

func (a *Analyzer) duplicateFlagAmount(group *dupGroup) float64 {
	if a.opts.DuplicatePolicy == PolicyFlagRedundant {
		return group.total * float64(group.count-1) / float64(group.count)
	}
	return group.total
}

func (a *Analyzer) formatPercentage(flagged, total float64) string {
	if total <= 0 {
		return "0%"
	}
	pct := flagged / total * 100
	if a.opts.ClampPercentage {
		pct = math.Min(100, math.Max(0, pct))
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// coverageLabel classifies a charge for the display ledger: covered when an
// HMO amount applies to it.
func coverageLabel(charge model.ChargeItem) string {
	if charge.CoverageAmount > 0 {
		return model.CoveredYes
	}
	return model.CoveredNo
}
