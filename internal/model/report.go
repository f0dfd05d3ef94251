package model

// LedgerType distinguishes ledger rows built from charges vs deductions.
type LedgerType string

const (
	LedgerCharge    LedgerType = "charge"
	LedgerDeduction LedgerType = "deduction"
)

// Covered labels used in the display ledger.
const (
	CoveredYes = "Yes"
	CoveredNo  = "No"
)

// DuplicateCharge records a description that appeared more than once in a
// single bill.
type DuplicateCharge struct {
	Item         string  `json:"item"`
	Occurrences  int     `json:"occurrences"`
	TotalCharged float64 `json:"totalCharged"`
	Facility     string  `json:"facility,omitempty"`
}

// PriceRange is the acceptable min/max band for a matched reference rate.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// BenchmarkIssue records a charge priced above its reference benchmark, or a
// high-value charge with no reference at all.
type BenchmarkIssue struct {
	Item       string      `json:"item"`
	Charged    float64     `json:"charged"`
	Benchmark  float64     `json:"benchmark"`
	Variance   string      `json:"variance"`
	Facility   string      `json:"facility,omitempty"`
	Code       string      `json:"referenceCode,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	PriceRange *PriceRange `json:"priceRange,omitempty"`
}

// LedgerItem is one row of the coverage display ledger. Every charge and
// deduction gets a row; this is labeling only and carries no aggregation.
type LedgerItem struct {
	Item           string     `json:"item"`
	Type           LedgerType `json:"type"`
	Covered        string     `json:"covered"`
	Amount         float64    `json:"amount"`
	BenchmarkPrice *float64   `json:"benchmarkPrice"`
}

// Summary holds the aggregate figures for one analysis run.
type Summary struct {
	TotalCharges          float64 `json:"totalCharges"`
	FlaggedAmount         float64 `json:"flaggedAmount"`
	PercentageFlagged     string  `json:"percentageFlagged"`
	PatientResponsibility float64 `json:"patientResponsibility"`
	HMOCovered            float64 `json:"hmoCovered"`
}

// AnalysisReport is the full output of one analysis run. It is constructed
// fresh per call, never persisted, and contains no timestamps so identical
// input always produces identical output.
type AnalysisReport struct {
	Duplicates      []DuplicateCharge `json:"duplicates"`
	BenchmarkIssues []BenchmarkIssue  `json:"benchmarkIssues"`
	HMOItems        []LedgerItem      `json:"hmoItems"`
	Summary         Summary           `json:"summary"`
}

// NewAnalysisReport returns a report with empty (non-nil) lists and a zeroed
// summary, so callers always serialize [] rather than null.
func NewAnalysisReport() *AnalysisReport {
	return &AnalysisReport{
		Duplicates:      []DuplicateCharge{},
		BenchmarkIssues: []BenchmarkIssue{},
		HMOItems:        []LedgerItem{},
		Summary:         Summary{PercentageFlagged: "0%"},
	}
}
