// Package model defines the core domain types for bill analysis: reference
// rates, normalized charges and deductions, and the analysis report.
package model

// ChargeItem is a single billable line item after normalization. Amounts are
// always non-negative; a missing description is normalized to "Unknown Item".
type ChargeItem struct {
	Description string `json:"description"`
	Amount      float64 `json:"amount"`

	// CoverageAmount is the insurer-paid portion of the charge, when the
	// bill carries a coverage split. Zero when no split applies.
	CoverageAmount float64 `json:"coverage_amount,omitempty"`

	// PatientAmount is the patient-owed portion. Derived as
	// max(0, Amount - CoverageAmount) when the source omitted it.
	PatientAmount float64 `json:"patient_amount,omitempty"`
}

// DeductionItem is a credit applied against the bill total: a payment,
// discount, or deposit. Deductions reduce patient responsibility but never
// contribute to the flagged amount.
type DeductionItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}
