// Package normalize converts raw extracted line items, whatever shape the
// OCR workflow produced, into canonical charges and deductions.
package normalize

import (
	"strings"

	"github.com/feever-health/feever/internal/model"
)

// UnknownItem is the description assigned to line items the extraction left
// unlabeled.
const UnknownItem = "Unknown Item"

// RawItem is one line item as extracted upstream. Amount fields are `any`
// because the workflow returns numbers, numeric strings, or strings with
// currency symbols depending on the bill. At most one of the three amount
// shapes is expected per item; shape detection below resolves conflicts by
// priority.
type RawItem struct {
	Description   string `json:"description"`
	Amount        any    `json:"amount,omitempty"`
	Price         any    `json:"price,omitempty"`
	TotalCharge   any    `json:"total_charge,omitempty"`
	HMOAmount     any    `json:"hmo_amount,omitempty"`
	PatientAmount any    `json:"patient_amount,omitempty"`
}

// itemShape tags the recognized raw input shapes.
type itemShape int

const (
	shapeHMO      itemShape = iota // {description, total_charge, hmo_amount, patient_amount}
	shapeStandard                  // {description, amount}
	shapeLegacy                    // {description, price}
	shapeEmpty                     // description only; amount defaults to 0
)

// detectShape resolves a raw item to one adapter, in priority order: the
// coverage-split shape wins over the standard shape, which wins over the
// legacy price shape.
func detectShape(it RawItem) itemShape {
	switch {
	case it.TotalCharge != nil || it.HMOAmount != nil || it.PatientAmount != nil:
		return shapeHMO
	case it.Amount != nil:
		return shapeStandard
	case it.Price != nil:
		return shapeLegacy
	default:
		return shapeEmpty
	}
}

// creditKeywords mark lines that are bill-level credits rather than billable
// services. They only appear in coverage-split bills, where treating them as
// charges would double-count against the totals.
var creditKeywords = []string{
	"payment",
	"discount",
	"deposit",
	"less ",
	"adjustment",
	"total",
	"balance",
	"amount due",
}

func isCreditLine(description string) bool {
	d := strings.ToLower(description)
	for _, kw := range creditKeywords {
		if strings.Contains(d, kw) {
			return true
		}
	}
	return false
}

// Charges normalizes raw charge records into canonical ChargeItems,
// preserving input order. Credit lines are dropped from coverage-split
// bills; nothing here ever fails.
func Charges(raw []RawItem) []model.ChargeItem {
	charges := make([]model.ChargeItem, 0, len(raw))
	for _, it := range raw {
		desc := CleanDescription(it.Description)
		if desc == "" {
			desc = UnknownItem
		}

		switch detectShape(it) {
		case shapeHMO:
			if isCreditLine(desc) {
				continue
			}
			charges = append(charges, coverageSplit(desc, it))
		case shapeStandard:
			charges = append(charges, model.ChargeItem{
				Description: desc,
				Amount:      nonNegative(ParseAmount(it.Amount)),
			})
		case shapeLegacy:
			charges = append(charges, model.ChargeItem{
				Description: desc,
				Amount:      nonNegative(ParseAmount(it.Price)),
			})
		default:
			charges = append(charges, model.ChargeItem{Description: desc})
		}
	}
	return charges
}

// coverageSplit derives the insurer/patient split for an HMO-shaped item:
//   - hmo_amount > 0 derives patient_amount = max(0, total - hmo)
//   - patient_amount == total_charge (> 0) means nothing was covered
//   - a missing patient_amount defaults to 0
func coverageSplit(desc string, it RawItem) model.ChargeItem {
	total := nonNegative(ParseAmount(it.TotalCharge))
	hmo := nonNegative(ParseAmount(it.HMOAmount))

	patient := 0.0
	if it.PatientAmount != nil {
		patient = nonNegative(ParseAmount(it.PatientAmount))
	}

	if patient == total && total > 0 {
		hmo = 0
	}
	if hmo > 0 {
		patient = max(0, total-hmo)
	}

	return model.ChargeItem{
		Description:    desc,
		Amount:         total,
		CoverageAmount: hmo,
		PatientAmount:  patient,
	}
}

// Deductions normalizes raw deduction records, preserving input order.
func Deductions(raw []RawItem) []model.DeductionItem {
	deds := make([]model.DeductionItem, 0, len(raw))
	for _, it := range raw {
		desc := CleanDescription(it.Description)
		if desc == "" {
			desc = UnknownItem
		}
		amount := it.Amount
		if amount == nil {
			amount = it.Price
		}
		deds = append(deds, model.DeductionItem{
			Description: desc,
			Amount:      nonNegative(ParseAmount(amount)),
		})
	}
	return deds
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
