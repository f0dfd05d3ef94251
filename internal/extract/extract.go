// Package extract parses hosted-workflow output into raw bill line items.
// The workflow's answer arrives as a decoded JSON object, a JSON string, or
// prose with a JSON object embedded somewhere inside it, so parsing is
// tolerant about the transport and strict about the final shape.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/feever-health/feever/internal/normalize"
)

// BillData is the canonical extraction result: raw charges and deductions
// ready for normalization.
type BillData struct {
	Charges    []normalize.RawItem `json:"charges"`
	Deductions []normalize.RawItem `json:"deductions"`
}

// MalformedOutputError reports workflow output that could not be parsed into
// bill data. Raw carries the offending text for debugging and for surfacing
// to clients.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("extract: unparseable workflow output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// billPayload is the superset of shapes the workflow has been observed to
// emit: the standard charges/deductions form, and the legacy flat items form.
type billPayload struct {
	Charges    []normalize.RawItem `json:"charges"`
	Deductions []normalize.RawItem `json:"deductions"`
	Items      []normalize.RawItem `json:"items"`
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseBill converts a raw workflow answer into BillData. Decoded objects
// pass through shape detection directly; strings are searched for an
// embedded JSON object, then retried with code fences stripped.
func ParseBill(raw any) (*BillData, error) {
	switch v := raw.(type) {
	case nil:
		return nil, &MalformedOutputError{Err: fmt.Errorf("no output")}
	case string:
		return parseText(v)
	case map[string]any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, &MalformedOutputError{Err: err}
		}
		return parseText(string(encoded))
	default:
		return nil, &MalformedOutputError{
			Raw: fmt.Sprintf("%v", raw),
			Err: fmt.Errorf("unsupported output type %T", raw),
		}
	}
}

func parseText(text string) (*BillData, error) {
	candidate := text
	if m := jsonObjectPattern.FindString(text); m != "" {
		candidate = m
	} else {
		candidate = stripCodeFences(text)
	}

	var payload billPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, &MalformedOutputError{Raw: text, Err: err}
	}
	return fromPayload(payload), nil
}

// fromPayload resolves the legacy items form: an items array with no charges
// maps each {description, price} to a charge, with no deductions.
func fromPayload(p billPayload) *BillData {
	if len(p.Charges) == 0 && len(p.Items) > 0 {
		return &BillData{
			Charges:    p.Items,
			Deductions: []normalize.RawItem{},
		}
	}
	data := &BillData{Charges: p.Charges, Deductions: p.Deductions}
	if data.Charges == nil {
		data.Charges = []normalize.RawItem{}
	}
	if data.Deductions == nil {
		data.Deductions = []normalize.RawItem{}
	}
	return data
}

func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
