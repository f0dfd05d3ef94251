package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
)

var moneyStrip = regexp.MustCompile(`[^0-9.\-]`)

// ParseAmount coerces a raw extracted amount into a float64. Strings are
// stripped of everything but digits, '.' and '-' before parsing, so currency
// symbols and thousands separators survive OCR. Anything unparseable is 0;
// a malformed amount never aborts an analysis.
func ParseAmount(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		cleaned := moneyStrip.ReplaceAllString(n, "")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
