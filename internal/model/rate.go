package model

// Rate is a single reference-rate entry: a known-fair price point and the
// acceptable range for a category of medical service.
type Rate struct {
	Code        string   `json:"code" yaml:"code"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Rate        float64  `json:"rate" yaml:"rate"`
	MinRate     float64  `json:"min_rate" yaml:"min_rate"`
	MaxRate     float64  `json:"max_rate" yaml:"max_rate"`
}

// RateMatch is the result of resolving a free-text description against the
// reference table. Confidence is 1.0 for exact keyword hits, the trigram
// similarity score for fuzzy hits, and 0.5 for substring fallback hits.
type RateMatch struct {
	Rate       Rate    `json:"rate"`
	Confidence float64 `json:"confidence"`
}

// Overpriced reports whether a charged amount should be flagged against this
// rate: above the acceptable ceiling, or more than 20% over the benchmark.
func (r Rate) Overpriced(charged float64) bool {
	if charged > r.MaxRate {
		return true
	}
	if r.Rate <= 0 {
		return false
	}
	variance := (charged - r.Rate) / r.Rate * 100
	return charged > r.Rate && variance > 20
}
