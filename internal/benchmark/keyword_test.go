package benchmark

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feever-health/feever/internal/model"
)

func TestKeywordMatcher_Basic(t *testing.T) {
	m := NewKeywordMatcher(nil)

	match, err := m.Match(context.Background(), "Urinalysis")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "LAB-001", match.Rate.Code)
	assert.InDelta(t, 1.0, match.Confidence, 0.0001)
}

func TestKeywordMatcher_SubstringNotExact(t *testing.T) {
	m := NewKeywordMatcher(nil)

	match, err := m.Match(context.Background(), "Urinalysis (Routine, Midstream)")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "LAB-001", match.Rate.Code)
}

func TestKeywordMatcher_CaseInsensitive(t *testing.T) {
	m := NewKeywordMatcher(nil)

	match, err := m.Match(context.Background(), "  CHEST X-RAY  ")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "RAD-002", match.Rate.Code)
}

func TestKeywordMatcher_NoMatchIsNotAnError(t *testing.T) {
	m := NewKeywordMatcher(nil)

	match, err := m.Match(context.Background(), "Gold-Plated Bedpan")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestKeywordMatcher_EmptyDescription(t *testing.T) {
	m := NewKeywordMatcher(nil)

	match, err := m.Match(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestKeywordMatcher_TableOrderEncodesPriority(t *testing.T) {
	table := []model.Rate{
		{Code: "A", Keywords: []string{"scan"}, Rate: 100, MaxRate: 200},
		{Code: "B", Keywords: []string{"ct scan"}, Rate: 6000, MaxRate: 8000},
	}
	m := NewKeywordMatcher(table)

	// Both entries contain a matching keyword; the first in table order wins.
	match, err := m.Match(context.Background(), "CT Scan with Contrast")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "A", match.Rate.Code)
}

func TestKeywordMatcher_DescriptionContainmentFallback(t *testing.T) {
	table := []model.Rate{
		{Code: "LAB-009", Description: "Fasting Blood Sugar", Rate: 150, MaxRate: 250},
	}
	m := NewKeywordMatcher(table)

	// Scanned text inside canonical description.
	match, err := m.Match(context.Background(), "Blood Sugar")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "LAB-009", match.Rate.Code)

	// Canonical description inside scanned text.
	match, err = m.Match(context.Background(), "Fasting Blood Sugar (FBS)")
	require.NoError(t, err)
	require.NotNil(t, match)
}

func TestDefaultRates_Invariants(t *testing.T) {
	for _, r := range DefaultRates() {
		assert.LessOrEqual(t, r.MinRate, r.Rate, r.Code)
		assert.LessOrEqual(t, r.Rate, r.MaxRate, r.Code)
		assert.NotEmpty(t, r.Code)
	}
}

func TestRate_Overpriced(t *testing.T) {
	r := model.Rate{Rate: 100, MinRate: 50, MaxRate: 150}

	assert.True(t, r.Overpriced(200), "above ceiling")
	assert.True(t, r.Overpriced(125), "within ceiling but >20% over benchmark")
	assert.False(t, r.Overpriced(110), "within 20% of benchmark")
	assert.False(t, r.Overpriced(90), "below benchmark")
}
