package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
)

func term(v string) measurement.Term { return measurement.Term{Namespace: "EG", Value: v} }

func m(v string, fc float64, opts ...measurement.Option) *measurement.Measurement {
	return measurement.MustNew(term(v), fc, opts...)
}

func TestCollapse_EmptyAndSingle(t *testing.T) {
	s := NewDefaultCollapsingStrategy(true)
	assert.Nil(t, s.Collapse(nil))

	only := m("1", 2)
	assert.Same(t, only, s.Collapse([]*measurement.Measurement{only}))
}

func TestCollapse_EqualMeasurementsCountOnce(t *testing.T) {
	a := m("1", 2, measurement.WithPValue(0.01))
	b := m("1", 2, measurement.WithPValue(0.01))
	got := NewDefaultCollapsingStrategy(true).Collapse([]*measurement.Measurement{a, b})
	assert.Same(t, a, got)
}

func TestCollapse_SingleAnalystSelectionWins(t *testing.T) {
	picked := m("1", 0.5, measurement.WithAnalystSelection(true))
	other := m("2", -4)
	ms := []*measurement.Measurement{other, picked}

	assert.Same(t, picked, NewDefaultCollapsingStrategy(true).Collapse(ms))
	assert.Same(t, other, NewDefaultCollapsingStrategy(false).Collapse(ms), "selection ignored")
}

func TestCollapse_SeveralSelectionsNarrowTheCandidates(t *testing.T) {
	a := m("1", 1, measurement.WithAnalystSelection(true))
	b := m("2", -1, measurement.WithAnalystSelection(true))
	c := m("3", -9)

	got := NewDefaultCollapsingStrategy(true).Collapse([]*measurement.Measurement{a, b, c})
	assert.Same(t, b, got)
}

func TestCollapse_LowestFoldChangeWins(t *testing.T) {
	ms := []*measurement.Measurement{m("1", 1), m("2", -3), m("3", 2)}
	got := NewDefaultCollapsingStrategy(true).Collapse(ms)
	assert.Equal(t, -3.0, got.FoldChange())
}

func TestCollapse_OppositeSignsUnderFoldChangeStage(t *testing.T) {
	neg := m("1", -2)
	pos := m("1", 2)
	got := NewDefaultCollapsingStrategy(true).Collapse([]*measurement.Measurement{pos, neg})
	assert.Same(t, neg, got)
}

func TestCollapse_OppositeSignsEqualSplitYieldsSynthetic(t *testing.T) {
	s := NewDefaultCollapsingStrategy(true, WithLowestStage(LowestPValue))
	neg := m("9", -2, measurement.WithPValue(0.01))
	pos := m("7", 2, measurement.WithPValue(0.01))

	got := s.Collapse([]*measurement.Measurement{neg, pos})
	require.NotNil(t, got)
	assert.Equal(t, term("7"), got.Term(), "term of the first positive")
	assert.Equal(t, 0.0, got.FoldChange())
	p, ok := got.PValue()
	require.True(t, ok)
	assert.Equal(t, 1.0, p)
	a, ok := got.Abundance()
	require.True(t, ok)
	assert.Equal(t, 0.0, a)

	numeric := 0.5
	cutoffs, err := measurement.NewNumericCutoffs(&numeric, nil, nil)
	require.NoError(t, err)
	assert.False(t, cutoffs.Evaluate(got), "synthetic fails any rational cutoff")
}

func TestCollapse_SignMajorityThenHighestMagnitude(t *testing.T) {
	s := NewDefaultCollapsingStrategy(true, WithLowestStage(LowestPValue))
	ms := []*measurement.Measurement{
		m("1", 1.5, measurement.WithPValue(0.05)),
		m("2", -8, measurement.WithPValue(0.05)),
		m("3", 3, measurement.WithPValue(0.05)),
		m("4", 2, measurement.WithPValue(0.2)),
	}
	got := s.Collapse(ms)
	require.NotNil(t, got)
	assert.Equal(t, 3.0, got.FoldChange())
}

func TestCollapse_MissingPValueRanksLast(t *testing.T) {
	s := NewDefaultCollapsingStrategy(true, WithLowestStage(LowestPValue))
	with := m("1", 1, measurement.WithPValue(0.9))
	without := m("2", 5)
	assert.Same(t, with, s.Collapse([]*measurement.Measurement{without, with}))
}

func TestCollapse_HighestAbundanceBreaksTies(t *testing.T) {
	low := m("1", -2, measurement.WithAbundance(10))
	high := m("2", -2, measurement.WithAbundance(300))
	missing := m("3", -2)

	got := NewDefaultCollapsingStrategy(true).Collapse([]*measurement.Measurement{missing, low, high})
	assert.Same(t, high, got)
}

func TestCollapse_LowestTermBreaksRemainingTies(t *testing.T) {
	b := m("20", -2, measurement.WithAbundance(5))
	a := m("10", -2, measurement.WithAbundance(5))

	got := NewDefaultCollapsingStrategy(true).Collapse([]*measurement.Measurement{b, a})
	assert.Same(t, a, got)
}

func TestCollapse_IdenticalTermsAreAmbiguous(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewDefaultCollapsingStrategy(true, WithCollapseLogger(logging.NewLoggerFromCore(core)))

	a := m("1", -2, measurement.WithPValue(0.01))
	b := m("1", -2, measurement.WithPValue(0.02))
	assert.Nil(t, s.Collapse([]*measurement.Measurement{a, b}))
	assert.Equal(t, 1, logs.FilterMessage("non-unique measurement id found").Len())
}

func TestCollapse_OrderIndependentForDistinctTerms(t *testing.T) {
	ms := []*measurement.Measurement{
		m("1", 2, measurement.WithAbundance(1)),
		m("2", -2, measurement.WithAbundance(3)),
		m("3", -2, measurement.WithAbundance(3)),
		m("4", -1),
	}
	s := NewDefaultCollapsingStrategy(true)
	want := s.Collapse(ms)
	require.NotNil(t, want)

	reversed := []*measurement.Measurement{ms[3], ms[2], ms[1], ms[0]}
	assert.Same(t, want, s.Collapse(reversed))
	assert.Equal(t, term("2"), want.Term())
}

func TestLowestStage_String(t *testing.T) {
	assert.Equal(t, "fold-change", LowestFoldChange.String())
	assert.Equal(t, "p-value", LowestPValue.String())
}
