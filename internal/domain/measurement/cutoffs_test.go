package measurement

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestCutoffs_AnalystSelection(t *testing.T) {
	c := NewAnalystSelectionCutoffs()
	assert.True(t, c.AnalystSelection())
	assert.True(t, c.Evaluate(MustNew(eg("1"), 0.01, WithAnalystSelection(true))))
	assert.False(t, c.Evaluate(MustNew(eg("1"), 10, WithPValue(0.0001))))
	assert.Equal(t, "analyst-selection", c.String())
}

func TestCutoffs_Numeric(t *testing.T) {
	c, err := NewNumericCutoffs(f(1.3), f(0.05), f(100))
	require.NoError(t, err)
	assert.False(t, c.AnalystSelection())

	cases := []struct {
		name string
		m    *Measurement
		want bool
	}{
		{"passes", MustNew(eg("1"), 2, WithPValue(0.01), WithAbundance(200)), true},
		{"negative fold change by magnitude", MustNew(eg("1"), -2, WithPValue(0.01), WithAbundance(200)), true},
		{"fold change at floor", MustNew(eg("1"), 1.3, WithPValue(0.05), WithAbundance(100)), true},
		{"fold change too small", MustNew(eg("1"), 1.2, WithPValue(0.01), WithAbundance(200)), false},
		{"p-value too large", MustNew(eg("1"), 2, WithPValue(0.06), WithAbundance(200)), false},
		{"abundance too small", MustNew(eg("1"), 2, WithPValue(0.01), WithAbundance(99)), false},
		{"missing p-value", MustNew(eg("1"), 2, WithAbundance(200)), false},
		{"missing abundance", MustNew(eg("1"), 2, WithPValue(0.01)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Evaluate(tc.m))
		})
	}
	assert.False(t, c.Evaluate(nil))
}

func TestCutoffs_UnsetAxesUnconstrained(t *testing.T) {
	c, err := NewNumericCutoffs(nil, f(0.05), nil)
	require.NoError(t, err)

	assert.True(t, c.Evaluate(MustNew(eg("1"), 0.0001, WithPValue(0.01))))
	assert.False(t, c.Evaluate(MustNew(eg("1"), 100, WithPValue(0.5))))

	none, err := NewNumericCutoffs(nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, none.Evaluate(MustNew(eg("1"), 0)))
	assert.Equal(t, "fold-change=unset p-value=unset abundance=unset", none.String())
}

func TestCutoffs_RejectsNaN(t *testing.T) {
	_, err := NewNumericCutoffs(f(math.NaN()), nil, nil)
	assert.Error(t, err)
}
