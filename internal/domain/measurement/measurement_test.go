package measurement

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/rcr/internal/domain/direction"
	"github.com/turtacn/rcr/pkg/errors"
)

func eg(v string) Term { return Term{Namespace: "EG", Value: v} }

func TestTerm_ShortForm(t *testing.T) {
	assert.Equal(t, "r(EG:207)", eg("207").ShortForm())
	assert.Equal(t, `r(HGNC:"IL-6")`, Term{Namespace: "HGNC", Value: "IL-6"}.ShortForm())
	assert.Equal(t, "r(HGNC:TP53)", Term{Namespace: "HGNC", Value: "TP53"}.String())
}

func TestNew_DirectionFromSign(t *testing.T) {
	cases := []struct {
		fc   float64
		want direction.Type
	}{
		{1.5, direction.Up},
		{-0.2, direction.Down},
		{0.0, direction.Unmeasured},
		{math.Copysign(0, -1), direction.Unmeasured},
	}
	for _, tc := range cases {
		m, err := New(eg("1"), tc.fc)
		require.NoError(t, err)
		assert.Equal(t, tc.want, m.Direction(), "fc=%v", tc.fc)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Term{Namespace: "EG"}, 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidMeasurement))

	_, err = New(eg("1"), math.NaN())
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidMeasurement))

	_, err = New(eg("1"), 1, WithPValue(math.NaN()))
	assert.Error(t, err)

	_, err = New(eg("1"), 1, WithAbundance(math.NaN()))
	assert.Error(t, err)

	assert.Panics(t, func() { MustNew(eg(""), 1) })
}

func TestMeasurement_Accessors(t *testing.T) {
	m := MustNew(eg("7"), -2, WithPValue(0.01), WithAbundance(300), WithAnalystSelection(true), WithID("7"))

	assert.Equal(t, "7", m.ID())
	assert.Equal(t, eg("7"), m.Term())
	assert.Equal(t, -2.0, m.FoldChange())
	p, ok := m.PValue()
	assert.True(t, ok)
	assert.Equal(t, 0.01, p)
	a, ok := m.Abundance()
	assert.True(t, ok)
	assert.Equal(t, 300.0, a)
	assert.True(t, m.AnalystSelection())
	assert.Contains(t, m.String(), "r(EG:7) fc=-2 p=0.01 a=300 selected")

	bare := MustNew(eg("8"), 1)
	_, ok = bare.PValue()
	assert.False(t, ok)
	_, ok = bare.Abundance()
	assert.False(t, ok)
	assert.False(t, bare.AnalystSelection())
}

func TestMeasurement_Equality(t *testing.T) {
	a := MustNew(eg("1"), 1.5, WithPValue(0.05), WithID("row-1"))
	b := MustNew(eg("1"), 1.5, WithPValue(0.05), WithID("row-2"))
	c := MustNew(eg("1"), 1.5)
	d := MustNew(eg("1"), 1.5, WithPValue(0.05), WithAnalystSelection(true))

	assert.True(t, a.Equal(b), "ID is not part of equality")
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(nil))

	zero := MustNew(eg("1"), 0.0)
	negZero := MustNew(eg("1"), math.Copysign(0, -1))
	assert.True(t, zero.Equal(negZero))
}

func TestSet(t *testing.T) {
	a := MustNew(eg("1"), 1)
	dup := MustNew(eg("1"), 1)
	b := MustNew(eg("2"), -1)

	s := NewSet(a, dup, b)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(dup))
	assert.Equal(t, []*Measurement{a, b}, s.Items())
	assert.Equal(t, []*Measurement{b}, s.Without(dup))
	assert.Len(t, s.Without(nil), 2)

	var empty Set
	assert.True(t, empty.Add(a))
	assert.False(t, empty.Add(dup))
}

func TestComparison(t *testing.T) {
	ms := []*Measurement{MustNew(eg("1"), 1), MustNew(eg("2"), -1)}
	c := NewComparison("treated", ms)
	ms[0] = nil

	assert.Equal(t, "treated", c.Name())
	assert.Equal(t, 2, c.Len())
	assert.NotNil(t, c.Measurements()[0], "comparison must not alias the caller's slice")
}

func TestSelectComparison(t *testing.T) {
	one := NewComparison("Treated", nil)
	two := NewComparison("Control", nil)

	got, err := SelectComparison([]*Comparison{one}, "")
	require.NoError(t, err)
	assert.Same(t, one, got)

	got, err = SelectComparison([]*Comparison{one, two}, "control")
	require.NoError(t, err)
	assert.Same(t, two, got)

	_, err = SelectComparison([]*Comparison{one, two}, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeComparisonNotFound))

	_, err = SelectComparison([]*Comparison{one, two}, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Treated, Control")

	_, err = SelectComparison(nil, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataFile))
}
