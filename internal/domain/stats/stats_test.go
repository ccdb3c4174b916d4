package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/rcr/pkg/errors"
)

func TestLogSum(t *testing.T) {
	lib := NewLibrary(10)

	v, err := lib.LogSum(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	for _, n := range []int{1, 5, 10, 11, 25} {
		v, err := lib.LogSum(n)
		require.NoError(t, err)
		want, _ := math.Lgamma(float64(n + 1))
		assert.InDelta(t, want, v, 1e-9, "n=%d", n)
	}

	_, err = lib.LogSum(-1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMathDomain))
}

func TestDefaultLibrary_Shared(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.Len(t, Default().logSums, MaxPrecalculatedLogSum+1)
	assert.Len(t, NewLibrary(0).logSums, MaxPrecalculatedLogSum+1)
}

func TestLogBinomialCoefficient(t *testing.T) {
	v, err := LogBinomialCoefficient(5, 2)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(10), v, 1e-12)

	_, err = LogBinomialCoefficient(3, 5)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMathDomain))

	_, err = LogBinomialCoefficient(3, -1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMathDomain))
}

func TestBinomialCoefficient(t *testing.T) {
	v, err := Default().BinomialCoefficient(100, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(75287520), v)

	_, err = Default().BinomialCoefficient(100, 50)
	assert.True(t, errors.IsCode(err, errors.ErrCodeComputation))

	_, err = Default().BinomialCoefficient(1, 2)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMathDomain))
}

func TestHypergeometric_SumsToOne(t *testing.T) {
	triples := []struct{ n, m, popSize int }{
		{10, 20, 100},
		{5, 20, 100},
		{30, 12, 400},
		{4, 4, 8},
	}
	for _, tr := range triples {
		var sum float64
		for k := 0; k <= min(tr.n, tr.m); k++ {
			p, err := Hypergeometric(k, tr.n, tr.m, tr.popSize)
			require.NoError(t, err)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, Tolerance, "n=%d m=%d N=%d", tr.n, tr.m, tr.popSize)
	}
}

func TestRightTail_ComplementsLeftTail(t *testing.T) {
	lib := Default()
	for k := 1; k <= 10; k++ {
		right, err := lib.CumulativeHypergeometricFromRight(k, 10, 20, 100)
		require.NoError(t, err)
		left, err := lib.CumulativeHypergeometric(k-1, 10, 20, 100)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, left+right, Tolerance, "k=%d", k)
	}
}

func TestRightTail_SkipsImpossibleTerms(t *testing.T) {
	// only 2 successes exist, so P(X >= 1) with n=5 sums i=2 and i=1
	p, err := CumulativeHypergeometricFromRight(1, 5, 2, 10)
	require.NoError(t, err)
	p0, err := Hypergeometric(0, 5, 2, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1-p0, p, Tolerance)
}

func TestRichness(t *testing.T) {
	v, err := Richness(0, 5, 20, 100)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = Richness(5, 5, 20, 100)
	require.NoError(t, err)
	assert.InDelta(t, 15504.0/75287520.0, v, 1e-15)

	prev := 1.0
	for k := 1; k <= 5; k++ {
		v, err := Richness(k, 5, 20, 100)
		require.NoError(t, err)
		assert.True(t, v > 0 && v < 1, "k=%d richness=%g", k, v)
		assert.Less(t, v, prev, "richness must decrease as observed grows")
		prev = v
	}
}

func TestRichness_DomainErrors(t *testing.T) {
	cases := []struct{ k, n, m, popSize int }{
		{-1, 5, 20, 100},
		{1, -5, 20, 100},
		{1, 5, -20, 100},
		{1, 5, 20, -100},
		{6, 5, 20, 100},
		{1, 5, 20, 3},
	}
	for _, tc := range cases {
		_, err := Richness(tc.k, tc.n, tc.m, tc.popSize)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMathDomain), "%+v", tc)
	}
}

func TestConcordance(t *testing.T) {
	v, err := Concordance(4, 1)
	require.NoError(t, err)
	assert.InDelta(t, 6.0/32.0, v, 1e-12)

	v, err = Concordance(1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-12)

	v, err = Concordance(10, 0)
	require.NoError(t, err)
	assert.InDelta(t, math.Pow(0.5, 10), v, 1e-15)

	v, err = Concordance(0, 7)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	_, err = Concordance(-1, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMathDomain))
	_, err = Concordance(1, -1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMathDomain))
}
