// Package stats implements the numerical routines used to score hypotheses:
// log-factorial based binomial coefficients, hypergeometric probabilities and
// their right tail (richness), and the regularized incomplete beta evaluation
// used for concordance.
//
// All routines reject negative counts and k > n with an ErrCodeMathDomain
// error instead of clamping.
package stats

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/turtacn/rcr/pkg/errors"
)

const (
	// MaxPrecalculatedLogSum is the largest n whose log-sum is served from
	// the precomputed table.
	MaxPrecalculatedLogSum = 60000

	// Tolerance is the absolute tolerance used when comparing probabilities.
	Tolerance = 1e-10

	// concordanceProbability is the chance of a direction being correct
	// under the null hypothesis.
	concordanceProbability = 0.5
)

// Library owns a write-once table of log-sums. It is safe for concurrent use
// once constructed.
type Library struct {
	logSums []float64
}

// NewLibrary builds a Library whose table covers n in [0, size]. A
// non-positive size selects MaxPrecalculatedLogSum.
func NewLibrary(size int) *Library {
	if size <= 0 {
		size = MaxPrecalculatedLogSum
	}
	sums := make([]float64, size+1)
	for i := 1; i <= size; i++ {
		sums[i] = sums[i-1] + math.Log(float64(i))
	}
	return &Library{logSums: sums}
}

var (
	defaultOnce    sync.Once
	defaultLibrary *Library
)

// Default returns the process-wide Library, building it on first use.
func Default() *Library {
	defaultOnce.Do(func() {
		defaultLibrary = NewLibrary(MaxPrecalculatedLogSum)
	})
	return defaultLibrary
}

// LogSum returns log(1) + log(2) + ... + log(n), i.e. log(n!). Values beyond
// the table are extended by direct summation.
func (l *Library) LogSum(n int) (float64, error) {
	if n < 0 {
		return 0, domainError("log sum of negative n=%d", n)
	}
	last := len(l.logSums) - 1
	if n <= last {
		return l.logSums[n], nil
	}
	sum := l.logSums[last]
	for i := last + 1; i <= n; i++ {
		sum += math.Log(float64(i))
	}
	return sum, nil
}

// LogBinomialCoefficient returns log(n choose k). It requires 0 <= k <= n.
func (l *Library) LogBinomialCoefficient(n, k int) (float64, error) {
	if k < 0 || n < 0 {
		return 0, domainError("negative argument to (n choose k): n=%d, k=%d", n, k)
	}
	if n < k {
		return 0, domainError("n must not be less than k to calculate (n choose k): n=%d, k=%d", n, k)
	}
	ln, _ := l.LogSum(n)
	lk, _ := l.LogSum(k)
	lnk, _ := l.LogSum(n - k)
	return ln - lk - lnk, nil
}

// BinomialCoefficient returns n choose k rounded to an int64. It fails when
// the value does not fit.
func (l *Library) BinomialCoefficient(n, k int) (int64, error) {
	logC, err := l.LogBinomialCoefficient(n, k)
	if err != nil {
		return 0, err
	}
	if logC > math.Log(math.MaxInt64) {
		return 0, errors.New(errors.ErrCodeComputation,
			fmt.Sprintf("binomial coefficient exceeds int64; log value is %g", logC))
	}
	return int64(math.Round(math.Exp(logC))), nil
}

// Hypergeometric returns the probability of exactly k successes when drawing
// n items from a population of size popSize containing m successes.
func (l *Library) Hypergeometric(k, n, m, popSize int) (float64, error) {
	mCk, err := l.LogBinomialCoefficient(m, k)
	if err != nil {
		return 0, err
	}
	nmCnk, err := l.LogBinomialCoefficient(popSize-m, n-k)
	if err != nil {
		return 0, err
	}
	nCn, err := l.LogBinomialCoefficient(popSize, n)
	if err != nil {
		return 0, err
	}
	return math.Exp(mCk - nCn + nmCnk), nil
}

// CumulativeHypergeometric returns P(X <= k).
func (l *Library) CumulativeHypergeometric(k, n, m, popSize int) (float64, error) {
	if err := checkCounts(k, n, m, popSize); err != nil {
		return 0, err
	}
	var cum float64
	for i := 0; i <= k; i++ {
		p, err := l.Hypergeometric(i, n, m, popSize)
		if err != nil {
			return 0, err
		}
		cum += p
	}
	return cum, nil
}

// CumulativeHypergeometricFromRight returns P(X >= k). Terms are summed from
// i = n down to k so that small tail probabilities keep their precision;
// terms with m < i are impossible and skipped.
func (l *Library) CumulativeHypergeometricFromRight(k, n, m, popSize int) (float64, error) {
	if err := checkCounts(k, n, m, popSize); err != nil {
		return 0, err
	}
	var cum float64
	for i := n; i >= k; i-- {
		if m < i {
			continue
		}
		p, err := l.Hypergeometric(i, n, m, popSize)
		if err != nil {
			return 0, err
		}
		cum += p
	}
	return cum, nil
}

// Richness is the hypergeometric enrichment p-value of observing k or more
// state changes among n possibles, given m state changes in a population of
// popSize. It is 1.0 when k is 0.
func (l *Library) Richness(k, n, m, popSize int) (float64, error) {
	if err := checkCounts(k, n, m, popSize); err != nil {
		return 0, err
	}
	if k == 0 {
		return 1.0, nil
	}
	return l.CumulativeHypergeometricFromRight(k, n, m, popSize)
}

// Concordance is the one-sided probability of observing at least correct
// agreeing directions out of correct+contra when each direction is right
// with probability 0.5, evaluated as the regularized incomplete beta
// I_0.5(correct, contra+1). It is 1.0 when correct is 0.
func Concordance(correct, contra int) (p float64, err error) {
	if correct < 0 || contra < 0 {
		return 0, domainError("correct and contra counts must not be negative: %d, %d", correct, contra)
	}
	if correct == 0 {
		return 1.0, nil
	}
	defer func() {
		if r := recover(); r != nil {
			p = 0
			err = errors.New(errors.ErrCodeComputation,
				fmt.Sprintf("error evaluating concordance for %d, %d", correct, contra)).
				WithDetail(fmt.Sprint(r))
		}
	}()
	beta := distuv.Beta{Alpha: float64(correct), Beta: float64(contra) + 1}
	p = beta.CDF(concordanceProbability)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, errors.New(errors.ErrCodeComputation,
			fmt.Sprintf("non-finite concordance for %d, %d", correct, contra))
	}
	return p, nil
}

// Richness evaluates richness with the Default library.
func Richness(k, n, m, popSize int) (float64, error) {
	return Default().Richness(k, n, m, popSize)
}

// Hypergeometric evaluates Hypergeometric with the Default library.
func Hypergeometric(k, n, m, popSize int) (float64, error) {
	return Default().Hypergeometric(k, n, m, popSize)
}

// CumulativeHypergeometricFromRight evaluates the right tail with the Default
// library.
func CumulativeHypergeometricFromRight(k, n, m, popSize int) (float64, error) {
	return Default().CumulativeHypergeometricFromRight(k, n, m, popSize)
}

// LogBinomialCoefficient evaluates log(n choose k) with the Default library.
func LogBinomialCoefficient(n, k int) (float64, error) {
	return Default().LogBinomialCoefficient(n, k)
}

func checkCounts(k, n, m, popSize int) error {
	if k < 0 || n < 0 || m < 0 || popSize < 0 {
		return domainError("counts must not be negative: k=%d, n=%d, m=%d, N=%d", k, n, m, popSize)
	}
	if k > n {
		return domainError("k must not exceed n: k=%d, n=%d", k, n)
	}
	return nil
}

func domainError(format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeMathDomain, fmt.Sprintf(format, args...))
}
