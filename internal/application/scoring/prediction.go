// Package scoring evaluates hypotheses against the state changes observed in
// a comparison.
package scoring

import (
	"github.com/turtacn/rcr/internal/domain/direction"
	"github.com/turtacn/rcr/internal/domain/hypothesis"
)

// Outcome classifies one downstream of a scored hypothesis.
type Outcome int

const (
	NotSignificant Outcome = iota
	Correct
	Contra
	AmbiguousOutcome
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "Correct"
	case Contra:
		return "Contra"
	case AmbiguousOutcome:
		return "Ambiguous"
	default:
		return "Not significant"
	}
}

// Prediction partitions the state-changed downstreams of a hypothesis.
type Prediction struct {
	Correct   []*hypothesis.Downstream
	Contra    []*hypothesis.Downstream
	Ambiguous []*hypothesis.Downstream
}

// Observed returns the number of classified downstreams.
func (p *Prediction) Observed() int {
	if p == nil {
		return 0
	}
	return len(p.Correct) + len(p.Contra) + len(p.Ambiguous)
}

// Classify reports where d landed. Membership is by identity; a nil
// Prediction classifies everything as NotSignificant.
func (p *Prediction) Classify(d *hypothesis.Downstream) Outcome {
	if p == nil {
		return NotSignificant
	}
	switch {
	case contains(p.Correct, d):
		return Correct
	case contains(p.Contra, d):
		return Contra
	case contains(p.Ambiguous, d):
		return AmbiguousOutcome
	}
	return NotSignificant
}

// mirror swaps the correct and contra partitions.
func (p *Prediction) mirror() {
	p.Correct, p.Contra = p.Contra, p.Correct
}

func contains(ds []*hypothesis.Downstream, d *hypothesis.Downstream) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}

// ScoredHypothesis is a Hypothesis with its evaluation. Richness,
// Concordance and Observed are nil when the hypothesis had too few measured
// downstreams to score.
type ScoredHypothesis struct {
	Hypothesis *hypothesis.Hypothesis
	Direction  direction.Type
	Prediction *Prediction
	// Downstreams are the hypothesis downstreams whose node changed state.
	Downstreams []*hypothesis.Downstream
	Possible    int
	Observed    *int
	Richness    *float64
	Concordance *float64
}

// Correct returns the number of correct predictions.
func (s *ScoredHypothesis) Correct() int {
	if s.Prediction == nil {
		return 0
	}
	return len(s.Prediction.Correct)
}

// Contra returns the number of contradicted predictions.
func (s *ScoredHypothesis) Contra() int {
	if s.Prediction == nil {
		return 0
	}
	return len(s.Prediction.Contra)
}

// Ambiguous returns the number of ambiguous predictions.
func (s *ScoredHypothesis) Ambiguous() int {
	if s.Prediction == nil {
		return 0
	}
	return len(s.Prediction.Ambiguous)
}

// Scored reports whether richness and concordance were evaluated.
func (s *ScoredHypothesis) Scored() bool {
	return s.Richness != nil
}

// Label returns the hypothesis node label.
func (s *ScoredHypothesis) Label() string {
	return s.Hypothesis.Node.Label
}
