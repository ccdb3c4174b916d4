package scoring

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/rcr/internal/application/mapping"
	"github.com/turtacn/rcr/internal/domain/direction"
	"github.com/turtacn/rcr/internal/domain/hypothesis"
	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/domain/network"
	"github.com/turtacn/rcr/internal/domain/stats"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

// MinPossibles is the minimum number of measured downstreams a hypothesis
// needs to be scored.
const MinPossibles = 4

// StateChangeObserver is told how each mapped measurement fared against the
// cutoffs.
type StateChangeObserver interface {
	StateChange(mm *mapping.MappedMeasurement)
	FailedCutoffs(mm *mapping.MappedMeasurement)
}

// Result is the outcome of Score.
type Result struct {
	// Scored is in the order of the input hypotheses.
	Scored       []*ScoredHypothesis
	StateChanges map[*network.Node]*mapping.MappedMeasurement
	Measured     int
}

// Scorer computes richness and concordance for hypotheses.
type Scorer struct {
	logger  logging.Logger
	library *stats.Library
	workers int
}

// ScorerOption customises a Scorer.
type ScorerOption func(*Scorer)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) ScorerOption {
	return func(s *Scorer) { s.logger = l }
}

// WithWorkers bounds the number of hypotheses scored concurrently. Values
// below 1 select GOMAXPROCS.
func WithWorkers(n int) ScorerOption {
	return func(s *Scorer) { s.workers = n }
}

// WithLibrary sets the statistics library.
func WithLibrary(lib *stats.Library) ScorerOption {
	return func(s *Scorer) { s.library = lib }
}

// NewScorer returns a Scorer.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.library == nil {
		s.library = stats.Default()
	}
	if s.workers < 1 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Score evaluates every hypothesis against mapped. The state-change map is
// built first and sequentially; hypotheses are then scored in parallel over
// read-only inputs.
func (s *Scorer) Score(ctx context.Context, hyps []*hypothesis.Hypothesis, mapped []*mapping.MappedMeasurement,
	cutoffs measurement.Cutoffs, populationSize int, obs ...StateChangeObserver) (*Result, error) {
	if err := checkPreconditions(hyps, mapped, populationSize); err != nil {
		return nil, err
	}

	measured := make(map[*network.Node]struct{}, len(mapped))
	stateChanges := make(map[*network.Node]*mapping.MappedMeasurement)
	for _, mm := range mapped {
		measured[mm.Node] = struct{}{}
		if cutoffs.Evaluate(mm.Measurement) {
			stateChanges[mm.Node] = mm
			for _, o := range obs {
				o.StateChange(mm)
			}
		} else {
			for _, o := range obs {
				o.FailedCutoffs(mm)
			}
		}
	}
	s.logger.Info(fmt.Sprintf("%d mapped measurements are state changes", len(stateChanges)),
		logging.Int("mapped", len(mapped)), logging.String("cutoffs", cutoffs.String()))

	in := &inputs{measured: measured, stateChanges: stateChanges, populationSize: populationSize}
	out := make([]*ScoredHypothesis, len(hyps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, h := range hyps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.scoreOne(h, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{Scored: out, StateChanges: stateChanges, Measured: len(measured)}, nil
}

type inputs struct {
	measured       map[*network.Node]struct{}
	stateChanges   map[*network.Node]*mapping.MappedMeasurement
	populationSize int
}

func (s *Scorer) scoreOne(h *hypothesis.Hypothesis, in *inputs) *ScoredHypothesis {
	sh := &ScoredHypothesis{Hypothesis: h, Direction: h.Direction}
	for _, d := range h.Downstreams {
		if _, ok := in.measured[d.Node]; ok {
			sh.Possible++
		}
		if _, ok := in.stateChanges[d.Node]; ok {
			sh.Downstreams = append(sh.Downstreams, d)
		}
	}

	if sh.Possible < MinPossibles {
		s.logger.Debug("hypothesis discarded",
			logging.String(logging.FieldNodeID, h.Node.Label), logging.Int("possible", sh.Possible))
		sh.Direction = direction.Unmeasured
		return sh
	}

	p := predict(sh.Downstreams, in.stateChanges)
	if len(p.Contra) > len(p.Correct) {
		sh.Direction = direction.Down
		p.mirror()
	}
	sh.Prediction = p

	observed := p.Observed()
	sh.Observed = &observed

	richness, err := s.library.Richness(observed, sh.Possible, len(in.stateChanges), in.populationSize)
	if err != nil {
		s.logger.Debug("richness evaluation failed; using 1.0",
			logging.String(logging.FieldNodeID, h.Node.Label), logging.Err(err))
		richness = 1.0
	}
	sh.Richness = &richness

	concordance := 1.0
	if correct := len(p.Correct); correct > 0 {
		c, err := stats.Concordance(correct, len(p.Contra))
		if err != nil {
			s.logger.Debug("concordance evaluation failed; using 1.0",
				logging.String(logging.FieldNodeID, h.Node.Label), logging.Err(err))
		} else {
			concordance = c
		}
	} else {
		sh.Direction = direction.Unmeasured
	}
	sh.Concordance = &concordance
	return sh
}

// predict classifies each state-changed downstream against the sign of its
// measured fold-change, assuming the hypothesis is Up.
func predict(ds []*hypothesis.Downstream, stateChanges map[*network.Node]*mapping.MappedMeasurement) *Prediction {
	p := &Prediction{}
	for _, d := range ds {
		mm := stateChanges[d.Node]
		negative := mm.Measurement.FoldChange() < 0
		switch {
		case d.Direction == direction.Ambiguous:
			p.Ambiguous = append(p.Ambiguous, d)
		case d.Direction == direction.Up && negative:
			p.Contra = append(p.Contra, d)
		case d.Direction == direction.Up:
			p.Correct = append(p.Correct, d)
		case negative:
			p.Correct = append(p.Correct, d)
		default:
			p.Contra = append(p.Contra, d)
		}
	}
	return p
}

func checkPreconditions(hyps []*hypothesis.Hypothesis, mapped []*mapping.MappedMeasurement, populationSize int) error {
	if populationSize < 0 {
		return errors.New(errors.ErrCodeScoringPrecondition,
			fmt.Sprintf("population size must not be negative, got %d", populationSize))
	}
	for i, h := range hyps {
		if h == nil || h.Node == nil {
			return errors.New(errors.ErrCodeScoringPrecondition, fmt.Sprintf("hypothesis %d is nil", i))
		}
		if h.Downstreams == nil {
			return errors.New(errors.ErrCodeScoringPrecondition,
				fmt.Sprintf("hypothesis %s has no downstreams", h.Node.Label))
		}
	}
	for i, mm := range mapped {
		if mm == nil || mm.Node == nil || mm.Measurement == nil {
			return errors.New(errors.ErrCodeScoringPrecondition, fmt.Sprintf("mapped measurement %d is incomplete", i))
		}
	}
	return nil
}
