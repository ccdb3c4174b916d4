// Package analysis orchestrates one reverse causal reasoning run: hypothesis
// search, measurement mapping and scoring.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/rcr/internal/application/mapping"
	"github.com/turtacn/rcr/internal/application/scoring"
	"github.com/turtacn/rcr/internal/domain/hypothesis"
	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/domain/network"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

// ============================================================================
// Contracts
// ============================================================================

// Network is a causal network that can also resolve identifiers to nodes.
type Network interface {
	network.Graph
	network.Lookup
}

// Stage names reported to a Recorder.
const (
	StageFind  = "find"
	StageMap   = "map"
	StageScore = "score"
)

// Recorder receives run telemetry. It observes mapping and cutoff outcomes
// and the duration of each stage.
type Recorder interface {
	mapping.Observer
	scoring.StateChangeObserver
	ObserveStage(stage string, d time.Duration)
	ObserveHypotheses(found, scored int)
}

// ============================================================================
// DTOs
// ============================================================================

// Request describes one run.
type Request struct {
	RunID        string
	Network      Network
	Measurements []*measurement.Measurement
	Cutoffs      measurement.Cutoffs
	MaxDepth     int
	// SourceFilter restricts the hypothesis sources. Nil admits every node.
	SourceFilter network.NodeFilter
	// PopulationSize overrides the population derived from mapping.
	PopulationSize *int
	// Detail requests a Report.
	Detail bool
}

// Result is the outcome of a run.
type Result struct {
	RunID          string
	Hypotheses     []*hypothesis.Hypothesis
	Mapping        *mapping.Result
	Scoring        *scoring.Result
	PopulationSize int
	Report         *Report
	Duration       time.Duration
}

// Scored returns the scored hypotheses in search order.
func (r *Result) Scored() []*scoring.ScoredHypothesis {
	if r.Scoring == nil {
		return nil
	}
	return r.Scoring.Scored
}

// ============================================================================
// Pipeline
// ============================================================================

// Pipeline runs find -> map -> score.
type Pipeline struct {
	finder   *hypothesis.Finder
	mapper   *mapping.Service
	scorer   *scoring.Scorer
	recorder Recorder
	logger   logging.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithRecorder attaches telemetry.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline wires the three stages. All are required.
func NewPipeline(finder *hypothesis.Finder, mapper *mapping.Service, scorer *scoring.Scorer, opts ...Option) (*Pipeline, error) {
	if finder == nil || mapper == nil || scorer == nil {
		return nil, errors.New(errors.ErrCodeMissingCollaborator, "pipeline requires a finder, a mapper and a scorer")
	}
	p := &Pipeline{finder: finder, mapper: mapper, scorer: scorer, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes req.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Network == nil {
		return nil, errors.New(errors.ErrCodeMissingCollaborator, "run requires a network")
	}
	if req.PopulationSize != nil && *req.PopulationSize < 0 {
		return nil, errors.InvalidConfig(fmt.Sprintf("population size must not be negative, got %d", *req.PopulationSize))
	}
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}
	log := p.logger.With(logging.String(logging.FieldRunID, req.RunID))
	start := time.Now()
	res := &Result{RunID: req.RunID}

	var mapObs []mapping.Observer
	var scoreObs []scoring.StateChangeObserver
	if req.Detail {
		res.Report = NewReport()
		mapObs = append(mapObs, res.Report)
		scoreObs = append(scoreObs, res.Report)
	}
	if p.recorder != nil {
		mapObs = append(mapObs, p.recorder)
		scoreObs = append(scoreObs, p.recorder)
	}

	stage := time.Now()
	hyps, err := p.finder.FindAll(ctx, req.Network, req.MaxDepth, req.SourceFilter)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "hypothesis search failed")
	}
	p.observeStage(StageFind, stage)
	res.Hypotheses = hyps
	log.Info("hypotheses found", logging.Int("hypotheses", len(hyps)), logging.Int("max_depth", req.MaxDepth))

	stage = time.Now()
	mapped, err := p.mapper.Map(ctx, req.Network, hyps, req.Measurements, mapObs...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "measurement mapping failed")
	}
	p.observeStage(StageMap, stage)
	res.Mapping = mapped

	res.PopulationSize = mapped.PopulationSize
	if req.PopulationSize != nil {
		log.Info("population size overridden",
			logging.Int("derived", mapped.PopulationSize), logging.Int("override", *req.PopulationSize))
		res.PopulationSize = *req.PopulationSize
	}

	stage = time.Now()
	scored, err := p.scorer.Score(ctx, hyps, mapped.Mapped, req.Cutoffs, res.PopulationSize, scoreObs...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "scoring failed")
	}
	p.observeStage(StageScore, stage)
	res.Scoring = scored

	if p.recorder != nil {
		p.recorder.ObserveHypotheses(len(hyps), countScored(scored.Scored))
	}
	res.Duration = time.Since(start)
	logging.LogOperationDuration(log, "rcr run", start,
		logging.Int("mapped", len(mapped.Mapped)),
		logging.Int("population", res.PopulationSize),
		logging.Int("state_changes", len(scored.StateChanges)))
	return res, nil
}

func (p *Pipeline) observeStage(name string, start time.Time) {
	if p.recorder != nil {
		p.recorder.ObserveStage(name, time.Since(start))
	}
}

func countScored(shs []*scoring.ScoredHypothesis) int {
	n := 0
	for _, sh := range shs {
		if sh.Scored() {
			n++
		}
	}
	return n
}
