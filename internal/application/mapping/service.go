// Package mapping resolves measurements to causal network nodes, derives the
// analysis population from hypothesis coverage and collapses each population
// node's measurements to a single representative.
package mapping

import (
	"context"

	"github.com/turtacn/rcr/internal/domain/direction"
	"github.com/turtacn/rcr/internal/domain/hypothesis"
	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/domain/network"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

// MinPopulationOverlap is the minimum number of resolved downstream nodes a
// hypothesis needs for those nodes to join the population.
const MinPopulationOverlap = 4

// progressInterval controls how often mapping progress is logged.
const progressInterval = 100

// MappedMeasurement pairs a population node with its selected measurement.
// Its Direction is the measurement's direction.
type MappedMeasurement struct {
	hypothesis.Downstream
	Measurement *measurement.Measurement
}

// NewMappedMeasurement returns a MappedMeasurement for node and m.
func NewMappedMeasurement(node *network.Node, m *measurement.Measurement) *MappedMeasurement {
	return &MappedMeasurement{
		Downstream:  hypothesis.Downstream{Node: node, Direction: m.Direction()},
		Measurement: m,
	}
}

// Stats summarises one mapping call.
type Stats struct {
	Measurements    int
	Unmapped        int
	LookupFailures  int
	MultipleNodes   int
	ResolvedNodes   int
	NotInPopulation int
	Ambiguous       int
}

// Result is the outcome of Map. No two Mapped entries share a node.
type Result struct {
	Mapped         []*MappedMeasurement
	PopulationSize int
	Stats          Stats
}

// Service maps measurements to network nodes.
type Service struct {
	strategy  CollapsingStrategy
	resolver  network.EquivalenceResolver
	observers Observers
	logger    logging.Logger
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithResolver sets the equivalence resolver. Without one, every measurement
// is looked up by namespace and value.
func WithResolver(r network.EquivalenceResolver) ServiceOption {
	return func(s *Service) { s.resolver = r }
}

// WithObserver attaches an observer notified on every Map call.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService returns a Service. strategy is required.
func NewService(strategy CollapsingStrategy, opts ...ServiceOption) (*Service, error) {
	if strategy == nil {
		return nil, errors.New(errors.ErrCodeMissingCollaborator, "mapping service requires a collapsing strategy")
	}
	s := &Service{strategy: strategy, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// nodeIndex keeps nodes in first-resolved order with their measurement sets.
type nodeIndex struct {
	order []*network.Node
	sets  map[*network.Node]*measurement.Set
}

func (ix *nodeIndex) add(n *network.Node, m *measurement.Measurement) {
	set, ok := ix.sets[n]
	if !ok {
		set = measurement.NewSet()
		ix.sets[n] = set
		ix.order = append(ix.order, n)
	}
	set.Add(m)
}

// Map resolves ms against lookup, computes the population from hyps and
// collapses each population node. Resolution problems are reported to
// observers and never abort the call; only a missing lookup or a cancelled
// context is an error.
func (s *Service) Map(ctx context.Context, lookup network.Lookup, hyps []*hypothesis.Hypothesis,
	ms []*measurement.Measurement, extra ...Observer) (*Result, error) {
	if lookup == nil {
		return nil, errors.New(errors.ErrCodeMissingCollaborator, "mapping service requires a node lookup")
	}
	obs := append(append(Observers{}, s.observers...), extra...)
	res := &Result{Stats: Stats{Measurements: len(ms)}}
	ix := &nodeIndex{sets: make(map[*network.Node]*measurement.Set)}

	for i, m := range ms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if (i+1)%progressInterval == 0 {
			s.logger.Debug("processing measurement", logging.Int("n", i+1), logging.Int("total", len(ms)))
		}

		nodes, err := s.resolve(ctx, lookup, m)
		if err != nil {
			s.logger.Warn("failed to obtain network nodes; ignoring",
				logging.String(logging.FieldMeasurement, m.Term().ShortForm()), logging.Err(err))
			res.Stats.LookupFailures++
			obs.LookupFailed(m, err)
			continue
		}
		if len(nodes) == 0 {
			res.Stats.Unmapped++
			obs.Unmapped(m)
			continue
		}
		if len(nodes) > 1 {
			s.logger.Info("found multiple network nodes",
				logging.String(logging.FieldMeasurement, m.Term().ShortForm()), logging.Int("nodes", len(nodes)))
			res.Stats.MultipleNodes++
			obs.MultipleNodes(m, nodes)
		}
		ix.add(nodes[0], m)
	}
	res.Stats.ResolvedNodes = len(ix.order)

	population := Population(ix.order, hyps)
	res.PopulationSize = len(population)

	for _, n := range ix.order {
		set := ix.sets[n]
		if _, ok := population[n]; !ok {
			res.Stats.NotInPopulation++
			obs.NotInPopulation(n, set.Items())
			continue
		}
		obs.InPopulation(n)

		selected := s.strategy.Collapse(set.Items())
		obs.Collapsed(n, set.Without(selected), selected)
		if selected == nil {
			res.Stats.Ambiguous++
			continue
		}
		res.Mapped = append(res.Mapped, NewMappedMeasurement(n, selected))
	}

	s.logger.Info("mapped measurements",
		logging.Int("measurements", len(ms)),
		logging.Int("mapped", len(res.Mapped)),
		logging.Int("unmapped", res.Stats.Unmapped),
		logging.Int("population", res.PopulationSize))
	return res, nil
}

// resolve prefers canonical-id lookup and falls back to namespace/value when
// the identifier has no equivalent or equivalencing failed.
func (s *Service) resolve(ctx context.Context, lookup network.Lookup, m *measurement.Measurement) ([]*network.Node, error) {
	term := m.Term()
	if s.resolver != nil {
		id, found, err := s.resolver.ResolveCanonicalID(ctx, term.Namespace, term.Value)
		if err != nil {
			s.logger.Warn("failed to equivalence; will attempt lookup by namespace and value",
				logging.String(logging.FieldMeasurement, term.ShortForm()), logging.Err(err))
		} else if found {
			return lookup.NodesByCanonicalID(ctx, network.TerminalFunction, id)
		}
	}
	return lookup.NodesByNamespaceValue(ctx, term.Namespace, term.Value)
}

// Population returns the union, over hyps, of each hypothesis's downstream
// nodes that are also in resolved, counting only hypotheses whose overlap
// has at least MinPopulationOverlap nodes.
func Population(resolved []*network.Node, hyps []*hypothesis.Hypothesis) map[*network.Node]struct{} {
	in := make(map[*network.Node]struct{}, len(resolved))
	for _, n := range resolved {
		in[n] = struct{}{}
	}
	population := make(map[*network.Node]struct{})
	for _, h := range hyps {
		overlap := make(map[*network.Node]struct{})
		for _, d := range h.Downstreams {
			if _, ok := in[d.Node]; ok {
				overlap[d.Node] = struct{}{}
			}
		}
		if len(overlap) >= MinPopulationOverlap {
			for n := range overlap {
				population[n] = struct{}{}
			}
		}
	}
	return population
}

// Directions returns the direction of each mapped node.
func (r *Result) Directions() map[*network.Node]direction.Type {
	out := make(map[*network.Node]direction.Type, len(r.Mapped))
	for _, mm := range r.Mapped {
		out[mm.Node] = mm.Direction
	}
	return out
}
