package hypothesis

import (
	"context"
	"fmt"
	"sort"

	"github.com/turtacn/rcr/internal/domain/direction"
	"github.com/turtacn/rcr/internal/domain/network"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

// MinDownstreams is the exclusive lower bound on distinct downstream
// expression nodes required to emit a hypothesis.
const MinDownstreams = 3

// Finder performs the bounded depth-first hypothesis search.
type Finder struct {
	logger        logging.Logger
	relationships network.RelationshipFilter
	terminal      network.FunctionType
}

// FinderOption customises a Finder.
type FinderOption func(*Finder)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) FinderOption {
	return func(f *Finder) { f.logger = l }
}

// WithRelationships replaces the causal relationship allow-list.
func WithRelationships(filter network.RelationshipFilter) FinderOption {
	return func(f *Finder) { f.relationships = filter }
}

// NewFinder returns a Finder following network.CausalRelationships and
// stopping at network.TerminalFunction nodes.
func NewFinder(opts ...FinderOption) *Finder {
	f := &Finder{
		logger:        logging.NewNopLogger(),
		relationships: network.CausalRelationships,
		terminal:      network.TerminalFunction,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FindAll searches every source node admitted by filter. For each source the
// depths d = 1 .. maxDepth-1 are tried in order and the first depth whose
// accumulator holds more than MinDownstreams nodes yields a Hypothesis at
// depth d+1. Sources that never reach the threshold yield nothing.
func (f *Finder) FindAll(ctx context.Context, g network.Graph, maxDepth int, filter network.NodeFilter) ([]*Hypothesis, error) {
	if g == nil {
		return nil, errors.New(errors.ErrCodeMissingCollaborator, "hypothesis finder requires a graph")
	}
	if maxDepth < 1 {
		return nil, errors.InvalidConfig(fmt.Sprintf("max depth must be positive, got %d", maxDepth))
	}

	var out []*Hypothesis
	acc := newAccumulator()
	for _, source := range g.Nodes(filter) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for d := 1; d < maxDepth; d++ {
			acc.reset()
			f.find(g, source, 1, d, acc)
			if acc.len() > MinDownstreams {
				out = append(out, acc.hypothesis(source, d+1))
				break
			}
		}
	}
	f.logger.Debug("hypothesis search complete",
		logging.Int("hypotheses", len(out)), logging.Int("max_depth", maxDepth))
	return out, nil
}

func (f *Finder) find(g network.Graph, source *network.Node, depth, limit int, acc *accumulator) {
	for _, e := range g.ForwardEdges(source, f.relationships) {
		target := e.Target
		dir := edgeDirection(e.Relationship)
		if target.Function == f.terminal {
			prev, seen := acc.get(target)
			switch {
			case !seen:
				acc.put(target, dir)
			case depth == 1:
				acc.put(target, direction.Evaluate(prev, dir))
			default:
				acc.put(target, direction.Compound(prev, dir))
			}
			continue
		}
		if depth < limit {
			f.find(g, target, depth+1, limit, acc)
		}
	}
}

func edgeDirection(r network.RelationshipType) direction.Type {
	switch {
	case r.IsIncreasing():
		return direction.Up
	case r.IsDecreasing():
		return direction.Down
	default:
		return direction.Ambiguous
	}
}

// accumulator maps reached terminal nodes to their merged direction.
type accumulator struct {
	dirs  map[*network.Node]direction.Type
	order []*network.Node
}

func newAccumulator() *accumulator {
	return &accumulator{dirs: make(map[*network.Node]direction.Type)}
}

func (a *accumulator) reset() {
	for k := range a.dirs {
		delete(a.dirs, k)
	}
	a.order = a.order[:0]
}

func (a *accumulator) get(n *network.Node) (direction.Type, bool) {
	d, ok := a.dirs[n]
	return d, ok
}

func (a *accumulator) put(n *network.Node, d direction.Type) {
	if _, ok := a.dirs[n]; !ok {
		a.order = append(a.order, n)
	}
	a.dirs[n] = d
}

func (a *accumulator) len() int { return len(a.dirs) }

// hypothesis builds a Hypothesis whose downstreams are ordered by node id.
func (a *accumulator) hypothesis(source *network.Node, depth int) *Hypothesis {
	h := New(source, depth)
	nodes := make([]*network.Node, len(a.order))
	copy(nodes, a.order)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	h.Downstreams = make([]*Downstream, len(nodes))
	for i, n := range nodes {
		h.Downstreams[i] = NewDownstream(n, a.dirs[n])
	}
	return h
}
