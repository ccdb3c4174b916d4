// Package hypothesis discovers upstream candidate nodes in a causal network
// together with the downstream expression changes they predict.
package hypothesis

import (
	"github.com/turtacn/rcr/internal/domain/direction"
	"github.com/turtacn/rcr/internal/domain/network"
)

// Downstream associates a network node with a direction. The node is fixed;
// the direction may be revised while paths are merged.
type Downstream struct {
	Node      *network.Node
	Direction direction.Type
}

// NewDownstream returns a Downstream for node and dir.
func NewDownstream(node *network.Node, dir direction.Type) *Downstream {
	return &Downstream{Node: node, Direction: dir}
}

// Hypothesis is an upstream candidate. Its own Direction is Up by convention
// and Depth is the search depth at which it was confirmed (2 for directly
// connected downstreams).
type Hypothesis struct {
	Downstream
	Depth       int
	Downstreams []*Downstream
}

// New returns a Hypothesis for node predicted Up at depth.
func New(node *network.Node, depth int) *Hypothesis {
	return &Hypothesis{
		Downstream: Downstream{Node: node, Direction: direction.Up},
		Depth:      depth,
	}
}

// DownstreamNodes returns the nodes of the hypothesis downstreams.
func (h *Hypothesis) DownstreamNodes() []*network.Node {
	nodes := make([]*network.Node, len(h.Downstreams))
	for i, d := range h.Downstreams {
		nodes[i] = d.Node
	}
	return nodes
}

// DownstreamFor returns the downstream of node, if any.
func (h *Hypothesis) DownstreamFor(node *network.Node) (*Downstream, bool) {
	for _, d := range h.Downstreams {
		if d.Node == node {
			return d, true
		}
	}
	return nil, false
}
