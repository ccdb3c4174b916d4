package network

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/rcr/pkg/errors"
)

// Snapshot is an immutable in-memory causal network. It implements Graph and
// Lookup and is safe for concurrent reads.
type Snapshot struct {
	name        string
	nodes       []*Node
	byID        map[string]*Node
	out         map[*Node][]*Edge
	byCanonical map[FunctionType]map[string][]*Node
	byIdent     map[Identifier][]*Node
	edgeCount   int
}

// Name returns the network name.
func (s *Snapshot) Name() string { return s.name }

// NodeCount returns the number of nodes.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges.
func (s *Snapshot) EdgeCount() int { return s.edgeCount }

// Node returns the node with the given id.
func (s *Snapshot) Node(id string) (*Node, bool) {
	n, ok := s.byID[id]
	return n, ok
}

// Nodes returns nodes admitted by filter in insertion order.
func (s *Snapshot) Nodes(filter NodeFilter) []*Node {
	if filter == nil {
		out := make([]*Node, len(s.nodes))
		copy(out, s.nodes)
		return out
	}
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if filter(n) {
			out = append(out, n)
		}
	}
	return out
}

// ForwardEdges returns outgoing edges of n admitted by filter in insertion
// order.
func (s *Snapshot) ForwardEdges(n *Node, filter RelationshipFilter) []*Edge {
	edges := s.out[n]
	out := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		if filter.Allows(e.Relationship) {
			out = append(out, e)
		}
	}
	return out
}

// NodesByCanonicalID returns nodes of type fn carrying canonicalID.
func (s *Snapshot) NodesByCanonicalID(_ context.Context, fn FunctionType, canonicalID string) ([]*Node, error) {
	return copyNodes(s.byCanonical[fn][canonicalID]), nil
}

// NodesByNamespaceValue returns nodes carrying the identifier. The namespace
// is matched case-insensitively.
func (s *Snapshot) NodesByNamespaceValue(_ context.Context, namespace, value string) ([]*Node, error) {
	return copyNodes(s.byIdent[Identifier{Namespace: strings.ToUpper(namespace), Value: value}]), nil
}

func copyNodes(ns []*Node) []*Node {
	if len(ns) == 0 {
		return nil
	}
	out := make([]*Node, len(ns))
	copy(out, ns)
	return out
}

// Builder assembles a Snapshot. It is not safe for concurrent use.
type Builder struct {
	snap  *Snapshot
	built bool
}

// NewBuilder starts a Snapshot named name.
func NewBuilder(name string) *Builder {
	return &Builder{snap: &Snapshot{
		name:        name,
		byID:        make(map[string]*Node),
		out:         make(map[*Node][]*Edge),
		byCanonical: make(map[FunctionType]map[string][]*Node),
		byIdent:     make(map[Identifier][]*Node),
	}}
}

// AddNode copies n into the snapshot and returns the stored node.
func (b *Builder) AddNode(n Node) (*Node, error) {
	if b.built {
		return nil, errors.Internal("network: builder already used")
	}
	if n.ID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "network: node id must not be empty")
	}
	if _, dup := b.snap.byID[n.ID]; dup {
		return nil, errors.New(errors.ErrCodeValidation, fmt.Sprintf("network: duplicate node id %q", n.ID))
	}
	node := n
	node.CanonicalIDs = append([]string(nil), n.CanonicalIDs...)
	node.Identifiers = append([]Identifier(nil), n.Identifiers...)
	if node.Label == "" {
		node.Label = node.ID
	}
	s := b.snap
	s.nodes = append(s.nodes, &node)
	s.byID[node.ID] = &node
	if len(node.CanonicalIDs) > 0 {
		idx := s.byCanonical[node.Function]
		if idx == nil {
			idx = make(map[string][]*Node)
			s.byCanonical[node.Function] = idx
		}
		for _, id := range node.CanonicalIDs {
			idx[id] = append(idx[id], &node)
		}
	}
	for _, ident := range node.Identifiers {
		key := Identifier{Namespace: strings.ToUpper(ident.Namespace), Value: ident.Value}
		s.byIdent[key] = append(s.byIdent[key], &node)
	}
	return &node, nil
}

// AddEdge links two previously added nodes.
func (b *Builder) AddEdge(sourceID, targetID string, rel RelationshipType) (*Edge, error) {
	if b.built {
		return nil, errors.Internal("network: builder already used")
	}
	src, ok := b.snap.byID[sourceID]
	if !ok {
		return nil, errors.New(errors.ErrCodeValidation, fmt.Sprintf("network: unknown edge source %q", sourceID))
	}
	dst, ok := b.snap.byID[targetID]
	if !ok {
		return nil, errors.New(errors.ErrCodeValidation, fmt.Sprintf("network: unknown edge target %q", targetID))
	}
	e := &Edge{Source: src, Target: dst, Relationship: rel}
	b.snap.out[src] = append(b.snap.out[src], e)
	b.snap.edgeCount++
	return e, nil
}

// Build returns the Snapshot. The Builder cannot be used afterwards.
func (b *Builder) Build() *Snapshot {
	b.built = true
	return b.snap
}
