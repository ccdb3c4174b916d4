// Package network defines the causal network contracts consumed by the
// reasoning engine (nodes, typed forward edges, identifier lookups) and an
// immutable in-memory Snapshot implementing them.
package network

import (
	"context"
	"strings"
)

// FunctionType is the semantic type of a node.
type FunctionType string

const (
	FunctionRNAAbundance     FunctionType = "RNA_ABUNDANCE"
	FunctionProteinAbundance FunctionType = "PROTEIN_ABUNDANCE"
	FunctionGeneAbundance    FunctionType = "GENE_ABUNDANCE"
	FunctionAbundance        FunctionType = "ABUNDANCE"
	FunctionComplex          FunctionType = "COMPLEX_ABUNDANCE"
	FunctionBiologicalProc   FunctionType = "BIOLOGICAL_PROCESS"
	FunctionKinaseActivity   FunctionType = "KINASE_ACTIVITY"
	FunctionTranscriptional  FunctionType = "TRANSCRIPTIONAL_ACTIVITY"
)

// TerminalFunction is the measurable expression type at which traversal
// stops and records a downstream effect.
const TerminalFunction = FunctionRNAAbundance

// ParseFunctionType normalises a stored function name.
func ParseFunctionType(s string) FunctionType {
	return FunctionType(strings.ToUpper(strings.TrimSpace(s)))
}

// RelationshipType is the type of a directed edge.
type RelationshipType string

const (
	Increases           RelationshipType = "INCREASES"
	DirectlyIncreases   RelationshipType = "DIRECTLY_INCREASES"
	Decreases           RelationshipType = "DECREASES"
	DirectlyDecreases   RelationshipType = "DIRECTLY_DECREASES"
	RateLimitingStepOf  RelationshipType = "RATE_LIMITING_STEP_OF"
	PositiveCorrelation RelationshipType = "POSITIVE_CORRELATION"
	NegativeCorrelation RelationshipType = "NEGATIVE_CORRELATION"
	Association         RelationshipType = "ASSOCIATION"
	TranscribedTo       RelationshipType = "TRANSCRIBED_TO"
	TranslatedTo        RelationshipType = "TRANSLATED_TO"
	HasMember           RelationshipType = "HAS_MEMBER"
	HasComponent        RelationshipType = "HAS_COMPONENT"
)

// ParseRelationshipType normalises a stored relationship name. Unknown names
// are returned upper-cased and are never causal.
func ParseRelationshipType(s string) RelationshipType {
	return RelationshipType(strings.ToUpper(strings.TrimSpace(s)))
}

// IsIncreasing reports whether r is an increasing causal relationship.
func (r RelationshipType) IsIncreasing() bool {
	return r == Increases || r == DirectlyIncreases
}

// IsDecreasing reports whether r is a decreasing causal relationship.
func (r RelationshipType) IsDecreasing() bool {
	return r == Decreases || r == DirectlyDecreases
}

// RelationshipFilter selects edges by relationship type.
type RelationshipFilter map[RelationshipType]struct{}

// NewRelationshipFilter builds a filter admitting types.
func NewRelationshipFilter(types ...RelationshipType) RelationshipFilter {
	f := make(RelationshipFilter, len(types))
	for _, t := range types {
		f[t] = struct{}{}
	}
	return f
}

// Allows reports whether r passes the filter. A nil filter admits everything.
func (f RelationshipFilter) Allows(r RelationshipType) bool {
	if f == nil {
		return true
	}
	_, ok := f[r]
	return ok
}

// CausalRelationships is the allow-list followed by hypothesis search.
var CausalRelationships = NewRelationshipFilter(
	Increases, DirectlyIncreases, Decreases, DirectlyDecreases, RateLimitingStepOf,
)

// Identifier is a namespaced value naming a node, e.g. EG:207.
type Identifier struct {
	Namespace string
	Value     string
}

// ParseIdentifier splits "NS:value" at the first colon.
func ParseIdentifier(s string) (Identifier, bool) {
	ns, value, ok := strings.Cut(s, ":")
	if !ok || ns == "" || value == "" {
		return Identifier{}, false
	}
	return Identifier{Namespace: ns, Value: value}, true
}

func (id Identifier) String() string {
	return id.Namespace + ":" + id.Value
}

// Node is a vertex of the causal network. Nodes are compared by pointer
// within one Snapshot.
type Node struct {
	ID           string
	Label        string
	Function     FunctionType
	CanonicalIDs []string
	Identifiers  []Identifier
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.Label
}

// Edge is a directed, typed relationship.
type Edge struct {
	Source       *Node
	Target       *Node
	Relationship RelationshipType
}

// NodeFilter selects candidate nodes. A nil filter admits every node.
type NodeFilter func(*Node) bool

// Graph is the read-only view of a causal network used during search.
type Graph interface {
	Nodes(filter NodeFilter) []*Node
	ForwardEdges(n *Node, filter RelationshipFilter) []*Edge
}

// Lookup finds nodes for resolved or raw identifiers.
type Lookup interface {
	NodesByCanonicalID(ctx context.Context, fn FunctionType, canonicalID string) ([]*Node, error)
	NodesByNamespaceValue(ctx context.Context, namespace, value string) ([]*Node, error)
}

// EquivalenceResolver maps a namespaced value to its canonical identifier.
// found is false when the value has no equivalent.
type EquivalenceResolver interface {
	ResolveCanonicalID(ctx context.Context, namespace, value string) (id string, found bool, err error)
}

// Loader reads a named network into a Snapshot.
type Loader interface {
	Load(ctx context.Context, name string) (*Snapshot, error)
}
