package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/rcr/internal/domain/network"
	driver "github.com/turtacn/rcr/internal/infrastructure/database/neo4j"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

// Graph layout: every (:NetworkNode) carries the name of its network in
// `network`, plus `id`, `label`, `function`, `canonical_ids` (list of
// strings) and `terms` (list of "NS:value" strings). Edges are
// [:RELATES {relationship}] between nodes of the same network.
const (
	queryNodes = `
		MATCH (n:NetworkNode {network: $network})
		RETURN n.id AS id, n.label AS label, n.function AS function,
		       coalesce(n.canonical_ids, []) AS canonical_ids, coalesce(n.terms, []) AS terms
		ORDER BY n.id
	`
	queryEdges = `
		MATCH (s:NetworkNode {network: $network})-[r:RELATES]->(t:NetworkNode {network: $network})
		RETURN s.id AS source, t.id AS target, r.relationship AS relationship
		ORDER BY s.id, t.id
	`
)

type edgeRow struct {
	source, target string
	relationship   network.RelationshipType
}

type rows struct {
	nodes []network.Node
	edges []edgeRow
}

type neo4jNetworkRepo struct {
	driver driver.Reader
	log    logging.Logger
}

// NewNeo4jNetworkRepo returns a network.Loader backed by d.
func NewNeo4jNetworkRepo(d driver.Reader, log logging.Logger) network.Loader {
	return &neo4jNetworkRepo{
		driver: d,
		log:    log,
	}
}

// Load reads the named network into an in-memory snapshot. A network with
// no nodes is reported as not found.
func (r *neo4jNetworkRepo) Load(ctx context.Context, name string) (*network.Snapshot, error) {
	start := time.Now()
	params := map[string]any{"network": name}

	res, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, queryNodes, params)
		if err != nil {
			return nil, err
		}
		nodes, err := driver.CollectRecords(ctx, result, mapNode)
		if err != nil {
			return nil, err
		}
		result, err = tx.Run(ctx, queryEdges, params)
		if err != nil {
			return nil, err
		}
		edges, err := driver.CollectRecords(ctx, result, mapEdge)
		if err != nil {
			return nil, err
		}
		return &rows{nodes: nodes, edges: edges}, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to load network").WithDetail(name)
	}
	loaded := res.(*rows)
	if len(loaded.nodes) == 0 {
		return nil, errors.New(errors.ErrCodeNetworkNotFound, "network not found").WithDetail(name)
	}

	b := network.NewBuilder(name)
	for _, n := range loaded.nodes {
		if _, err := b.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range loaded.edges {
		if _, err := b.AddEdge(e.source, e.target, e.relationship); err != nil {
			return nil, err
		}
	}
	snap := b.Build()
	logging.LogOperationDuration(r.log, "load network", start,
		logging.String("network", name),
		logging.Int("nodes", snap.NodeCount()),
		logging.Int("edges", snap.EdgeCount()))
	return snap, nil
}

func mapNode(rec *neo4j.Record) (network.Node, error) {
	id, err := stringValue(rec, "id")
	if err != nil {
		return network.Node{}, err
	}
	label, _ := stringValue(rec, "label")
	fn, _ := stringValue(rec, "function")
	canonical, err := stringList(rec, "canonical_ids")
	if err != nil {
		return network.Node{}, err
	}
	terms, err := stringList(rec, "terms")
	if err != nil {
		return network.Node{}, err
	}
	n := network.Node{
		ID:           id,
		Label:        label,
		Function:     network.ParseFunctionType(fn),
		CanonicalIDs: canonical,
	}
	for _, t := range terms {
		ident, ok := network.ParseIdentifier(t)
		if !ok {
			return network.Node{}, errors.New(errors.ErrCodeSerialization, fmt.Sprintf("node %s has malformed term %q", id, t))
		}
		n.Identifiers = append(n.Identifiers, ident)
	}
	return n, nil
}

func mapEdge(rec *neo4j.Record) (edgeRow, error) {
	src, err := stringValue(rec, "source")
	if err != nil {
		return edgeRow{}, err
	}
	dst, err := stringValue(rec, "target")
	if err != nil {
		return edgeRow{}, err
	}
	rel, _ := stringValue(rec, "relationship")
	return edgeRow{source: src, target: dst, relationship: network.ParseRelationshipType(rel)}, nil
}

func stringValue(rec *neo4j.Record, key string) (string, error) {
	v, ok := rec.Get(key)
	if !ok {
		return "", errors.New(errors.ErrCodeSerialization, "missing column "+key)
	}
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.New(errors.ErrCodeSerialization, fmt.Sprintf("column %s is %T, want string", key, v))
	}
	return s, nil
}

func stringList(rec *neo4j.Record, key string) ([]string, error) {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeSerialization, fmt.Sprintf("column %s is %T, want list", key, v))
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeSerialization, fmt.Sprintf("column %s holds %T, want string", key, it))
		}
		out = append(out, s)
	}
	return out, nil
}
