// Package netfile loads causal networks from YAML files, one file per
// network, named <network>.yaml in a directory.
//
//	nodes:
//	  - id: p1
//	    label: p(HGNC:AKT1)
//	    function: PROTEIN_ABUNDANCE
//	    terms: [HGNC:AKT1]
//	  - id: r1
//	    function: RNA_ABUNDANCE
//	    canonical_ids: [uuid-207]
//	    terms: [EG:207]
//	edges:
//	  - {source: p1, target: r1, relationship: increases}
package netfile

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/rcr/internal/domain/network"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

type document struct {
	Nodes []nodeDoc `yaml:"nodes"`
	Edges []edgeDoc `yaml:"edges"`
}

type nodeDoc struct {
	ID           string   `yaml:"id"`
	Label        string   `yaml:"label"`
	Function     string   `yaml:"function"`
	CanonicalIDs []string `yaml:"canonical_ids"`
	Terms        []string `yaml:"terms"`
}

type edgeDoc struct {
	Source       string `yaml:"source"`
	Target       string `yaml:"target"`
	Relationship string `yaml:"relationship"`
}

// Loader implements network.Loader over a directory.
type Loader struct {
	dir    string
	logger logging.Logger
}

var _ network.Loader = (*Loader)(nil)

// NewLoader reads networks from dir.
func NewLoader(dir string, log logging.Logger) *Loader {
	return &Loader{dir: dir, logger: logging.OrDefault(log)}
}

// Load reads <dir>/<name>.yaml, falling back to <name>.yml.
func (l *Loader) Load(ctx context.Context, name string) (*network.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || name != filepath.Base(name) {
		return nil, errors.InvalidParam(fmt.Sprintf("invalid network name %q", name))
	}
	start := time.Now()

	f, path, err := l.open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := Decode(name, f)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to read network file").WithDetail(path)
	}
	logging.LogOperationDuration(l.logger, "load network", start,
		logging.String("network", name),
		logging.String("path", path),
		logging.Int("nodes", snap.NodeCount()),
		logging.Int("edges", snap.EdgeCount()))
	return snap, nil
}

func (l *Loader) open(name string) (*os.File, string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(l.dir, name+ext)
		f, err := os.Open(path)
		if err == nil {
			return f, path, nil
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, path, errors.Wrap(err, errors.ErrCodeDataFile, "failed to open network file").WithDetail(path)
		}
	}
	return nil, "", errors.New(errors.ErrCodeNetworkNotFound, "network not found").WithDetail(name)
}

// Decode builds a snapshot named name from a YAML document. Unknown keys
// are rejected.
func Decode(name string, r io.Reader) (*network.Snapshot, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "invalid network yaml")
	}
	if len(doc.Nodes) == 0 {
		return nil, errors.New(errors.ErrCodeNetworkNotFound, "network has no nodes").WithDetail(name)
	}

	b := network.NewBuilder(name)
	for _, nd := range doc.Nodes {
		n := network.Node{
			ID:           nd.ID,
			Label:        nd.Label,
			Function:     network.ParseFunctionType(nd.Function),
			CanonicalIDs: nd.CanonicalIDs,
		}
		for _, t := range nd.Terms {
			ident, ok := network.ParseIdentifier(t)
			if !ok {
				return nil, errors.New(errors.ErrCodeSerialization, fmt.Sprintf("node %s has malformed term %q", nd.ID, t))
			}
			n.Identifiers = append(n.Identifiers, ident)
		}
		if _, err := b.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, ed := range doc.Edges {
		if _, err := b.AddEdge(ed.Source, ed.Target, network.ParseRelationshipType(ed.Relationship)); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
