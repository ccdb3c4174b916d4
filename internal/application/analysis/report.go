package analysis

import (
	"github.com/turtacn/rcr/internal/application/mapping"
	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/domain/network"
)

// Status is the outcome recorded for one input measurement.
type Status int

const (
	StatusUnknown Status = iota
	StatusUnmapped
	StatusNotInPopulation
	StatusCollapsed
	StatusStateChange
	StatusFailedCutoffs
)

// Entry is the recorded outcome of a measurement. Node is the node the
// measurement resolved to, when known.
type Entry struct {
	Status Status
	Node   *network.Node
	// Target is the node label for collapse and population statuses.
	Target string
}

// Selected reports whether the measurement represented its node.
func (e Entry) Selected() bool {
	return e.Status == StatusStateChange || e.Status == StatusFailedCutoffs
}

// Report records per-measurement and per-node bookkeeping for the detail
// outputs. It implements mapping.Observer and scoring.StateChangeObserver and
// is not safe for concurrent use.
type Report struct {
	mapping.NopObserver

	entries      map[measurement.Key]Entry
	population   map[*network.Node]struct{}
	stateChanges map[*network.Node]*mapping.MappedMeasurement
	lookupErrors int
}

// NewReport returns an empty Report.
func NewReport() *Report {
	return &Report{
		entries:      make(map[measurement.Key]Entry),
		population:   make(map[*network.Node]struct{}),
		stateChanges: make(map[*network.Node]*mapping.MappedMeasurement),
	}
}

func (r *Report) set(m *measurement.Measurement, e Entry) {
	r.entries[m.Key()] = e
}

func (r *Report) Unmapped(m *measurement.Measurement) {
	r.set(m, Entry{Status: StatusUnmapped})
}

func (r *Report) LookupFailed(*measurement.Measurement, error) {
	r.lookupErrors++
}

func (r *Report) NotInPopulation(node *network.Node, ms []*measurement.Measurement) {
	for _, m := range ms {
		r.set(m, Entry{Status: StatusNotInPopulation, Node: node, Target: node.Label})
	}
}

func (r *Report) InPopulation(node *network.Node) {
	r.population[node] = struct{}{}
}

func (r *Report) Collapsed(node *network.Node, discarded []*measurement.Measurement, _ *measurement.Measurement) {
	for _, m := range discarded {
		r.set(m, Entry{Status: StatusCollapsed, Node: node, Target: node.Label})
	}
}

func (r *Report) StateChange(mm *mapping.MappedMeasurement) {
	r.stateChanges[mm.Node] = mm
	r.set(mm.Measurement, Entry{Status: StatusStateChange, Node: mm.Node})
}

func (r *Report) FailedCutoffs(mm *mapping.MappedMeasurement) {
	r.set(mm.Measurement, Entry{Status: StatusFailedCutoffs, Node: mm.Node})
}

// Entry returns the outcome recorded for m. Measurements skipped after a
// failed lookup have no entry.
func (r *Report) Entry(m *measurement.Measurement) (Entry, bool) {
	e, ok := r.entries[m.Key()]
	return e, ok
}

// InPopulationNode reports whether node was part of the population.
func (r *Report) InPopulationNode(node *network.Node) bool {
	_, ok := r.population[node]
	return ok
}

// StateChangeFor returns the state-change measurement mapped to node.
func (r *Report) StateChangeFor(node *network.Node) (*mapping.MappedMeasurement, bool) {
	mm, ok := r.stateChanges[node]
	return mm, ok
}

// LookupErrors returns the number of measurements skipped after a failed
// lookup.
func (r *Report) LookupErrors() int { return r.lookupErrors }
