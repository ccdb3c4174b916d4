package mapping

import (
	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/domain/network"
)

// Observer receives mapping events. Implementations must not retain or
// modify the slices they are given beyond the call unless they copy them.
type Observer interface {
	// Unmapped is called when a measurement resolves to no node.
	Unmapped(m *measurement.Measurement)
	// LookupFailed is called when node lookup errored; the measurement is
	// skipped without being reported unmapped.
	LookupFailed(m *measurement.Measurement, err error)
	// MultipleNodes is called when a measurement resolves to more than one
	// node; only nodes[0] is used.
	MultipleNodes(m *measurement.Measurement, nodes []*network.Node)
	// NotInPopulation is called for a resolved node outside the population.
	NotInPopulation(node *network.Node, ms []*measurement.Measurement)
	// InPopulation is called for a resolved node inside the population.
	InPopulation(node *network.Node)
	// Collapsed is called after collapsing a population node. discarded
	// holds the measurements not selected; selected is nil when no unique
	// winner existed.
	Collapsed(node *network.Node, discarded []*measurement.Measurement, selected *measurement.Measurement)
}

// NopObserver implements Observer with no-ops. Embed it to implement a
// subset of the events.
type NopObserver struct{}

func (NopObserver) Unmapped(*measurement.Measurement)                                             {}
func (NopObserver) LookupFailed(*measurement.Measurement, error)                                  {}
func (NopObserver) MultipleNodes(*measurement.Measurement, []*network.Node)                       {}
func (NopObserver) NotInPopulation(*network.Node, []*measurement.Measurement)                     {}
func (NopObserver) InPopulation(*network.Node)                                                    {}
func (NopObserver) Collapsed(*network.Node, []*measurement.Measurement, *measurement.Measurement) {}

// Observers fans events out to each member in order.
type Observers []Observer

func (o Observers) Unmapped(m *measurement.Measurement) {
	for _, ob := range o {
		ob.Unmapped(m)
	}
}

func (o Observers) LookupFailed(m *measurement.Measurement, err error) {
	for _, ob := range o {
		ob.LookupFailed(m, err)
	}
}

func (o Observers) MultipleNodes(m *measurement.Measurement, nodes []*network.Node) {
	for _, ob := range o {
		ob.MultipleNodes(m, nodes)
	}
}

func (o Observers) NotInPopulation(node *network.Node, ms []*measurement.Measurement) {
	for _, ob := range o {
		ob.NotInPopulation(node, ms)
	}
}

func (o Observers) InPopulation(node *network.Node) {
	for _, ob := range o {
		ob.InPopulation(node)
	}
}

func (o Observers) Collapsed(node *network.Node, discarded []*measurement.Measurement, selected *measurement.Measurement) {
	for _, ob := range o {
		ob.Collapsed(node, discarded, selected)
	}
}
