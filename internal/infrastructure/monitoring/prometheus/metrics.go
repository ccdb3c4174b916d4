package prometheus

import (
	"time"

	"github.com/turtacn/rcr/internal/application/mapping"
	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/domain/network"
)

// Mapping outcome label values.
const (
	OutcomeUnmapped          = "unmapped"
	OutcomeLookupFailed      = "lookup_failed"
	OutcomeMultipleNodes     = "multiple_nodes"
	OutcomeNotInPopulation   = "not_in_population"
	OutcomeCollapseDiscarded = "collapse_discarded"
	OutcomeCollapseAmbiguous = "collapse_ambiguous"

	ResultStateChange   = "state_change"
	ResultFailedCutoffs = "failed_cutoffs"
)

// DefaultStageBuckets covers sub-second searches up to long scoring runs.
var DefaultStageBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}

// RunMetrics records one analysis run. It observes mapping and cutoff
// events and stage timings.
type RunMetrics struct {
	MappingOutcomes CounterVec
	PopulationNodes CounterVec
	StateChanges    CounterVec
	StageDuration   HistogramVec
	Hypotheses      GaugeVec
}

// NewRunMetrics registers the run metrics on collector.
func NewRunMetrics(collector MetricsCollector) *RunMetrics {
	return &RunMetrics{
		MappingOutcomes: collector.RegisterCounter("mapping_measurements_total",
			"Measurements by mapping outcome.", "outcome"),
		PopulationNodes: collector.RegisterCounter("population_nodes_total",
			"Resolved nodes inside the hypothesis population."),
		StateChanges: collector.RegisterCounter("state_changes_total",
			"Mapped measurements by cutoff result.", "result"),
		StageDuration: collector.RegisterHistogram("stage_duration_seconds",
			"Duration of each pipeline stage.", DefaultStageBuckets, "stage"),
		Hypotheses: collector.RegisterGauge("hypotheses",
			"Hypotheses found and scored in the run.", "kind"),
	}
}

var _ mapping.Observer = (*RunMetrics)(nil)

func (m *RunMetrics) Unmapped(*measurement.Measurement) {
	m.MappingOutcomes.WithLabelValues(OutcomeUnmapped).Inc()
}

func (m *RunMetrics) LookupFailed(*measurement.Measurement, error) {
	m.MappingOutcomes.WithLabelValues(OutcomeLookupFailed).Inc()
}

func (m *RunMetrics) MultipleNodes(*measurement.Measurement, []*network.Node) {
	m.MappingOutcomes.WithLabelValues(OutcomeMultipleNodes).Inc()
}

func (m *RunMetrics) NotInPopulation(_ *network.Node, ms []*measurement.Measurement) {
	m.MappingOutcomes.WithLabelValues(OutcomeNotInPopulation).Add(float64(len(ms)))
}

func (m *RunMetrics) InPopulation(*network.Node) {
	m.PopulationNodes.WithLabelValues().Inc()
}

func (m *RunMetrics) Collapsed(_ *network.Node, discarded []*measurement.Measurement, selected *measurement.Measurement) {
	if len(discarded) > 0 {
		m.MappingOutcomes.WithLabelValues(OutcomeCollapseDiscarded).Add(float64(len(discarded)))
	}
	if selected == nil {
		m.MappingOutcomes.WithLabelValues(OutcomeCollapseAmbiguous).Inc()
	}
}

func (m *RunMetrics) StateChange(*mapping.MappedMeasurement) {
	m.StateChanges.WithLabelValues(ResultStateChange).Inc()
}

func (m *RunMetrics) FailedCutoffs(*mapping.MappedMeasurement) {
	m.StateChanges.WithLabelValues(ResultFailedCutoffs).Inc()
}

func (m *RunMetrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *RunMetrics) ObserveHypotheses(found, scored int) {
	m.Hypotheses.WithLabelValues("found").Set(float64(found))
	m.Hypotheses.WithLabelValues("scored").Set(float64(scored))
}
