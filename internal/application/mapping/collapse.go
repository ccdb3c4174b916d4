package mapping

import (
	"math"
	"sort"

	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
)

// CollapsingStrategy reduces the measurements mapped to one node to a single
// representative, or nil when no unique winner exists.
type CollapsingStrategy interface {
	Collapse(ms []*measurement.Measurement) *measurement.Measurement
}

// LowestStage selects the value compared by the "lowest" stage of the
// default cascade.
type LowestStage int

const (
	// LowestFoldChange compares the signed fold-change. This is the
	// historical behavior and the default.
	LowestFoldChange LowestStage = iota
	// LowestPValue compares the p-value; missing p-values rank last.
	LowestPValue
)

func (s LowestStage) String() string {
	if s == LowestPValue {
		return "p-value"
	}
	return "fold-change"
}

// DefaultCollapsingStrategy applies the deterministic tie-break cascade:
// analyst selection (optional), lowest stage, sign majority, highest
// absolute fold-change, highest abundance, then lowest term short form.
type DefaultCollapsingStrategy struct {
	respectAnalystSelection bool
	lowest                  LowestStage
	logger                  logging.Logger
}

// CollapseOption customises a DefaultCollapsingStrategy.
type CollapseOption func(*DefaultCollapsingStrategy)

// WithLowestStage selects the value compared by the lowest stage.
func WithLowestStage(stage LowestStage) CollapseOption {
	return func(s *DefaultCollapsingStrategy) { s.lowest = stage }
}

// WithCollapseLogger sets the logger.
func WithCollapseLogger(l logging.Logger) CollapseOption {
	return func(s *DefaultCollapsingStrategy) { s.logger = l }
}

// NewDefaultCollapsingStrategy returns the default cascade.
func NewDefaultCollapsingStrategy(respectAnalystSelection bool, opts ...CollapseOption) *DefaultCollapsingStrategy {
	s := &DefaultCollapsingStrategy{
		respectAnalystSelection: respectAnalystSelection,
		logger:                  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collapse implements CollapsingStrategy. Equal measurements in ms are
// treated as one.
func (s *DefaultCollapsingStrategy) Collapse(ms []*measurement.Measurement) *measurement.Measurement {
	working := measurement.NewSet(ms...).Items()
	switch len(working) {
	case 0:
		return nil
	case 1:
		return working[0]
	}

	if s.respectAnalystSelection {
		selected := filter(working, func(m *measurement.Measurement) bool { return m.AnalystSelection() })
		if len(selected) == 1 {
			return selected[0]
		}
		if len(selected) > 1 {
			working = selected
		}
	}

	working = lowest(working, s.lowestValue)
	if len(working) == 1 {
		return working[0]
	}

	positive := filter(working, func(m *measurement.Measurement) bool { return m.FoldChange() > 0 })
	negative := filter(working, func(m *measurement.Measurement) bool { return m.FoldChange() < 0 })
	if len(positive) > 0 && len(negative) > 0 {
		if len(positive) == len(negative) {
			// in the population but fails any rational cutoff
			return measurement.MustNew(positive[0].Term(), 0,
				measurement.WithPValue(1), measurement.WithAbundance(0))
		}
		if len(positive) > len(negative) {
			working = positive
		} else {
			working = negative
		}
	}

	working = highest(working, func(m *measurement.Measurement) float64 { return math.Abs(m.FoldChange()) })
	if len(working) == 1 {
		return working[0]
	}

	working = highest(working, func(m *measurement.Measurement) float64 {
		if a, ok := m.Abundance(); ok {
			return a
		}
		return math.Inf(-1)
	})
	if len(working) == 1 {
		return working[0]
	}

	return s.lowestReference(working)
}

func (s *DefaultCollapsingStrategy) lowestValue(m *measurement.Measurement) float64 {
	if s.lowest == LowestPValue {
		if p, ok := m.PValue(); ok {
			return p
		}
		return math.Inf(1)
	}
	return m.FoldChange()
}

func (s *DefaultCollapsingStrategy) lowestReference(ms []*measurement.Measurement) *measurement.Measurement {
	sorted := make([]*measurement.Measurement, len(ms))
	copy(sorted, ms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Term().ShortForm() < sorted[j].Term().ShortForm()
	})
	lowestID := sorted[0].Term().ShortForm()
	if len(sorted) > 1 && sorted[1].Term().ShortForm() == lowestID {
		s.logger.Warn("non-unique measurement id found", logging.String(logging.FieldMeasurement, lowestID))
		return nil
	}
	return sorted[0]
}

func filter(ms []*measurement.Measurement, keep func(*measurement.Measurement) bool) []*measurement.Measurement {
	var out []*measurement.Measurement
	for _, m := range ms {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// lowest keeps the members tied for the minimum of value.
func lowest(ms []*measurement.Measurement, value func(*measurement.Measurement) float64) []*measurement.Measurement {
	return highest(ms, func(m *measurement.Measurement) float64 { return -value(m) })
}

// highest keeps the members tied for the maximum of value. A strictly
// greater value clears the tie set; an equal value joins it.
func highest(ms []*measurement.Measurement, value func(*measurement.Measurement) float64) []*measurement.Measurement {
	var out []*measurement.Measurement
	var best float64
	for i, m := range ms {
		cur := value(m)
		if i == 0 || cur > best {
			out = out[:0]
			best = cur
		}
		if cur == best {
			out = append(out, m)
		}
	}
	return out
}
