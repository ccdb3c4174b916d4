package measurement

import (
	"fmt"
	"math"
	"strings"

	"github.com/turtacn/rcr/pkg/errors"
)

// Cutoffs decides whether a Measurement is a state change. In analyst
// selection mode only the analyst flag is consulted; in numeric mode each set
// threshold must be satisfied and an unset threshold constrains nothing.
type Cutoffs struct {
	analystSelection bool
	foldChange       *float64
	pValue           *float64
	abundance        *float64
}

// NewAnalystSelectionCutoffs returns Cutoffs in analyst selection mode.
func NewAnalystSelectionCutoffs() Cutoffs {
	return Cutoffs{analystSelection: true}
}

// NewNumericCutoffs returns Cutoffs in numeric mode. Any argument may be nil.
// Fold-change is compared by magnitude, p-value is a ceiling and abundance a
// floor.
func NewNumericCutoffs(foldChange, pValue, abundance *float64) (Cutoffs, error) {
	for name, v := range map[string]*float64{"fold change": foldChange, "p-value": pValue, "abundance": abundance} {
		if v != nil && math.IsNaN(*v) {
			return Cutoffs{}, errors.InvalidConfig(name + " cutoff must be a number")
		}
	}
	return Cutoffs{foldChange: foldChange, pValue: pValue, abundance: abundance}, nil
}

// AnalystSelection reports whether the cutoffs are in analyst selection mode.
func (c Cutoffs) AnalystSelection() bool { return c.analystSelection }

// Evaluate reports whether m passes. In numeric mode a measurement lacking a
// value for a set threshold fails that threshold.
func (c Cutoffs) Evaluate(m *Measurement) bool {
	if m == nil {
		return false
	}
	if c.analystSelection {
		return m.AnalystSelection()
	}
	if c.foldChange != nil && math.Abs(m.FoldChange()) < *c.foldChange {
		return false
	}
	if c.pValue != nil {
		p, ok := m.PValue()
		if !ok || p > *c.pValue {
			return false
		}
	}
	if c.abundance != nil {
		a, ok := m.Abundance()
		if !ok || a < *c.abundance {
			return false
		}
	}
	return true
}

func (c Cutoffs) String() string {
	if c.analystSelection {
		return "analyst-selection"
	}
	parts := []string{
		"fold-change=" + optString(c.foldChange),
		"p-value=" + optString(c.pValue),
		"abundance=" + optString(c.abundance),
	}
	return strings.Join(parts, " ")
}

func optString(v *float64) string {
	if v == nil {
		return "unset"
	}
	return fmt.Sprintf("%g", *v)
}
