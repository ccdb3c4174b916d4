// Package measurement models experimental observations: the term an
// observation is about, its signed fold-change and optional statistics, the
// named comparison grouping them, and the significance cutoffs that decide
// which observations count as state changes.
package measurement

import (
	"fmt"
	"math"
	"strings"

	"github.com/turtacn/rcr/internal/domain/direction"
	"github.com/turtacn/rcr/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Term
// ─────────────────────────────────────────────────────────────────────────────

// Term identifies the RNA abundance of a single namespaced entity, e.g. the
// Entrez Gene id 207 in namespace EG.
type Term struct {
	Namespace string
	Value     string
}

// ShortForm renders the canonical short form, e.g. r(EG:207). Values that are
// not plain identifiers are quoted.
func (t Term) ShortForm() string {
	return "r(" + t.Namespace + ":" + quoteValue(t.Value) + ")"
}

func (t Term) String() string {
	return t.ShortForm()
}

func quoteValue(v string) string {
	for _, r := range v {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
		}
	}
	return v
}

// ─────────────────────────────────────────────────────────────────────────────
// Measurement
// ─────────────────────────────────────────────────────────────────────────────

// Measurement is an immutable observation of one term. Its direction is
// derived from the sign of the fold-change.
type Measurement struct {
	id               string
	term             Term
	foldChange       float64
	pValue           *float64
	abundance        *float64
	analystSelection bool
	dir              direction.Type
}

// Option sets an optional field during construction.
type Option func(*Measurement)

// WithPValue sets the p-value.
func WithPValue(p float64) Option {
	return func(m *Measurement) { m.pValue = &p }
}

// WithAbundance sets the abundance.
func WithAbundance(a float64) Option {
	return func(m *Measurement) { m.abundance = &a }
}

// WithAnalystSelection sets the analyst-selection flag.
func WithAnalystSelection(selected bool) Option {
	return func(m *Measurement) { m.analystSelection = selected }
}

// WithID records the raw input identifier. It does not take part in equality.
func WithID(id string) Option {
	return func(m *Measurement) { m.id = id }
}

// New constructs a Measurement. The term value must be non-empty and the
// fold-change and any supplied optional values must not be NaN.
func New(term Term, foldChange float64, opts ...Option) (*Measurement, error) {
	if strings.TrimSpace(term.Value) == "" {
		return nil, errors.New(errors.ErrCodeInvalidMeasurement, "term must not be blank")
	}
	if math.IsNaN(foldChange) {
		return nil, errors.New(errors.ErrCodeInvalidMeasurement, "fold change must be a number").
			WithDetail(term.ShortForm())
	}
	m := &Measurement{term: term, foldChange: foldChange}
	for _, opt := range opts {
		opt(m)
	}
	if m.pValue != nil && math.IsNaN(*m.pValue) {
		return nil, errors.New(errors.ErrCodeInvalidMeasurement, "p-value must be a number").
			WithDetail(term.ShortForm())
	}
	if m.abundance != nil && math.IsNaN(*m.abundance) {
		return nil, errors.New(errors.ErrCodeInvalidMeasurement, "abundance must be a number").
			WithDetail(term.ShortForm())
	}
	m.dir = direction.FromSign(foldChange)
	return m, nil
}

// MustNew is New that panics on error. Intended for tests and literals.
func MustNew(term Term, foldChange float64, opts ...Option) *Measurement {
	m, err := New(term, foldChange, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// ID returns the raw input identifier, if one was recorded.
func (m *Measurement) ID() string { return m.id }

// Term returns the measured term.
func (m *Measurement) Term() Term { return m.term }

// FoldChange returns the signed fold-change.
func (m *Measurement) FoldChange() float64 { return m.foldChange }

// PValue returns the p-value and whether one was supplied.
func (m *Measurement) PValue() (float64, bool) {
	if m.pValue == nil {
		return 0, false
	}
	return *m.pValue, true
}

// Abundance returns the abundance and whether one was supplied.
func (m *Measurement) Abundance() (float64, bool) {
	if m.abundance == nil {
		return 0, false
	}
	return *m.abundance, true
}

// AnalystSelection reports the analyst-selection flag. Unset means false.
func (m *Measurement) AnalystSelection() bool { return m.analystSelection }

// Direction returns the direction derived from the fold-change sign.
func (m *Measurement) Direction() direction.Type { return m.dir }

// Key is the comparable identity of a Measurement. Two measurements with the
// same Key are equal.
type Key struct {
	Term             Term
	FoldChange       float64
	PValue           float64
	HasPValue        bool
	Abundance        float64
	HasAbundance     bool
	AnalystSelection bool
}

// Key returns the equality key over (term, fold-change, p-value, abundance,
// analyst selection).
func (m *Measurement) Key() Key {
	k := Key{Term: m.term, FoldChange: m.foldChange, AnalystSelection: m.analystSelection}
	k.PValue, k.HasPValue = m.PValue()
	k.Abundance, k.HasAbundance = m.Abundance()
	return k
}

// Equal reports value equality.
func (m *Measurement) Equal(other *Measurement) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Key() == other.Key()
}

func (m *Measurement) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s fc=%g", m.term.ShortForm(), m.foldChange)
	if p, ok := m.PValue(); ok {
		fmt.Fprintf(&sb, " p=%g", p)
	}
	if a, ok := m.Abundance(); ok {
		fmt.Fprintf(&sb, " a=%g", a)
	}
	if m.analystSelection {
		sb.WriteString(" selected")
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Set
// ─────────────────────────────────────────────────────────────────────────────

// Set is an insertion-ordered set of Measurements with value equality.
type Set struct {
	items []*Measurement
	index map[Key]struct{}
}

// NewSet builds a Set from ms, dropping duplicates.
func NewSet(ms ...*Measurement) *Set {
	s := &Set{index: make(map[Key]struct{}, len(ms))}
	for _, m := range ms {
		s.Add(m)
	}
	return s
}

// Add inserts m and reports whether it was new.
func (s *Set) Add(m *Measurement) bool {
	if s.index == nil {
		s.index = make(map[Key]struct{})
	}
	k := m.Key()
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = struct{}{}
	s.items = append(s.items, m)
	return true
}

// Contains reports whether a measurement equal to m is present.
func (s *Set) Contains(m *Measurement) bool {
	_, ok := s.index[m.Key()]
	return ok
}

// Len returns the number of distinct measurements.
func (s *Set) Len() int { return len(s.items) }

// Items returns the measurements in insertion order. The slice must not be
// modified.
func (s *Set) Items() []*Measurement { return s.items }

// Without returns the members not equal to m, in insertion order.
func (s *Set) Without(m *Measurement) []*Measurement {
	out := make([]*Measurement, 0, len(s.items))
	for _, it := range s.items {
		if m != nil && it.Equal(m) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Comparison
// ─────────────────────────────────────────────────────────────────────────────

// Comparison is a named, ordered collection of Measurements for one contrast.
type Comparison struct {
	name         string
	measurements []*Measurement
}

// NewComparison copies ms into a new Comparison.
func NewComparison(name string, ms []*Measurement) *Comparison {
	cp := make([]*Measurement, len(ms))
	copy(cp, ms)
	return &Comparison{name: name, measurements: cp}
}

// Name returns the comparison name.
func (c *Comparison) Name() string { return c.name }

// Measurements returns a copy of the measurements in input order.
func (c *Comparison) Measurements() []*Measurement {
	cp := make([]*Measurement, len(c.measurements))
	copy(cp, c.measurements)
	return cp
}

// Len returns the number of measurements.
func (c *Comparison) Len() int { return len(c.measurements) }

// SelectComparison picks the comparison to score. A single comparison is used
// as-is; otherwise name selects one case-insensitively.
func SelectComparison(comparisons []*Comparison, name string) (*Comparison, error) {
	if len(comparisons) == 0 {
		return nil, errors.New(errors.ErrCodeDataFile, "data file contains no comparisons")
	}
	if name == "" {
		if len(comparisons) == 1 {
			return comparisons[0], nil
		}
		return nil, errors.New(errors.ErrCodeComparisonNotFound, "multiple comparisons found; select one by name").
			WithDetail("available: " + strings.Join(comparisonNames(comparisons), ", "))
	}
	for _, c := range comparisons {
		if strings.EqualFold(c.name, name) {
			return c, nil
		}
	}
	return nil, errors.New(errors.ErrCodeComparisonNotFound, fmt.Sprintf("comparison %q not found", name)).
		WithDetail("available: " + strings.Join(comparisonNames(comparisons), ", "))
}

func comparisonNames(comparisons []*Comparison) []string {
	names := make([]string, len(comparisons))
	for i, c := range comparisons {
		names[i] = c.name
	}
	return names
}
