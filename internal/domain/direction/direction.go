// Package direction defines the directional signal carried by measurements,
// predicted downstream effects and scored hypotheses, together with the two
// pure combination rules used while traversing the causal network.
package direction

import (
	"fmt"
	"strings"
)

// Type is a closed directional value. The zero value is Unmeasured.
type Type int

// Numeric codes are part of the result file format.
const (
	Unmeasured Type = 0
	Up         Type = 1
	Down       Type = -1
	Ambiguous  Type = 3
)

// All lists every Type in declaration order.
var All = []Type{Up, Down, Ambiguous, Unmeasured}

// Code returns the numeric code written to result files.
func (t Type) Code() int {
	return int(t)
}

// Label returns the display label.
func (t Type) Label() string {
	switch t {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case Ambiguous:
		return "AMBIG"
	case Unmeasured:
		return "UNMEASURED"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

func (t Type) String() string {
	return t.Label()
}

// Valid reports whether t is one of the four declared values.
func (t Type) Valid() bool {
	switch t {
	case Up, Down, Ambiguous, Unmeasured:
		return true
	}
	return false
}

// Parse resolves a display label. An exact match wins; otherwise the first
// case-insensitive match is returned.
func Parse(s string) (Type, bool) {
	for _, t := range All {
		if t.Label() == s {
			return t, true
		}
	}
	for _, t := range All {
		if strings.EqualFold(t.Label(), s) {
			return t, true
		}
	}
	return Unmeasured, false
}

// FromCode resolves a numeric code.
func FromCode(code int) (Type, bool) {
	t := Type(code)
	if !t.Valid() {
		return Unmeasured, false
	}
	return t, true
}

// FromSign derives a direction from the sign of v. Both 0.0 and -0.0 are
// Unmeasured.
func FromSign(v float64) Type {
	switch {
	case v == 0:
		return Unmeasured
	case v > 0:
		return Up
	default:
		return Down
	}
}

// Evaluate is the symmetric combination used when a node is reached by more
// than one direct edge. Ambiguous absorbs everything, Unmeasured is the
// identity, and disagreement is Ambiguous.
func Evaluate(a, b Type) Type {
	switch {
	case a == Ambiguous || b == Ambiguous:
		return Ambiguous
	case a == Unmeasured:
		return b
	case b == Unmeasured:
		return a
	case a == b:
		return a
	default:
		return Ambiguous
	}
}

// Compound is the asymmetric combination used along multi-hop paths: the
// later operand b dominates whenever the operands differ.
func Compound(a, b Type) Type {
	switch {
	case a == Ambiguous || b == Ambiguous:
		return Ambiguous
	case a == Unmeasured:
		return b
	case b == Unmeasured:
		return b
	case a == b:
		return a
	default:
		return b
	}
}

// Evaluate is the method form of the package-level Evaluate.
func (t Type) Evaluate(other Type) Type { return Evaluate(t, other) }

// Compound is the method form of the package-level Compound.
func (t Type) Compound(other Type) Type { return Compound(t, other) }
