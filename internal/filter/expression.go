// Package filter compiles facet selections into backend-neutral filter
// expressions over course metadata.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"ut.ee/course-advisor/internal/course"
)

type Op string

const (
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// NoMatchValue is never written by the indexer; equality against it matches nothing.
const NoMatchValue = "__no_matching_value__"

// Expression is a conjunction, disjunction or leaf predicate. Leaves compare a
// metadata field against a string (OpEq) or a number (OpGte, OpLte).
type Expression struct {
	Op       Op
	Field    string
	Value    string
	Number   float64
	Operands []Expression
}

func Eq(field, value string) Expression {
	return Expression{Op: OpEq, Field: field, Value: value}
}

func Gte(field string, n float64) Expression {
	return Expression{Op: OpGte, Field: field, Number: n}
}

func Lte(field string, n float64) Expression {
	return Expression{Op: OpLte, Field: field, Number: n}
}

func And(operands ...Expression) Expression {
	return Expression{Op: OpAnd, Operands: operands}
}

func Or(operands ...Expression) Expression {
	return Expression{Op: OpOr, Operands: operands}
}

// Never returns a leaf on field that no stored record satisfies.
func Never(field string) Expression {
	return Eq(field, NoMatchValue)
}

// IsLeaf reports whether e is a single predicate.
func (e Expression) IsLeaf() bool {
	return e.Op == OpEq || e.Op == OpGte || e.Op == OpLte
}

// Match evaluates e against a metadata map the way an exact-equality vector
// store would. Numeric leaves parse the stored value as a decimal and fail on
// anything unparsable.
func (e Expression) Match(meta map[string]string) bool {
	switch e.Op {
	case OpAnd:
		for _, o := range e.Operands {
			if !o.Match(meta) {
				return false
			}
		}
		return true
	case OpOr:
		for _, o := range e.Operands {
			if o.Match(meta) {
				return true
			}
		}
		return false
	case OpEq:
		v, ok := meta[e.Field]
		return ok && v == e.Value
	case OpGte, OpLte:
		v, ok := course.ParseDecimal(meta[e.Field])
		if !ok {
			return false
		}
		if e.Op == OpGte {
			return v >= e.Number
		}
		return v <= e.Number
	default:
		return false
	}
}

// Leaves returns every leaf predicate in depth-first order.
func (e Expression) Leaves() []Expression {
	if e.IsLeaf() {
		return []Expression{e}
	}
	var out []Expression
	for _, o := range e.Operands {
		out = append(out, o.Leaves()...)
	}
	return out
}

func (e Expression) String() string {
	switch e.Op {
	case OpEq:
		return fmt.Sprintf("%s == %q", e.Field, e.Value)
	case OpGte:
		return fmt.Sprintf("%s >= %s", e.Field, strconv.FormatFloat(e.Number, 'f', -1, 64))
	case OpLte:
		return fmt.Sprintf("%s <= %s", e.Field, strconv.FormatFloat(e.Number, 'f', -1, 64))
	case OpAnd, OpOr:
		parts := make([]string, len(e.Operands))
		for i, o := range e.Operands {
			parts[i] = o.String()
		}
		return "(" + strings.Join(parts, " "+strings.ToUpper(string(e.Op))+" ") + ")"
	default:
		return "<invalid>"
	}
}
