// Package filter models structured boolean filter expressions and their
// translation into the engine's native SQL predicate syntax.
//
// Filters arrive as expression trees, never as raw predicate strings; the
// translator is the only path from caller input to native syntax, and it
// escapes every literal it renders.
package filter

import (
	"errors"
)

// ErrUnsupportedFilter is returned when an operator is not valid for the
// referenced field's declared type, or the filter value is malformed.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Op is a comparison operator on a leaf condition.
type Op string

const (
	OpEq       Op = "=="
	OpNe       Op = "!="
	OpGt       Op = ">"
	OpGte      Op = ">="
	OpLt       Op = "<"
	OpLte      Op = "<="
	OpIn       Op = "in"
	OpContains Op = "contains"
)

// Logic is a boolean combinator on an internal node.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
	LogicNot Logic = "NOT"
)

// Expr is a node in a filter expression tree: either a comparison leaf
// (Field/Op/Value set) or a logic node (Logic/Children set).
type Expr struct {
	Logic    Logic
	Children []*Expr

	Field string
	Op    Op
	Value any
}

// Cmp creates a comparison leaf.
func Cmp(field string, op Op, value any) *Expr {
	return &Expr{Field: field, Op: op, Value: value}
}

// And combines expressions with AND.
func And(children ...*Expr) *Expr {
	return &Expr{Logic: LogicAnd, Children: children}
}

// Or combines expressions with OR.
func Or(children ...*Expr) *Expr {
	return &Expr{Logic: LogicOr, Children: children}
}

// Not negates its children. With multiple children it negates their
// conjunction: NOT (a AND b).
func Not(children ...*Expr) *Expr {
	return &Expr{Logic: LogicNot, Children: children}
}

// IsLeaf reports whether the node is a comparison.
func (e *Expr) IsLeaf() bool { return e.Logic == "" }
