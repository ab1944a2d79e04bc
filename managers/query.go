// Package managers turns composed queries into bound SQL trees and
// statements. A Query only records operators; binding happens when the
// query is translated, so a Query value can be shared and extended freely.
package managers

import (
	"errors"
	"strings"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/expr"
	"github.com/erymuzuan/motorent-sub003/nodes"
)

var (
	// ErrNoSource is returned when a query is translated without an entity.
	ErrNoSource = errors.New("no table is bound to the query")
	// ErrDistinctOrdering is returned when a distinct select would be
	// ordered by something it does not select. Project the ordering key
	// first, then apply Distinct.
	ErrDistinctOrdering = errors.New("a distinct query can only be ordered by selected columns")
)

type opKind int

const (
	opWhere opKind = iota
	opOrderBy
	opThenBy
	opSelect
	opDistinct
	opJoin
)

var opNames = [...]string{
	opWhere:    "Where",
	opOrderBy:  "OrderBy",
	opThenBy:   "ThenBy",
	opSelect:   "Select",
	opDistinct: "Distinct",
	opJoin:     "Join",
}

type operator struct {
	kind  opKind
	expr  expr.Expr
	desc  bool
	other *Query
	join  nodes.JoinKind
}

func (op operator) String() string {
	name := opNames[op.kind]
	if op.desc {
		name += "Descending"
	}
	switch op.kind {
	case opDistinct:
		return name + "()"
	case opJoin:
		on := ""
		if op.expr != nil {
			on = ", " + op.expr.String()
		}
		return name + "(" + op.join.String() + ", " + op.other.String() + on + ")"
	}
	return name + "(" + op.expr.String() + ")"
}

// Query is an immutable record of operators applied to an entity source.
// Every method returns a new Query and leaves the receiver untouched.
type Query struct {
	meta *entity.Meta
	ops  []operator
}

// From starts a query over the entity described by meta.
func From(meta *entity.Meta) *Query {
	return &Query{meta: meta}
}

// Meta returns the root entity of the query.
func (q *Query) Meta() *entity.Meta { return q.meta }

func (q *Query) with(op operator) *Query {
	ops := make([]operator, len(q.ops), len(q.ops)+1)
	copy(ops, q.ops)
	return &Query{meta: q.meta, ops: append(ops, op)}
}

// Where filters the query. Successive calls are ANDed together.
func (q *Query) Where(predicate expr.Expr) *Query {
	return q.with(operator{kind: opWhere, expr: predicate})
}

// OrderBy sorts by key, replacing any ordering established so far.
func (q *Query) OrderBy(key expr.Expr) *Query {
	return q.with(operator{kind: opOrderBy, expr: key})
}

// OrderByDescending is OrderBy in descending order.
func (q *Query) OrderByDescending(key expr.Expr) *Query {
	return q.with(operator{kind: opOrderBy, expr: key, desc: true})
}

// ThenBy adds a secondary sort key to the current ordering.
func (q *Query) ThenBy(key expr.Expr) *Query {
	return q.with(operator{kind: opThenBy, expr: key})
}

// ThenByDescending is ThenBy in descending order.
func (q *Query) ThenByDescending(key expr.Expr) *Query {
	return q.with(operator{kind: opThenBy, expr: key, desc: true})
}

// Select projects each row through projector, usually an expr.New.
// Operators applied afterwards see the projected fields as members of x.
func (q *Query) Select(projector expr.Expr) *Query {
	return q.with(operator{kind: opSelect, expr: projector})
}

// Distinct removes duplicate rows.
func (q *Query) Distinct() *Query {
	return q.with(operator{kind: opDistinct})
}

// Join combines the query with other. In the condition and in later
// operators, expr.P() is this query's row and expr.J() the other's.
// The condition must be nil for CrossJoin and CrossApply.
func (q *Query) Join(other *Query, kind nodes.JoinKind, on expr.Expr) *Query {
	return q.with(operator{kind: opJoin, other: other, join: kind, expr: on})
}

// String describes the query for logs and error messages.
func (q *Query) String() string {
	var sb strings.Builder
	if q.meta == nil {
		sb.WriteString("<none>")
	} else {
		sb.WriteString(q.meta.Schema + "." + q.meta.Name)
	}
	for _, op := range q.ops {
		sb.WriteString(".")
		sb.WriteString(op.String())
	}
	return sb.String()
}
