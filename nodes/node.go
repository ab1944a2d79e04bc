// Package nodes defines the AST node types a bound query is made of.
//
// Nodes are never mutated once a tree has been handed to a rewrite pass or a
// visitor. Passes build new nodes and share the unchanged subtrees, so a
// reference taken before a rewrite stays valid after it.
package nodes

// Node is the interface that all AST nodes implement.
type Node interface {
	Accept(visitor Visitor) string
}

// Visitor defines the interface for walking the AST and producing output.
// Adding a node kind adds a method here, so every visitor has to handle it.
type Visitor interface {
	VisitTable(node *Table) string
	VisitTableAlias(node *TableAlias) string
	VisitSelect(node *Select) string
	VisitJoin(node *Join) string
	VisitColumn(node *Column) string
	VisitConstant(node *Constant) string
	VisitUnary(node *Unary) string
	VisitBinary(node *Binary) string
	VisitMethodCall(node *MethodCall) string
	VisitIn(node *In) string
	VisitAggregate(node *Aggregate) string
	VisitPlaceholder(node *Placeholder) string
	VisitOrdering(node *Ordering) string
	VisitProjection(node *Projection) string
	VisitObject(node *Object) string
	VisitEntityProjector(node *EntityProjector) string
	VisitInsertStatement(node *InsertStatement) string
	VisitUpdateStatement(node *UpdateStatement) string
	VisitDeleteStatement(node *DeleteStatement) string
	VisitAssignment(node *Assignment) string
}

// Parameterizer is implemented by visitors that support parameterized queries.
// Callers use type assertion to extract collected parameters after SQL generation.
type Parameterizer interface {
	Params() []any
	Reset()
}
