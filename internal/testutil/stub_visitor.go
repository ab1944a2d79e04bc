// Package testutil provides shared test helpers.
package testutil

import "github.com/erymuzuan/motorent-sub003/nodes"

// StubVisitor implements nodes.Visitor with minimal return values for testing.
// Methods return meaningful short strings to aid in test assertions.
type StubVisitor struct{}

var _ nodes.Visitor = StubVisitor{}

func (sv StubVisitor) VisitTable(n *nodes.Table) string           { return n.Name }
func (sv StubVisitor) VisitTableAlias(n *nodes.TableAlias) string { return n.AliasName }
func (sv StubVisitor) VisitSelect(n *nodes.Select) string         { return "select " + n.Alias }
func (sv StubVisitor) VisitJoin(n *nodes.Join) string             { return "join" }
func (sv StubVisitor) VisitColumn(n *nodes.Column) string         { return n.Alias + "." + n.Name }
func (sv StubVisitor) VisitConstant(n *nodes.Constant) string     { return "const" }
func (sv StubVisitor) VisitUnary(n *nodes.Unary) string           { return "unary" }
func (sv StubVisitor) VisitBinary(n *nodes.Binary) string {
	return n.Left.Accept(sv) + " " + n.Op.String() + " " + n.Right.Accept(sv)
}
func (sv StubVisitor) VisitMethodCall(n *nodes.MethodCall) string           { return string(n.Method) }
func (sv StubVisitor) VisitIn(n *nodes.In) string                           { return "in" }
func (sv StubVisitor) VisitAggregate(n *nodes.Aggregate) string             { return n.Func.String() }
func (sv StubVisitor) VisitPlaceholder(n *nodes.Placeholder) string         { return nodes.PlaceholderName }
func (sv StubVisitor) VisitOrdering(n *nodes.Ordering) string               { return "ordering" }
func (sv StubVisitor) VisitProjection(n *nodes.Projection) string           { return "projection" }
func (sv StubVisitor) VisitObject(n *nodes.Object) string                   { return "object" }
func (sv StubVisitor) VisitEntityProjector(n *nodes.EntityProjector) string { return "entity" }
func (sv StubVisitor) VisitInsertStatement(n *nodes.InsertStatement) string { return "insert" }
func (sv StubVisitor) VisitUpdateStatement(n *nodes.UpdateStatement) string { return "update" }
func (sv StubVisitor) VisitDeleteStatement(n *nodes.DeleteStatement) string { return "delete" }
func (sv StubVisitor) VisitAssignment(n *nodes.Assignment) string           { return "assign" }
