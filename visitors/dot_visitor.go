package visitors

import (
	"fmt"
	"strings"

	"github.com/erymuzuan/motorent-sub003/nodes"
)

// Color constants for DOT node categories.
const (
	colorTable      = "#6CA6CD" // blue: tables, aliases, selects
	colorColumn     = "#B0D4E8" // light blue: columns, placeholders
	colorComparison = "#FFB347" // orange: comparisons, predicates
	colorLogical    = "#FFEB80" // yellow: AND, OR, NOT
	colorLiteral    = "#D3D3D3" // grey: constants
	colorJoin       = "#77DD77" // green: joins
	colorOrdering   = "#CDA0E0" // purple: ordering
	colorStatement  = "#FF6961" // red: DML
	colorFunction   = "#87CEEB" // sky blue: aggregates, projectors
)

// dotNode represents a single node in the DOT graph.
type dotNode struct {
	id    string
	label string
	color string
}

// dotEdge represents a directed edge between two nodes in the DOT graph.
type dotEdge struct {
	from  string
	to    string
	label string
}

// DotVisitor walks the AST and produces Graphviz DOT output.
// It implements nodes.Visitor.
type DotVisitor struct {
	nextID    int
	nodes     []dotNode
	edges     []dotEdge
	parentID  string
	edgeLabel string
}

var _ nodes.Visitor = (*DotVisitor)(nil)

// NewDotVisitor creates a new DotVisitor ready to walk an AST.
func NewDotVisitor() *DotVisitor {
	return &DotVisitor{}
}

// Dot renders n as a complete DOT graph.
func Dot(n nodes.Node) string {
	dv := NewDotVisitor()
	n.Accept(dv)
	return dv.ToDot()
}

// addNode creates a new DOT node with the given label and color, returning its ID.
func (dv *DotVisitor) addNode(label, color string) string {
	id := fmt.Sprintf("n%d", dv.nextID)
	dv.nextID++
	dv.nodes = append(dv.nodes, dotNode{id: id, label: label, color: color})
	return id
}

// addEdge records a directed edge from one node to another.
func (dv *DotVisitor) addEdge(from, to, label string) {
	dv.edges = append(dv.edges, dotEdge{from: from, to: to, label: label})
}

// visitChild saves and restores the parent context, sets the edge label,
// and calls child.Accept to recursively visit the child node.
func (dv *DotVisitor) visitChild(parentID, label string, child nodes.Node) string {
	if child == nil {
		return ""
	}
	savedParent := dv.parentID
	savedLabel := dv.edgeLabel
	dv.parentID = parentID
	dv.edgeLabel = label
	result := child.Accept(dv)
	dv.parentID = savedParent
	dv.edgeLabel = savedLabel
	return result
}

// connectToParent adds an edge from the current parentID to nodeID if a parent exists.
func (dv *DotVisitor) connectToParent(nodeID string) {
	if dv.parentID != "" {
		dv.addEdge(dv.parentID, nodeID, dv.edgeLabel)
	}
}

// leaf adds a node without children.
func (dv *DotVisitor) leaf(label, color string) string {
	id := dv.addNode(label, color)
	dv.connectToParent(id)
	return id
}

// NodeCount returns the number of nodes accumulated so far.
func (dv *DotVisitor) NodeCount() int {
	return len(dv.nodes)
}

// ToDot generates the complete DOT graph text.
func (dv *DotVisitor) ToDot() string {
	var sb strings.Builder

	sb.WriteString("digraph AST {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	sb.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")

	for _, n := range dv.nodes {
		sb.WriteString(fmt.Sprintf("  %s [label=\"%s\", fillcolor=\"%s\"];\n",
			n.id, escapeLabel(n.label), n.color))
	}

	for _, e := range dv.edges {
		if e.label != "" {
			sb.WriteString(fmt.Sprintf("  %s -> %s [label=\"%s\"];\n", e.from, e.to, e.label))
		} else {
			sb.WriteString(fmt.Sprintf("  %s -> %s;\n", e.from, e.to))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// escapeLabel escapes double quotes in DOT labels.
// Backslash sequences like \n are intentional DOT line breaks and are preserved.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}

// --- Visitor interface implementation ---

func (dv *DotVisitor) VisitTable(n *nodes.Table) string {
	return dv.leaf("Table\\n"+n.String(), colorTable)
}

func (dv *DotVisitor) VisitTableAlias(n *nodes.TableAlias) string {
	id := dv.addNode("TableAlias\\n"+n.AliasName, colorTable)
	dv.connectToParent(id)
	dv.visitChild(id, "RELATION", n.Relation)
	return id
}

func (dv *DotVisitor) VisitSelect(n *nodes.Select) string {
	label := "Select\\n" + n.Alias
	if n.Distinct {
		label += "\\nDISTINCT"
	}
	id := dv.addNode(label, colorTable)
	dv.connectToParent(id)
	for _, d := range n.Columns {
		dv.visitChild(id, d.Name, d.Expr)
	}
	dv.visitChild(id, "FROM", n.From)
	dv.visitChild(id, "WHERE", n.Where)
	for i, g := range n.GroupBy {
		dv.visitChild(id, fmt.Sprintf("GROUP[%d]", i), g)
	}
	for i, o := range n.OrderBy {
		dv.visitChild(id, fmt.Sprintf("ORDER[%d]", i), o)
	}
	return id
}

func (dv *DotVisitor) VisitJoin(n *nodes.Join) string {
	id := dv.addNode(n.Kind.String(), colorJoin)
	dv.connectToParent(id)
	dv.visitChild(id, "LEFT", n.Left)
	dv.visitChild(id, "RIGHT", n.Right)
	dv.visitChild(id, "ON", n.On)
	return id
}

func (dv *DotVisitor) VisitColumn(n *nodes.Column) string {
	label := "Column\\n"
	if n.Alias != "" {
		label += n.Alias + "."
	}
	return dv.leaf(label+n.Name, colorColumn)
}

func (dv *DotVisitor) VisitConstant(n *nodes.Constant) string {
	return dv.leaf(fmt.Sprintf("Constant\\n%v", n.Value), colorLiteral)
}

func (dv *DotVisitor) VisitUnary(n *nodes.Unary) string {
	label := "NOT"
	if n.Op == nodes.OpNegate {
		label = "NEGATE"
	}
	id := dv.addNode(label, colorLogical)
	dv.connectToParent(id)
	dv.visitChild(id, "", n.Operand)
	return id
}

func (dv *DotVisitor) VisitBinary(n *nodes.Binary) string {
	color := colorComparison
	if n.Op == nodes.OpAnd || n.Op == nodes.OpOr {
		color = colorLogical
	}
	id := dv.addNode(n.Op.String(), color)
	dv.connectToParent(id)
	dv.visitChild(id, "LEFT", n.Left)
	dv.visitChild(id, "RIGHT", n.Right)
	return id
}

func (dv *DotVisitor) VisitMethodCall(n *nodes.MethodCall) string {
	id := dv.addNode(string(n.Method), colorComparison)
	dv.connectToParent(id)
	dv.visitChild(id, "OBJECT", n.Object)
	for i, a := range n.Args {
		dv.visitChild(id, fmt.Sprintf("ARG[%d]", i), a)
	}
	return id
}

func (dv *DotVisitor) VisitIn(n *nodes.In) string {
	label := "IN"
	if n.Negate {
		label = "NOT IN"
	}
	id := dv.addNode(label, colorComparison)
	dv.connectToParent(id)
	dv.visitChild(id, "EXPR", n.Expr)
	for i, v := range n.Values {
		dv.visitChild(id, fmt.Sprintf("VAL[%d]", i), v)
	}
	return id
}

func (dv *DotVisitor) VisitAggregate(n *nodes.Aggregate) string {
	label := n.Func.String()
	if n.Distinct {
		label += "\\nDISTINCT"
	}
	if n.Arg == nil {
		label += "(*)"
	}
	id := dv.addNode(label, colorFunction)
	dv.connectToParent(id)
	dv.visitChild(id, "ARG", n.Arg)
	return id
}

func (dv *DotVisitor) VisitPlaceholder(n *nodes.Placeholder) string {
	return dv.leaf("Placeholder\\n"+nodes.PlaceholderName+" on "+n.Alias, colorColumn)
}

func (dv *DotVisitor) VisitOrdering(n *nodes.Ordering) string {
	label := "ASC"
	if n.Direction == nodes.Desc {
		label = "DESC"
	}
	id := dv.addNode(label, colorOrdering)
	dv.connectToParent(id)
	dv.visitChild(id, "", n.Expr)
	return id
}

func (dv *DotVisitor) VisitProjection(n *nodes.Projection) string {
	id := dv.addNode("Projection", colorFunction)
	dv.connectToParent(id)
	dv.visitChild(id, "SELECT", n.Select)
	dv.visitChild(id, "PROJECTOR", n.Projector)
	return id
}

func (dv *DotVisitor) VisitObject(n *nodes.Object) string {
	id := dv.addNode("Object", colorFunction)
	dv.connectToParent(id)
	for _, f := range n.Fields {
		dv.visitChild(id, f.Name, f.Value)
	}
	return id
}

func (dv *DotVisitor) VisitEntityProjector(n *nodes.EntityProjector) string {
	id := dv.addNode("Entity", colorFunction)
	dv.connectToParent(id)
	dv.visitChild(id, "KEY", n.Key)
	dv.visitChild(id, "PAYLOAD", n.Payload)
	return id
}

func (dv *DotVisitor) VisitInsertStatement(n *nodes.InsertStatement) string {
	id := dv.addNode("INSERT", colorStatement)
	dv.connectToParent(id)
	dv.visitChild(id, "INTO", n.Into)
	for i, v := range n.Values {
		label := fmt.Sprintf("VAL[%d]", i)
		if i < len(n.Columns) {
			label = n.Columns[i]
		}
		dv.visitChild(id, label, v)
	}
	return id
}

func (dv *DotVisitor) VisitUpdateStatement(n *nodes.UpdateStatement) string {
	id := dv.addNode("UPDATE", colorStatement)
	dv.connectToParent(id)
	dv.visitChild(id, "TABLE", n.Table)
	for i, a := range n.Assignments {
		dv.visitChild(id, fmt.Sprintf("SET[%d]", i), a)
	}
	dv.visitChild(id, "WHERE", n.Where)
	return id
}

func (dv *DotVisitor) VisitDeleteStatement(n *nodes.DeleteStatement) string {
	id := dv.addNode("DELETE", colorStatement)
	dv.connectToParent(id)
	dv.visitChild(id, "FROM", n.From)
	dv.visitChild(id, "WHERE", n.Where)
	return id
}

func (dv *DotVisitor) VisitAssignment(n *nodes.Assignment) string {
	id := dv.addNode("Assign\\n"+n.Column, colorStatement)
	dv.connectToParent(id)
	dv.visitChild(id, "VALUE", n.Value)
	return id
}
