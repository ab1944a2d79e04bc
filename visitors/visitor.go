// Package visitors provides SQL dialect generators that walk the AST.
//
// A visitor accumulates state while it walks (bind parameters, indentation,
// column scopes, the first error), so one is built per statement and never
// shared between goroutines.
package visitors

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/nodes"
)

var (
	// ErrUnsupported is reported for a node or value with no SQL rule.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrUnresolvedPlaceholder is reported when a select list was never shaped.
	ErrUnresolvedPlaceholder = errors.New("unresolved projection placeholder")
)

// Option configures a visitor at construction time.
type Option func(*baseVisitor)

// WithParams enables parameterized query mode. When enabled, constant values
// are replaced with bind placeholders and collected for separate retrieval.
func WithParams() Option {
	return func(b *baseVisitor) {
		b.parameterize = true
	}
}

// WithoutParams inlines constants into the SQL text. This is the default
// for query text; statements carrying entity payloads use WithParams.
func WithoutParams() Option {
	return func(b *baseVisitor) {
		b.parameterize = false
	}
}

// WithIndent sets the string repeated once per nesting level in front of a
// nested select. The default is four spaces.
func WithIndent(s string) Option {
	return func(b *baseVisitor) {
		b.indent = s
	}
}

// Formatter is a dialect visitor. Err returns the first failure seen while
// walking; the text produced alongside a failure must be discarded.
type Formatter interface {
	nodes.Visitor
	nodes.Parameterizer
	Err() error
}

// baseVisitor implements the shared SQL generation logic used by all dialects.
// Dialect-specific visitors embed *baseVisitor and set the outer field to
// themselves, enabling correct virtual dispatch through the Visitor interface.
type baseVisitor struct {
	// outer is the concrete dialect visitor. All recursive Accept calls
	// go through outer so that dialect overrides are respected.
	outer nodes.Visitor

	// quoteIdent quotes a SQL identifier (table name, column name).
	quoteIdent func(string) string

	// escape escapes the body of a string literal.
	escape func(string) string

	// concat joins already rendered string operands.
	concat func(parts ...string) string

	// trueSQL and falseSQL are the boolean literals.
	trueSQL, falseSQL string

	// parameterize enables bind-parameter mode.
	parameterize bool

	// params accumulates bind parameter values during SQL generation.
	params []any

	// paramIndex tracks the next parameter number (1-based).
	paramIndex int

	// placeholder returns the bind placeholder for a given parameter index.
	placeholder func(int) string

	indent string
	depth  int

	// qualify holds one entry per select being rendered; true when its
	// source is a join and columns need their alias.
	qualify []bool

	err error
}

func newBase(outer nodes.Visitor, quoteIdent func(string) string) *baseVisitor {
	return &baseVisitor{
		outer:      outer,
		quoteIdent: quoteIdent,
		indent:     "    ",
		trueSQL:    "1",
		falseSQL:   "0",
		placeholder: func(_ int) string {
			return "?"
		},
	}
}

// applyOptions applies functional options to the baseVisitor.
func (b *baseVisitor) applyOptions(opts []Option) {
	for _, o := range opts {
		o(b)
	}
}

// Params returns the collected bind parameters from the last SQL generation.
func (b *baseVisitor) Params() []any {
	return b.params
}

// Reset clears collected parameters and the recorded error for reuse.
func (b *baseVisitor) Reset() {
	b.params = nil
	b.paramIndex = 0
	b.err = nil
}

// Err returns the first error recorded during the walk.
func (b *baseVisitor) Err() error {
	return b.err
}

func (b *baseVisitor) fail(err error) string {
	if b.err == nil {
		b.err = err
	}
	return ""
}

func (b *baseVisitor) unsupported(format string, args ...any) string {
	return b.fail(fmt.Errorf("%w: "+format, append([]any{ErrUnsupported}, args...)...))
}

func (b *baseVisitor) VisitTable(n *nodes.Table) string {
	if n.Schema == "" {
		return b.quoteIdent(n.Name)
	}
	return b.quoteIdent(n.Schema) + "." + b.quoteIdent(n.Name)
}

func (b *baseVisitor) VisitTableAlias(n *nodes.TableAlias) string {
	table := n.Relation.Accept(b.outer)
	if !b.qualifying() {
		return table
	}
	return table + " AS " + b.quoteIdent(n.AliasName)
}

func (b *baseVisitor) qualifying() bool {
	return len(b.qualify) > 0 && b.qualify[len(b.qualify)-1]
}

func (b *baseVisitor) VisitColumn(n *nodes.Column) string {
	if b.qualifying() && n.Alias != "" {
		return b.quoteIdent(n.Alias) + "." + b.quoteIdent(n.Name)
	}
	return b.quoteIdent(n.Name)
}

func (b *baseVisitor) VisitConstant(n *nodes.Constant) string {
	return b.literalToSQL(n.Value)
}

func (b *baseVisitor) literalToSQL(val any) string {
	// nil always renders as NULL keyword, never parameterized.
	if val == nil {
		return "NULL"
	}

	// In parameterize mode, emit a placeholder and collect the value.
	if b.parameterize {
		b.paramIndex++
		b.params = append(b.params, val)
		return b.placeholder(b.paramIndex)
	}

	switch v := val.(type) {
	case string:
		return b.quoteString(v)
	case bool:
		if v {
			return b.trueSQL
		}
		return b.falseSQL
	case time.Time:
		return b.quoteString(v.Format(entity.SortableLayout))
	case entity.Date:
		return b.quoteString(v.Format(entity.DateLayout))
	case entity.DateTimeOffset:
		return b.quoteString(v.Format(entity.DateTimeOffsetLayout))
	case decimal.Decimal:
		return v.String()
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		// Enums are stored and compared by name.
		if s, ok := val.(fmt.Stringer); ok {
			return b.quoteString(s.String())
		}
		if rv.CanInt() {
			return strconv.FormatInt(rv.Int(), 10)
		}
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.String:
		return b.quoteString(rv.String())
	case reflect.Bool:
		return b.literalToSQL(rv.Bool())
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	}
	return b.unsupported("literal of type %T", val)
}

func (b *baseVisitor) quoteString(s string) string {
	return "'" + b.escape(s) + "'"
}

func (b *baseVisitor) VisitUnary(n *nodes.Unary) string {
	switch n.Op {
	case nodes.OpNot:
		if in, ok := n.Operand.(*nodes.In); ok {
			flipped := *in
			flipped.Negate = !in.Negate
			return flipped.Accept(b.outer)
		}
		operand := n.Operand.Accept(b.outer)
		if isWrapped(n.Operand) {
			return "NOT " + operand
		}
		return "NOT (" + operand + ")"
	case nodes.OpNegate:
		return "-" + n.Operand.Accept(b.outer)
	}
	return b.unsupported("unary operator %d", n.Op)
}

// isWrapped reports whether the rendered node already carries its own
// parentheses.
func isWrapped(n nodes.Node) bool {
	switch t := n.(type) {
	case *nodes.Binary:
		return t.Op != nodes.OpConcat
	case *nodes.MethodCall:
		return true
	}
	return false
}

func (b *baseVisitor) VisitBinary(n *nodes.Binary) string {
	if n.Op == nodes.OpEq || n.Op == nodes.OpNe {
		if operand, ok := nullTest(n); ok {
			if n.Op == nodes.OpEq {
				return "(" + operand.Accept(b.outer) + " IS NULL)"
			}
			return "(" + operand.Accept(b.outer) + " IS NOT NULL)"
		}
	}

	left := n.Left.Accept(b.outer)
	right := n.Right.Accept(b.outer)
	if n.Op == nodes.OpConcat {
		return b.concat(left, right)
	}
	if int(n.Op) > int(nodes.OpConcat) {
		return b.unsupported("binary operator %d", n.Op)
	}
	return "(" + left + " " + n.Op.String() + " " + right + ")"
}

// nullTest returns the non-null operand of a comparison against NULL.
func nullTest(n *nodes.Binary) (nodes.Node, bool) {
	if isNull(n.Right) {
		return n.Left, true
	}
	if isNull(n.Left) {
		return n.Right, true
	}
	return nil, false
}

func isNull(n nodes.Node) bool {
	c, ok := n.(*nodes.Constant)
	return ok && c.Value == nil
}

func (b *baseVisitor) VisitMethodCall(n *nodes.MethodCall) string {
	if len(n.Args) != 1 {
		return b.unsupported("%s with %d arguments", n.Method, len(n.Args))
	}
	obj := n.Object.Accept(b.outer)
	arg := n.Args[0].Accept(b.outer)
	switch n.Method {
	case nodes.MethodStartsWith:
		return "(" + obj + " LIKE " + b.concat(arg, "'%'") + ")"
	case nodes.MethodEndsWith:
		return "(" + obj + " LIKE " + b.concat("'%'", arg) + ")"
	case nodes.MethodContains:
		return "(" + obj + " LIKE " + b.concat("'%'", arg, "'%'") + ")"
	case nodes.MethodEquals:
		return "(" + obj + " = " + arg + ")"
	}
	return b.unsupported("method %s", n.Method)
}

func (b *baseVisitor) VisitIn(n *nodes.In) string {
	// An empty list matches nothing, or everything when negated.
	if len(n.Values) == 0 {
		if n.Negate {
			return "(1 = 1)"
		}
		return "(1 = 0)"
	}
	expr := n.Expr.Accept(b.outer)
	vals := make([]string, len(n.Values))
	for i, v := range n.Values {
		vals[i] = v.Accept(b.outer)
	}
	keyword := "IN"
	if n.Negate {
		keyword = "NOT IN"
	}
	return expr + " " + keyword + " (" + strings.Join(vals, ",") + ")"
}

func (b *baseVisitor) VisitAggregate(n *nodes.Aggregate) string {
	var sb strings.Builder
	sb.WriteString(n.Func.String())
	sb.WriteString("(")
	if n.Distinct {
		sb.WriteString("DISTINCT ")
	}
	if n.Arg == nil {
		sb.WriteString("*")
	} else {
		sb.WriteString(n.Arg.Accept(b.outer))
	}
	sb.WriteString(")")
	return sb.String()
}

func (b *baseVisitor) VisitPlaceholder(n *nodes.Placeholder) string {
	return b.fail(fmt.Errorf("%w: %s on %s", ErrUnresolvedPlaceholder, nodes.PlaceholderName, n.Alias))
}

func (b *baseVisitor) VisitOrdering(n *nodes.Ordering) string {
	expr := n.Expr.Accept(b.outer)
	if n.Direction == nodes.Desc {
		expr += " DESC"
	}
	return expr
}

func (b *baseVisitor) VisitProjection(n *nodes.Projection) string {
	return n.Select.Accept(b.outer)
}

func (b *baseVisitor) VisitObject(_ *nodes.Object) string {
	return b.unsupported("object projector has no SQL form")
}

func (b *baseVisitor) VisitEntityProjector(_ *nodes.EntityProjector) string {
	return b.unsupported("entity projector has no SQL form")
}

func (b *baseVisitor) VisitSelect(n *nodes.Select) string {
	if len(n.Columns) == 0 {
		return b.unsupported("select %s has no columns", n.Alias)
	}
	_, isJoin := n.From.(*nodes.Join)
	b.qualify = append(b.qualify, isJoin)
	defer func() { b.qualify = b.qualify[:len(b.qualify)-1] }()

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if n.Distinct {
		sb.WriteString("DISTINCT ")
	}
	b.writeColumns(&sb, n.Columns)
	if n.From != nil {
		sb.WriteString(" FROM ")
		sb.WriteString(b.source(n.From))
	}
	b.writeNodeClause(&sb, " WHERE ", n.Where)
	b.writeClause(&sb, " GROUP BY ", n.GroupBy, ", ")
	if len(n.OrderBy) > 0 {
		orders := make([]nodes.Node, len(n.OrderBy))
		for i, o := range n.OrderBy {
			orders[i] = o
		}
		b.writeClause(&sb, " ORDER BY ", orders, ", ")
	}
	return sb.String()
}

func (b *baseVisitor) writeColumns(sb *strings.Builder, decls []nodes.ColumnDeclaration) {
	for i, d := range decls {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(d.Expr.Accept(b.outer))
		if c, ok := d.Expr.(*nodes.Column); ok && c.Name == d.Name {
			continue
		}
		if d.Name != "" {
			sb.WriteString(" AS ")
			sb.WriteString(b.quoteIdent(d.Name))
		}
	}
}

// source renders a FROM item. Nested selects are parenthesized and
// indented one level deeper than their parent.
func (b *baseVisitor) source(n nodes.Node) string {
	sel, ok := n.(*nodes.Select)
	if !ok {
		return n.Accept(b.outer)
	}
	if sel.Alias == "" {
		return b.unsupported("nested select without an alias")
	}
	b.depth++
	inner := sel.Accept(b.outer)
	b.depth--
	return "(\n" + strings.Repeat(b.indent, b.depth+1) + inner + "\n" +
		strings.Repeat(b.indent, b.depth) + ") AS " + b.quoteIdent(sel.Alias)
}

// writeClause writes "keyword item1 sep item2 sep ..." if items is non-empty.
func (b *baseVisitor) writeClause(sb *strings.Builder, keyword string, items []nodes.Node, sep string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(keyword)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(item.Accept(b.outer))
	}
}

// writeNodeClause writes "keyword node" if node is non-nil.
func (b *baseVisitor) writeNodeClause(sb *strings.Builder, keyword string, n nodes.Node) {
	if n != nil {
		sb.WriteString(keyword)
		sb.WriteString(n.Accept(b.outer))
	}
}

func (b *baseVisitor) VisitJoin(n *nodes.Join) string {
	var sb strings.Builder
	sb.WriteString(b.source(n.Left))
	sb.WriteString(" ")
	sb.WriteString(n.Kind.String())
	sb.WriteString(" ")
	sb.WriteString(b.source(n.Right))
	if n.On != nil {
		if n.Kind != nodes.InnerJoin {
			return b.unsupported("%s with a join condition", n.Kind)
		}
		sb.WriteString(" ON ")
		sb.WriteString(n.On.Accept(b.outer))
	}
	return sb.String()
}

// insert renders INSERT INTO ... VALUES with optional text before and after
// the VALUES list, where dialects hand back the generated key.
func (b *baseVisitor) insert(n *nodes.InsertStatement, beforeValues, afterValues string) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(n.Into.Accept(b.outer))
	if len(n.Columns) != len(n.Values) {
		return b.unsupported("insert with %d columns and %d values", len(n.Columns), len(n.Values))
	}
	cols := make([]string, len(n.Columns))
	for i, c := range n.Columns {
		cols[i] = b.quoteIdent(c)
	}
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ","))
	sb.WriteString(")")
	sb.WriteString(beforeValues)
	vals := make([]string, len(n.Values))
	for i, v := range n.Values {
		vals[i] = v.Accept(b.outer)
	}
	sb.WriteString(" VALUES (")
	sb.WriteString(strings.Join(vals, ","))
	sb.WriteString(")")
	sb.WriteString(afterValues)
	return sb.String()
}

// VisitInsertStatement renders a RETURNING clause; SQL Server and MySQL
// override it.
func (b *baseVisitor) VisitInsertStatement(n *nodes.InsertStatement) string {
	if n.Returning == "" {
		return b.insert(n, "", "")
	}
	return b.insert(n, "", " RETURNING "+b.quoteIdent(n.Returning))
}

func (b *baseVisitor) VisitUpdateStatement(n *nodes.UpdateStatement) string {
	b.qualify = append(b.qualify, false)
	defer func() { b.qualify = b.qualify[:len(b.qualify)-1] }()

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(n.Table.Accept(b.outer))
	if len(n.Assignments) == 0 {
		return b.unsupported("update without assignments")
	}
	sb.WriteString(" SET ")
	assigns := make([]string, len(n.Assignments))
	for i, a := range n.Assignments {
		assigns[i] = a.Accept(b.outer)
	}
	sb.WriteString(strings.Join(assigns, ","))
	b.writeNodeClause(&sb, " WHERE ", n.Where)
	return sb.String()
}

func (b *baseVisitor) VisitDeleteStatement(n *nodes.DeleteStatement) string {
	b.qualify = append(b.qualify, false)
	defer func() { b.qualify = b.qualify[:len(b.qualify)-1] }()

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(n.From.Accept(b.outer))
	b.writeNodeClause(&sb, " WHERE ", n.Where)
	return sb.String()
}

func (b *baseVisitor) VisitAssignment(n *nodes.Assignment) string {
	return b.quoteIdent(n.Column) + " = " + n.Value.Accept(b.outer)
}
