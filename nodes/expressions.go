package nodes

import "github.com/erymuzuan/motorent-sub003/entity"

// Column references a column exposed by the source aliased Alias.
type Column struct {
	Alias string
	Name  string
	Type  entity.DataType
}

func (n *Column) Accept(v Visitor) string { return v.VisitColumn(n) }

// Constant is an inlined value. In parameterized mode it becomes a bind
// parameter instead.
type Constant struct {
	Value any
}

func (n *Constant) Accept(v Visitor) string { return v.VisitConstant(n) }

// Const wraps val as a Constant unless it is already a Node.
func Const(val any) Node {
	if n, ok := val.(Node); ok {
		return n
	}
	return &Constant{Value: val}
}

// UnaryOp identifies a unary operator.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNegate
)

// Unary applies Op to Operand.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

func (n *Unary) Accept(v Visitor) string { return v.VisitUnary(n) }

// BinaryOp identifies a binary operator.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpConcat
)

var binaryOpNames = [...]string{
	OpEq:     "=",
	OpNe:     "<>",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpAnd:    "AND",
	OpOr:     "OR",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpConcat: "CONCAT",
}

// String returns the SQL spelling of the operator.
func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// IsComparison reports whether op is one of the six comparisons.
func (op BinaryOp) IsComparison() bool { return op <= OpGe }

// Binary applies Op to Left and Right.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

func (n *Binary) Accept(v Visitor) string { return v.VisitBinary(n) }

// Method names a translated string method.
type Method string

const (
	MethodStartsWith Method = "StartsWith"
	MethodEndsWith   Method = "EndsWith"
	MethodContains   Method = "Contains"
	MethodEquals     Method = "Equals"
)

// MethodCall is a string method applied to Object.
type MethodCall struct {
	Method Method
	Object Node
	Args   []Node
}

func (n *MethodCall) Accept(v Visitor) string { return v.VisitMethodCall(n) }

// In is a membership test against a list of constants.
type In struct {
	Expr   Node
	Values []Node
	Negate bool
}

func (n *In) Accept(v Visitor) string { return v.VisitIn(n) }

// AggregateFunc identifies the aggregate function.
type AggregateFunc int

const (
	AggCount AggregateFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

var aggregateNames = [...]string{
	AggCount: "COUNT",
	AggSum:   "SUM",
	AggAvg:   "AVG",
	AggMin:   "MIN",
	AggMax:   "MAX",
}

func (f AggregateFunc) String() string {
	if int(f) < len(aggregateNames) {
		return aggregateNames[f]
	}
	return "?"
}

// Aggregate is an aggregate function call. Arg is nil for COUNT(*).
type Aggregate struct {
	Func     AggregateFunc
	Arg      Node
	Distinct bool
}

func (n *Aggregate) Accept(v Visitor) string { return v.VisitAggregate(n) }

// Count creates a COUNT aggregate. Pass nil for COUNT(*).
func Count(arg Node) *Aggregate { return &Aggregate{Func: AggCount, Arg: arg} }

// PlaceholderName is the declaration name of an unshaped select list.
const PlaceholderName = "Data"

// Placeholder stands for the columns an operation will ask for. It remembers
// the root entity source so a payload shape can be resolved later.
type Placeholder struct {
	Alias string
	Key   string
}

func (n *Placeholder) Accept(v Visitor) string { return v.VisitPlaceholder(n) }

// Eq creates an equality comparison (=).
func (n *Column) Eq(val any) *Binary { return &Binary{Op: OpEq, Left: n, Right: Const(val)} }

// NotEq creates an inequality comparison (<>).
func (n *Column) NotEq(val any) *Binary { return &Binary{Op: OpNe, Left: n, Right: Const(val)} }

// Gt creates a greater-than comparison.
func (n *Column) Gt(val any) *Binary { return &Binary{Op: OpGt, Left: n, Right: Const(val)} }

// Lt creates a less-than comparison.
func (n *Column) Lt(val any) *Binary { return &Binary{Op: OpLt, Left: n, Right: Const(val)} }

// IsNull compares the column with NULL.
func (n *Column) IsNull() *Binary { return &Binary{Op: OpEq, Left: n, Right: &Constant{}} }

// In creates a membership test.
func (n *Column) In(vals ...any) *In {
	out := &In{Expr: n, Values: make([]Node, len(vals))}
	for i, v := range vals {
		out.Values[i] = Const(v)
	}
	return out
}

// Asc creates an ascending ordering on the column.
func (n *Column) Asc() *Ordering { return &Ordering{Expr: n} }

// Desc creates a descending ordering on the column.
func (n *Column) Desc() *Ordering { return &Ordering{Expr: n, Direction: Desc} }
