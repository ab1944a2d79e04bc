// Package expr defines the caller-side expression graph that queries are
// built from. It plays the role of a lambda body: member accesses on a
// parameter describe entity fields, everything else is either a constant,
// a captured value, or an operator over those.
//
// Expr is a sealed interface. Only types in this package implement it, so
// the binder and the partial evaluator can switch over every variant.
package expr

import (
	"fmt"
	"strings"
)

// Expr is a node of the caller-side expression graph.
type Expr interface {
	fmt.Stringer
	exprNode()
}

// Param is the free variable of a query expression. The default parameter
// "x" stands for the queried entity; "j" stands for the join partner.
type Param struct {
	Name string
}

// Member is a field access on Target.
type Member struct {
	Target Expr
	Name   string
}

// Constant is a value known when the expression was built.
type Constant struct {
	Value any
}

// Capture is a value that is only known when the expression is folded,
// the equivalent of a closure over a local variable.
type Capture struct {
	Name string
	Fn   func() (any, error)
}

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
)

var binaryOpText = [...]string{
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "&&",
	OpOr:  "||",
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// IsComparison reports whether op compares its operands.
func (op BinaryOp) IsComparison() bool {
	return op <= OpGe
}

// Binary applies Op to Left and Right.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryOp identifies a unary operator.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNegate
)

func (op UnaryOp) String() string {
	if op == OpNegate {
		return "-"
	}
	return "!"
}

// Unary applies Op to Operand.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

// Method names understood by the binder and the SQL formatter.
const (
	MethodStartsWith = "StartsWith"
	MethodEndsWith   = "EndsWith"
	MethodContains   = "Contains"
	MethodEquals     = "Equals"
)

// Call invokes Method on Object with Args. Contains on a list object is a
// membership test; on a string object it is a substring test.
type Call struct {
	Method string
	Object Expr
	Args   []Expr
}

// Apply runs an arbitrary Go function. It can only be folded, never
// translated, so its arguments must not depend on a parameter.
type Apply struct {
	Name string
	Fn   func(args ...any) (any, error)
	Args []Expr
}

// FieldBinding names one member of a New expression.
type FieldBinding struct {
	Name  string
	Value Expr
}

// New describes the shape of a projected result.
type New struct {
	Fields []FieldBinding
}

func (*Param) exprNode()    {}
func (*Member) exprNode()   {}
func (*Constant) exprNode() {}
func (*Capture) exprNode()  {}
func (*Binary) exprNode()   {}
func (*Unary) exprNode()    {}
func (*Call) exprNode()     {}
func (*Apply) exprNode()    {}
func (*New) exprNode()      {}

func (p *Param) String() string  { return p.Name }
func (m *Member) String() string { return m.Target.String() + "." + m.Name }

func (c *Constant) String() string {
	if s, ok := c.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", c.Value)
}

func (c *Capture) String() string {
	if c.Name != "" {
		return "value(" + c.Name + ")"
	}
	return "value()"
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

func (u *Unary) String() string { return u.Op.String() + u.Operand.String() }

func (c *Call) String() string {
	return c.Object.String() + "." + c.Method + "(" + joinExprs(c.Args) + ")"
}

func (a *Apply) String() string { return a.Name + "(" + joinExprs(a.Args) + ")" }

func (n *New) String() string {
	parts := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		parts[i] = f.Name + " = " + f.Value.String()
	}
	return "new { " + strings.Join(parts, ", ") + " }"
}

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Parameter names.
const (
	DefaultParam = "x"
	JoinParam    = "j"
)

// P returns the query parameter.
func P() *Param { return &Param{Name: DefaultParam} }

// J returns the join partner parameter.
func J() *Param { return &Param{Name: JoinParam} }

// Field returns a member access on the query parameter. Dotted paths
// ("Address.City") produce nested member accesses.
func Field(path string) Expr {
	return FieldOf(P(), path)
}

// FieldOf returns a member access path on p.
func FieldOf(p *Param, path string) Expr {
	var e Expr = p
	for _, name := range strings.Split(path, ".") {
		e = &Member{Target: e, Name: name}
	}
	return e
}

// Const wraps v as a constant.
func Const(v any) *Constant { return &Constant{Value: v} }

// Value defers evaluation of fn until the expression is folded.
func Value(fn func() (any, error)) *Capture { return &Capture{Fn: fn} }

// Named is Value with a name used in diagnostics.
func Named(name string, fn func() (any, error)) *Capture {
	return &Capture{Name: name, Fn: fn}
}

// lift turns a Go value into an Expr, leaving existing expressions alone.
func lift(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return Const(v)
}

func binary(op BinaryOp, l Expr, r any) *Binary {
	return &Binary{Op: op, Left: l, Right: lift(r)}
}

func Eq(l Expr, r any) *Binary  { return binary(OpEq, l, r) }
func Ne(l Expr, r any) *Binary  { return binary(OpNe, l, r) }
func Lt(l Expr, r any) *Binary  { return binary(OpLt, l, r) }
func Le(l Expr, r any) *Binary  { return binary(OpLe, l, r) }
func Gt(l Expr, r any) *Binary  { return binary(OpGt, l, r) }
func Ge(l Expr, r any) *Binary  { return binary(OpGe, l, r) }
func Add(l Expr, r any) *Binary { return binary(OpAdd, l, r) }
func Sub(l Expr, r any) *Binary { return binary(OpSub, l, r) }
func Mul(l Expr, r any) *Binary { return binary(OpMul, l, r) }
func Div(l Expr, r any) *Binary { return binary(OpDiv, l, r) }
func Mod(l Expr, r any) *Binary { return binary(OpMod, l, r) }

// And chains its operands with &&, left to right.
func And(first Expr, rest ...Expr) Expr {
	return chain(OpAnd, first, rest)
}

// Or chains its operands with ||, left to right.
func Or(first Expr, rest ...Expr) Expr {
	return chain(OpOr, first, rest)
}

func chain(op BinaryOp, first Expr, rest []Expr) Expr {
	out := first
	for _, e := range rest {
		out = &Binary{Op: op, Left: out, Right: e}
	}
	return out
}

// Not negates a boolean expression.
func Not(e Expr) *Unary { return &Unary{Op: OpNot, Operand: e} }

// Negate is arithmetic negation.
func Negate(e Expr) *Unary { return &Unary{Op: OpNegate, Operand: e} }

// StartsWith is target.StartsWith(v).
func StartsWith(target Expr, v any) *Call {
	return &Call{Method: MethodStartsWith, Object: target, Args: []Expr{lift(v)}}
}

// EndsWith is target.EndsWith(v).
func EndsWith(target Expr, v any) *Call {
	return &Call{Method: MethodEndsWith, Object: target, Args: []Expr{lift(v)}}
}

// Contains is the string test target.Contains(v).
func Contains(target Expr, v any) *Call {
	return &Call{Method: MethodContains, Object: target, Args: []Expr{lift(v)}}
}

// Equals is target.Equals(v).
func Equals(target Expr, v any) *Call {
	return &Call{Method: MethodEquals, Object: target, Args: []Expr{lift(v)}}
}

// In is the membership test list.Contains(member). list is usually a slice
// constant or a Capture returning one.
func In(list any, member Expr) *Call {
	return &Call{Method: MethodContains, Object: lift(list), Args: []Expr{member}}
}

// Func wraps a Go function whose result is folded into a constant.
func Func(name string, fn func(args ...any) (any, error), args ...any) *Apply {
	lifted := make([]Expr, len(args))
	for i, a := range args {
		lifted[i] = lift(a)
	}
	return &Apply{Name: name, Fn: fn, Args: lifted}
}

// NewObject builds a projection shape from field bindings.
func NewObject(fields ...FieldBinding) *New { return &New{Fields: fields} }

// Bind names a projected field.
func Bind(name string, v any) FieldBinding {
	return FieldBinding{Name: name, Value: lift(v)}
}
