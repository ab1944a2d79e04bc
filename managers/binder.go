package managers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/expr"
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

// source is what a query parameter stands for while binding.
type source struct {
	alias string
	meta  *entity.Meta   // members map through the column table
	sel   *nodes.Select  // when meta is nil, members map to declarations
}

// scope is the binding state after some prefix of a query's operators.
type scope struct {
	sel       *nodes.Select
	projector nodes.Node
	params    map[string]source
	root      *entity.Meta
	// closed is set by Select; the next operator wraps the select first.
	closed bool
}

// binder carries state shared by every query bound in one translation:
// the alias counter and the soft-delete column of each table seen.
type binder struct {
	aliases     int
	softDeletes map[string]string
}

func newBinder() *binder {
	return &binder{softDeletes: map[string]string{}}
}

func (b *binder) next() string {
	a := "t" + strconv.Itoa(b.aliases)
	b.aliases++
	return a
}

// Bind binds q without shaping or rewriting it. The select list of an
// entity query is still the Data placeholder.
func Bind(q *Query) (*nodes.Projection, error) {
	s, err := newBinder().bind(q)
	if err != nil {
		return nil, err
	}
	return &nodes.Projection{Select: s.sel, Projector: s.projector}, nil
}

func (b *binder) bind(q *Query) (*scope, error) {
	if q == nil || q.meta == nil {
		if q != nil && len(q.ops) > 0 {
			return nil, translationError(q.ops[0], ErrNoSource)
		}
		return nil, &TranslationError{Construct: "query", Err: ErrNoSource}
	}
	s := b.root(q.meta)
	for _, op := range q.ops {
		var err error
		if s, err = b.apply(s, op); err != nil {
			var te *TranslationError
			if errors.As(err, &te) {
				return nil, err
			}
			return nil, translationError(op, err)
		}
	}
	return s, nil
}

// root binds the bare entity: the table under one alias, a select over it
// under another, and the placeholder as its only column.
func (b *binder) root(meta *entity.Meta) *scope {
	table := nodes.NewTable(meta.Schema, meta.Name).Alias(b.next())
	if meta.SoftDelete != "" {
		b.softDeletes[table.Relation.String()] = meta.SoftDelete
	}
	key := meta.KeyColumn()
	sel := &nodes.Select{
		Alias: b.next(),
		Columns: []nodes.ColumnDeclaration{{
			Name: nodes.PlaceholderName,
			Expr: &nodes.Placeholder{Alias: table.AliasName, Key: key},
		}},
		From: table,
	}
	return &scope{
		sel: sel,
		projector: &nodes.EntityProjector{
			Key:     &nodes.Column{Alias: table.AliasName, Name: key, Type: entity.TypeInt},
			Payload: &nodes.Column{Alias: table.AliasName, Name: entity.JSONColumn, Type: entity.TypeString},
		},
		params: map[string]source{expr.DefaultParam: {alias: table.AliasName, meta: meta}},
		root:   meta,
	}
}

func (b *binder) apply(s *scope, op operator) (*scope, error) {
	folded, err := expr.Fold(op.expr, expr.CanEvaluateLocally)
	if err != nil {
		return nil, err
	}
	if (s.closed && op.kind != opDistinct) || (s.sel.Distinct && op.kind == opSelect) {
		if op.kind == opThenBy {
			return nil, errors.New("ThenBy must follow OrderBy")
		}
		s = b.wrap(s)
	}
	out := *s
	out.sel = s.sel.Clone()

	switch op.kind {
	case opWhere:
		if c, ok := folded.(*expr.Constant); ok && c.Value == true {
			break
		}
		pred, err := b.predicate(&out, folded)
		if err != nil {
			return nil, err
		}
		out.sel.Where = nodes.AndWhere(out.sel.Where, pred)
	case opOrderBy, opThenBy:
		key, err := b.value(&out, folded)
		if err != nil {
			return nil, err
		}
		ord := &nodes.Ordering{Expr: key}
		if op.desc {
			ord.Direction = nodes.Desc
		}
		if op.kind == opOrderBy {
			out.sel.OrderBy = []*nodes.Ordering{ord}
		} else {
			if len(out.sel.OrderBy) == 0 {
				return nil, errors.New("ThenBy must follow OrderBy")
			}
			out.sel.OrderBy = append(out.sel.OrderBy, ord)
		}
		if out.sel.Distinct && !orderedBySelected(out.sel) {
			return nil, ErrDistinctOrdering
		}
	case opDistinct:
		out.sel.Distinct = true
		if !orderedBySelected(out.sel) {
			return nil, ErrDistinctOrdering
		}
	case opSelect:
		if p, ok := folded.(*expr.Param); ok && p.Name == expr.DefaultParam {
			return &out, nil
		}
		if err := b.project(&out, folded); err != nil {
			return nil, err
		}
		out.closed = true
	case opJoin:
		return b.join(&out, op, folded)
	}
	return &out, nil
}

// orderedBySelected reports whether every ordering key of sel is one of
// its declared columns.
func orderedBySelected(sel *nodes.Select) bool {
	for _, o := range sel.OrderBy {
		key, ok := o.Expr.(*nodes.Column)
		if !ok {
			return false
		}
		found := false
		for _, d := range sel.Columns {
			if c, ok := d.Expr.(*nodes.Column); ok && nodes.SameColumn(c, key) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// wrap nests a closed select inside a new one that passes every column
// through. The projector is rebound to the new select.
func (b *binder) wrap(s *scope) *scope {
	inner := s.sel
	outer := &nodes.Select{Alias: b.next(), From: inner}
	for _, d := range inner.Columns {
		outer.Columns = append(outer.Columns, nodes.ColumnDeclaration{Name: d.Name, Expr: inner.Ref(d.Name)})
	}
	projector := nodes.MapExpr(s.projector, func(n nodes.Node) nodes.Node {
		if c, ok := n.(*nodes.Column); ok && c.Alias == inner.Alias {
			return outer.Ref(c.Name)
		}
		return n
	})
	return &scope{
		sel:       outer,
		projector: projector,
		params:    map[string]source{expr.DefaultParam: {alias: inner.Alias, sel: inner}},
		root:      s.root,
	}
}

// project replaces the select list with the bound projector fields.
func (b *binder) project(s *scope, projector expr.Expr) error {
	var decls []nodes.ColumnDeclaration
	var build func(prefix string, e expr.Expr) (nodes.Node, error)
	build = func(prefix string, e expr.Expr) (nodes.Node, error) {
		if n, ok := e.(*expr.New); ok {
			obj := &nodes.Object{}
			for _, f := range n.Fields {
				v, err := build(joinName(prefix, f.Name), f.Value)
				if err != nil {
					return nil, err
				}
				obj.Fields = append(obj.Fields, nodes.ObjectField{Name: f.Name, Value: v})
			}
			return obj, nil
		}
		v, err := b.value(s, e)
		if err != nil {
			return nil, err
		}
		name := prefix
		if name == "" {
			name = "Value"
			if _, path, err := expr.MemberPath(e); err == nil {
				name = declName(path)
			}
		}
		for _, d := range decls {
			if d.Name == name {
				return nil, fmt.Errorf("field %s is projected twice", name)
			}
		}
		decls = append(decls, nodes.ColumnDeclaration{Name: name, Expr: v})
		return &nodes.Column{Alias: s.sel.Alias, Name: name, Type: columnType(v)}, nil
	}
	projected, err := build("", projector)
	if err != nil {
		return err
	}
	if len(decls) == 0 {
		return errors.New("projection has no fields")
	}
	s.sel.Columns = decls
	s.projector = projected
	return nil
}

func joinName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// declName is the declaration a dotted member path is projected under.
func declName(path string) string {
	return strings.ReplaceAll(path, ".", "_")
}

func columnType(n nodes.Node) entity.DataType {
	if c, ok := n.(*nodes.Column); ok {
		return c.Type
	}
	return entity.TypeString
}

// join binds the other query and makes it the right side of a join whose
// left side is the current source.
func (b *binder) join(s *scope, op operator, on expr.Expr) (*scope, error) {
	if op.other == nil {
		return nil, errors.New("join with a nil query")
	}
	if (op.join == nodes.InnerJoin) == (on == nil) {
		if on == nil {
			return nil, fmt.Errorf("%s needs a join condition", op.join)
		}
		return nil, fmt.Errorf("%s takes no join condition", op.join)
	}
	other, err := b.bind(op.other)
	if err != nil {
		return nil, err
	}
	right := other.sel.Clone()
	var j source
	if other.closed || !right.HasPlaceholder() {
		j = source{alias: right.Alias, sel: right}
	} else {
		right.Columns = allColumns(other.root, other.params[expr.DefaultParam].alias)
		j = source{alias: right.Alias, meta: other.root}
	}
	s.params = map[string]source{expr.DefaultParam: s.params[expr.DefaultParam], expr.JoinParam: j}
	s.sel.From = &nodes.Join{Kind: op.join, Left: s.sel.From, Right: right}
	if on != nil {
		cond, err := b.predicate(s, on)
		if err != nil {
			return nil, err
		}
		s.sel.From.(*nodes.Join).On = cond
	}
	return s, nil
}

// allColumns declares every mapped column of meta read through alias.
func allColumns(meta *entity.Meta, alias string) []nodes.ColumnDeclaration {
	key := meta.KeyColumn()
	decls := []nodes.ColumnDeclaration{
		{Name: key, Expr: &nodes.Column{Alias: alias, Name: key, Type: entity.TypeInt}},
		{Name: entity.JSONColumn, Expr: &nodes.Column{Alias: alias, Name: entity.JSONColumn}},
	}
	for _, c := range meta.Columns {
		name := c.ColumnName()
		decls = append(decls, nodes.ColumnDeclaration{Name: name, Expr: &nodes.Column{Alias: alias, Name: name, Type: c.Type}})
	}
	return decls
}

// member resolves a member path on a parameter to a column.
func (b *binder) member(s *scope, e expr.Expr) (*nodes.Column, error) {
	param, path, err := expr.MemberPath(e)
	if err != nil {
		return nil, err
	}
	src, ok := s.params[param]
	if !ok {
		return nil, fmt.Errorf("parameter %s is not in scope", param)
	}
	if src.meta != nil {
		col, ok := src.meta.Lookup(path)
		if !ok {
			return nil, fmt.Errorf("%s has no mapped column for %s", src.meta.Name, path)
		}
		return &nodes.Column{Alias: src.alias, Name: col.ColumnName(), Type: col.Type}, nil
	}
	name := declName(path)
	if _, ok := src.sel.Decl(name); !ok {
		return nil, fmt.Errorf("projection has no field %s", path)
	}
	return src.sel.Ref(name), nil
}

// predicate binds e in a boolean position. A bare boolean column becomes a
// comparison with true, and its negation a comparison with false.
func (b *binder) predicate(s *scope, e expr.Expr) (nodes.Node, error) {
	switch n := e.(type) {
	case *expr.Constant:
		v, ok := n.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("constant %s is not a condition", n)
		}
		right := 0
		if v {
			right = 1
		}
		return &nodes.Binary{Op: nodes.OpEq, Left: nodes.Const(1), Right: nodes.Const(right)}, nil
	case *expr.Member:
		col, err := b.member(s, n)
		if err != nil {
			return nil, err
		}
		if col.Type != entity.TypeBool {
			return nil, fmt.Errorf("%s is not a boolean column", n)
		}
		return col.Eq(true), nil
	case *expr.Unary:
		if n.Op != expr.OpNot {
			break
		}
		if m, ok := n.Operand.(*expr.Member); ok {
			col, err := b.member(s, m)
			if err != nil {
				return nil, err
			}
			if col.Type == entity.TypeBool {
				return col.Eq(false), nil
			}
		}
		operand, err := b.predicate(s, n.Operand)
		if err != nil {
			return nil, err
		}
		if in, ok := operand.(*nodes.In); ok {
			flipped := *in
			flipped.Negate = !in.Negate
			return &flipped, nil
		}
		return &nodes.Unary{Op: nodes.OpNot, Operand: operand}, nil
	case *expr.Binary:
		if n.Op == expr.OpAnd || n.Op == expr.OpOr {
			l, err := b.predicate(s, n.Left)
			if err != nil {
				return nil, err
			}
			r, err := b.predicate(s, n.Right)
			if err != nil {
				return nil, err
			}
			op := nodes.OpAnd
			if n.Op == expr.OpOr {
				op = nodes.OpOr
			}
			return &nodes.Binary{Op: op, Left: l, Right: r}, nil
		}
		if !n.Op.IsComparison() {
			return nil, fmt.Errorf("%s is not a condition", n)
		}
	case *expr.Call:
	default:
		return nil, fmt.Errorf("%w: %s in a condition", visitors.ErrUnsupported, e)
	}
	return b.value(s, e)
}

var binaryOps = map[expr.BinaryOp]nodes.BinaryOp{
	expr.OpEq:  nodes.OpEq,
	expr.OpNe:  nodes.OpNe,
	expr.OpLt:  nodes.OpLt,
	expr.OpLe:  nodes.OpLe,
	expr.OpGt:  nodes.OpGt,
	expr.OpGe:  nodes.OpGe,
	expr.OpAdd: nodes.OpAdd,
	expr.OpSub: nodes.OpSub,
	expr.OpMul: nodes.OpMul,
	expr.OpDiv: nodes.OpDiv,
	expr.OpMod: nodes.OpMod,
}

// value binds e as a scalar expression.
func (b *binder) value(s *scope, e expr.Expr) (nodes.Node, error) {
	switch n := e.(type) {
	case *expr.Constant:
		return &nodes.Constant{Value: n.Value}, nil
	case *expr.Member:
		return b.member(s, n)
	case *expr.Binary:
		if n.Op == expr.OpAnd || n.Op == expr.OpOr {
			return b.predicate(s, n)
		}
		l, err := b.value(s, n.Left)
		if err != nil {
			return nil, err
		}
		r, err := b.value(s, n.Right)
		if err != nil {
			return nil, err
		}
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, fmt.Errorf("%w: operator %s", visitors.ErrUnsupported, n.Op)
		}
		if op == nodes.OpAdd && (isText(l) || isText(r)) {
			op = nodes.OpConcat
		}
		return &nodes.Binary{Op: op, Left: l, Right: r}, nil
	case *expr.Unary:
		if n.Op == expr.OpNot {
			return b.predicate(s, n)
		}
		operand, err := b.value(s, n.Operand)
		if err != nil {
			return nil, err
		}
		return &nodes.Unary{Op: nodes.OpNegate, Operand: operand}, nil
	case *expr.Call:
		return b.call(s, n)
	case *expr.Param:
		return nil, fmt.Errorf("%w: parameter %s used as a value", visitors.ErrUnsupported, n)
	case *expr.New:
		return nil, fmt.Errorf("%w: object construction outside Select", visitors.ErrUnsupported)
	case *expr.Apply:
		return nil, fmt.Errorf("%w: function %s over row values", visitors.ErrUnsupported, n.Name)
	case *expr.Capture:
		return nil, fmt.Errorf("%w: unevaluated %s", visitors.ErrUnsupported, n)
	}
	return nil, fmt.Errorf("%w: %v", visitors.ErrUnsupported, e)
}

func isText(n nodes.Node) bool {
	switch t := n.(type) {
	case *nodes.Constant:
		_, ok := t.Value.(string)
		return ok
	case *nodes.Column:
		return t.Type == entity.TypeString
	case *nodes.Binary:
		return t.Op == nodes.OpConcat
	}
	return false
}

// call binds a method call: membership on a constant list, or one of the
// string methods on a column.
func (b *binder) call(s *scope, n *expr.Call) (nodes.Node, error) {
	if c, ok := n.Object.(*expr.Constant); ok && n.Method == expr.MethodContains {
		if _, isString := c.Value.(string); !isString {
			items, err := expr.Items(c.Value)
			if err != nil {
				return nil, err
			}
			if len(n.Args) != 1 {
				return nil, fmt.Errorf("%w: Contains with %d arguments", visitors.ErrUnsupported, len(n.Args))
			}
			member, err := b.value(s, n.Args[0])
			if err != nil {
				return nil, err
			}
			in := &nodes.In{Expr: member, Values: make([]nodes.Node, len(items))}
			for i, item := range items {
				in.Values[i] = &nodes.Constant{Value: item}
			}
			return in, nil
		}
	}
	var method nodes.Method
	switch n.Method {
	case expr.MethodStartsWith:
		method = nodes.MethodStartsWith
	case expr.MethodEndsWith:
		method = nodes.MethodEndsWith
	case expr.MethodContains:
		method = nodes.MethodContains
	case expr.MethodEquals:
		method = nodes.MethodEquals
	default:
		return nil, fmt.Errorf("%w: method %s", visitors.ErrUnsupported, n.Method)
	}
	obj, err := b.value(s, n.Object)
	if err != nil {
		return nil, err
	}
	out := &nodes.MethodCall{Method: method, Object: obj}
	for _, a := range n.Args {
		arg, err := b.value(s, a)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, arg)
	}
	return out, nil
}
