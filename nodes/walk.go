package nodes

// Walk calls fn for n and then for each descendant, depth first. A nested
// Select is visited but not entered; its clauses belong to another scope.
// Returning false from fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch t := n.(type) {
	case *Unary:
		Walk(t.Operand, fn)
	case *Binary:
		Walk(t.Left, fn)
		Walk(t.Right, fn)
	case *MethodCall:
		Walk(t.Object, fn)
		for _, a := range t.Args {
			Walk(a, fn)
		}
	case *In:
		Walk(t.Expr, fn)
		for _, v := range t.Values {
			Walk(v, fn)
		}
	case *Aggregate:
		Walk(t.Arg, fn)
	case *Ordering:
		Walk(t.Expr, fn)
	case *Join:
		Walk(t.Left, fn)
		Walk(t.Right, fn)
		Walk(t.On, fn)
	case *Object:
		for _, f := range t.Fields {
			Walk(f.Value, fn)
		}
	case *EntityProjector:
		Walk(t.Key, fn)
		Walk(t.Payload, fn)
	}
}

// MapExpr rebuilds n bottom-up, replacing every node with fn's result.
// Unchanged subtrees are shared, not copied. Like Walk, it does not enter
// a nested Select.
func MapExpr(n Node, fn func(Node) Node) Node {
	if n == nil {
		return nil
	}
	switch t := n.(type) {
	case *Unary:
		if op := MapExpr(t.Operand, fn); op != t.Operand {
			n = &Unary{Op: t.Op, Operand: op}
		}
	case *Binary:
		l, r := MapExpr(t.Left, fn), MapExpr(t.Right, fn)
		if l != t.Left || r != t.Right {
			n = &Binary{Op: t.Op, Left: l, Right: r}
		}
	case *MethodCall:
		obj := MapExpr(t.Object, fn)
		args, changed := mapList(t.Args, fn)
		if changed || obj != t.Object {
			n = &MethodCall{Method: t.Method, Object: obj, Args: args}
		}
	case *In:
		e := MapExpr(t.Expr, fn)
		vals, changed := mapList(t.Values, fn)
		if changed || e != t.Expr {
			n = &In{Expr: e, Values: vals, Negate: t.Negate}
		}
	case *Aggregate:
		if arg := MapExpr(t.Arg, fn); arg != t.Arg {
			n = &Aggregate{Func: t.Func, Arg: arg, Distinct: t.Distinct}
		}
	case *Ordering:
		if e := MapExpr(t.Expr, fn); e != t.Expr {
			n = &Ordering{Expr: e, Direction: t.Direction}
		}
	case *Join:
		l, r, on := MapExpr(t.Left, fn), MapExpr(t.Right, fn), MapExpr(t.On, fn)
		if l != t.Left || r != t.Right || on != t.On {
			n = &Join{Kind: t.Kind, Left: l, Right: r, On: on}
		}
	case *Object:
		fields := make([]ObjectField, len(t.Fields))
		changed := false
		for i, f := range t.Fields {
			fields[i] = ObjectField{Name: f.Name, Value: MapExpr(f.Value, fn)}
			changed = changed || fields[i].Value != f.Value
		}
		if changed {
			n = &Object{Fields: fields}
		}
	case *EntityProjector:
		k, _ := MapExpr(t.Key, fn).(*Column)
		p, _ := MapExpr(t.Payload, fn).(*Column)
		if k != nil && p != nil && (k != t.Key || p != t.Payload) {
			n = &EntityProjector{Key: k, Payload: p}
		}
	}
	return fn(n)
}

func mapList(list []Node, fn func(Node) Node) ([]Node, bool) {
	out := make([]Node, len(list))
	changed := false
	for i, n := range list {
		out[i] = MapExpr(n, fn)
		changed = changed || out[i] != n
	}
	return out, changed
}

// ColumnsOf returns every column referenced by n, in walk order.
func ColumnsOf(n Node) []*Column {
	var out []*Column
	Walk(n, func(n Node) bool {
		if c, ok := n.(*Column); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// SameColumn reports whether a and b reference the same column.
func SameColumn(a, b *Column) bool {
	return a.Alias == b.Alias && a.Name == b.Name
}
