package expr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ErrNotMemberAccess is returned by MemberPath when a selector is anything
// other than a chain of member accesses on a parameter.
var ErrNotMemberAccess = errors.New("expr: selector is not a simple member access")

// CanEvaluateLocally is the default fold predicate: every node except a
// parameter may be evaluated before translation.
func CanEvaluateLocally(e Expr) bool {
	_, isParam := e.(*Param)
	return !isParam
}

// Fold replaces every maximal subtree that does not depend on a parameter
// with a Constant holding its value. canEval decides which nodes may be
// evaluated; nil means CanEvaluateLocally. Errors raised while evaluating
// a subtree are returned as-is.
func Fold(e Expr, canEval func(Expr) bool) (Expr, error) {
	if e == nil {
		return nil, nil
	}
	if canEval == nil {
		canEval = CanEvaluateLocally
	}
	f := folder{canEval: canEval}
	out, local, err := f.visit(e)
	if err != nil {
		return nil, err
	}
	if local {
		return f.constant(out)
	}
	return out, nil
}

type folder struct {
	canEval func(Expr) bool
}

// visit rebuilds e bottom-up. The returned flag reports whether the whole
// subtree is locally evaluable; such subtrees are left for the caller to
// collapse so that only maximal subtrees are evaluated.
func (f folder) visit(e Expr) (Expr, bool, error) {
	switch n := e.(type) {
	case *Param:
		return n, f.canEval(n), nil
	case *Constant, *Capture:
		return n, f.canEval(n), nil
	case *Member:
		target, local, err := f.visit(n.Target)
		if err != nil {
			return nil, false, err
		}
		if local && f.canEval(n) {
			return n, true, nil
		}
		if target, err = f.collapse(target, local); err != nil {
			return nil, false, err
		}
		return &Member{Target: target, Name: n.Name}, false, nil
	case *Binary:
		kids, local, err := f.visitAll([]Expr{n.Left, n.Right}, n)
		if err != nil || local {
			return n, local, err
		}
		return &Binary{Op: n.Op, Left: kids[0], Right: kids[1]}, false, nil
	case *Unary:
		kids, local, err := f.visitAll([]Expr{n.Operand}, n)
		if err != nil || local {
			return n, local, err
		}
		return &Unary{Op: n.Op, Operand: kids[0]}, false, nil
	case *Call:
		kids, local, err := f.visitAll(append([]Expr{n.Object}, n.Args...), n)
		if err != nil || local {
			return n, local, err
		}
		return &Call{Method: n.Method, Object: kids[0], Args: kids[1:]}, false, nil
	case *Apply:
		kids, local, err := f.visitAll(n.Args, n)
		if err != nil || local {
			return n, local, err
		}
		return &Apply{Name: n.Name, Fn: n.Fn, Args: kids}, false, nil
	case *New:
		values := make([]Expr, len(n.Fields))
		for i, fb := range n.Fields {
			values[i] = fb.Value
		}
		kids, local, err := f.visitAll(values, n)
		if err != nil || local {
			return n, local, err
		}
		fields := make([]FieldBinding, len(n.Fields))
		for i, fb := range n.Fields {
			fields[i] = FieldBinding{Name: fb.Name, Value: kids[i]}
		}
		return &New{Fields: fields}, false, nil
	default:
		return nil, false, fmt.Errorf("expr: unknown expression %T", e)
	}
}

// visitAll visits children of parent. When every child and the parent are
// evaluable the children are returned untouched with local=true; otherwise
// local children are collapsed into constants.
func (f folder) visitAll(children []Expr, parent Expr) ([]Expr, bool, error) {
	out := make([]Expr, len(children))
	locals := make([]bool, len(children))
	all := true
	for i, c := range children {
		v, local, err := f.visit(c)
		if err != nil {
			return nil, false, err
		}
		out[i], locals[i] = v, local
		all = all && local
	}
	if all && f.canEval(parent) {
		return out, true, nil
	}
	for i := range out {
		v, err := f.collapse(out[i], locals[i])
		if err != nil {
			return nil, false, err
		}
		out[i] = v
	}
	return out, false, nil
}

func (f folder) collapse(e Expr, local bool) (Expr, error) {
	if !local {
		return e, nil
	}
	return f.constant(e)
}

func (f folder) constant(e Expr) (Expr, error) {
	if c, ok := e.(*Constant); ok {
		return c, nil
	}
	v, err := Evaluate(e)
	if err != nil {
		return nil, err
	}
	return Const(v), nil
}

// Evaluate computes the value of an expression that has no parameters.
func Evaluate(e Expr) (any, error) {
	switch n := e.(type) {
	case *Constant:
		return n.Value, nil
	case *Capture:
		return n.Fn()
	case *Param:
		return nil, fmt.Errorf("expr: parameter %s cannot be evaluated locally", n.Name)
	case *Member:
		target, err := Evaluate(n.Target)
		if err != nil {
			return nil, err
		}
		return memberValue(target, n.Name)
	case *Binary:
		return evalBinary(n)
	case *Unary:
		v, err := Evaluate(n.Operand)
		if err != nil {
			return nil, err
		}
		return evalUnary(n.Op, v)
	case *Call:
		return evalCall(n)
	case *Apply:
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			v, err := Evaluate(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return n.Fn(args...)
	case *New:
		out := make(map[string]any, len(n.Fields))
		for _, fb := range n.Fields {
			v, err := Evaluate(fb.Value)
			if err != nil {
				return nil, err
			}
			out[fb.Name] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expr: unknown expression %T", e)
	}
}

func memberValue(target any, name string) (any, error) {
	v := reflect.ValueOf(target)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, fmt.Errorf("expr: member %s accessed on nil value", name)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		fv := v.FieldByName(name)
		if !fv.IsValid() {
			return nil, fmt.Errorf("expr: %s has no member %s", v.Type(), name)
		}
		return fv.Interface(), nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}
		mv := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, nil
		}
		return mv.Interface(), nil
	case reflect.Invalid:
		return nil, fmt.Errorf("expr: member %s accessed on nil value", name)
	}
	return nil, fmt.Errorf("expr: cannot access member %s on %s", name, v.Type())
}

func evalBinary(n *Binary) (any, error) {
	l, err := Evaluate(n.Left)
	if err != nil {
		return nil, err
	}
	// && and || short-circuit like their Go counterparts.
	if n.Op == OpAnd || n.Op == OpOr {
		lb, ok := l.(bool)
		if !ok {
			return nil, fmt.Errorf("expr: %s needs boolean operands, got %T", n.Op, l)
		}
		if (n.Op == OpAnd && !lb) || (n.Op == OpOr && lb) {
			return lb, nil
		}
		r, err := Evaluate(n.Right)
		if err != nil {
			return nil, err
		}
		rb, ok := r.(bool)
		if !ok {
			return nil, fmt.Errorf("expr: %s needs boolean operands, got %T", n.Op, r)
		}
		return rb, nil
	}
	r, err := Evaluate(n.Right)
	if err != nil {
		return nil, err
	}
	if n.Op.IsComparison() {
		return compare(n.Op, l, r)
	}
	return arithmetic(n.Op, l, r)
}

func evalUnary(op UnaryOp, v any) (any, error) {
	switch op {
	case OpNot:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expr: ! needs a boolean operand, got %T", v)
		}
		return !b, nil
	case OpNegate:
		if i, ok := asInt(v); ok {
			return -i, nil
		}
		if f, ok := asFloat(v); ok {
			return -f, nil
		}
		return nil, fmt.Errorf("expr: cannot negate %T", v)
	}
	return nil, fmt.Errorf("expr: unknown unary operator %d", op)
}

func evalCall(n *Call) (any, error) {
	obj, err := Evaluate(n.Object)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		if args[i], err = Evaluate(a); err != nil {
			return nil, err
		}
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("expr: %s expects one argument", n.Method)
	}
	if s, ok := obj.(string); ok {
		arg, ok := args[0].(string)
		if !ok && n.Method != MethodEquals {
			return nil, fmt.Errorf("expr: %s expects a string argument, got %T", n.Method, args[0])
		}
		switch n.Method {
		case MethodStartsWith:
			return strings.HasPrefix(s, arg), nil
		case MethodEndsWith:
			return strings.HasSuffix(s, arg), nil
		case MethodContains:
			return strings.Contains(s, arg), nil
		case MethodEquals:
			return s == args[0], nil
		}
	}
	switch n.Method {
	case MethodEquals:
		return valuesEqual(obj, args[0]), nil
	case MethodContains:
		items, err := Items(obj)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if valuesEqual(it, args[0]) {
				return true, nil
			}
		}
		return false, nil
	}
	return nil, fmt.Errorf("expr: method %s is not supported on %T", n.Method, obj)
}

// Items returns the elements of a slice or array value.
func Items(list any) ([]any, error) {
	if items, ok := list.([]any); ok {
		return items, nil
	}
	v := reflect.ValueOf(list)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("expr: %T is not a list", list)
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}

func compare(op BinaryOp, l, r any) (any, error) {
	if l == nil || r == nil {
		switch op {
		case OpEq:
			return l == nil && r == nil, nil
		case OpNe:
			return !(l == nil && r == nil), nil
		}
		return false, nil
	}
	var c int
	switch {
	case isNumber(l) && isNumber(r):
		lf, _ := asFloat(l)
		rf, _ := asFloat(r)
		c = cmpOrdered(lf, rf)
	case isString(l) && isString(r):
		c = strings.Compare(reflect.ValueOf(l).String(), reflect.ValueOf(r).String())
	case isTime(l) && isTime(r):
		c = l.(time.Time).Compare(r.(time.Time))
	default:
		switch op {
		case OpEq:
			return valuesEqual(l, r), nil
		case OpNe:
			return !valuesEqual(l, r), nil
		}
		return nil, fmt.Errorf("expr: cannot compare %T with %T", l, r)
	}
	switch op {
	case OpEq:
		return c == 0, nil
	case OpNe:
		return c != 0, nil
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func arithmetic(op BinaryOp, l, r any) (any, error) {
	if op == OpAdd {
		if ls, ok := l.(string); ok {
			return ls + fmt.Sprint(r), nil
		}
		if lt, ok := l.(time.Time); ok {
			if d, ok := r.(time.Duration); ok {
				return lt.Add(d), nil
			}
		}
	}
	if op == OpSub {
		if lt, ok := l.(time.Time); ok {
			switch rv := r.(type) {
			case time.Duration:
				return lt.Add(-rv), nil
			case time.Time:
				return lt.Sub(rv), nil
			}
		}
	}
	li, lok := asInt(l)
	ri, rok := asInt(r)
	if lok && rok {
		switch op {
		case OpAdd:
			return li + ri, nil
		case OpSub:
			return li - ri, nil
		case OpMul:
			return li * ri, nil
		case OpDiv, OpMod:
			if ri == 0 {
				return nil, errors.New("expr: integer division by zero")
			}
			if op == OpDiv {
				return li / ri, nil
			}
			return li % ri, nil
		}
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return nil, fmt.Errorf("expr: operator %s not defined for %T and %T", op, l, r)
	}
	switch op {
	case OpAdd:
		return lf + rf, nil
	case OpSub:
		return lf - rf, nil
	case OpMul:
		return lf * rf, nil
	case OpDiv:
		return lf / rf, nil
	}
	return nil, fmt.Errorf("expr: operator %s not defined for %T and %T", op, l, r)
}

func valuesEqual(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		af, _ := asFloat(a)
		bf, _ := asFloat(b)
		return af == bf
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
	}
	return reflect.DeepEqual(a, b)
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isNumber(v any) bool {
	_, ok := asFloat(v)
	return ok
}

func isString(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.String
}

func isTime(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

// asInt converts integer kinds to int64. Named integer types that carry a
// String method (enums) are not treated as numbers.
func asInt(v any) (int64, bool) {
	if _, ok := v.(fmt.Stringer); ok {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	if _, ok := v.(fmt.Stringer); ok {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// MemberPath returns the parameter name and dotted member path of a simple
// member access such as x.Address.City.
func MemberPath(e Expr) (param string, path string, err error) {
	var names []string
	for {
		switch n := e.(type) {
		case *Member:
			names = append(names, n.Name)
			e = n.Target
			continue
		case *Param:
			if len(names) == 0 {
				return "", "", fmt.Errorf("%w: %s", ErrNotMemberAccess, n)
			}
			for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
				names[i], names[j] = names[j], names[i]
			}
			return n.Name, strings.Join(names, "."), nil
		}
		return "", "", fmt.Errorf("%w: %v", ErrNotMemberAccess, e)
	}
}
