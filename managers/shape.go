package managers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/expr"
	"github.com/erymuzuan/motorent-sub003/nodes"
)

// ShapeKind says what an operation asks of a query's select list.
type ShapeKind int

const (
	ShapePayload ShapeKind = iota
	ShapeCount
	ShapeAggregate
	ShapeDistinct
	ShapeGroupCount
	ShapeGroupSum
	ShapeColumns
	ShapeDelete
)

var shapeNames = [...]string{
	ShapePayload:    "Payload",
	ShapeCount:      "Count",
	ShapeAggregate:  "Aggregate",
	ShapeDistinct:   "Distinct",
	ShapeGroupCount: "GroupCount",
	ShapeGroupSum:   "GroupSum",
	ShapeColumns:    "Columns",
	ShapeDelete:     "Delete",
}

func (k ShapeKind) String() string {
	if int(k) < len(shapeNames) {
		return shapeNames[k]
	}
	return fmt.Sprintf("ShapeKind(%d)", int(k))
}

// Shape replaces the Data placeholder of a bound query. Fields are member
// selectors on expr.P().
type Shape struct {
	Kind   ShapeKind
	Func   nodes.AggregateFunc
	Fields []expr.Expr
}

func (s Shape) String() string {
	var sb strings.Builder
	sb.WriteString(s.Kind.String())
	if s.Kind == ShapeAggregate {
		sb.WriteString(":" + s.Func.String())
	}
	sb.WriteString("(")
	for i, f := range s.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// Payload reads the key and JSON columns of each entity.
func Payload() Shape { return Shape{Kind: ShapePayload} }

// Count reads COUNT(*).
func Count() Shape { return Shape{Kind: ShapeCount} }

// Aggregate reads fn over field.
func Aggregate(fn nodes.AggregateFunc, field expr.Expr) Shape {
	return Shape{Kind: ShapeAggregate, Func: fn, Fields: []expr.Expr{field}}
}

func Max(field expr.Expr) Shape { return Aggregate(nodes.AggMax, field) }
func Min(field expr.Expr) Shape { return Aggregate(nodes.AggMin, field) }
func Sum(field expr.Expr) Shape { return Aggregate(nodes.AggSum, field) }
func Avg(field expr.Expr) Shape { return Aggregate(nodes.AggAvg, field) }

// Distinct reads the distinct values of field in ascending order.
func Distinct(field expr.Expr) Shape {
	return Shape{Kind: ShapeDistinct, Fields: []expr.Expr{field}}
}

// GroupCount reads (Key, Count) pairs grouped by field.
func GroupCount(field expr.Expr) Shape {
	return Shape{Kind: ShapeGroupCount, Fields: []expr.Expr{field}}
}

// GroupSum reads (Key, Sum) pairs: value summed per distinct group.
func GroupSum(group, value expr.Expr) Shape {
	return Shape{Kind: ShapeGroupSum, Fields: []expr.Expr{group, value}}
}

// Columns reads the given fields only.
func Columns(fields ...expr.Expr) Shape {
	return Shape{Kind: ShapeColumns, Fields: fields}
}

// DeleteRows turns a filtered entity query into a bulk DELETE.
func DeleteRows() Shape { return Shape{Kind: ShapeDelete} }

// Declaration names used by the grouped shapes.
const (
	KeyField   = "Key"
	CountField = "Count"
	SumField   = "Sum"
)

// resolve gives s the select list sh asks for. Scalar shapes leave the
// projector nil: the caller reads the first column of the first row.
func (b *binder) resolve(s *scope, sh Shape) (*scope, error) {
	for _, f := range sh.Fields {
		if _, _, err := expr.MemberPath(f); err != nil {
			return nil, err
		}
	}
	switch sh.Kind {
	case ShapePayload:
		out := *s
		out.sel = s.sel.Clone()
		for i, d := range out.sel.Columns {
			ph, ok := d.Expr.(*nodes.Placeholder)
			if !ok {
				continue
			}
			cols := []nodes.ColumnDeclaration{
				{Name: ph.Key, Expr: &nodes.Column{Alias: ph.Alias, Name: ph.Key, Type: entity.TypeInt}},
				{Name: entity.JSONColumn, Expr: &nodes.Column{Alias: ph.Alias, Name: entity.JSONColumn, Type: entity.TypeString}},
			}
			out.sel.Columns = append(append(cols, out.sel.Columns[:i]...), out.sel.Columns[i+1:]...)
			break
		}
		return &out, nil
	case ShapeDelete:
		if s.closed || s.sel.Distinct {
			return nil, errors.New("only a filtered entity query can be deleted")
		}
		if _, ok := s.sel.From.(*nodes.TableAlias); !ok || !s.sel.HasPlaceholder() {
			return nil, errors.New("only a filtered entity query can be deleted")
		}
		out := *s
		out.sel = s.sel.Clone()
		key := s.root.KeyColumn()
		out.sel.Columns = []nodes.ColumnDeclaration{{
			Name: key,
			Expr: &nodes.Column{Alias: nodes.SourceAlias(s.sel.From), Name: key, Type: entity.TypeInt},
		}}
		out.sel.OrderBy = nil
		out.projector = nil
		return &out, nil
	}

	if s.closed || s.sel.Distinct || len(s.sel.GroupBy) > 0 {
		s = b.wrap(s)
	}
	out := *s
	out.sel = s.sel.Clone()
	sel := out.sel
	cols := make([]*nodes.Column, len(sh.Fields))
	for i, f := range sh.Fields {
		c, err := b.member(&out, f)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}

	switch sh.Kind {
	case ShapeCount:
		sel.Columns = []nodes.ColumnDeclaration{{Expr: nodes.Count(nil)}}
		sel.OrderBy = nil
		out.projector = nil
	case ShapeAggregate:
		sel.Columns = []nodes.ColumnDeclaration{{Expr: &nodes.Aggregate{Func: sh.Func, Arg: cols[0]}}}
		sel.OrderBy = nil
		out.projector = nil
	case ShapeDistinct:
		name := fieldName(sh.Fields[0])
		sel.Columns = []nodes.ColumnDeclaration{{Name: name, Expr: cols[0]}}
		sel.Distinct = true
		sel.OrderBy = []*nodes.Ordering{cols[0].Asc()}
		out.projector = &nodes.Column{Alias: sel.Alias, Name: name, Type: cols[0].Type}
	case ShapeGroupCount, ShapeGroupSum:
		agg := nodes.ColumnDeclaration{Name: CountField, Expr: nodes.Count(nil)}
		if sh.Kind == ShapeGroupSum {
			agg = nodes.ColumnDeclaration{Name: SumField, Expr: &nodes.Aggregate{Func: nodes.AggSum, Arg: cols[1]}}
		}
		sel.Columns = []nodes.ColumnDeclaration{{Name: KeyField, Expr: cols[0]}, agg}
		sel.GroupBy = []nodes.Node{cols[0]}
		sel.OrderBy = []*nodes.Ordering{cols[0].Asc()}
		out.projector = &nodes.Object{Fields: []nodes.ObjectField{
			{Name: KeyField, Value: &nodes.Column{Alias: sel.Alias, Name: KeyField, Type: cols[0].Type}},
			{Name: agg.Name, Value: &nodes.Column{Alias: sel.Alias, Name: agg.Name}},
		}}
	case ShapeColumns:
		if len(cols) == 0 {
			return nil, errors.New("no columns requested")
		}
		obj := &nodes.Object{}
		sel.Columns = nil
		for i, c := range cols {
			name := fieldName(sh.Fields[i])
			if _, dup := sel.Decl(name); dup {
				return nil, fmt.Errorf("field %s is requested twice", name)
			}
			sel.Columns = append(sel.Columns, nodes.ColumnDeclaration{Name: name, Expr: c})
			obj.Fields = append(obj.Fields, nodes.ObjectField{
				Name:  name,
				Value: &nodes.Column{Alias: sel.Alias, Name: name, Type: c.Type},
			})
		}
		out.projector = obj
	default:
		return nil, fmt.Errorf("unknown shape %s", sh.Kind)
	}
	out.closed = true
	return &out, nil
}

func fieldName(f expr.Expr) string {
	_, path, _ := expr.MemberPath(f)
	return declName(path)
}
