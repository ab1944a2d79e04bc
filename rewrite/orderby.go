package rewrite

import (
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// OrderByRewriter moves orderings to the outermost select. A subquery
// ordering survives only when every select above it adds none; its keys
// are then re-expressed through the subquery's declarations. Orderings on
// join sides are dropped.
type OrderByRewriter struct {
	plugins.BaseTransformer
}

func (OrderByRewriter) TransformSelect(sel *nodes.Select, _ nodes.Node) (*nodes.Select, error) {
	return liftOrder(sel), nil
}

func liftOrder(s *nodes.Select) *nodes.Select {
	switch from := s.From.(type) {
	case *nodes.Select:
		child := liftOrder(from)
		if len(child.OrderBy) == 0 {
			if child == from {
				return s
			}
			out := s.Clone()
			out.From = child
			return out
		}
		out := s.Clone()
		inner := child.Clone()
		inner.OrderBy = nil
		if len(s.OrderBy) == 0 && !aggregating(s) {
			if lifted, ok := liftThrough(inner, child.OrderBy); ok {
				out.OrderBy = lifted
			}
		}
		out.From = inner
		return out
	case *nodes.Join:
		out, _ := mapChildren(s, func(side *nodes.Select) (*nodes.Select, error) {
			side = liftOrder(side)
			if len(side.OrderBy) == 0 {
				return side, nil
			}
			c := side.Clone()
			c.OrderBy = nil
			return c, nil
		})
		return out
	}
	return s
}

// liftThrough rewrites orders, which are expressed in inner's scope, as
// orders over inner's declarations. A key that no declaration computes is
// added as a new declaration of inner, which is why inner must be a copy.
func liftThrough(inner *nodes.Select, orders []*nodes.Ordering) ([]*nodes.Ordering, bool) {
	out := make([]*nodes.Ordering, 0, len(orders))
	for _, o := range orders {
		name, ok := declFor(inner, o.Expr)
		if !ok {
			if inner.Distinct || len(inner.GroupBy) > 0 {
				return nil, false
			}
			name = freshName(inner, "OrderKey")
			inner.Columns = append(inner.Columns, nodes.ColumnDeclaration{Name: name, Expr: o.Expr})
		}
		out = append(out, &nodes.Ordering{Expr: inner.Ref(name), Direction: o.Direction})
	}
	return out, true
}
