package rewrite

import (
	"fmt"

	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// RedundantSubqueryRemover collapses a select over a subquery into one
// select when the subquery only filters, orders and renames. References
// into the subquery are replaced by the expressions it declared, and the
// merged select keeps the outer alias, so readers of the outer select are
// unaffected. A join side that merely exposes its table's columns is
// replaced by the table itself under the same alias.
type RedundantSubqueryRemover struct {
	plugins.BaseTransformer
}

func (RedundantSubqueryRemover) TransformSelect(sel *nodes.Select, _ nodes.Node) (*nodes.Select, error) {
	return collapse(sel)
}

func collapse(s *nodes.Select) (*nodes.Select, error) {
	s, err := mapChildren(s, collapse)
	if err != nil {
		return nil, err
	}
	if j, ok := s.From.(*nodes.Join); ok {
		left, right := tableOnly(j.Left), tableOnly(j.Right)
		if left != j.Left || right != j.Right {
			s = s.Clone()
			s.From = &nodes.Join{Kind: j.Kind, Left: left, Right: right, On: j.On}
		}
		return s, nil
	}
	for {
		inner, ok := s.From.(*nodes.Select)
		if !ok || !mergeable(inner) {
			return s, nil
		}
		if s, err = merge(s, inner); err != nil {
			return nil, err
		}
	}
}

func mergeable(inner *nodes.Select) bool {
	return !inner.Distinct && !aggregating(inner) && !inner.HasPlaceholder()
}

func merge(outer, inner *nodes.Select) (*nodes.Select, error) {
	var missing string
	subst := func(n nodes.Node) nodes.Node {
		return nodes.MapExpr(n, func(n nodes.Node) nodes.Node {
			c, ok := n.(*nodes.Column)
			if !ok || c.Alias != inner.Alias {
				return n
			}
			d, ok := inner.Decl(c.Name)
			if !ok {
				missing = c.Name
				return n
			}
			return d.Expr
		})
	}

	out := &nodes.Select{
		Alias:    outer.Alias,
		From:     inner.From,
		Where:    nodes.AndWhere(inner.Where, subst(outer.Where)),
		Distinct: outer.Distinct,
	}
	for _, d := range outer.Columns {
		out.Columns = append(out.Columns, nodes.ColumnDeclaration{Name: d.Name, Expr: subst(d.Expr)})
	}
	for _, g := range outer.GroupBy {
		out.GroupBy = append(out.GroupBy, subst(g))
	}
	orders := outer.OrderBy
	if len(orders) == 0 && !aggregating(outer) {
		orders = inner.OrderBy
	} else {
		orders = mapOrders(orders, subst)
	}
	out.OrderBy = orders
	if missing != "" {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnboundColumn, inner.Alias, missing)
	}
	return out, nil
}

func mapOrders(orders []*nodes.Ordering, fn func(nodes.Node) nodes.Node) []*nodes.Ordering {
	out := make([]*nodes.Ordering, len(orders))
	for i, o := range orders {
		out[i] = &nodes.Ordering{Expr: fn(o.Expr), Direction: o.Direction}
	}
	return out
}

// tableOnly returns a table alias in place of a select that exposes its
// table's columns unchanged.
func tableOnly(n nodes.Node) nodes.Node {
	s, ok := n.(*nodes.Select)
	if !ok || s.Where != nil || len(s.OrderBy) > 0 || s.Distinct || len(s.GroupBy) > 0 {
		return n
	}
	ta, ok := s.From.(*nodes.TableAlias)
	if !ok {
		return n
	}
	for _, d := range s.Columns {
		c, ok := d.Expr.(*nodes.Column)
		if !ok || c.Alias != ta.AliasName || c.Name != d.Name {
			return n
		}
	}
	return ta.Relation.Alias(s.Alias)
}
