// Package rewrite holds the passes that normalize a bound select before it
// is formatted. Each pass is a plugins.Transformer and returns a new tree,
// sharing whatever it did not change.
package rewrite

import (
	"errors"
	"fmt"

	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// ErrUnboundColumn is returned by AliasValidator for a column whose alias
// is not visible from the select it appears in.
var ErrUnboundColumn = errors.New("column refers to an alias that is not in scope")

// Default returns the standard passes in the order they must run.
func Default() []plugins.Transformer {
	return []plugins.Transformer{
		OrderByRewriter{},
		UnusedColumnRemover{},
		RedundantSubqueryRemover{},
		AliasValidator{},
	}
}

// mapChildren rebuilds the selects directly below s with fn. s is copied
// only when a child changes.
func mapChildren(s *nodes.Select, fn func(*nodes.Select) (*nodes.Select, error)) (*nodes.Select, error) {
	from, err := mapDirect(s.From, fn)
	if err != nil {
		return nil, err
	}
	if from == s.From {
		return s, nil
	}
	out := s.Clone()
	out.From = from
	return out, nil
}

func mapDirect(n nodes.Node, fn func(*nodes.Select) (*nodes.Select, error)) (nodes.Node, error) {
	switch r := n.(type) {
	case *nodes.Select:
		return fn(r)
	case *nodes.Join:
		l, err := mapDirect(r.Left, fn)
		if err != nil {
			return nil, err
		}
		right, err := mapDirect(r.Right, fn)
		if err != nil {
			return nil, err
		}
		if l == r.Left && right == r.Right {
			return r, nil
		}
		return &nodes.Join{Kind: r.Kind, Left: l, Right: right, On: r.On}, nil
	}
	return n, nil
}

// clauses returns every expression of s that is evaluated in its scope.
func clauses(s *nodes.Select) []nodes.Node {
	var out []nodes.Node
	for _, d := range s.Columns {
		out = append(out, d.Expr)
	}
	out = append(out, s.Where)
	out = append(out, s.GroupBy...)
	for _, o := range s.OrderBy {
		out = append(out, o)
	}
	var joins func(n nodes.Node)
	joins = func(n nodes.Node) {
		if j, ok := n.(*nodes.Join); ok {
			joins(j.Left)
			joins(j.Right)
			out = append(out, j.On)
		}
	}
	joins(s.From)
	return out
}

// aggregating reports whether s folds its rows into groups.
func aggregating(s *nodes.Select) bool {
	if len(s.GroupBy) > 0 {
		return true
	}
	for _, d := range s.Columns {
		found := false
		nodes.Walk(d.Expr, func(n nodes.Node) bool {
			if _, ok := n.(*nodes.Aggregate); ok {
				found = true
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

// declFor returns the name of the declaration of s that computes e.
func declFor(s *nodes.Select, e nodes.Node) (string, bool) {
	for _, d := range s.Columns {
		if d.Expr == e {
			return d.Name, true
		}
		a, ok1 := d.Expr.(*nodes.Column)
		b, ok2 := e.(*nodes.Column)
		if ok1 && ok2 && nodes.SameColumn(a, b) {
			return d.Name, true
		}
	}
	return "", false
}

// freshName returns base, or base followed by a number, unused in s.
func freshName(s *nodes.Select, base string) string {
	name := base
	for i := 1; ; i++ {
		if _, taken := s.Decl(name); !taken {
			return name
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}
