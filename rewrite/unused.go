package rewrite

import (
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// UnusedColumnRemover drops declarations nobody reads. The outermost
// select keeps what the projector reads; a nested select keeps what its
// parent references. DISTINCT selects are left alone, since their column
// list decides which rows are duplicates. A select never loses its last
// column.
type UnusedColumnRemover struct {
	plugins.BaseTransformer
}

func (UnusedColumnRemover) TransformSelect(sel *nodes.Select, projector nodes.Node) (*nodes.Select, error) {
	out := sel
	if projector != nil {
		out = prune(sel, func(d nodes.ColumnDeclaration) bool {
			for _, c := range nodes.ColumnsOf(projector) {
				if c.Alias == sel.Alias && c.Name == d.Name {
					return true
				}
				if dc, ok := d.Expr.(*nodes.Column); ok && nodes.SameColumn(c, dc) {
					return true
				}
			}
			return false
		})
	}
	return pruneChildren(out)
}

func pruneChildren(s *nodes.Select) (*nodes.Select, error) {
	used := map[nodes.Column]bool{}
	for _, n := range clauses(s) {
		for _, c := range nodes.ColumnsOf(n) {
			used[nodes.Column{Alias: c.Alias, Name: c.Name}] = true
		}
	}
	return mapChildren(s, func(child *nodes.Select) (*nodes.Select, error) {
		pruned := prune(child, func(d nodes.ColumnDeclaration) bool {
			return used[nodes.Column{Alias: child.Alias, Name: d.Name}]
		})
		return pruneChildren(pruned)
	})
}

// prune keeps the declarations of s that keep reports as used.
func prune(s *nodes.Select, keep func(nodes.ColumnDeclaration) bool) *nodes.Select {
	if s.Distinct || len(s.Columns) <= 1 {
		return s
	}
	var cols []nodes.ColumnDeclaration
	for _, d := range s.Columns {
		if keep(d) {
			cols = append(cols, d)
		}
	}
	if len(cols) == len(s.Columns) {
		return s
	}
	if len(cols) == 0 {
		cols = s.Columns[:1]
	}
	out := s.Clone()
	out.Columns = append([]nodes.ColumnDeclaration(nil), cols...)
	return out
}
