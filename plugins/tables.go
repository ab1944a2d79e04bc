package plugins

import "github.com/erymuzuan/motorent-sub003/nodes"

// TableRef holds a table source of a select and the alias its columns are
// scoped to.
type TableRef struct {
	Relation *nodes.TableAlias
	Name     string // schema-qualified table name
}

// CollectTables returns the table sources of sel, including both sides of
// joins. Subqueries are skipped.
func CollectTables(sel *nodes.Select) []TableRef {
	var refs []TableRef
	for _, ta := range nodes.Tables(sel.From) {
		refs = append(refs, TableRef{Relation: ta, Name: ta.Relation.String()})
	}
	return refs
}

// Selects returns the selects directly below sel: its FROM subquery or the
// subqueries on either side of its joins.
func Selects(sel *nodes.Select) []*nodes.Select {
	var out []*nodes.Select
	var walk func(n nodes.Node)
	walk = func(n nodes.Node) {
		switch r := n.(type) {
		case *nodes.Select:
			out = append(out, r)
		case *nodes.Join:
			walk(r.Left)
			walk(r.Right)
		}
	}
	walk(sel.From)
	return out
}
