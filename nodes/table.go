package nodes

// Table is a schema-qualified table reference. It is a leaf.
type Table struct {
	Schema string
	Name   string
}

func NewTable(schema, name string) *Table {
	return &Table{Schema: schema, Name: name}
}

func (t *Table) Accept(v Visitor) string { return v.VisitTable(t) }

// String returns Schema.Name.
func (t *Table) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Alias creates an aliased reference to this table.
func (t *Table) Alias(name string) *TableAlias {
	return &TableAlias{Relation: t, AliasName: name}
}

// TableAlias is a table source with the alias its columns are scoped to.
type TableAlias struct {
	Relation  *Table
	AliasName string
}

func (ta *TableAlias) Accept(v Visitor) string { return v.VisitTableAlias(ta) }

// Col creates a column reference bound to this alias.
func (ta *TableAlias) Col(name string) *Column {
	return &Column{Alias: ta.AliasName, Name: name}
}

// SourceAlias returns the alias a source exposes to its enclosing select:
// the alias name for a table alias, the select alias for a subquery, and
// "" for joins and bare tables.
func SourceAlias(n Node) string {
	switch r := n.(type) {
	case *TableAlias:
		return r.AliasName
	case *Select:
		return r.Alias
	default:
		return ""
	}
}

// Aliases returns every alias visible from a FROM clause, left to right.
func Aliases(from Node) []string {
	switch r := from.(type) {
	case *Join:
		return append(Aliases(r.Left), Aliases(r.Right)...)
	case *TableAlias, *Select:
		return []string{SourceAlias(r)}
	default:
		return nil
	}
}

// Tables returns every table alias reachable from a FROM clause without
// entering subqueries.
func Tables(from Node) []*TableAlias {
	switch r := from.(type) {
	case *Join:
		return append(Tables(r.Left), Tables(r.Right)...)
	case *TableAlias:
		return []*TableAlias{r}
	default:
		return nil
	}
}
