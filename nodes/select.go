package nodes

// ColumnDeclaration is one entry of a select list: an expression exposed
// under Name to whatever selects from this one.
type ColumnDeclaration struct {
	Name string
	Expr Node
}

// Select is a SELECT over a single source. A bound Select always has at
// least one column; an entity query that has not been shaped yet carries a
// single Placeholder column named Data.
type Select struct {
	Alias    string
	Columns  []ColumnDeclaration
	From     Node
	Where    Node
	GroupBy  []Node
	OrderBy  []*Ordering
	Distinct bool
}

func (s *Select) Accept(v Visitor) string { return v.VisitSelect(s) }

// Clone returns a shallow copy whose slices can be replaced without
// affecting s.
func (s *Select) Clone() *Select {
	out := *s
	out.Columns = append([]ColumnDeclaration(nil), s.Columns...)
	out.GroupBy = append([]Node(nil), s.GroupBy...)
	out.OrderBy = append([]*Ordering(nil), s.OrderBy...)
	return &out
}

// Decl returns the declaration named name.
func (s *Select) Decl(name string) (ColumnDeclaration, bool) {
	for _, d := range s.Columns {
		if d.Name == name {
			return d, true
		}
	}
	return ColumnDeclaration{}, false
}

// DeclNames returns the declared column names in order.
func (s *Select) DeclNames() []string {
	out := make([]string, len(s.Columns))
	for i, d := range s.Columns {
		out[i] = d.Name
	}
	return out
}

// Ref returns a column that reads declaration name from outside s.
func (s *Select) Ref(name string) *Column {
	c := &Column{Alias: s.Alias, Name: name}
	if d, ok := s.Decl(name); ok {
		if inner, ok := d.Expr.(*Column); ok {
			c.Type = inner.Type
		}
	}
	return c
}

// HasPlaceholder reports whether the select list is still unshaped.
func (s *Select) HasPlaceholder() bool {
	for _, d := range s.Columns {
		if _, ok := d.Expr.(*Placeholder); ok {
			return true
		}
	}
	return false
}

// AndWhere returns cond ANDed onto the existing filter.
func AndWhere(where, cond Node) Node {
	if where == nil {
		return cond
	}
	if cond == nil {
		return where
	}
	return &Binary{Op: OpAnd, Left: where, Right: cond}
}

// Direction is the sort direction of an ordering.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Ordering is one ORDER BY entry.
type Ordering struct {
	Expr      Node
	Direction Direction
}

func (n *Ordering) Accept(v Visitor) string { return v.VisitOrdering(n) }
