package nodes

// Assignment is a column = value pair in a SET clause.
type Assignment struct {
	Column string
	Value  Node
}

func (n *Assignment) Accept(v Visitor) string { return v.VisitAssignment(n) }

// InsertStatement inserts one row. Returning names the identity column the
// dialect should hand back, if it can.
type InsertStatement struct {
	Into      *Table
	Columns   []string
	Values    []Node
	Returning string
}

func (n *InsertStatement) Accept(v Visitor) string { return v.VisitInsertStatement(n) }

// UpdateStatement represents UPDATE ... SET ... WHERE.
type UpdateStatement struct {
	Table       *Table
	Assignments []*Assignment
	Where       Node
}

func (n *UpdateStatement) Accept(v Visitor) string { return v.VisitUpdateStatement(n) }

// DeleteStatement represents DELETE FROM ... WHERE.
type DeleteStatement struct {
	From  *Table
	Where Node
}

func (n *DeleteStatement) Accept(v Visitor) string { return v.VisitDeleteStatement(n) }
