package managers

import (
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// UpdateManager provides a fluent API for building UPDATE statements.
type UpdateManager struct {
	treeManager
	Statement *nodes.UpdateStatement
}

// NewUpdateManager creates a new UpdateManager targeting the given table.
func NewUpdateManager(table *nodes.Table) *UpdateManager {
	return &UpdateManager{
		Statement: &nodes.UpdateStatement{Table: table},
	}
}

// Set adds a column assignment to the SET clause.
// val can be a raw Go value or a Node.
func (m *UpdateManager) Set(col string, val any) *UpdateManager {
	m.Statement.Assignments = append(m.Statement.Assignments, &nodes.Assignment{
		Column: col,
		Value:  nodes.Const(val),
	})
	return m
}

// Where ANDs a condition onto the WHERE clause.
func (m *UpdateManager) Where(condition nodes.Node) *UpdateManager {
	m.Statement.Where = nodes.AndWhere(m.Statement.Where, condition)
	return m
}

// Use registers a transformer plugin.
func (m *UpdateManager) Use(t plugins.Transformer) *UpdateManager {
	m.addTransformer(t)
	return m
}

func (m *UpdateManager) toSQLCore(v nodes.Visitor) (string, error) {
	stmt := m.cloneStatement()
	for _, t := range m.transformers {
		var err error
		stmt, err = t.TransformUpdate(stmt)
		if err != nil {
			return "", err
		}
	}
	return stmt.Accept(v), nil
}

// ToSQL applies transformers and generates SQL with parameters.
func (m *UpdateManager) ToSQL(v nodes.Visitor) (string, []any, error) {
	return toSQLParams(v, m.toSQLCore)
}

func (m *UpdateManager) cloneStatement() *nodes.UpdateStatement {
	return &nodes.UpdateStatement{
		Table:       m.Statement.Table,
		Assignments: append([]*nodes.Assignment(nil), m.Statement.Assignments...),
		Where:       m.Statement.Where,
	}
}
