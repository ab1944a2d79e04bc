package managers

import (
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// DeleteManager provides a fluent API for building DELETE statements.
type DeleteManager struct {
	treeManager
	Statement *nodes.DeleteStatement
}

// NewDeleteManager creates a new DeleteManager targeting the given table.
func NewDeleteManager(from *nodes.Table) *DeleteManager {
	return &DeleteManager{
		Statement: &nodes.DeleteStatement{From: from},
	}
}

// Where ANDs a condition onto the WHERE clause.
func (m *DeleteManager) Where(condition nodes.Node) *DeleteManager {
	m.Statement.Where = nodes.AndWhere(m.Statement.Where, condition)
	return m
}

// Use registers a transformer plugin.
func (m *DeleteManager) Use(t plugins.Transformer) *DeleteManager {
	m.addTransformer(t)
	return m
}

func (m *DeleteManager) toSQLCore(v nodes.Visitor) (string, error) {
	stmt := &nodes.DeleteStatement{From: m.Statement.From, Where: m.Statement.Where}
	for _, t := range m.transformers {
		var err error
		stmt, err = t.TransformDelete(stmt)
		if err != nil {
			return "", err
		}
	}
	return stmt.Accept(v), nil
}

// ToSQL applies transformers and generates SQL with parameters.
func (m *DeleteManager) ToSQL(v nodes.Visitor) (string, []any, error) {
	return toSQLParams(v, m.toSQLCore)
}
