package managers

import (
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// InsertManager provides a fluent API for building single-row INSERT
// statements.
type InsertManager struct {
	treeManager
	Statement *nodes.InsertStatement
}

// NewInsertManager creates a new InsertManager targeting the given table.
func NewInsertManager(into *nodes.Table) *InsertManager {
	return &InsertManager{
		Statement: &nodes.InsertStatement{Into: into},
	}
}

// Set adds a column and its value. Pass raw Go values; they are wrapped
// with nodes.Const automatically.
func (m *InsertManager) Set(col string, val any) *InsertManager {
	m.Statement.Columns = append(m.Statement.Columns, col)
	m.Statement.Values = append(m.Statement.Values, nodes.Const(val))
	return m
}

// Returning names the identity column the statement hands back.
func (m *InsertManager) Returning(col string) *InsertManager {
	m.Statement.Returning = col
	return m
}

// Use registers a transformer plugin.
func (m *InsertManager) Use(t plugins.Transformer) *InsertManager {
	m.addTransformer(t)
	return m
}

func (m *InsertManager) toSQLCore(v nodes.Visitor) (string, error) {
	stmt := m.cloneStatement()
	for _, t := range m.transformers {
		var err error
		stmt, err = t.TransformInsert(stmt)
		if err != nil {
			return "", err
		}
	}
	return stmt.Accept(v), nil
}

// ToSQL applies transformers and generates SQL with parameters.
func (m *InsertManager) ToSQL(v nodes.Visitor) (string, []any, error) {
	return toSQLParams(v, m.toSQLCore)
}

func (m *InsertManager) cloneStatement() *nodes.InsertStatement {
	return &nodes.InsertStatement{
		Into:      m.Statement.Into,
		Columns:   append([]string(nil), m.Statement.Columns...),
		Values:    append([]nodes.Node(nil), m.Statement.Values...),
		Returning: m.Statement.Returning,
	}
}
