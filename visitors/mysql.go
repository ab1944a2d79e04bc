package visitors

import (
	"strings"

	"github.com/erymuzuan/motorent-sub003/internal/quoting"
	"github.com/erymuzuan/motorent-sub003/nodes"
)

// MySQLVisitor generates MySQL-dialect SQL.
// Identifiers are quoted with backticks: `Core`.`Widget`.
type MySQLVisitor struct {
	*baseVisitor
}

// NewMySQLVisitor creates a MySQLVisitor ready for use.
func NewMySQLVisitor(opts ...Option) *MySQLVisitor {
	v := &MySQLVisitor{}
	v.baseVisitor = newBase(v, quoting.Backtick)
	v.escape = quoting.EscapeString
	v.concat = func(parts ...string) string { return "CONCAT(" + strings.Join(parts, ", ") + ")" }
	v.applyOptions(opts)
	return v
}

// VisitInsertStatement never returns rows; the key comes from LastInsertId.
func (v *MySQLVisitor) VisitInsertStatement(n *nodes.InsertStatement) string {
	return v.insert(n, "", "")
}

// VisitJoin rejects CROSS APPLY, which MySQL spells as a lateral join.
func (v *MySQLVisitor) VisitJoin(n *nodes.Join) string {
	if n.Kind == nodes.CrossApply {
		return v.unsupported("CROSS APPLY on mysql")
	}
	return v.baseVisitor.VisitJoin(n)
}
