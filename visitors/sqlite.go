package visitors

import (
	"strings"

	"github.com/erymuzuan/motorent-sub003/internal/quoting"
	"github.com/erymuzuan/motorent-sub003/nodes"
)

// SQLiteVisitor generates SQLite-dialect SQL.
// Identifiers are quoted with double quotes: "Core"."Widget" (ANSI SQL).
type SQLiteVisitor struct {
	*baseVisitor
}

// NewSQLiteVisitor creates a SQLiteVisitor ready for use.
func NewSQLiteVisitor(opts ...Option) *SQLiteVisitor {
	v := &SQLiteVisitor{}
	v.baseVisitor = newBase(v, quoting.DoubleQuote)
	v.escape = quoting.EscapeQuotes
	v.concat = func(parts ...string) string { return strings.Join(parts, " || ") }
	v.applyOptions(opts)
	return v
}

// VisitJoin rejects CROSS APPLY, which SQLite has no form of.
func (v *SQLiteVisitor) VisitJoin(n *nodes.Join) string {
	if n.Kind == nodes.CrossApply {
		return v.unsupported("CROSS APPLY on sqlite")
	}
	return v.baseVisitor.VisitJoin(n)
}
