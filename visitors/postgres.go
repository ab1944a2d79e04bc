package visitors

import (
	"fmt"
	"strings"

	"github.com/erymuzuan/motorent-sub003/internal/quoting"
	"github.com/erymuzuan/motorent-sub003/nodes"
)

// PostgresVisitor generates PostgreSQL-dialect SQL.
// Identifiers are quoted with double quotes: "Core"."Widget".
type PostgresVisitor struct {
	*baseVisitor
}

// NewPostgresVisitor creates a PostgresVisitor ready for use.
func NewPostgresVisitor(opts ...Option) *PostgresVisitor {
	v := &PostgresVisitor{}
	v.baseVisitor = newBase(v, quoting.DoubleQuote)
	v.escape = quoting.EscapeQuotes
	v.concat = func(parts ...string) string { return strings.Join(parts, " || ") }
	v.trueSQL, v.falseSQL = "TRUE", "FALSE"
	v.placeholder = func(i int) string { return fmt.Sprintf("$%d", i) }
	v.applyOptions(opts)
	return v
}

// VisitJoin spells CROSS APPLY as a lateral cross join.
func (v *PostgresVisitor) VisitJoin(n *nodes.Join) string {
	if n.Kind != nodes.CrossApply {
		return v.baseVisitor.VisitJoin(n)
	}
	if n.On != nil {
		return v.unsupported("%s with a join condition", n.Kind)
	}
	return v.source(n.Left) + " CROSS JOIN LATERAL " + v.source(n.Right)
}
