package visitors

import (
	"fmt"
	"strings"

	"github.com/erymuzuan/motorent-sub003/internal/quoting"
	"github.com/erymuzuan/motorent-sub003/nodes"
)

// SQLServerVisitor generates SQL Server (T-SQL) SQL. It is the reference
// dialect: identifiers are bracketed ([Core].[Widget]), string concatenation
// uses +, booleans are 1 and 0, and bind parameters are @p1, @p2, ...
type SQLServerVisitor struct {
	*baseVisitor
}

// NewSQLServerVisitor creates a SQLServerVisitor ready for use.
func NewSQLServerVisitor(opts ...Option) *SQLServerVisitor {
	v := &SQLServerVisitor{}
	v.baseVisitor = newBase(v, quoting.Bracket)
	v.escape = quoting.EscapeQuotes
	v.concat = func(parts ...string) string { return strings.Join(parts, " + ") }
	v.placeholder = func(i int) string { return fmt.Sprintf("@p%d", i) }
	v.applyOptions(opts)
	return v
}

// VisitInsertStatement hands the identity back through an OUTPUT clause.
func (v *SQLServerVisitor) VisitInsertStatement(n *nodes.InsertStatement) string {
	if n.Returning == "" {
		return v.insert(n, "", "")
	}
	return v.insert(n, " OUTPUT INSERTED."+v.quoteIdent(n.Returning), "")
}
