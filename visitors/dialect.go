package visitors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erymuzuan/motorent-sub003/nodes"
)

// ErrUnorderedPaging is returned when a page is requested from a statement
// without an ORDER BY.
var ErrUnorderedPaging = errors.New("paging requires an ORDER BY")

// Dialect names a supported SQL dialect.
type Dialect string

const (
	SQLServer Dialect = "sqlserver"
	Postgres  Dialect = "postgres"
	MySQL     Dialect = "mysql"
	SQLite    Dialect = "sqlite"
)

// ParseDialect accepts a dialect or database/sql driver name.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "sqlserver", "mssql", "tsql":
		return SQLServer, nil
	case "postgres", "postgresql", "pg", "pgx":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unknown dialect %q", s)
}

// NewFormatter returns a fresh visitor for d.
func (d Dialect) NewFormatter(opts ...Option) Formatter {
	switch d {
	case Postgres:
		return NewPostgresVisitor(opts...)
	case MySQL:
		return NewMySQLVisitor(opts...)
	case SQLite:
		return NewSQLiteVisitor(opts...)
	default:
		return NewSQLServerVisitor(opts...)
	}
}

// Driver returns the database/sql driver name registered for d.
func (d Dialect) Driver() string {
	switch d {
	case Postgres:
		return "pgx"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	default:
		return "sqlserver"
	}
}

// ReturnsKey reports whether an INSERT hands the generated key back as a
// result row. MySQL reports it through LastInsertId instead.
func (d Dialect) ReturnsKey() bool {
	return d != MySQL
}

// Format renders n with a fresh visitor. Parameters are returned when the
// visitor runs in parameterized mode.
func (d Dialect) Format(n nodes.Node, opts ...Option) (string, []any, error) {
	f := d.NewFormatter(opts...)
	sql := n.Accept(f)
	if err := f.Err(); err != nil {
		return "", nil, err
	}
	return sql, f.Params(), nil
}

// FormatPage formats sel and appends the row window for the 1-based page
// of the given size. sel itself must be ordered.
func (d Dialect) FormatPage(sel *nodes.Select, page, size int, opts ...Option) (string, []any, error) {
	if len(sel.OrderBy) == 0 {
		return "", nil, ErrUnorderedPaging
	}
	sql, params, err := d.Format(sel, opts...)
	if err != nil {
		return "", nil, err
	}
	if sql, err = d.window(sql, page, size); err != nil {
		return "", nil, err
	}
	return sql, params, nil
}

// Page appends the row window to already formatted text. It does not parse
// sql: any "ORDER BY" in it, even in a subquery or a literal, passes the
// check. Use FormatPage when the tree is at hand.
func (d Dialect) Page(sql string, page, size int) (string, error) {
	if !strings.Contains(sql, "ORDER BY") {
		return "", ErrUnorderedPaging
	}
	return d.window(sql, page, size)
}

func (d Dialect) window(sql string, page, size int) (string, error) {
	if page < 1 || size < 1 {
		return "", fmt.Errorf("invalid page %d of size %d", page, size)
	}
	offset := (page - 1) * size
	switch d {
	case MySQL, SQLite:
		return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, size, offset), nil
	default:
		return fmt.Sprintf("%s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", sql, offset, size), nil
	}
}
