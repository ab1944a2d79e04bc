package visitors

import (
	"errors"
	"testing"

	"github.com/erymuzuan/motorent-sub003/internal/testutil"
	"github.com/erymuzuan/motorent-sub003/nodes"
)

func TestParseDialect(t *testing.T) {
	t.Parallel()
	cases := map[string]Dialect{
		"sqlserver":  SQLServer,
		"MSSQL":      SQLServer,
		"postgresql": Postgres,
		"pgx":        Postgres,
		"mariadb":    MySQL,
		"sqlite3":    SQLite,
	}
	for in, want := range cases {
		got, err := ParseDialect(in)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, got, want)
	}
	_, err := ParseDialect("oracle")
	testutil.AssertError(t, err)
}

func TestDialectDriver(t *testing.T) {
	t.Parallel()
	testutil.AssertEqual(t, SQLServer.Driver(), "sqlserver")
	testutil.AssertEqual(t, Postgres.Driver(), "pgx")
	testutil.AssertEqual(t, MySQL.Driver(), "mysql")
	testutil.AssertEqual(t, SQLite.Driver(), "sqlite")
	testutil.AssertEqual(t, MySQL.ReturnsKey(), false)
	testutil.AssertEqual(t, SQLite.ReturnsKey(), true)
}

func TestDialectFormat(t *testing.T) {
	t.Parallel()
	sql, params, err := Postgres.Format(widget().Col("Name").Eq("Foo"), WithParams())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, sql, `("Name" = $1)`)
	testutil.AssertEqual(t, len(params), 1)

	sql, params, err = Postgres.Format(widget().Col("Name").Eq("Foo"))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, sql, `("Name" = 'Foo')`)
	testutil.AssertEqual(t, len(params), 0)

	_, _, err = SQLServer.Format(&nodes.Placeholder{Alias: "s0"})
	if !errors.Is(err, ErrUnresolvedPlaceholder) {
		t.Errorf("expected ErrUnresolvedPlaceholder, got %v", err)
	}
}

func TestDialectPage(t *testing.T) {
	t.Parallel()
	const sql = "SELECT [Name] FROM [Core].[Widget] ORDER BY [Name]"
	cases := []struct {
		d    Dialect
		want string
	}{
		{SQLServer, sql + " OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY"},
		{Postgres, sql + " OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY"},
		{MySQL, sql + " LIMIT 10 OFFSET 20"},
		{SQLite, sql + " LIMIT 10 OFFSET 20"},
	}
	for _, tc := range cases {
		got, err := tc.d.Page(sql, 3, 10)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, got, tc.want)
	}

	first, err := SQLite.Page(sql, 1, 5)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, first, sql+" LIMIT 5 OFFSET 0")

	_, err = SQLServer.Page(sql, 0, 10)
	testutil.AssertError(t, err)
	_, err = SQLServer.Page(sql, 1, 0)
	testutil.AssertError(t, err)
	_, err = SQLServer.Page("SELECT [Name] FROM [Core].[Widget]", 1, 10)
	if !errors.Is(err, ErrUnorderedPaging) {
		t.Errorf("expected ErrUnorderedPaging, got %v", err)
	}
}

func TestDialectFormatPage(t *testing.T) {
	t.Parallel()
	w := widget()
	ordered := &nodes.Select{
		Alias:   "t0",
		Columns: []nodes.ColumnDeclaration{{Name: "Name", Expr: w.Col("Name")}},
		From:    w,
		OrderBy: []*nodes.Ordering{w.Col("Name").Asc()},
	}
	sql, _, err := SQLite.FormatPage(ordered, 2, 5)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, sql, `SELECT "Name" FROM "Core"."Widget" ORDER BY "Name" LIMIT 5 OFFSET 5`)

	_, _, err = SQLServer.FormatPage(ordered, 0, 5)
	testutil.AssertError(t, err)

	literal := &nodes.Select{
		Alias:   "t0",
		Columns: []nodes.ColumnDeclaration{{Name: "Name", Expr: w.Col("Name")}},
		From:    w,
		Where:   w.Col("Name").Eq("x ORDER BY y"),
	}
	outer := &nodes.Select{
		Alias:   "t1",
		Columns: []nodes.ColumnDeclaration{{Name: "Name", Expr: ordered.Ref("Name")}},
		From:    ordered,
	}
	for _, sel := range []*nodes.Select{literal, outer} {
		_, _, err := SQLServer.FormatPage(sel, 1, 10)
		testutil.AssertErrorIs(t, err, ErrUnorderedPaging)
	}
}
