package managers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erymuzuan/motorent-sub003/internal/testutil"
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

var widgetTable = nodes.NewTable("Core", "Widget")

// stamp sets ChangedBy on every update it sees.
type stamp struct {
	plugins.BaseTransformer
	user string
}

func (s stamp) TransformUpdate(u *nodes.UpdateStatement) (*nodes.UpdateStatement, error) {
	out := *u
	out.Assignments = append(append([]*nodes.Assignment(nil), u.Assignments...),
		&nodes.Assignment{Column: "ChangedBy", Value: nodes.Const(s.user)})
	return &out, nil
}

type refuse struct{ plugins.BaseTransformer }

var errRefused = errors.New("refused")

func (refuse) TransformDelete(*nodes.DeleteStatement) (*nodes.DeleteStatement, error) {
	return nil, errRefused
}

func TestInsertManager(t *testing.T) {
	t.Parallel()
	m := NewInsertManager(widgetTable).
		Set("Json", `{"Name":"Foo"}`).
		Set("Name", "Foo").
		Returning("WidgetId")

	tests := []struct {
		d    visitors.Dialect
		want string
		args int
	}{
		{visitors.SQLServer, "INSERT INTO [Core].[Widget] ([Json],[Name]) OUTPUT INSERTED.[WidgetId] VALUES (@p1,@p2)", 2},
		{visitors.Postgres, `INSERT INTO "Core"."Widget" ("Json","Name") VALUES ($1,$2) RETURNING "WidgetId"`, 2},
		{visitors.MySQL, "INSERT INTO `Core`.`Widget` (`Json`,`Name`) VALUES (?,?)", 2},
		{visitors.SQLite, `INSERT INTO "Core"."Widget" ("Json","Name") VALUES (?,?) RETURNING "WidgetId"`, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.d), func(t *testing.T) {
			t.Parallel()
			sql, params, err := m.ToSQL(tt.d.NewFormatter(visitors.WithParams()))
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, sql, tt.want)
			testutil.AssertEqual(t, len(params), tt.args)
			testutil.AssertEqual(t, params[1], any("Foo"))
		})
	}
}

func TestUpdateManager(t *testing.T) {
	t.Parallel()
	key := &nodes.Column{Name: "WidgetId"}
	m := NewUpdateManager(widgetTable).
		Set("Json", "{}").
		Set("Name", "Bar").
		Where(key.Eq(7)).
		Use(stamp{user: "ali"})

	sql, params, err := m.ToSQL(visitors.NewSQLServerVisitor(visitors.WithParams()))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, sql, "UPDATE [Core].[Widget] SET [Json] = @p1,[Name] = @p2,[ChangedBy] = @p3 WHERE ([WidgetId] = @p4)")
	assert.Equal(t, []any{"{}", "Bar", "ali", 7}, params)

	// the transformer works on a copy
	testutil.AssertEqual(t, len(m.Statement.Assignments), 2)
}

func TestUpdateManagerWithoutAssignments(t *testing.T) {
	t.Parallel()
	_, _, err := NewUpdateManager(widgetTable).ToSQL(visitors.NewSQLServerVisitor())
	testutil.AssertErrorIs(t, err, visitors.ErrUnsupported)
}

func TestDeleteManager(t *testing.T) {
	t.Parallel()
	key := &nodes.Column{Name: "WidgetId"}
	name := &nodes.Column{Name: "Name"}
	m := NewDeleteManager(widgetTable).Where(key.Eq(7)).Where(name.NotEq("x"))

	sql, params, err := m.ToSQL(visitors.NewPostgresVisitor(visitors.WithParams()))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, sql, `DELETE FROM "Core"."Widget" WHERE (("WidgetId" = $1) AND ("Name" <> $2))`)
	assert.Equal(t, []any{7, "x"}, params)

	sql, params, err = m.ToSQL(visitors.NewSQLServerVisitor())
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM [Core].[Widget] WHERE (([WidgetId] = 7) AND ([Name] <> 'x'))", sql)
	assert.Empty(t, params)
}

func TestDeleteManagerTransformerError(t *testing.T) {
	t.Parallel()
	_, _, err := NewDeleteManager(widgetTable).Use(refuse{}).ToSQL(visitors.NewSQLServerVisitor())
	testutil.AssertErrorIs(t, err, errRefused)
}

func TestVisitorReuseResetsParams(t *testing.T) {
	t.Parallel()
	v := visitors.NewSQLServerVisitor(visitors.WithParams())
	m := NewInsertManager(widgetTable).Set("Name", "A")
	for range 2 {
		sql, params, err := m.ToSQL(v)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, sql, "INSERT INTO [Core].[Widget] ([Name]) VALUES (@p1)")
		testutil.AssertEqual(t, len(params), 1)
	}
}
