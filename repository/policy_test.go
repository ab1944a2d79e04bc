package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erymuzuan/motorent-sub003/expr"
	"github.com/erymuzuan/motorent-sub003/plugins/policy"
)

func TestPolicyScopesEveryStatement(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	ws := seed(t, For(newConn(t, db), widgets))
	baz := ws[2]

	scoped := For(newConn(t, db, WithPolicy(policy.New(policy.Scope(map[string]string{"Core.Widget": "City"}, "Ipoh")))), widgets)

	n, err := scoped.Count(ctx, scoped.Query())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = scoped.LoadOne(ctx, scoped.Query().Where(expr.Eq(expr.Field("Name"), "Baz")))
	assert.ErrorIs(t, err, ErrNotFound)

	baz.Name = "Qux"
	changed, err := scoped.Update(ctx, baz, "siti")
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)

	removed, err := scoped.Delete(ctx, baz)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	removed, err = scoped.DeleteWhere(ctx, expr.Eq(expr.Field("Active"), true))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	all := For(newConn(t, db), widgets)
	n, err = all.Count(ctx, all.Query())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDeniedStatementsNeverRun(t *testing.T) {
	ctx := context.Background()
	db := &counting{Querier: openSQLite(t)}
	repo := For(newConn(t, db, WithPolicy(policy.New(policy.Deny("Core.Widget")))), widgets)

	_, err := repo.Insert(ctx, newWidget("Foo", "1", true, statusActive, "Ipoh"), "tester")
	assert.ErrorIs(t, err, policy.ErrDenied)

	_, err = repo.Count(ctx, repo.Query())
	assert.ErrorIs(t, err, policy.ErrDenied)

	assert.Equal(t, int32(0), db.queries.Load())
	assert.Equal(t, int32(0), db.execs.Load())
}
