package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erymuzuan/motorent-sub003/cache"
	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/expr"
	"github.com/erymuzuan/motorent-sub003/internal/retry"
	"github.com/erymuzuan/motorent-sub003/managers"
	"github.com/erymuzuan/motorent-sub003/tenant"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

var (
	name  = expr.Field("Name")
	price = expr.Field("Price")
)

func TestInsertThenGetRoundTrips(t *testing.T) {
	t.Parallel()
	repo := For(newConn(t, openSQLite(t)), widgets)
	ctx := context.Background()

	w := newWidget("Foo", "12.5", true, statusActive, "Ipoh")
	id, err := repo.Insert(ctx, w, "ali")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, id, w.ID)
	assert.Equal(t, "web-1", w.WebId)
	assert.Equal(t, "ali", w.CreatedBy)
	assert.Equal(t, fixedNow, w.CreatedDate)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, w.Price.Equal(got.Price))
	got.Price = w.Price
	assert.Equal(t, w, got)
}

func TestLoadOneByFilter(t *testing.T) {
	t.Parallel()
	repo := For(newConn(t, openSQLite(t)), widgets)
	ctx := context.Background()
	seed(t, repo)

	got, err := repo.LoadOneWhere(ctx, expr.Eq(name, "Bar"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
	assert.Equal(t, statusDraft, got.Status)

	got, err = repo.LoadOne(ctx, repo.Query().Where(expr.Field("Active")).OrderByDescending(price))
	require.NoError(t, err)
	assert.Equal(t, "Foo", got.Name)

	_, err = repo.LoadOneWhere(ctx, expr.Eq(name, "Nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadPageWithoutOrderUsesKey(t *testing.T) {
	t.Parallel()
	repo := For(newConn(t, openSQLite(t)), widgets)
	ctx := context.Background()
	// insert out of name order so only the key gives rows 11-20
	for i := 25; i >= 1; i-- {
		_, err := repo.Insert(ctx, newWidget(fmt.Sprintf("w%02d", i), "1", true, statusActive, "Ipoh"), "seed")
		require.NoError(t, err)
	}

	page, err := repo.Load(ctx, repo.Query(), 2, 10, true)
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.TotalRows)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PageSize)
	require.Len(t, page.Items, 10)
	for i, w := range page.Items {
		assert.Equal(t, int64(11+i), w.ID)
	}

	page, err = repo.Load(ctx, repo.Query().OrderBy(name), 3, 10, false)
	require.NoError(t, err)
	assert.Zero(t, page.TotalRows)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "w21", page.Items[0].Name)
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	repo := For(newConn(t, openSQLite(t)), widgets)
	ctx := context.Background()
	ws := seed(t, repo)

	w := ws[1]
	w.Name = "Qux"
	w.Status = statusActive
	n, err := repo.Update(ctx, w, "siti")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.LoadOneWhere(ctx, expr.Eq(name, "Qux"))
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, statusActive, got.Status)
	assert.Equal(t, "siti", got.ChangedBy)
	assert.Equal(t, "tester", got.CreatedBy)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	repo := For(newConn(t, openSQLite(t)), widgets)
	ctx := context.Background()
	ws := seed(t, repo)

	n, err := repo.Delete(ctx, ws[0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteWhere(ctx, expr.Eq(expr.Field("Address.City"), "Ipoh"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := repo.Count(ctx, repo.Query())
	require.NoError(t, err)
	assert.Equal(t, int64(1), left)
}

func TestAggregates(t *testing.T) {
	t.Parallel()
	repo := For(newConn(t, openSQLite(t)), widgets)
	ctx := context.Background()
	seed(t, repo)
	all := repo.Query()

	n, err := repo.Count(ctx, all.Where(expr.Field("Active")))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sum, err := repo.Sum(ctx, all, price)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("30")), sum.String())

	avg, err := repo.Avg(ctx, all, price)
	require.NoError(t, err)
	assert.True(t, avg.Equal(decimal.RequireFromString("10")), avg.String())

	highest, err := Max[decimal.Decimal](ctx, repo, all, price)
	require.NoError(t, err)
	assert.True(t, highest.Equal(decimal.RequireFromString("12.5")), highest.String())

	first, err := Min[string](ctx, repo, all, name)
	require.NoError(t, err)
	assert.Equal(t, "Bar", first)

	none, err := Max[string](ctx, repo, all.Where(expr.Eq(name, "Nope")), name)
	require.NoError(t, err)
	assert.Empty(t, none)

	cities, err := Distinct[string](ctx, repo, all, expr.Field("Address.City"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ipoh", "Kuantan"}, cities)

	groups, err := GroupCount[string](ctx, repo, all, expr.Field("Status"))
	require.NoError(t, err)
	assert.Equal(t, []Group[string]{{Key: "Active", Count: 2}, {Key: "Draft", Count: 1}}, groups)

	totals, err := GroupSum[string](ctx, repo, all, expr.Field("Address.City"), price)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "Ipoh", totals[0].Key)
	assert.True(t, totals[0].Sum.Equal(decimal.RequireFromString("22.5")), totals[0].Sum.String())
	assert.Equal(t, "Kuantan", totals[1].Key)
}

func TestReaderAndExecute(t *testing.T) {
	t.Parallel()
	repo := For(newConn(t, openSQLite(t)), widgets)
	ctx := context.Background()
	seed(t, repo)

	rows, err := repo.Reader(ctx, repo.Query().Where(expr.Eq(name, "Baz")), name, expr.Field("Address.City"))
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"Name": "Baz", "Address_City": "Kuantan"}}, rows)

	type label struct {
		Label string          `json:"Label"`
		Price decimal.Decimal `json:"Price"`
	}
	q := repo.Query().
		Where(expr.Gt(price, 8)).
		OrderBy(price).
		Select(expr.NewObject(expr.Bind("Label", name), expr.Bind("Price", price)))
	labels, err := Execute[label](ctx, repo, q)
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "Bar", labels[0].Label)
	assert.Equal(t, "Foo", labels[1].Label)
	assert.True(t, labels[1].Price.Equal(decimal.RequireFromString("12.5")))

	entities, err := Execute[*widget](ctx, repo, repo.Query().OrderByDescending(name))
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, "Foo", entities[0].Name)
	assert.Equal(t, int64(1), entities[0].ID)

	_, err = Execute[label](ctx, repo, repo.Query())
	assert.Error(t, err)
}

func TestTransientFailuresAreRetried(t *testing.T) {
	t.Parallel()
	db := openSQLite(t)
	flaky := &counting{Querier: db, failures: 3}

	var waited time.Duration
	policy := retry.Default(nil)
	policy.Sleep = func(_ context.Context, d time.Duration) error {
		waited += d
		return nil
	}
	metrics := NewMetrics(prometheus.NewRegistry())
	repo := For(newConn(t, flaky, WithRetry(policy), WithMetrics(metrics)), widgets)

	n, err := repo.Count(context.Background(), repo.Query())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.EqualValues(t, 4, flaky.queries.Load())
	assert.GreaterOrEqual(t, waited, 600*time.Millisecond+1200*time.Millisecond+2400*time.Millisecond)
	assert.Equal(t, 3.0, promtest.ToFloat64(metrics.Retries.WithLabelValues("count")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.Executions.WithLabelValues("count", "ok")))
}

func TestRetriesExhausted(t *testing.T) {
	t.Parallel()
	flaky := &counting{Querier: openSQLite(t), failures: 100}
	policy := retry.Default(nil)
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	repo := For(newConn(t, flaky, WithRetry(policy)), widgets)

	_, err := repo.Count(context.Background(), repo.Query())
	var xe *ExecError
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, retry.DefaultAttempts, xe.Attempts)
	assert.ErrorIs(t, err, errThrottled)
	assert.Equal(t, `SELECT COUNT(*) FROM "Core"."Widget"`, xe.SQL)
}

func TestPermanentFailureCarriesSQL(t *testing.T) {
	t.Parallel()
	missing := &entity.Mapping[*widget]{
		Meta: entity.Meta{Schema: "Core", Name: "Missing"},
		New:  func() *widget { return &widget{} },
	}
	repo := For(newConn(t, openSQLite(t)), missing)

	_, err := repo.Count(context.Background(), repo.Query())
	var xe *ExecError
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, 1, xe.Attempts)
	assert.Equal(t, "count", xe.Op)
	assert.Contains(t, xe.Error(), `SELECT COUNT(*) FROM "Core"."Missing"`)
}

func TestTranslationFailsBeforeIO(t *testing.T) {
	t.Parallel()
	spy := &counting{Querier: openSQLite(t)}
	repo := For(newConn(t, spy), widgets)

	_, err := repo.LoadOne(context.Background(), repo.Query().Where(&expr.Call{Method: "ToUpper", Object: name}))
	var te *managers.TranslationError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, visitors.ErrUnsupported)

	_, err = repo.Load(context.Background(), repo.Query(), 0, 10, false)
	assert.Error(t, err)
	assert.Zero(t, spy.queries.Load())
}

func TestCancelledContextStopsExecution(t *testing.T) {
	t.Parallel()
	repo := For(newConn(t, openSQLite(t)), widgets)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.Count(ctx, repo.Query())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachedReads(t *testing.T) {
	t.Parallel()
	store, err := cache.NewMemory(32)
	require.NoError(t, err)
	spy := &counting{Querier: openSQLite(t)}
	repo := For(newConn(t, spy, WithCache(cache.New(store))), widgets)
	ctx := tenant.With(context.Background(), "acme")
	ws := seed(t, repo)
	before := spy.queries.Load()

	foo := repo.Query().Where(expr.Eq(name, "Foo"))
	for range 2 {
		got, err := repo.LoadOneCached(ctx, foo, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, ws[0].ID, got.ID)
		assert.Equal(t, "Ipoh", got.Address.City)
	}
	assert.EqualValues(t, 1, spy.queries.Load()-before)

	for range 2 {
		page, err := repo.LoadCached(ctx, repo.Query(), 1, 2, true, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.TotalRows)
		require.Len(t, page.Items, 2)
		assert.Equal(t, int64(1), page.Items[0].ID)
	}
	for range 2 {
		n, err := repo.CountCached(ctx, repo.Query(), time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	}
	assert.EqualValues(t, 4, spy.queries.Load()-before)

	// another tenant does not see acme's entries
	_, err = repo.CountCached(tenant.With(context.Background(), "globex"), repo.Query(), time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 5, spy.queries.Load()-before)

	// a write drops the entity's entries for the tenant
	ws[0].Name = "Foo2"
	_, err = repo.Update(ctx, ws[0], "ali")
	require.NoError(t, err)
	_, err = repo.LoadOneCached(ctx, foo, time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedReadsNeedCache(t *testing.T) {
	t.Parallel()
	repo := For(newConn(t, openSQLite(t)), widgets)
	_, err := repo.CountCached(context.Background(), repo.Query(), time.Minute)
	assert.ErrorIs(t, err, ErrNoCache)
}

func TestStoreValue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{statusActive, "Active"},
		{decimal.RequireFromString("1.50"), "1.5"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05"},
		{entity.DateOf(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)), "2024-01-02"},
		{int32(7), int64(7)},
		{true, true},
		{(*string)(nil), nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, storeValue(tt.in), "%v", tt.in)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	t.Parallel()
	base := errors.New("boom")
	err := error(&ExecError{Op: "load", SQL: "SELECT 1", Attempts: 2, Err: base})
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "load failed after 2 attempt(s): boom")
}
