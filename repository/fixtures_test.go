package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

type status int

const (
	statusDraft status = iota
	statusActive
)

func (s status) String() string {
	if s == statusActive {
		return "Active"
	}
	return "Draft"
}

func (s status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Active":
		*s = statusActive
	case "Draft":
		*s = statusDraft
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

type address struct {
	City string `json:"City"`
}

type widget struct {
	entity.Base
	Name    string          `json:"Name"`
	Price   decimal.Decimal `json:"Price"`
	Active  bool            `json:"Active"`
	Status  status          `json:"Status"`
	Address address         `json:"Address"`
}

var widgets = &entity.Mapping[*widget]{
	Meta: entity.Meta{
		Schema: "Core",
		Name:   "Widget",
		Columns: []entity.Column{
			{Field: "Name"},
			{Field: "Price", Type: entity.TypeDecimal},
			{Field: "Active", Type: entity.TypeBool},
			{Field: "Status", Type: entity.TypeEnum},
			{Field: "Address.City", Name: "City"},
		},
	},
	New: func() *widget { return &widget{} },
	Values: func(w *widget) map[string]any {
		return map[string]any{
			"Name":         w.Name,
			"Price":        w.Price,
			"Active":       w.Active,
			"Status":       w.Status,
			"Address.City": w.Address.City,
		}
	},
}

var fixedNow = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

const widgetDDL = `CREATE TABLE "Core"."Widget" (
	"WidgetId" INTEGER PRIMARY KEY AUTOINCREMENT,
	"Json" TEXT NOT NULL,
	"Name" TEXT,
	"Price" NUMERIC,
	"Active" INTEGER,
	"Status" TEXT,
	"City" TEXT
)`

// openSQLite returns a file database with the Core schema attached and
// the Widget table created. SQLite reads "Core"."Widget" as table Widget
// of the attached database Core, which only exists on the connection that
// attached it, hence the single connection.
func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sql.Open("sqlite", filepath.Join(dir, "main.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range []string{
		fmt.Sprintf(`ATTACH DATABASE '%s' AS "Core"`, filepath.Join(dir, "core.db")),
		widgetDDL,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

func newConn(t *testing.T, db Querier, opts ...Option) *Conn {
	t.Helper()
	ids := int64(0)
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithWebID(func() string { return fmt.Sprintf("web-%d", atomic.AddInt64(&ids, 1)) }),
	}
	return New(db, visitors.SQLite, append(base, opts...)...)
}

func newWidget(name string, price string, active bool, st status, city string) *widget {
	return &widget{
		Name:    name,
		Price:   decimal.RequireFromString(price),
		Active:  active,
		Status:  st,
		Address: address{City: city},
	}
}

// seed inserts the standard three widgets and returns them.
func seed(t *testing.T, repo *Repository[*widget]) []*widget {
	t.Helper()
	ws := []*widget{
		newWidget("Foo", "12.5", true, statusActive, "Ipoh"),
		newWidget("Bar", "10", false, statusDraft, "Ipoh"),
		newWidget("Baz", "7.5", true, statusActive, "Kuantan"),
	}
	for _, w := range ws {
		_, err := repo.Insert(context.Background(), w, "tester")
		require.NoError(t, err)
	}
	return ws
}

// counting wraps a Querier, failing the first failures queries with a
// throttling message and counting every call.
type counting struct {
	Querier
	failures int32
	queries  atomic.Int32
	execs    atomic.Int32
}

var errThrottled = errors.New("request limit for the database has been reached, please retry the connection later")

func (c *counting) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if n := c.queries.Add(1); n <= c.failures {
		return nil, errThrottled
	}
	return c.Querier.QueryContext(ctx, query, args...)
}

func (c *counting) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.execs.Add(1)
	return c.Querier.ExecContext(ctx, query, args...)
}
