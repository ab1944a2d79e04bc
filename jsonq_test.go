package jsonq_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	jsonq "github.com/erymuzuan/motorent-sub003"
	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/expr"
)

var widgetMeta = &jsonq.Meta{
	Schema: "main",
	Name:   "Widget",
	Columns: []entity.Column{
		{Field: "Name"},
		{Field: "Price", Type: entity.TypeDecimal},
	},
}

func TestTranslate(t *testing.T) {
	q := jsonq.From(widgetMeta).Where(expr.Gt(expr.Field("Price"), 10)).OrderBy(expr.Field("Name"))
	tr, err := jsonq.Translate(q, jsonq.Postgres)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	expected := `SELECT "WidgetId","Json" FROM "main"."Widget" WHERE ("Price" > 10) ORDER BY "Name"`
	if tr.SQL != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, tr.SQL)
	}
}

func TestOpenAndQuery(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "widgets.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE "main"."Widget" (
		"WidgetId" INTEGER PRIMARY KEY AUTOINCREMENT,
		"Json" TEXT NOT NULL,
		"Name" TEXT,
		"Price" NUMERIC
	)`)
	_ = db.Close()
	if err != nil {
		t.Fatalf("create table failed: %v", err)
	}

	conn, err := jsonq.Open(ctx, jsonq.SQLite, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	repo := jsonq.For(conn, entity.DocumentMapping(*widgetMeta))
	for _, fields := range []map[string]any{
		{"Name": "Foo", "Price": 12.5},
		{"Name": "Bar", "Price": 7.5},
	} {
		if _, err := repo.Insert(ctx, entity.NewDocument(fields), "tester"); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	n, err := repo.Count(ctx, repo.Query().Where(expr.Gt(expr.Field("Price"), 10)))
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 widget over 10, got %d", n)
	}
}
