package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/repository"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

const testConfig = `log:
  level: error
entities:
  - schema: main
    name: Widget
    columns:
      - field: Name
      - field: Price
        type: decimal
      - field: Active
        type: bool
      - field: Address.City
        name: City
`

// fixture writes a configuration file and a seeded SQLite database and
// returns their paths.
func fixture(t *testing.T) (configPath, dsn string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "jsonq.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0o600))

	dsn = filepath.Join(dir, "widgets.db")
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	_, err = db.Exec(`CREATE TABLE "main"."Widget" (
		"WidgetId" INTEGER PRIMARY KEY AUTOINCREMENT,
		"Json" TEXT NOT NULL,
		"Name" TEXT,
		"Price" NUMERIC,
		"Active" INTEGER,
		"City" TEXT
	)`)
	require.NoError(t, err)

	meta := entity.Meta{
		Schema: "main",
		Name:   "Widget",
		Columns: []entity.Column{
			{Field: "Name"},
			{Field: "Price", Type: entity.TypeDecimal},
			{Field: "Active", Type: entity.TypeBool},
			{Field: "Address.City", Name: "City"},
		},
	}
	repo := repository.For(repository.New(db, visitors.SQLite), entity.DocumentMapping(meta))
	for _, fields := range []map[string]any{
		{"Name": "Foo", "Price": 12.5, "Active": true, "Address": map[string]any{"City": "Ipoh"}},
		{"Name": "Bar", "Price": 10.0, "Active": false, "Address": map[string]any{"City": "Ipoh"}},
		{"Name": "Baz", "Price": 7.5, "Active": true, "Address": map[string]any{"City": "Kuantan"}},
	} {
		_, err := repo.Insert(context.Background(), entity.NewDocument(fields), "tester")
		require.NoError(t, err)
	}
	return configPath, dsn
}

// run executes the jsonq command line and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
