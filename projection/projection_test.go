package projection

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erymuzuan/motorent-sub003/internal/testutil"
	"github.com/erymuzuan/motorent-sub003/nodes"
)

func selectOf(alias string, t0 *nodes.TableAlias, names ...string) *nodes.Select {
	sel := &nodes.Select{Alias: alias, From: t0}
	for _, n := range names {
		sel.Columns = append(sel.Columns, nodes.ColumnDeclaration{Name: n, Expr: t0.Col(n)})
	}
	return sel
}

func TestBuildEntityProjector(t *testing.T) {
	t.Parallel()
	t0 := nodes.NewTable("Core", "Widget").Alias("t0")
	sel := selectOf("t1", t0, "WidgetId", "Json")
	r, err := Build(sel, &nodes.EntityProjector{Key: t0.Col("WidgetId"), Payload: t0.Col("Json")})
	testutil.AssertNoError(t, err)

	tests := []struct {
		name string
		row  Values
		key  int64
	}{
		{"int64 and bytes", Values{int64(7), []byte(`{"Name":"a"}`)}, 7},
		{"int32 and string", Values{int32(8), `{"Name":"a"}`}, 8},
		{"text key", Values{[]byte("9"), `{}`}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := r.Read(tt.row)
			testutil.AssertNoError(t, err)
			er, ok := v.(EntityRow)
			if !ok {
				t.Fatalf("expected EntityRow, got %T", v)
			}
			testutil.AssertEqual(t, er.Key, tt.key)
		})
	}
}

func TestEntityProjectorRejectsNullPayload(t *testing.T) {
	t.Parallel()
	t0 := nodes.NewTable("Core", "Widget").Alias("t0")
	sel := selectOf("t1", t0, "WidgetId", "Json")
	r, err := Build(sel, &nodes.EntityProjector{Key: t0.Col("WidgetId"), Payload: t0.Col("Json")})
	testutil.AssertNoError(t, err)

	_, err = r.Read(Values{int64(1), nil})
	testutil.AssertError(t, err)
}

func TestBuildObjectByDeclaredName(t *testing.T) {
	t.Parallel()
	t0 := nodes.NewTable("Core", "Widget").Alias("t0")
	sel := &nodes.Select{
		Alias: "t2",
		Columns: []nodes.ColumnDeclaration{
			{Name: "Label", Expr: t0.Col("Name")},
			{Name: "Address_City", Expr: t0.Col("City")},
		},
		From: t0,
	}
	projector := &nodes.Object{Fields: []nodes.ObjectField{
		{Name: "Label", Value: &nodes.Column{Alias: "t2", Name: "Label"}},
		{Name: "Address", Value: &nodes.Object{Fields: []nodes.ObjectField{
			{Name: "City", Value: &nodes.Column{Alias: "t2", Name: "Address_City"}},
		}}},
		{Name: "Kind", Value: &nodes.Constant{Value: "widget"}},
	}}
	r, err := Build(sel, projector)
	testutil.AssertNoError(t, err)

	v, err := r.Read(Values{"Foo", "Ipoh"})
	testutil.AssertNoError(t, err)
	m := v.(map[string]any)
	testutil.AssertEqual(t, m["Label"], any("Foo"))
	testutil.AssertEqual(t, m["Kind"], any("widget"))
	testutil.AssertEqual(t, m["Address"].(map[string]any)["City"], any("Ipoh"))
}

func TestBuildUnresolvedColumn(t *testing.T) {
	t.Parallel()
	t0 := nodes.NewTable("Core", "Widget").Alias("t0")
	sel := selectOf("t1", t0, "Name")
	_, err := Build(sel, &nodes.Column{Alias: "t1", Name: "Price"})
	if !errors.Is(err, ErrUnresolvedColumn) {
		t.Fatalf("expected ErrUnresolvedColumn, got %v", err)
	}
}

func TestNilProjectorReadsAllColumns(t *testing.T) {
	t.Parallel()
	t0 := nodes.NewTable("Core", "Widget").Alias("t0")
	r, err := Build(selectOf("t1", t0, "A", "B"), nil)
	testutil.AssertNoError(t, err)
	v, err := r.Read(Values{1, "x"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(v.([]any)), 2)
	testutil.AssertEqual(t, r.Columns()[1], "B")
}

func TestReadChecksRowWidth(t *testing.T) {
	t.Parallel()
	t0 := nodes.NewTable("Core", "Widget").Alias("t0")
	r, err := Build(selectOf("t1", t0, "A", "B"), nil)
	testutil.AssertNoError(t, err)
	_, err = r.Read(Values{1})
	testutil.AssertError(t, err)
}

type summary struct {
	Label   string          `json:"Label"`
	Count   int             `json:"Count"`
	Total   decimal.Decimal `json:"Total"`
	Created time.Time       `json:"Created"`
}

func TestDecodeIntoStruct(t *testing.T) {
	t.Parallel()
	got, err := Decode[summary](map[string]any{
		"Label":   []byte("Foo"),
		"Count":   "3",
		"Total":   12.5,
		"Created": "2024-03-01T10:20:30",
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Label, "Foo")
	testutil.AssertEqual(t, got.Count, 3)
	testutil.AssertEqual(t, got.Total.String(), "12.5")
	testutil.AssertEqual(t, got.Created, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC))
}

func TestDecodeScalar(t *testing.T) {
	t.Parallel()
	n, err := Decode[int64](int64(42))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, int64(42))

	d, err := Decode[decimal.Decimal](int64(5))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, d.String(), "5")
}
