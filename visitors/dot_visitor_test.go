package visitors

import (
	"strings"
	"testing"

	"github.com/erymuzuan/motorent-sub003/nodes"
)

func TestDotVisitTable(t *testing.T) {
	dv := NewDotVisitor()
	nodes.NewTable("Core", "Widget").Accept(dv)
	dot := dv.ToDot()

	if !strings.HasPrefix(dot, "digraph AST {\n") {
		t.Errorf("expected DOT header, got:\n%s", dot)
	}
	assertContains(t, dot, `label="Table\nCore.Widget"`)
	assertContains(t, dot, `fillcolor="#6CA6CD"`)
	if dv.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", dv.NodeCount())
	}
}

func TestDotVisitSelect(t *testing.T) {
	w := widget()
	sel := &nodes.Select{
		Alias:   "t0",
		Columns: []nodes.ColumnDeclaration{{Name: "Name", Expr: w.Col("Name")}},
		From:    w,
		Where: &nodes.Binary{
			Op:    nodes.OpAnd,
			Left:  w.Col("Price").Gt(10),
			Right: &nodes.MethodCall{Method: nodes.MethodStartsWith, Object: w.Col("Name"), Args: []nodes.Node{nodes.Const("F")}},
		},
		OrderBy:  []*nodes.Ordering{w.Col("Price").Desc()},
		Distinct: true,
	}
	dot := Dot(sel)

	assertContains(t, dot, `label="Select\nt0\nDISTINCT"`)
	assertContains(t, dot, `label="TableAlias\ns0"`)
	assertContains(t, dot, `label="Column\ns0.Name"`)
	assertContains(t, dot, `label="AND", fillcolor="#FFEB80"`)
	assertContains(t, dot, `label=">", fillcolor="#FFB347"`)
	assertContains(t, dot, `label="StartsWith"`)
	assertContains(t, dot, `label="Constant\nF"`)
	assertContains(t, dot, `label="DESC"`)
	assertContains(t, dot, `[label="WHERE"]`)
	assertContains(t, dot, `[label="ORDER[0]"]`)
	assertContains(t, dot, `[label="ARG[0]"]`)
	if !strings.HasSuffix(dot, "}\n") {
		t.Errorf("expected closing brace, got:\n%s", dot)
	}
}

func TestDotVisitStatements(t *testing.T) {
	table := nodes.NewTable("Core", "Widget")
	del := &nodes.DeleteStatement{From: table, Where: (&nodes.Column{Name: "WidgetId"}).In(1, 2)}
	dot := Dot(del)
	assertContains(t, dot, `label="DELETE"`)
	assertContains(t, dot, `label="IN"`)
	assertContains(t, dot, `[label="VAL[1]"]`)

	upd := &nodes.UpdateStatement{
		Table:       table,
		Assignments: []*nodes.Assignment{{Column: "Json", Value: nodes.Const(`{"a":1}`)}},
	}
	dot = Dot(upd)
	assertContains(t, dot, `label="Assign\nJson"`)
	assertContains(t, dot, `label="Constant\n{\"a\":1}"`)

	ins := insertWidget("WidgetId")
	dot = Dot(ins)
	assertContains(t, dot, `label="INSERT", fillcolor="#FF6961"`)
	assertContains(t, dot, `[label="Name"]`)
}

func TestDotVisitProjectors(t *testing.T) {
	w := widget()
	proj := &nodes.Projection{
		Select: &nodes.Select{
			Alias:   "t0",
			Columns: []nodes.ColumnDeclaration{{Name: nodes.PlaceholderName, Expr: &nodes.Placeholder{Alias: "s0", Key: "WidgetId"}}},
			From:    w,
		},
		Projector: &nodes.Object{Fields: []nodes.ObjectField{
			{Name: "Item", Value: &nodes.EntityProjector{Key: w.Col("WidgetId"), Payload: w.Col("Json")}},
			{Name: "Total", Value: nodes.Count(nil)},
		}},
	}
	dot := Dot(proj)
	assertContains(t, dot, `label="Projection"`)
	assertContains(t, dot, `label="Placeholder\nData on s0"`)
	assertContains(t, dot, `label="Object"`)
	assertContains(t, dot, `label="Entity"`)
	assertContains(t, dot, `[label="PAYLOAD"]`)
	assertContains(t, dot, `label="COUNT(*)"`)
}
