package plugins

import (
	"testing"

	"github.com/erymuzuan/motorent-sub003/nodes"
)

func TestCollectTablesFromAlias(t *testing.T) {
	w := nodes.NewTable("Core", "Widget").Alias("t0")
	sel := &nodes.Select{Alias: "t1", From: w}

	refs := CollectTables(sel)
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}
	if refs[0].Name != "Core.Widget" {
		t.Errorf("expected name 'Core.Widget', got %q", refs[0].Name)
	}
	if refs[0].Relation != w {
		t.Error("expected relation to be the alias")
	}
}

func TestCollectTablesWithJoin(t *testing.T) {
	w := nodes.NewTable("Core", "Widget").Alias("t0")
	o := nodes.NewTable("Sales", "Order").Alias("t2")
	sel := &nodes.Select{Alias: "t1", From: &nodes.Join{Kind: nodes.InnerJoin, Left: w, Right: o}}

	refs := CollectTables(sel)
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[1].Name != "Sales.Order" {
		t.Errorf("expected 'Sales.Order', got %q", refs[1].Name)
	}
}

func TestCollectTablesSkipsSubquery(t *testing.T) {
	w := nodes.NewTable("Core", "Widget").Alias("t0")
	inner := &nodes.Select{Alias: "t1", From: w}
	outer := &nodes.Select{Alias: "t2", From: inner}

	if refs := CollectTables(outer); len(refs) != 0 {
		t.Errorf("expected 0 refs, got %d", len(refs))
	}
	if subs := Selects(outer); len(subs) != 1 || subs[0] != inner {
		t.Errorf("expected the subquery, got %v", subs)
	}
}
