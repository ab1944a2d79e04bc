package nodes

import (
	"testing"

	"github.com/erymuzuan/motorent-sub003/entity"
)

// --- Tables ---

func TestTableString(t *testing.T) {
	t.Parallel()
	if got := NewTable("Core", "Widget").String(); got != "Core.Widget" {
		t.Errorf("expected %q, got %q", "Core.Widget", got)
	}
	if got := NewTable("", "Widget").String(); got != "Widget" {
		t.Errorf("expected %q, got %q", "Widget", got)
	}
}

func TestTableAliasCreatesColumns(t *testing.T) {
	t.Parallel()
	w := NewTable("Core", "Widget")
	a := w.Alias("s0")
	if a.Relation != w {
		t.Error("expected alias to reference the original table")
	}
	col := a.Col("Name")
	if col.Alias != "s0" || col.Name != "Name" {
		t.Errorf("unexpected column %+v", col)
	}
}

func TestSourceAliases(t *testing.T) {
	t.Parallel()
	w := NewTable("Core", "Widget").Alias("s0")
	o := NewTable("Core", "Order").Alias("s1")
	sub := &Select{Alias: "t0", From: o}
	j := &Join{Kind: CrossJoin, Left: w, Right: sub}

	if SourceAlias(w) != "s0" || SourceAlias(sub) != "t0" || SourceAlias(j) != "" {
		t.Error("unexpected source alias")
	}
	got := Aliases(j)
	if len(got) != 2 || got[0] != "s0" || got[1] != "t0" {
		t.Errorf("expected [s0 t0], got %v", got)
	}
	tables := Tables(&Join{Left: w, Right: o})
	if len(tables) != 2 || tables[1] != o {
		t.Errorf("expected both table aliases, got %v", tables)
	}
	if len(Tables(j)) != 1 {
		t.Error("expected Tables not to enter a subquery")
	}
}

// --- Select ---

func TestSelectCloneIsIndependent(t *testing.T) {
	t.Parallel()
	w := NewTable("Core", "Widget").Alias("s0")
	s := &Select{
		Alias:   "t0",
		Columns: []ColumnDeclaration{{Name: "Name", Expr: w.Col("Name")}},
		From:    w,
		OrderBy: []*Ordering{w.Col("Name").Asc()},
	}
	c := s.Clone()
	c.Columns[0] = ColumnDeclaration{Name: "Price", Expr: w.Col("Price")}
	c.OrderBy = append(c.OrderBy, w.Col("Price").Desc())
	c.Distinct = true

	if s.Columns[0].Name != "Name" || len(s.OrderBy) != 1 || s.Distinct {
		t.Error("expected the original select to be unchanged")
	}
	if c.From != s.From {
		t.Error("expected the clone to share its source")
	}
}

func TestSelectDeclarations(t *testing.T) {
	t.Parallel()
	w := NewTable("Core", "Widget").Alias("s0")
	s := &Select{
		Alias: "t0",
		Columns: []ColumnDeclaration{
			{Name: "Price", Expr: &Column{Alias: "s0", Name: "Price", Type: entity.TypeDecimal}},
			{Name: "Count", Expr: Count(nil)},
		},
		From: w,
	}
	if got := s.DeclNames(); len(got) != 2 || got[1] != "Count" {
		t.Errorf("unexpected names %v", got)
	}
	if _, ok := s.Decl("Name"); ok {
		t.Error("expected no Name declaration")
	}
	ref := s.Ref("Price")
	if ref.Alias != "t0" || ref.Name != "Price" || ref.Type != entity.TypeDecimal {
		t.Errorf("unexpected ref %+v", ref)
	}
	if s.Ref("Count").Type != entity.TypeString {
		t.Error("expected an aggregate ref to carry no type")
	}
	if s.HasPlaceholder() {
		t.Error("expected a shaped select")
	}
	s.Columns = []ColumnDeclaration{{Name: PlaceholderName, Expr: &Placeholder{Alias: "s0", Key: "WidgetId"}}}
	if !s.HasPlaceholder() {
		t.Error("expected an unshaped select")
	}
}

func TestAndWhere(t *testing.T) {
	t.Parallel()
	a := (&Column{Name: "A"}).Eq(1)
	b := (&Column{Name: "B"}).Eq(2)
	if AndWhere(nil, b) != b || AndWhere(a, nil) != a {
		t.Error("expected a nil side to be dropped")
	}
	both, ok := AndWhere(a, b).(*Binary)
	if !ok || both.Op != OpAnd || both.Left != a || both.Right != b {
		t.Errorf("unexpected conjunction %+v", both)
	}
}

// --- Operators ---

func TestOperatorNames(t *testing.T) {
	t.Parallel()
	if OpNe.String() != "<>" || OpMod.String() != "%" || BinaryOp(99).String() != "?" {
		t.Error("unexpected binary operator names")
	}
	if !OpGe.IsComparison() || OpAnd.IsComparison() {
		t.Error("unexpected comparison classification")
	}
	if AggAvg.String() != "AVG" || AggregateFunc(9).String() != "?" {
		t.Error("unexpected aggregate names")
	}
	if CrossApply.String() != "CROSS APPLY" || JoinKind(9).String() != "JOIN" {
		t.Error("unexpected join names")
	}
}

func TestConstPassesNodesThrough(t *testing.T) {
	t.Parallel()
	col := &Column{Name: "Name"}
	if Const(col) != Node(col) {
		t.Error("expected a node to be returned unchanged")
	}
	if c, ok := Const("x").(*Constant); !ok || c.Value != "x" {
		t.Error("expected a constant")
	}
	in := col.In("a", col)
	if in.Values[1] != Node(col) {
		t.Error("expected In to keep node values")
	}
}

// --- Walk / MapExpr ---

func TestWalkDoesNotEnterSubqueries(t *testing.T) {
	t.Parallel()
	inner := &Select{Alias: "t0", Where: (&Column{Name: "Hidden"}).Eq(1)}
	cond := &Binary{
		Op:    OpAnd,
		Left:  (&Column{Alias: "s0", Name: "A"}).Eq(1),
		Right: &Unary{Op: OpNot, Operand: &MethodCall{Method: MethodContains, Object: &Column{Alias: "s0", Name: "B"}, Args: []Node{Const("x")}}},
	}
	j := &Join{Left: inner, Right: NewTable("Core", "Widget").Alias("s0"), On: cond}

	cols := ColumnsOf(j)
	if len(cols) != 2 || cols[0].Name != "A" || cols[1].Name != "B" {
		t.Errorf("expected columns A and B, got %v", cols)
	}

	var seen int
	Walk(cond, func(n Node) bool {
		seen++
		_, isUnary := n.(*Unary)
		return !isUnary
	})
	// AND, =, A, 1, NOT
	if seen != 5 {
		t.Errorf("expected 5 nodes before pruning, got %d", seen)
	}
}

func TestMapExprSharesUnchangedSubtrees(t *testing.T) {
	t.Parallel()
	a := (&Column{Alias: "s0", Name: "A"}).Eq(1)
	b := (&Column{Alias: "s0", Name: "B"}).In("x", "y")
	cond := &Binary{Op: OpOr, Left: a, Right: b}

	same := MapExpr(cond, func(n Node) Node { return n })
	if same != Node(cond) {
		t.Error("expected an identity map to return the same tree")
	}

	renamed := MapExpr(cond, func(n Node) Node {
		if c, ok := n.(*Column); ok && c.Name == "B" {
			return &Column{Alias: "t0", Name: "B"}
		}
		return n
	}).(*Binary)
	if renamed == cond {
		t.Fatal("expected a new root")
	}
	if renamed.Left != Node(a) {
		t.Error("expected the untouched branch to be shared")
	}
	if got := renamed.Right.(*In).Expr.(*Column).Alias; got != "t0" {
		t.Errorf("expected renamed alias t0, got %s", got)
	}
	if b.Expr.(*Column).Alias != "s0" {
		t.Error("expected the original tree to be unchanged")
	}
}

func TestSameColumn(t *testing.T) {
	t.Parallel()
	if !SameColumn(&Column{Alias: "s0", Name: "A", Type: entity.TypeInt}, &Column{Alias: "s0", Name: "A"}) {
		t.Error("expected type to be ignored")
	}
	if SameColumn(&Column{Alias: "s0", Name: "A"}, &Column{Alias: "s1", Name: "A"}) {
		t.Error("expected aliases to differ")
	}
}
