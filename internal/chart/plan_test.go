package chart

import (
	"testing"
	"time"

	"github.com/queryviz/queryviz/internal/tabular"
)

func regionSalesTable() (tabular.Table, []tabular.Profile) {
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "region", Values: []any{"north", "south", "east"}},
		{Name: "total", Values: []any{12.0, 8.5, 3.0}},
	}}
	return table, tabular.Classify(table)
}

func TestPlanRequestedKindWins(t *testing.T) {
	table, profiles := regionSalesTable()
	plans := Planner{}.Plan(table, profiles, "pie chart of sales by region", KindPie)
	if len(plans) != 1 {
		t.Fatalf("expected a single plan, got %d", len(plans))
	}
	if plans[0].Kind != KindPie {
		t.Fatalf("expected pie, got %q", plans[0].Kind)
	}
	if plans[0].Bindings[ChannelNames] != "region" || plans[0].Bindings[ChannelValues] != "total" {
		t.Fatalf("unexpected bindings: %v", plans[0].Bindings)
	}
}

func TestPlanRequestedKindIncompatibleFallsBackToShape(t *testing.T) {
	table, profiles := regionSalesTable()
	// A scatter needs two numeric columns; this table has one.
	plans := Planner{}.Plan(table, profiles, "scatter plot please", KindScatter)
	if len(plans) == 0 {
		t.Fatal("expected shape-derived plans")
	}
	for _, plan := range plans {
		if plan.Kind == KindScatter {
			t.Fatalf("incompatible requested kind was planned: %v", plan)
		}
	}
}

func TestPlanCategoricalNumericYieldsBarAndPie(t *testing.T) {
	table, profiles := regionSalesTable()
	plans := Planner{}.Plan(table, profiles, "sales by region", "")
	if len(plans) != 2 {
		t.Fatalf("expected bar and pie, got %d plans", len(plans))
	}
	if plans[0].Kind != KindBar || plans[1].Kind != KindPie {
		t.Fatalf("unexpected kinds: %q, %q", plans[0].Kind, plans[1].Kind)
	}
}

func TestPlanTemporalNumericYieldsSortedLine(t *testing.T) {
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "sold_at", Values: []any{
			time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
		{Name: "amount", Values: []any{4.0, 2.0}},
	}}
	plans := Planner{}.Plan(table, tabular.Classify(table), "", "")
	if len(plans) != 1 || plans[0].Kind != KindLine {
		t.Fatalf("expected one line plan, got %v", plans)
	}
	if !plans[0].SortByX {
		t.Fatal("temporal line plan must sort by x")
	}
}

func TestPlanTwoNumericYieldsScatter(t *testing.T) {
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "price", Values: []any{1.0, 2.0}},
		{Name: "size", Values: []any{3.0, 4.0}},
		{Name: "weight", Values: []any{5.0, 6.0}},
	}}
	plans := Planner{}.Plan(table, tabular.Classify(table), "", "")
	if len(plans) != 1 || plans[0].Kind != KindScatter {
		t.Fatalf("expected one scatter plan, got %v", plans)
	}
	bindings := plans[0].Bindings
	if bindings[ChannelX] != "price" || bindings[ChannelY] != "size" {
		t.Fatalf("unexpected scatter axes: %v", bindings)
	}
	if bindings[ChannelSize] != "weight" {
		t.Fatalf("third numeric column should drive point size: %v", bindings)
	}
}

func TestPlanRequestedScatterBindsColorAndSize(t *testing.T) {
	// A categorical column shifts the shape-derived answer to bar+pie, but an
	// explicitly requested scatter still plans and picks up color from it.
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "price", Values: []any{1.0, 2.0}},
		{Name: "size", Values: []any{3.0, 4.0}},
		{Name: "weight", Values: []any{5.0, 6.0}},
		{Name: "grade", Values: []any{"a", "b"}},
	}}
	plans := Planner{}.Plan(table, tabular.Classify(table), "scatter of price against size", KindScatter)
	if len(plans) != 1 || plans[0].Kind != KindScatter {
		t.Fatalf("expected one scatter plan, got %v", plans)
	}
	bindings := plans[0].Bindings
	if bindings[ChannelColor] != "grade" || bindings[ChannelSize] != "weight" {
		t.Fatalf("unexpected scatter bindings: %v", bindings)
	}
}

func TestPlanSingleCategoricalCountsValues(t *testing.T) {
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "status", Values: []any{"open", "open", "closed"}},
	}}
	plans := Planner{}.Plan(table, tabular.Classify(table), "", "")
	if len(plans) != 1 || plans[0].Kind != KindPie {
		t.Fatalf("expected one pie plan, got %v", plans)
	}
	if plans[0].CountColumn != "status" {
		t.Fatalf("expected synthesized count over status, got %q", plans[0].CountColumn)
	}
	if plans[0].Bindings[ChannelValues] != "status_count" {
		t.Fatalf("unexpected values binding: %v", plans[0].Bindings)
	}
}

func TestPlanAlwaysProducesAtLeastOne(t *testing.T) {
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "blob", Values: []any{nil, nil}},
	}}
	plans := Planner{}.Plan(table, tabular.Classify(table), "", "")
	if len(plans) != 1 || plans[0].Kind != KindBar {
		t.Fatalf("expected the bar fallback, got %v", plans)
	}
	if plans[0].IndexColumn != "row_index" || plans[0].Bindings[ChannelY] != "row_index" {
		t.Fatalf("single-column fallback must chart against a synthesized index: %+v", plans[0])
	}
}

func TestPlanNeverExceedsCap(t *testing.T) {
	table, profiles := regionSalesTable()
	plans := Planner{}.Plan(table, profiles, "", "")
	if len(plans) > maxPlans {
		t.Fatalf("planner produced %d plans, cap is %d", len(plans), maxPlans)
	}
}

func TestPlanValidateRejectsMissingColumn(t *testing.T) {
	table, _ := regionSalesTable()
	plan := Plan{Kind: KindBar, Bindings: map[Channel]string{ChannelX: "nope", ChannelY: "total"}}
	if err := plan.Validate(table); err == nil {
		t.Fatal("expected validation failure for missing column")
	}
}
