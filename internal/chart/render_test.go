package chart

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/queryviz/queryviz/internal/tabular"
)

type failingEngine struct {
	err   error
	panic bool
}

func (e failingEngine) Figure(Plan, tabular.Table) (map[string]any, error) {
	if e.panic {
		panic("engine blew up")
	}
	return nil, e.err
}

func TestRenderBarFigure(t *testing.T) {
	table, profiles := regionSalesTable()
	plans := Planner{}.Plan(table, profiles, "", "")

	renderer := NewRenderer(nil)
	result := renderer.RenderAll(plans, table)
	if result.Truncated {
		t.Fatal("three rows must not be truncated")
	}
	if len(result.Documents) != len(plans) {
		t.Fatalf("expected %d documents, got %d", len(plans), len(result.Documents))
	}

	doc := result.Documents[0]
	if doc.Kind != "bar" {
		t.Fatalf("expected bar document, got %q", doc.Kind)
	}
	data, ok := doc.Figure["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("expected a single trace, got %v", doc.Figure["data"])
	}
	trace := data[0].(map[string]any)
	if trace["type"] != "bar" {
		t.Fatalf("unexpected trace type %v", trace["type"])
	}
	layout := doc.Figure["layout"].(map[string]any)
	if layout["paper_bgcolor"] != "rgba(0,0,0,0)" {
		t.Fatal("layout missing transparent background")
	}
}

func TestRenderTruncatesAtRowCap(t *testing.T) {
	names := make([]any, 0, 60)
	values := make([]any, 0, 60)
	for i := 0; i < 60; i++ {
		names = append(names, "row")
		values = append(values, float64(i))
	}
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "label", Values: names},
		{Name: "amount", Values: values},
	}}
	plans := Planner{}.Plan(table, tabular.Classify(table), "", "")

	renderer := NewRenderer(nil)
	result := renderer.RenderAll(plans, table)
	if !result.Truncated {
		t.Fatal("expected truncation above the row cap")
	}
	if result.RowCap != DefaultRowCap {
		t.Fatalf("expected default row cap, got %d", result.RowCap)
	}
	trace := result.Documents[0].Figure["data"].([]any)[0].(map[string]any)
	if got := len(trace["x"].([]any)); got != DefaultRowCap {
		t.Fatalf("trace carries %d points, want %d", got, DefaultRowCap)
	}
}

func TestRenderSortsTemporalLine(t *testing.T) {
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "sold_at", Values: []any{
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		}},
		{Name: "amount", Values: []any{3.0, 1.0, 2.0}},
	}}
	plans := Planner{}.Plan(table, tabular.Classify(table), "", "")

	result := NewRenderer(nil).RenderAll(plans, table)
	trace := result.Documents[0].Figure["data"].([]any)[0].(map[string]any)
	y := trace["y"].([]any)
	if y[0] != 1.0 || y[1] != 2.0 || y[2] != 3.0 {
		t.Fatalf("line points not sorted by x: %v", y)
	}
	x := trace["x"].([]any)
	if !strings.HasPrefix(x[0].(string), "2026-01") {
		t.Fatalf("expected RFC 3339 x values sorted ascending, got %v", x)
	}
}

func TestRenderSortsSlashFormattedDatesChronologically(t *testing.T) {
	// Lexical order would put the 2024 value first.
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "order_date", Values: []any{"01/02/2024", "02/01/2023"}},
		{Name: "amount", Values: []any{2.0, 1.0}},
	}}
	plans := Planner{}.Plan(table, tabular.Classify(table), "", "")
	if len(plans) != 1 || plans[0].Kind != KindLine {
		t.Fatalf("expected one line plan, got %v", plans)
	}

	result := NewRenderer(nil).RenderAll(plans, table)
	trace := result.Documents[0].Figure["data"].([]any)[0].(map[string]any)
	x := trace["x"].([]any)
	if x[0] != "02/01/2023" || x[1] != "01/02/2024" {
		t.Fatalf("x values not in chronological order: %v", x)
	}
	y := trace["y"].([]any)
	if y[0] != 1.0 || y[1] != 2.0 {
		t.Fatalf("y values did not follow the x sort: %v", y)
	}
}

func TestRenderCountColumnSynthesis(t *testing.T) {
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "status", Values: []any{"open", "open", "closed"}},
	}}
	plans := Planner{}.Plan(table, tabular.Classify(table), "", "")

	result := NewRenderer(nil).RenderAll(plans, table)
	trace := result.Documents[0].Figure["data"].([]any)[0].(map[string]any)
	if trace["type"] != "pie" {
		t.Fatalf("expected pie trace, got %v", trace["type"])
	}
	labels := trace["labels"].([]any)
	values := trace["values"].([]any)
	if len(labels) != 2 || labels[0] != "open" || values[0] != 2.0 {
		t.Fatalf("unexpected counted pie: labels=%v values=%v", labels, values)
	}
}

func TestRenderDegradesToErrorIndicator(t *testing.T) {
	table, _ := regionSalesTable()
	renderer := &Renderer{Engine: failingEngine{err: errors.New("boom")}, RowCap: DefaultRowCap}

	doc := renderer.Render(Plan{Kind: KindBar, Bindings: map[Channel]string{ChannelX: "region", ChannelY: "total"}}, table)
	if doc.Kind != "bar" {
		t.Fatalf("expected fallback bar, got %q", doc.Kind)
	}
	if doc.Reason != "render fallback" {
		t.Fatalf("unexpected reason %q", doc.Reason)
	}
	trace := doc.Figure["data"].([]any)[0].(map[string]any)
	if trace["x"].([]any)[0] != "expected" {
		t.Fatalf("fallback bar lost its sentinel categories: %v", trace["x"])
	}
}

func TestRenderSurvivesEnginePanic(t *testing.T) {
	table, _ := regionSalesTable()
	renderer := &Renderer{Engine: failingEngine{panic: true}, RowCap: DefaultRowCap}

	doc := renderer.Render(Plan{Kind: KindPie, Bindings: map[Channel]string{ChannelNames: "region", ChannelValues: "total"}}, table)
	if doc.Kind == "" {
		t.Fatal("render returned an empty document")
	}
	if !json.Valid([]byte(doc.JSON())) {
		t.Fatal("document must serialize to valid JSON")
	}
}

func TestRenderSingleColumnFallbackSynthesizesIndex(t *testing.T) {
	table := tabular.Table{Columns: []tabular.Column{
		{Name: "blob", Values: []any{nil, nil, nil}},
	}}
	plans := Planner{}.Plan(table, tabular.Classify(table), "", "")

	result := NewRenderer(nil).RenderAll(plans, table)
	doc := result.Documents[0]
	if doc.Kind != "bar" {
		t.Fatalf("expected fallback bar, got %q", doc.Kind)
	}
	trace := doc.Figure["data"].([]any)[0].(map[string]any)
	y := trace["y"].([]any)
	if len(y) != 3 || y[0] != 1.0 || y[2] != 3.0 {
		t.Fatalf("expected synthesized 1..N index on y, got %v", y)
	}
}

func TestRenderAllAlwaysReturnsADocument(t *testing.T) {
	result := NewRenderer(nil).RenderAll(nil, tabular.PlaceholderTable())
	if len(result.Documents) == 0 {
		t.Fatal("expected at least one document for no plans")
	}
}

func TestDocumentJSONShape(t *testing.T) {
	doc := Document{Kind: "bar", Figure: map[string]any{"data": []any{}}, Description: "d", Reason: "r"}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(doc.JSON()), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != "bar" {
		t.Fatalf("wire field must be named type, got %v", decoded)
	}
	if _, present := decoded["origin_call_id"]; present {
		t.Fatal("empty origin_call_id must be omitted")
	}
}
