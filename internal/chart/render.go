package chart

import (
	"fmt"
	"log/slog"

	"github.com/queryviz/queryviz/internal/observability"
	"github.com/queryviz/queryviz/internal/tabular"
)

// DefaultRowCap bounds how many rows feed a single figure. Larger results
// are truncated and the truncation surfaced to the caller.
const DefaultRowCap = 50

// Renderer turns plans into documents. Render never fails: when the engine
// cannot draw a plan the renderer degrades through an error-indicator bar
// down to a static error document built without any external calls.
type Renderer struct {
	Engine Engine
	RowCap int
	Logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) *Renderer {
	return &Renderer{Engine: PlotlyEngine{}, RowCap: DefaultRowCap, Logger: logger}
}

// Result carries the rendered documents plus whether the source table was
// truncated to fit the row cap.
type Result struct {
	Documents []Document
	Truncated bool
	RowCap    int
}

// RenderAll renders every plan over the (possibly truncated) table. It
// always returns at least one document.
func (r *Renderer) RenderAll(plans []Plan, table tabular.Table) Result {
	rowCap := r.RowCap
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	working, truncated := table.Truncate(rowCap)

	documents := make([]Document, 0, len(plans))
	for _, plan := range plans {
		documents = append(documents, r.Render(plan, working))
	}
	if len(documents) == 0 {
		documents = append(documents, r.Render(fallbackPlan(working), working))
	}
	return Result{Documents: documents, Truncated: truncated, RowCap: rowCap}
}

// Render draws one plan. It cannot return an error: each failing tier hands
// off to a simpler one and the last tier is a constant.
func (r *Renderer) Render(plan Plan, table tabular.Table) Document {
	if doc, err := r.renderPlanned(plan, table); err == nil {
		return doc
	} else {
		observability.IncrementRenderFallback("error_indicator")
		if r.Logger != nil {
			r.Logger.Warn("chart render degraded to error indicator",
				slog.String("kind", string(plan.Kind)),
				slog.String("error", err.Error()))
		}
	}
	if doc, err := r.renderErrorIndicator(plan); err == nil {
		return doc
	} else {
		observability.IncrementRenderFallback("static_error")
		if r.Logger != nil {
			r.Logger.Error("chart error indicator failed",
				slog.String("kind", string(plan.Kind)),
				slog.String("error", err.Error()))
		}
	}
	return staticErrorDocument(plan)
}

func (r *Renderer) renderPlanned(plan Plan, table tabular.Table) (doc Document, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("render panicked: %v", recovered)
		}
	}()

	if plan.CountColumn != "" {
		table, err = withValueCounts(table, plan.CountColumn)
		if err != nil {
			return Document{}, err
		}
	}
	if plan.IndexColumn != "" {
		table = withRowIndex(table, plan.IndexColumn)
	}
	if err := plan.Validate(table); err != nil {
		return Document{}, err
	}
	figure, err := r.Engine.Figure(plan, table)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Kind:        string(plan.Kind),
		Figure:      figure,
		Description: plan.Title,
		Reason:      plan.Reason,
	}, nil
}

// renderErrorIndicator draws a minimal bar over fixed sentinel categories so
// the user still sees a chart-shaped object explaining what happened.
func (r *Renderer) renderErrorIndicator(plan Plan) (doc Document, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("error indicator panicked: %v", recovered)
		}
	}()

	figure := map[string]any{
		"data": []any{map[string]any{
			"type": "bar",
			"x":    []any{"expected", "rendered"},
			"y":    []any{1, 0},
		}},
		"layout": baseLayout("Chart could not be rendered"),
	}
	return Document{
		Kind:        string(KindBar),
		Figure:      figure,
		Description: fmt.Sprintf("The %s chart could not be rendered from the query result.", plan.Kind),
		Reason:      "render fallback",
	}, nil
}

// staticErrorDocument is the floor of the ladder: built from literals only.
func staticErrorDocument(plan Plan) Document {
	return Document{
		Kind:        string(KindError),
		Figure:      map[string]any{},
		Description: fmt.Sprintf("Rendering the %s chart failed.", plan.Kind),
		Reason:      "render failure",
	}
}

// withValueCounts appends a <name>_count column next to the unique values of
// the named column, replacing the table with the grouped view.
func withValueCounts(table tabular.Table, name string) (tabular.Table, error) {
	column, found := table.Lookup(name)
	if !found {
		return tabular.Table{}, fmt.Errorf("count column %q not in table", name)
	}
	counts := map[string]int{}
	var order []string
	for _, value := range column.Values {
		key := fmt.Sprintf("%v", value)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}
	labels := make([]any, len(order))
	totals := make([]any, len(order))
	for i, key := range order {
		labels[i] = key
		totals[i] = float64(counts[key])
	}
	return tabular.Table{Columns: []tabular.Column{
		{Name: name, Values: labels},
		{Name: name + "_count", Values: totals},
	}}, nil
}

// withRowIndex appends a 1..N row-index column so single-column tables can
// still bind both axes.
func withRowIndex(table tabular.Table, name string) tabular.Table {
	values := make([]any, table.NumRows())
	for i := range values {
		values[i] = float64(i + 1)
	}
	columns := append(append([]tabular.Column{}, table.Columns...), tabular.Column{Name: name, Values: values})
	return tabular.Table{Columns: columns}
}
