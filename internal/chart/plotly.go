package chart

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/queryviz/queryviz/internal/tabular"
)

// Engine renders a validated plan over a projected table into a figure.
// Implementations must return JSON-serializable structures only.
type Engine interface {
	Figure(plan Plan, table tabular.Table) (map[string]any, error)
}

// PlotlyEngine builds Plotly-compatible figure documents: a data array of
// traces plus a layout object the frontend passes straight to the library.
type PlotlyEngine struct{}

func (PlotlyEngine) Figure(plan Plan, table tabular.Table) (map[string]any, error) {
	trace, err := buildTrace(plan, table)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"data":   []any{trace},
		"layout": baseLayout(plan.Title),
	}, nil
}

// baseLayout applies the uniform visual normalization shared by every chart
// kind: transparent background, fixed height band, consistent margins and a
// horizontal legend.
func baseLayout(title string) map[string]any {
	return map[string]any{
		"title":         map[string]any{"text": title},
		"height":        400,
		"margin":        map[string]any{"l": 40, "r": 20, "t": 48, "b": 40},
		"paper_bgcolor": "rgba(0,0,0,0)",
		"plot_bgcolor":  "rgba(0,0,0,0)",
		"legend":        map[string]any{"orientation": "h"},
	}
}

func buildTrace(plan Plan, table tabular.Table) (map[string]any, error) {
	switch plan.Kind {
	case KindBar:
		x, y, err := xyValues(plan, table)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "bar", "x": x, "y": y}, nil
	case KindLine, KindArea:
		x, y, err := xyValues(plan, table)
		if err != nil {
			return nil, err
		}
		trace := map[string]any{"type": "scatter", "mode": "lines+markers", "x": x, "y": y}
		if plan.Kind == KindArea {
			trace["fill"] = "tozeroy"
		}
		return trace, nil
	case KindScatter:
		x, y, err := xyValues(plan, table)
		if err != nil {
			return nil, err
		}
		trace := map[string]any{"type": "scatter", "mode": "markers", "x": x, "y": y}
		marker := map[string]any{}
		if colorColumn, ok := plan.Bindings[ChannelColor]; ok {
			if column, found := table.Lookup(colorColumn); found {
				marker["color"] = categoryCodes(column.Values)
			}
		}
		if sizeColumn, ok := plan.Bindings[ChannelSize]; ok {
			if column, found := table.Lookup(sizeColumn); found {
				marker["size"] = numericValues(column.Values)
			}
		}
		if len(marker) > 0 {
			trace["marker"] = marker
		}
		return trace, nil
	case KindPie:
		names, ok := plan.Bindings[ChannelNames]
		if !ok {
			return nil, fmt.Errorf("pie plan missing names binding")
		}
		values, ok := plan.Bindings[ChannelValues]
		if !ok {
			return nil, fmt.Errorf("pie plan missing values binding")
		}
		labelColumn, found := table.Lookup(names)
		if !found {
			return nil, fmt.Errorf("names column %q not in table", names)
		}
		valueColumn, found := table.Lookup(values)
		if !found {
			return nil, fmt.Errorf("values column %q not in table", values)
		}
		return map[string]any{
			"type":   "pie",
			"labels": plainValues(labelColumn.Values),
			"values": numericValues(valueColumn.Values),
		}, nil
	case KindHistogram:
		column, err := boundColumn(plan, table, ChannelX)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "histogram", "x": numericValues(column.Values)}, nil
	case KindBox:
		column, err := boundColumn(plan, table, ChannelX)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "box", "y": numericValues(column.Values)}, nil
	case KindViolin:
		column, err := boundColumn(plan, table, ChannelX)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "violin", "y": numericValues(column.Values)}, nil
	default:
		return nil, fmt.Errorf("unsupported chart kind %q", plan.Kind)
	}
}

func boundColumn(plan Plan, table tabular.Table, channel Channel) (tabular.Column, error) {
	name, ok := plan.Bindings[channel]
	if !ok {
		return tabular.Column{}, fmt.Errorf("%s plan missing %s binding", plan.Kind, channel)
	}
	column, found := table.Lookup(name)
	if !found {
		return tabular.Column{}, fmt.Errorf("column %q not in table", name)
	}
	return column, nil
}

func xyValues(plan Plan, table tabular.Table) ([]any, []any, error) {
	xColumn, err := boundColumn(plan, table, ChannelX)
	if err != nil {
		return nil, nil, err
	}
	yColumn, err := boundColumn(plan, table, ChannelY)
	if err != nil {
		return nil, nil, err
	}
	x := plainValues(xColumn.Values)
	y := numericValues(yColumn.Values)
	if plan.SortByX {
		x, y = sortPairsByX(x, y)
	}
	return x, y, nil
}

func sortPairsByX(x, y []any) ([]any, []any) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lessValue(x[order[a]], x[order[b]])
	})
	sortedX := make([]any, n)
	sortedY := make([]any, n)
	for i, idx := range order {
		sortedX[i] = x[idx]
		sortedY[i] = y[idx]
	}
	return sortedX, sortedY
}

func lessValue(a, b any) bool {
	at, aok := asTime(a)
	bt, bok := asTime(b)
	if aok && bok {
		return at.Before(bt)
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

// asTime recognizes both native times and the date-formatted strings the
// classifier treats as temporal, so sorted x axes stay chronological.
func asTime(value any) (time.Time, bool) {
	switch typed := value.(type) {
	case time.Time:
		return typed, true
	case string:
		return tabular.ParseTemporal(typed)
	default:
		return time.Time{}, false
	}
}

func asFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}

// plainValues makes column values JSON-friendly (times become RFC 3339).
func plainValues(values []any) []any {
	out := make([]any, len(values))
	for i, value := range values {
		if ts, ok := value.(time.Time); ok {
			out[i] = ts.Format(time.RFC3339)
			continue
		}
		out[i] = value
	}
	return out
}

// numericValues converts what it can to float64 and passes the rest through,
// leaving Plotly to skip what it cannot place.
func numericValues(values []any) []any {
	out := make([]any, len(values))
	for i, value := range values {
		if number, ok := asFloat(value); ok {
			out[i] = number
			continue
		}
		if text, ok := value.(string); ok {
			if number, ok := parseNumber(text); ok {
				out[i] = number
				continue
			}
		}
		out[i] = value
	}
	return out
}

func parseNumber(text string) (float64, bool) {
	number, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	return number, true
}

func categoryCodes(values []any) []int {
	codes := make([]int, len(values))
	index := map[string]int{}
	for i, value := range values {
		key := fmt.Sprintf("%v", value)
		code, ok := index[key]
		if !ok {
			code = len(index)
			index[key] = code
		}
		codes[i] = code
	}
	return codes
}
