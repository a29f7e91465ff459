package toolkit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/queryviz/queryviz/internal/artifact"
	"github.com/queryviz/queryviz/internal/chart"
	"github.com/queryviz/queryviz/internal/datasource"
	"github.com/queryviz/queryviz/internal/tabular"
)

// Data is the database capability the toolkit consumes.
type Data interface {
	Keys() []string
	Tables(ctx context.Context, key string) ([]string, error)
	Schemas(ctx context.Context, key string) ([]datasource.TableSchema, error)
	Query(ctx context.Context, key, sqlText string) (datasource.Result, error)
}

// Toolkit is the fixed operation set exposed to conversation tooling:
// inspect tables and schemas, run read-only SQL, save a query for plotting,
// and render a previously saved query into a persisted visualization.
type Toolkit struct {
	Data      Data
	Artifacts artifact.Store
	Coercer   tabular.Coercer
	Planner   chart.Planner
	Renderer  *chart.Renderer
	Logger    *slog.Logger
}

func (t *Toolkit) GetTables(ctx context.Context, dbKey string) ([]string, error) {
	return t.Data.Tables(ctx, dbKey)
}

func (t *Toolkit) GetSchema(ctx context.Context, dbKey string) ([]datasource.TableSchema, error) {
	return t.Data.Schemas(ctx, dbKey)
}

func (t *Toolkit) Query(ctx context.Context, dbKey, sqlText string) (datasource.Result, error) {
	return t.Data.Query(ctx, dbKey, sqlText)
}

// SaveQuery validates the target database and the statement, then persists
// the SQL under a fresh opaque id. Duplicate calls with identical arguments
// produce distinct ids on purpose.
func (t *Toolkit) SaveQuery(ctx context.Context, sessionID, dbKey, sqlText string) (string, error) {
	if !knownKey(t.Data.Keys(), dbKey) {
		return "", fmt.Errorf("%w: %q", datasource.ErrUnknownKey, dbKey)
	}
	if !datasource.IsReadOnly(sqlText) {
		return "", datasource.ErrNotReadOnly
	}
	queryID := uuid.NewString()
	saved := artifact.SavedQuery{
		SessionID: sessionID,
		QueryID:   queryID,
		DBKey:     dbKey,
		SQL:       strings.TrimSpace(sqlText),
	}
	if err := t.Artifacts.SaveQuery(ctx, saved); err != nil {
		return "", fmt.Errorf("persist saved query: %w", err)
	}
	return queryID, nil
}

// RenderOptions are explicit overrides for rendering a saved query. Empty
// fields fall back to the planner's own choices.
type RenderOptions struct {
	PlotType string
	XAxis    string
	YAxis    string
}

// RenderSavedQuery re-executes a saved query, renders it (honoring explicit
// plot type and axis overrides when they fit the data) and upserts the chart
// under the caller's tool-call id.
func (t *Toolkit) RenderSavedQuery(ctx context.Context, sessionID, queryID, toolCallID string, opts RenderOptions) (chart.Document, error) {
	saved, err := t.Artifacts.GetQuery(ctx, sessionID, queryID)
	if err != nil {
		return chart.Document{}, err
	}

	raw := tabular.RawNone()
	result, err := t.Data.Query(ctx, saved.DBKey, saved.SQL)
	if err != nil {
		if t.Logger != nil {
			t.Logger.ErrorContext(ctx, "saved query re-execution failed, rendering empty data",
				slog.String("query_id", queryID), slog.String("error", err.Error()))
		}
	} else if len(result.Columns) > 0 {
		raw = tabular.RawFromTable(tabular.NewTable(result.Columns, result.Rows))
	}
	table := t.Coercer.Coerce(raw, saved.SQL)
	profiles := tabular.Classify(table)

	plans := t.overridePlans(table, opts)
	if len(plans) == 0 {
		requested, _ := chart.ParseKind(opts.PlotType)
		plans = t.Planner.Plan(table, profiles, "", requested)
	}

	rendered := t.Renderer.RenderAll(plans, table)
	doc := rendered.Documents[0]
	doc.OriginCallID = toolCallID

	if err := t.Artifacts.SaveChart(ctx, artifact.SavedChart{
		SessionID:  sessionID,
		ToolCallID: toolCallID,
		ChartJSON:  doc.JSON(),
	}); err != nil {
		return chart.Document{}, fmt.Errorf("persist visualization: %w", err)
	}
	return doc, nil
}

// overridePlans builds a single plan from explicit options when the kind and
// both axes are given and name real columns.
func (t *Toolkit) overridePlans(table tabular.Table, opts RenderOptions) []chart.Plan {
	kind, ok := chart.ParseKind(opts.PlotType)
	if !ok || opts.XAxis == "" || opts.YAxis == "" {
		return nil
	}
	bindings := map[chart.Channel]string{}
	if kind == chart.KindPie {
		bindings[chart.ChannelNames] = opts.XAxis
		bindings[chart.ChannelValues] = opts.YAxis
	} else {
		bindings[chart.ChannelX] = opts.XAxis
		bindings[chart.ChannelY] = opts.YAxis
	}
	plan := chart.Plan{
		Kind:     kind,
		Title:    fmt.Sprintf("%s by %s (%s chart)", opts.YAxis, opts.XAxis, kind),
		Bindings: bindings,
		Reason:   "explicitly requested",
	}
	if err := plan.Validate(table); err != nil {
		if t.Logger != nil {
			t.Logger.Warn("requested axes do not fit the data, falling back to planner",
				slog.String("error", err.Error()))
		}
		return nil
	}
	return []chart.Plan{plan}
}

func knownKey(keys []string, key string) bool {
	for _, candidate := range keys {
		if candidate == key {
			return true
		}
	}
	return false
}
