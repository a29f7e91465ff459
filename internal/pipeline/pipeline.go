package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/queryviz/queryviz/internal/artifact"
	"github.com/queryviz/queryviz/internal/chart"
	"github.com/queryviz/queryviz/internal/datasource"
	"github.com/queryviz/queryviz/internal/llm"
	"github.com/queryviz/queryviz/internal/observability"
	"github.com/queryviz/queryviz/internal/tabular"
)

// VisualizePolicy selects how AnalyzeQuestion decides whether the answer
// needs a chart.
type VisualizePolicy string

const (
	// PolicyAlways marks every question as wanting a visualization.
	PolicyAlways VisualizePolicy = "always"
	// PolicyHeuristic asks the model yes/no, with a keyword fallback when
	// the model is unavailable.
	PolicyHeuristic VisualizePolicy = "heuristic"
)

// DefaultRowThreshold is the row count above which DecideVisualization
// charts a result even when the question did not ask for one.
const DefaultRowThreshold = 3

// NoQueryGenerated is the final_query sentinel used when SQL generation
// never produced a statement.
const NoQueryGenerated = "no query generated"

// DataSource is the database capability the pipeline consumes.
type DataSource interface {
	Schemas(ctx context.Context, key string) ([]datasource.TableSchema, error)
	Query(ctx context.Context, key, sqlText string) (datasource.Result, error)
}

// Request is one question to answer within a session.
type Request struct {
	Question   string
	SessionID  string
	DBKey      string
	ToolCallID string
}

// Response is the terminal pipeline output. It always carries HTTP-success
// shape: failures surface as an apologetic RESULT, never as an error return.
type Response struct {
	Result         string           `json:"RESULT"`
	FinalQuery     string           `json:"final_query"`
	Visualizations []chart.Document `json:"visualizations"`
	SessionID      string           `json:"session_id"`
	Warning        string           `json:"warning,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// Pipeline runs the question-to-visualization state machine. All
// collaborators are injected; there is no package-level state.
type Pipeline struct {
	LLM          llm.Client
	Data         DataSource
	Artifacts    artifact.Store
	Coercer      tabular.Coercer
	Planner      chart.Planner
	Renderer     *chart.Renderer
	Logger       *slog.Logger
	Policy       VisualizePolicy
	RowThreshold int
}

type state int

const (
	stateAnalyzeQuestion state = iota
	stateGenerateSQL
	stateExecuteSQL
	stateDecideVisualization
	stateProcessData
	stateExplain
	stateExplainWithoutViz
	stateDone
)

// runState is the mutable state threaded through one invocation. It is
// never shared across concurrent requests.
type runState struct {
	question      string
	sessionID     string
	dbKey         string
	toolCallID    string
	requestedKind chart.Kind
	vizNeeded     bool
	sqlText       string
	raw           tabular.Raw
	table         tabular.Table
	profiles      []tabular.Profile
	documents     []chart.Document
	explanation   string
	warning       string
	errText       string
	degraded      bool
}

// Run executes the state machine to completion. It never panics: any panic
// below it is converted into an apologetic terminal response.
func (p *Pipeline) Run(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	run := &runState{
		question:   req.Question,
		sessionID:  req.SessionID,
		dbKey:      req.DBKey,
		toolCallID: req.ToolCallID,
	}
	if run.sessionID == "" {
		run.sessionID = uuid.NewString()
	}
	if run.toolCallID == "" {
		run.toolCallID = uuid.NewString()
	}

	outcome := "ok"
	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = "panic"
			p.logError(ctx, "pipeline panic recovered", fmt.Errorf("%v", recovered))
			resp = p.apologeticResponse(run)
		}
		observability.ObservePipelineRun(outcome, time.Since(start))
	}()

	for st := stateAnalyzeQuestion; st != stateDone; {
		switch st {
		case stateAnalyzeQuestion:
			p.analyzeQuestion(ctx, run)
			st = stateGenerateSQL
		case stateGenerateSQL:
			p.generateSQL(ctx, run)
			st = stateExecuteSQL
		case stateExecuteSQL:
			p.executeSQL(ctx, run)
			st = stateDecideVisualization
		case stateDecideVisualization:
			if p.decideVisualization(run) {
				st = stateProcessData
			} else {
				st = stateExplainWithoutViz
			}
		case stateProcessData:
			p.processData(ctx, run)
			st = stateExplain
		case stateExplain, stateExplainWithoutViz:
			p.explain(ctx, run)
			st = stateDone
		}
	}

	if run.degraded {
		outcome = "degraded"
	}
	return Response{
		Result:         run.explanation,
		FinalQuery:     finalQuery(run),
		Visualizations: documentsOrEmpty(run.documents),
		SessionID:      run.sessionID,
		Warning:        run.warning,
		Error:          run.errText,
	}
}

func (p *Pipeline) analyzeQuestion(ctx context.Context, run *runState) {
	if kind, found := chart.KindFromQuestion(run.question); found {
		run.requestedKind = kind
	}
	switch p.Policy {
	case PolicyHeuristic:
		run.vizNeeded = p.heuristicWantsChart(ctx, run.question)
	default:
		run.vizNeeded = true
	}
}

func (p *Pipeline) heuristicWantsChart(ctx context.Context, question string) bool {
	if questionSuggestsChart(question) {
		return true
	}
	answer, err := p.LLM.Complete(ctx, buildDecidePrompt(question))
	observability.IncrementLLMCall("decide_visualization", err != nil)
	if err != nil {
		// Undecidable questions get a chart rather than none.
		p.logError(ctx, "visualization decision failed, defaulting to true", err)
		return true
	}
	return !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "no")
}

func (p *Pipeline) generateSQL(ctx context.Context, run *runState) {
	schemas, err := p.Data.Schemas(ctx, run.dbKey)
	if err != nil {
		p.logError(ctx, "schema introspection failed, prompting without context", err)
		schemas = nil
	}

	completion, err := p.LLM.Complete(ctx, buildSQLPrompt(schemas, run.question))
	observability.IncrementLLMCall("generate_sql", err != nil)
	if err != nil {
		p.logError(ctx, "sql generation failed", err)
		run.errText = fmt.Sprintf("SQL generation failed: %v", err)
		run.degraded = true
		return
	}

	sqlText, repaired := RepairSQL(stripMarkdownFences(completion))
	if repaired {
		observability.IncrementSQLRepair()
	}
	run.sqlText = sqlText
}

func (p *Pipeline) executeSQL(ctx context.Context, run *runState) {
	if strings.TrimSpace(run.sqlText) == "" {
		run.raw = tabular.RawNone()
		return
	}
	result, err := p.Data.Query(ctx, run.dbKey, run.sqlText)
	if err != nil {
		p.logError(ctx, "sql execution failed, continuing with empty data", err)
		if run.errText == "" {
			run.errText = fmt.Sprintf("SQL execution failed: %v", err)
		}
		run.degraded = true
		run.raw = tabular.RawNone()
		return
	}
	if len(result.Columns) == 0 {
		run.raw = tabular.RawNone()
		return
	}
	run.raw = tabular.RawFromTable(tabular.NewTable(result.Columns, result.Rows))
}

func (p *Pipeline) decideVisualization(run *runState) bool {
	run.table = p.Coercer.Coerce(run.raw, run.sqlText)
	run.profiles = tabular.Classify(run.table)
	if run.vizNeeded {
		return true
	}

	threshold := p.RowThreshold
	if threshold <= 0 {
		threshold = DefaultRowThreshold
	}
	if run.table.NumRows() <= threshold {
		return false
	}
	numeric, categorical := 0, 0
	for _, profile := range run.profiles {
		switch profile.Kind {
		case tabular.KindNumeric:
			numeric++
		case tabular.KindCategorical:
			categorical++
		}
	}
	return numeric >= 1 || categorical >= 2
}

func (p *Pipeline) processData(ctx context.Context, run *runState) {
	plans := p.Planner.Plan(run.table, run.profiles, run.question, run.requestedKind)
	result := p.Renderer.RenderAll(plans, run.table)
	run.documents = result.Documents
	if len(run.documents) == 0 {
		// RenderAll guarantees a document; keep the contract locally too.
		run.documents = []chart.Document{{
			Kind:        string(chart.KindError),
			Figure:      map[string]any{},
			Description: "No chart could be produced for this result.",
			Reason:      "empty render result",
		}}
	}
	for i := range run.documents {
		run.documents[i].OriginCallID = run.toolCallID
	}
	if result.Truncated {
		run.warning = fmt.Sprintf("Result truncated to the first %d rows for charting.", result.RowCap)
		observability.IncrementTruncation()
	}
	p.persistPrimaryChart(ctx, run)
}

// persistPrimaryChart upserts the leading document under the tool-call id.
// Persistence failures degrade the run but never abort it.
func (p *Pipeline) persistPrimaryChart(ctx context.Context, run *runState) {
	if p.Artifacts == nil || len(run.documents) == 0 {
		return
	}
	saved := artifact.SavedChart{
		SessionID:  run.sessionID,
		ToolCallID: run.toolCallID,
		ChartJSON:  run.documents[0].JSON(),
	}
	if err := p.Artifacts.SaveChart(ctx, saved); err != nil {
		p.logError(ctx, "chart persistence failed", err)
		run.degraded = true
	}
}

func (p *Pipeline) explain(ctx context.Context, run *runState) {
	if run.errText != "" {
		// An earlier stage already failed; a model summary of the empty
		// placeholder table would hide that, so apologize deterministically.
		run.explanation = fallbackExplanation(run)
		return
	}
	completion, err := p.LLM.Complete(ctx, buildExplainPrompt(run.question, run.sqlText, run.table, run.documents))
	observability.IncrementLLMCall("explain", err != nil)
	if err != nil {
		p.logError(ctx, "explanation generation failed", err)
		run.degraded = true
		run.explanation = fallbackExplanation(run)
		return
	}
	run.explanation = strings.TrimSpace(completion)
}

func fallbackExplanation(run *runState) string {
	if run.errText != "" {
		return "I'm sorry, I could not fully answer your question: " + run.errText
	}
	return fmt.Sprintf("Your query returned %d rows across columns %s.",
		run.table.NumRows(), strings.Join(run.table.ColumnNames(), ", "))
}

func (p *Pipeline) apologeticResponse(run *runState) Response {
	return Response{
		Result:         "I'm sorry, something went wrong while answering your question. Please try rephrasing it.",
		FinalQuery:     finalQuery(run),
		Visualizations: []chart.Document{},
		SessionID:      run.sessionID,
		Error:          "internal pipeline failure",
	}
}

func finalQuery(run *runState) string {
	if strings.TrimSpace(run.sqlText) == "" {
		return NoQueryGenerated
	}
	return run.sqlText
}

func documentsOrEmpty(documents []chart.Document) []chart.Document {
	if documents == nil {
		return []chart.Document{}
	}
	return documents
}

func (p *Pipeline) logError(ctx context.Context, msg string, err error) {
	if p.Logger == nil {
		return
	}
	p.Logger.ErrorContext(ctx, msg, slog.String("error", err.Error()))
}
