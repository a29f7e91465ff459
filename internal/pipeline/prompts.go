package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/queryviz/queryviz/internal/chart"
	"github.com/queryviz/queryviz/internal/datasource"
	"github.com/queryviz/queryviz/internal/llm"
	"github.com/queryviz/queryviz/internal/tabular"
)

const sqlSystemPrompt = "You convert natural language analytics questions into a single SQL SELECT statement. " +
	"Return ONLY SQL. No markdown, no explanation."

func buildSQLPrompt(schemas []datasource.TableSchema, question string) llm.Request {
	schemaJSON, err := json.Marshal(schemas)
	if err != nil {
		schemaJSON = []byte("[]")
	}
	user := fmt.Sprintf(
		"Schema context (JSON):\n%s\n\nUser question:\n%s\n\nRules:\n"+
			"- Use only listed tables and columns.\n"+
			"- Do not use backticks or double quotes around identifiers.\n"+
			"- Use single quotes for string literals.\n"+
			"- Output a single SELECT statement only.",
		string(schemaJSON),
		strings.TrimSpace(question),
	)
	return llm.Request{System: sqlSystemPrompt, User: user}
}

const decideSystemPrompt = "You decide whether a data question calls for a chart. " +
	"Answer with exactly one word: yes or no."

func buildDecidePrompt(question string) llm.Request {
	return llm.Request{
		System: decideSystemPrompt,
		User:   strings.TrimSpace(question),
	}
}

const explainSystemPrompt = "You explain SQL query results to a non-technical user in two or three sentences. " +
	"Be concrete about what the numbers show. Do not mention SQL syntax."

func buildExplainPrompt(question, sqlText string, table tabular.Table, documents []chart.Document) llm.Request {
	var summary strings.Builder
	fmt.Fprintf(&summary, "Question:\n%s\n\n", strings.TrimSpace(question))
	if strings.TrimSpace(sqlText) != "" {
		fmt.Fprintf(&summary, "Query:\n%s\n\n", strings.TrimSpace(sqlText))
	}
	fmt.Fprintf(&summary, "Result: %d rows, columns %s\n", table.NumRows(), strings.Join(table.ColumnNames(), ", "))
	for i := 0; i < table.NumRows() && i < 5; i++ {
		fmt.Fprintf(&summary, "Row %d: %v\n", i+1, table.Row(i))
	}
	if len(documents) > 0 {
		summary.WriteString("\nCharts shown to the user:\n")
		for _, doc := range documents {
			fmt.Fprintf(&summary, "- %s: %s (%s)\n", doc.Kind, doc.Description, doc.Reason)
		}
	}
	summary.WriteString("\nExplain what the result shows.")
	return llm.Request{System: explainSystemPrompt, User: summary.String()}
}

// visualizationKeywords back up the heuristic policy when the model is
// unavailable.
var visualizationKeywords = []string{
	"chart", "plot", "graph", "visuali", "trend", "over time",
	"compare", "comparison", "distribution", "breakdown", "share",
}

func questionSuggestsChart(question string) bool {
	lowered := strings.ToLower(question)
	for _, keyword := range visualizationKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
