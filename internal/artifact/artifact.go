package artifact

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound means no artifact exists for the requested key.
var ErrNotFound = errors.New("artifact not found")

// SavedQuery is a SQL statement persisted under (session_id, query_id) so it
// can be re-rendered later without re-asking the model.
type SavedQuery struct {
	SessionID string    `json:"session_id"`
	QueryID   string    `json:"query_id"`
	DBKey     string    `json:"db_key"`
	SQL       string    `json:"sql_query"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedChart is a rendered chart document persisted under
// (session_id, tool_call_id). Writes are last-write-wins on that key.
type SavedChart struct {
	SessionID  string    `json:"session_id"`
	ToolCallID string    `json:"tool_call_id"`
	ChartJSON  string    `json:"chart_json"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists queries and charts. Implementations create their schema on
// first use so callers never run migrations up front.
type Store interface {
	SaveQuery(ctx context.Context, saved SavedQuery) error
	GetQuery(ctx context.Context, sessionID, queryID string) (SavedQuery, error)
	ListQueries(ctx context.Context, sessionID string) ([]SavedQuery, error)
	SaveChart(ctx context.Context, saved SavedChart) error
	ListCharts(ctx context.Context, sessionID string) ([]SavedChart, error)
	HealthCheck(ctx context.Context) error
}
