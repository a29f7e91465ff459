package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/queryviz/queryviz/internal/artifact"
)

// Store keeps query and chart artifacts in a local sqlite database. The
// schema is created the first time any operation touches the store.
type Store struct {
	db       *sql.DB
	initOnce sync.Once
	initErr  error
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open artifact db: %w", err)
	}
	// sqlite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.initOnce.Do(func() {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS session_queries (
	session_id TEXT NOT NULL,
	query_id TEXT NOT NULL,
	db_key TEXT NOT NULL,
	sql_query TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, query_id)
)`,
			`CREATE TABLE IF NOT EXISTS session_visualizations (
	session_id TEXT NOT NULL,
	tool_call_id TEXT NOT NULL,
	chart_json TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, tool_call_id)
)`,
		}
		for _, statement := range statements {
			if _, err := s.db.ExecContext(ctx, statement); err != nil {
				s.initErr = fmt.Errorf("create artifact schema: %w", err)
				return
			}
		}
	})
	return s.initErr
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping artifact db: %w", err)
	}
	return nil
}

func (s *Store) SaveQuery(ctx context.Context, saved artifact.SavedQuery) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	createdAt := saved.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := `
INSERT INTO session_queries (session_id, query_id, db_key, sql_query, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (session_id, query_id)
DO UPDATE SET db_key = excluded.db_key, sql_query = excluded.sql_query, created_at = excluded.created_at`
	if _, err := s.db.ExecContext(ctx, query, saved.SessionID, saved.QueryID, saved.DBKey, saved.SQL, createdAt); err != nil {
		return fmt.Errorf("save query: %w", err)
	}
	return nil
}

func (s *Store) GetQuery(ctx context.Context, sessionID, queryID string) (artifact.SavedQuery, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return artifact.SavedQuery{}, err
	}
	query := `
SELECT session_id, query_id, db_key, sql_query, created_at
FROM session_queries
WHERE session_id = ? AND query_id = ?`

	var saved artifact.SavedQuery
	if err := s.db.QueryRowContext(ctx, query, sessionID, queryID).Scan(
		&saved.SessionID,
		&saved.QueryID,
		&saved.DBKey,
		&saved.SQL,
		&saved.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return artifact.SavedQuery{}, artifact.ErrNotFound
		}
		return artifact.SavedQuery{}, fmt.Errorf("get query: %w", err)
	}
	return saved, nil
}

func (s *Store) ListQueries(ctx context.Context, sessionID string) ([]artifact.SavedQuery, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, query_id, db_key, sql_query, created_at
FROM session_queries
WHERE session_id = ?
ORDER BY created_at ASC, query_id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	saved := make([]artifact.SavedQuery, 0)
	for rows.Next() {
		var entry artifact.SavedQuery
		if err := rows.Scan(&entry.SessionID, &entry.QueryID, &entry.DBKey, &entry.SQL, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		saved = append(saved, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query rows: %w", err)
	}
	return saved, nil
}

func (s *Store) SaveChart(ctx context.Context, saved artifact.SavedChart) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	createdAt := saved.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := `
INSERT INTO session_visualizations (session_id, tool_call_id, chart_json, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (session_id, tool_call_id)
DO UPDATE SET chart_json = excluded.chart_json, created_at = excluded.created_at`
	if _, err := s.db.ExecContext(ctx, query, saved.SessionID, saved.ToolCallID, saved.ChartJSON, createdAt); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

func (s *Store) ListCharts(ctx context.Context, sessionID string) ([]artifact.SavedChart, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, tool_call_id, chart_json, created_at
FROM session_visualizations
WHERE session_id = ?
ORDER BY created_at ASC, tool_call_id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list charts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	saved := make([]artifact.SavedChart, 0)
	for rows.Next() {
		var entry artifact.SavedChart
		if err := rows.Scan(&entry.SessionID, &entry.ToolCallID, &entry.ChartJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chart row: %w", err)
		}
		saved = append(saved, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chart rows: %w", err)
	}
	return saved, nil
}
