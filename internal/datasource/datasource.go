package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb/v2"
	_ "modernc.org/sqlite"
)

var (
	// ErrUnknownKey means the requested datasource was never registered.
	ErrUnknownKey = errors.New("unknown datasource key")
	// ErrNotReadOnly rejects statements that are not SELECT or WITH.
	ErrNotReadOnly = errors.New("only read-only SELECT/WITH queries are allowed")
)

// Spec identifies a database as "driver:dsn", e.g. "sqlite:analytics.db" or
// "duckdb:warehouse.duckdb".
type Spec struct {
	Driver string
	DSN    string
}

func ParseSpec(value string) (Spec, error) {
	driver, dsn, found := strings.Cut(strings.TrimSpace(value), ":")
	if !found || strings.TrimSpace(driver) == "" {
		return Spec{}, fmt.Errorf("datasource spec %q must be driver:dsn", value)
	}
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "sqlite", "duckdb":
	default:
		return Spec{}, fmt.Errorf("unsupported datasource driver %q", driver)
	}
	return Spec{Driver: driver, DSN: strings.TrimSpace(dsn)}, nil
}

func (s Spec) String() string {
	return s.Driver + ":" + s.DSN
}

// ColumnInfo describes one column of an introspected table.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableSchema is the introspected shape of one table.
type TableSchema struct {
	Name    string       `json:"table_name"`
	Columns []ColumnInfo `json:"columns"`
}

// Result is the raw outcome of a read-only query.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Registry holds named datasources and opens their connections lazily on
// first use. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	specs   map[string]Spec
	handles map[string]*sql.DB
}

func NewRegistry() *Registry {
	return &Registry{
		specs:   map[string]Spec{},
		handles: map[string]*sql.DB{},
	}
}

// Register binds a key to a datasource spec. Re-registering a key replaces
// the spec and closes any open handle for the old one.
func (r *Registry) Register(key string, spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if handle, ok := r.handles[key]; ok {
		_ = handle.Close()
		delete(r.handles, key)
	}
	r.specs[key] = spec
}

// Keys lists the registered datasource keys.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.specs))
	for key := range r.specs {
		keys = append(keys, key)
	}
	return keys
}

func (r *Registry) handle(key string) (*sql.DB, Spec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec, ok := r.specs[key]
	if !ok {
		return nil, Spec{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if handle, ok := r.handles[key]; ok {
		return handle, spec, nil
	}
	handle, err := sql.Open(spec.Driver, spec.DSN)
	if err != nil {
		return nil, Spec{}, fmt.Errorf("open datasource %q: %w", key, err)
	}
	r.handles[key] = handle
	return handle, spec, nil
}

// Query runs a read-only statement against the keyed datasource.
func (r *Registry) Query(ctx context.Context, key, sqlText string) (Result, error) {
	if !IsReadOnly(sqlText) {
		return Result{}, ErrNotReadOnly
	}
	handle, _, err := r.handle(key)
	if err != nil {
		return Result{}, err
	}

	rows, err := handle.QueryContext(ctx, stripTrailingSemicolons(sqlText))
	if err != nil {
		return Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}
	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", err)
	}
	return Result{Columns: columns, Rows: resultRows}, nil
}

// Exec runs a mutating statement. Reserved for ingest and seeding paths;
// question-driven SQL never reaches it.
func (r *Registry) Exec(ctx context.Context, key, sqlText string, args ...any) error {
	handle, _, err := r.handle(key)
	if err != nil {
		return err
	}
	if _, err := handle.ExecContext(ctx, sqlText, args...); err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}
	return nil
}

// Close releases every open handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for key, handle := range r.handles {
		if err := handle.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.handles, key)
	}
	return firstErr
}

// IsReadOnly reports whether the statement is a SELECT or WITH query.
func IsReadOnly(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	if normalized == "" {
		return false
	}
	return strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "with")
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
