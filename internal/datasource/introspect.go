package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tables lists user tables in the keyed datasource, sorted by name.
func (r *Registry) Tables(ctx context.Context, key string) ([]string, error) {
	handle, spec, err := r.handle(key)
	if err != nil {
		return nil, err
	}

	var listSQL string
	switch spec.Driver {
	case "sqlite":
		listSQL = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
	case "duckdb":
		listSQL = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'main'`
	default:
		return nil, fmt.Errorf("no table listing for driver %q", spec.Driver)
	}

	rows, err := handle.QueryContext(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	sort.Strings(tables)
	return tables, nil
}

// Schema introspects one table's columns.
func (r *Registry) Schema(ctx context.Context, key, table string) (TableSchema, error) {
	handle, spec, err := r.handle(key)
	if err != nil {
		return TableSchema{}, err
	}

	schema := TableSchema{Name: table}
	switch spec.Driver {
	case "sqlite":
		rows, err := handle.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table)))
		if err != nil {
			return TableSchema{}, fmt.Errorf("describe table %q: %w", table, err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var (
				cid        int
				name       string
				columnType string
				notNull    int
				defaultVal any
				pk         int
			)
			if err := rows.Scan(&cid, &name, &columnType, &notNull, &defaultVal, &pk); err != nil {
				return TableSchema{}, fmt.Errorf("scan column info: %w", err)
			}
			schema.Columns = append(schema.Columns, ColumnInfo{Name: name, Type: columnType})
		}
		if err := rows.Err(); err != nil {
			return TableSchema{}, fmt.Errorf("iterate columns: %w", err)
		}
	case "duckdb":
		rows, err := handle.QueryContext(ctx,
			`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position`, table)
		if err != nil {
			return TableSchema{}, fmt.Errorf("describe table %q: %w", table, err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var name, columnType string
			if err := rows.Scan(&name, &columnType); err != nil {
				return TableSchema{}, fmt.Errorf("scan column info: %w", err)
			}
			schema.Columns = append(schema.Columns, ColumnInfo{Name: name, Type: columnType})
		}
		if err := rows.Err(); err != nil {
			return TableSchema{}, fmt.Errorf("iterate columns: %w", err)
		}
	default:
		return TableSchema{}, fmt.Errorf("no schema introspection for driver %q", spec.Driver)
	}

	if len(schema.Columns) == 0 {
		return TableSchema{}, fmt.Errorf("table %q not found", table)
	}
	return schema, nil
}

// Schemas introspects every user table in the keyed datasource.
func (r *Registry) Schemas(ctx context.Context, key string) ([]TableSchema, error) {
	tables, err := r.Tables(ctx, key)
	if err != nil {
		return nil, err
	}
	schemas := make([]TableSchema, 0, len(tables))
	for _, table := range tables {
		schema, err := r.Schema(ctx, key, table)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	return schemas, nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
