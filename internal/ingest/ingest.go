// Package ingest loads uploaded dataset files into registered data
// sources so they become queryable through the regular SQL path.
// Parquet and CSV are supported; every upload replaces the target
// table and is optionally archived to object storage.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/queryviz/queryviz/internal/storage"
)

const insertBatchSize = 200

// Executor is the slice of the data source registry the loader needs.
type Executor interface {
	Exec(ctx context.Context, key, sqlText string, args ...any) error
}

type Loader struct {
	Data    Executor
	Archive storage.ObjectStore
	Logger  *slog.Logger
}

func NewLoader(data Executor, archive storage.ObjectStore, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Data: data, Archive: archive, Logger: logger}
}

// Result describes a completed dataset load.
type Result struct {
	Table     string   `json:"table"`
	Columns   []string `json:"columns"`
	RowCount  int      `json:"row_count"`
	ObjectKey string   `json:"object_key,omitempty"`
}

// Load reads a dataset in the given format ("parquet" or "csv") and
// replaces the named table in dbKey with its contents.
func (l *Loader) Load(ctx context.Context, dbKey, table, format string, data []byte) (Result, error) {
	if strings.TrimSpace(table) == "" {
		return Result{}, fmt.Errorf("table name is required")
	}
	if len(data) == 0 {
		return Result{}, fmt.Errorf("dataset body is empty")
	}

	cols, rows, err := decode(format, data)
	if err != nil {
		return Result{}, err
	}

	objectKey := ""
	if l.Archive != nil {
		objectKey, err = l.archive(ctx, dbKey, table, format, data)
		if err != nil {
			l.Logger.Warn("dataset archive failed", "table", table, "error", err)
			objectKey = ""
		}
	}

	if err := l.replaceTable(ctx, dbKey, table, cols, rows); err != nil {
		if objectKey != "" {
			if delErr := l.Archive.Delete(ctx, objectKey); delErr != nil {
				l.Logger.Warn("archived upload cleanup failed", "key", objectKey, "error", delErr)
			}
		}
		return Result{}, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	l.Logger.Info("dataset loaded", "db", dbKey, "table", table, "rows", len(rows), "format", format)
	return Result{Table: table, Columns: names, RowCount: len(rows), ObjectKey: objectKey}, nil
}

// LoadFromObject replaces the named table with the contents of an object
// already sitting in the archive store. The format is taken from the key's
// extension.
func (l *Loader) LoadFromObject(ctx context.Context, dbKey, table, objectKey string) (Result, error) {
	if l.Archive == nil {
		return Result{}, fmt.Errorf("object store is not configured")
	}
	if strings.TrimSpace(table) == "" {
		return Result{}, fmt.Errorf("table name is required")
	}
	format := formatFromKey(objectKey)
	if format == "" {
		return Result{}, fmt.Errorf("object key %q has no supported extension", objectKey)
	}

	info, err := l.Archive.Stat(ctx, objectKey)
	if err != nil {
		return Result{}, fmt.Errorf("stat object %q: %w", objectKey, err)
	}
	reader, err := l.Archive.Get(ctx, objectKey)
	if err != nil {
		return Result{}, fmt.Errorf("get object %q: %w", objectKey, err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return Result{}, fmt.Errorf("read object %q: %w", objectKey, err)
	}

	cols, rows, err := decode(format, data)
	if err != nil {
		return Result{}, err
	}
	if err := l.replaceTable(ctx, dbKey, table, cols, rows); err != nil {
		return Result{}, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	l.Logger.Info("dataset loaded from object store",
		"db", dbKey, "table", table, "rows", len(rows), "key", objectKey, "size", info.Size)
	return Result{Table: table, Columns: names, RowCount: len(rows), ObjectKey: objectKey}, nil
}

func decode(format string, data []byte) ([]column, [][]any, error) {
	var (
		cols []column
		rows [][]any
		err  error
	)
	switch format {
	case "parquet":
		cols, rows, err = decodeParquet(data)
	case "csv":
		cols, rows, err = decodeCSV(data)
	default:
		return nil, nil, fmt.Errorf("unsupported dataset format: %q", format)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("dataset has no columns")
	}
	return cols, rows, nil
}

func formatFromKey(objectKey string) string {
	switch {
	case strings.HasSuffix(objectKey, ".parquet"):
		return "parquet"
	case strings.HasSuffix(objectKey, ".csv"):
		return "csv"
	default:
		return ""
	}
}

func (l *Loader) archive(ctx context.Context, dbKey, table, format string, data []byte) (string, error) {
	key, err := storage.BuildUploadPath(dbKey, table, time.Now().UTC(), uuid.NewString(), format)
	if err != nil {
		return "", err
	}
	// The store derives the media type from the key's format extension.
	if _, err := l.Archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{}); err != nil {
		return "", err
	}
	return key, nil
}

func (l *Loader) replaceTable(ctx context.Context, dbKey, table string, cols []column, rows [][]any) error {
	if err := l.Data.Exec(ctx, dbKey, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table))); err != nil {
		return fmt.Errorf("drop table %q: %w", table, err)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(c.name), c.sqlType)
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if err := l.Data.Exec(ctx, dbKey, createSQL); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c.name)
	}
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*len(cols))
		for i, row := range batch {
			placeholders[i] = rowPlaceholder
			args = append(args, row...)
		}
		insertSQL := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES %s",
			quoteIdent(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
		)
		if err := l.Data.Exec(ctx, dbKey, insertSQL, args...); err != nil {
			return fmt.Errorf("insert rows into %q: %w", table, err)
		}
	}
	return nil
}

type column struct {
	name    string
	sqlType string
}

func decodeParquet(data []byte) ([]column, [][]any, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet: %w", err)
	}
	fields := file.Schema().Fields()
	cols := make([]column, len(fields))
	for i, field := range fields {
		cols[i] = column{name: field.Name(), sqlType: parquetSQLType(field)}
	}

	reader := parquet.NewGenericReader[map[string]any](file, file.Schema())
	defer reader.Close()

	var rows [][]any
	buf := make([]map[string]any, 128)
	for i := range buf {
		buf[i] = map[string]any{}
	}
	for {
		n, err := reader.Read(buf)
		for _, record := range buf[:n] {
			row := make([]any, len(cols))
			for i, c := range cols {
				row[i] = normalizeParquetValue(record[c.name])
			}
			rows = append(rows, row)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read parquet rows: %w", err)
		}
		for i := range buf {
			buf[i] = map[string]any{}
		}
	}
	return cols, rows, nil
}

func parquetSQLType(field parquet.Field) string {
	t := field.Type()
	if lt := t.LogicalType(); lt != nil {
		if lt.UTF8 != nil {
			return "TEXT"
		}
		if lt.Timestamp != nil || lt.Date != nil {
			return "TIMESTAMP"
		}
	}
	switch t.Kind() {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32, parquet.Int64:
		return "BIGINT"
	case parquet.Float, parquet.Double:
		return "DOUBLE"
	default:
		return "TEXT"
	}
}

func normalizeParquetValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return value
	}
}

func decodeCSV(data []byte) ([]column, [][]any, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) == 0 {
		return nil, nil, fmt.Errorf("csv header is empty")
	}

	var raw [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv row: %w", err)
		}
		raw = append(raw, record)
	}

	cols := make([]column, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		cols[i] = column{name: name, sqlType: csvColumnType(raw, i)}
	}

	rows := make([][]any, len(raw))
	for r, record := range raw {
		row := make([]any, len(cols))
		for c := range cols {
			if c >= len(record) {
				row[c] = nil
				continue
			}
			row[c] = csvValue(record[c], cols[c].sqlType)
		}
		rows[r] = row
	}
	return cols, rows, nil
}

// csvColumnType infers DOUBLE only when every non-empty value in the
// column parses as a number; anything else stays TEXT.
func csvColumnType(rows [][]string, idx int) string {
	sawNumber := false
	for _, record := range rows {
		if idx >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[idx])
		if value == "" {
			continue
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "TEXT"
		}
		sawNumber = true
	}
	if sawNumber {
		return "DOUBLE"
	}
	return "TEXT"
}

func csvValue(raw, sqlType string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if sqlType == "DOUBLE" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			return parsed
		}
	}
	return raw
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
