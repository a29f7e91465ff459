package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

// Coercer normalizes arbitrary query output into a Table. Coerce never
// returns an error: each parse tier degrades to the next one, and the final
// tiers cannot fail.
type Coercer struct {
	Logger *slog.Logger
}

// PlaceholderCategoryColumn and PlaceholderValueColumn name the zero-row
// table produced for empty input, so downstream stages always have a
// chartable two-column shape.
const (
	PlaceholderCategoryColumn = "category"
	PlaceholderValueColumn    = "value"
)

func PlaceholderTable() Table {
	return Table{Columns: []Column{
		{Name: PlaceholderCategoryColumn, Values: []any{}},
		{Name: PlaceholderValueColumn, Values: []any{}},
	}}
}

func (c Coercer) Coerce(raw Raw, originSQL string) Table {
	switch raw.Kind {
	case RawTable:
		return raw.Table
	case RawRecords:
		return c.fromRecords(raw.Records)
	case RawTuples:
		return c.fromTuples(raw.Tuples, originSQL)
	case RawText:
		return c.fromText(raw.Text, originSQL)
	case RawScalar:
		return singleCell(raw.Scalar)
	default:
		return PlaceholderTable()
	}
}

// fromRecords unions record keys in order of first appearance across records.
// Map iteration order is random, so keys introduced by the same record are
// sorted to keep the result deterministic.
func (c Coercer) fromRecords(records []map[string]any) Table {
	if len(records) == 0 {
		return PlaceholderTable()
	}
	var names []string
	seen := map[string]bool{}
	for _, record := range records {
		var added []string
		for key := range record {
			if !seen[key] {
				seen[key] = true
				added = append(added, key)
			}
		}
		sort.Strings(added)
		names = append(names, added...)
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		values := make([]any, 0, len(records))
		for _, record := range records {
			values = append(values, record[name])
		}
		columns[i] = Column{Name: name, Values: values}
	}
	return Table{Columns: columns}
}

func (c Coercer) fromTuples(rows [][]any, originSQL string) Table {
	if len(rows) == 0 {
		return PlaceholderTable()
	}
	arity := 0
	for _, row := range rows {
		if len(row) > arity {
			arity = len(row)
		}
	}
	if arity == 0 {
		return PlaceholderTable()
	}
	names := SelectColumnNames(originSQL)
	if len(names) != arity {
		if len(names) > 0 {
			c.log("recovered column names do not match row arity",
				slog.Int("names", len(names)), slog.Int("arity", arity))
		}
		names = syntheticNames(rows[0], arity)
	}
	return NewTable(names, rows)
}

// syntheticNames labels positions by what the first row looks like, so a
// generated chart still reads sensibly without the origin SQL.
func syntheticNames(first []any, arity int) []string {
	names := make([]string, arity)
	for i := 0; i < arity; i++ {
		var sample any
		if i < len(first) {
			sample = first[i]
		}
		if looksNumeric(sample) {
			names[i] = fmt.Sprintf("value_%d", i+1)
		} else {
			names[i] = fmt.Sprintf("field_%d", i+1)
		}
	}
	return names
}

func looksNumeric(value any) bool {
	switch typed := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return err == nil
	default:
		return false
	}
}

type textParser struct {
	name string
	try  func(string) (Table, error)
}

func (c Coercer) fromText(text string, originSQL string) Table {
	parsers := []textParser{
		{name: "json", try: func(s string) (Table, error) { return c.parseJSON(s, originSQL) }},
		{name: "delimited", try: c.parseDelimited},
	}
	for _, parser := range parsers {
		table, err := parser.try(text)
		if err == nil {
			return table
		}
		c.log("text parse attempt failed", slog.String("parser", parser.name), slog.Any("error", err))
	}
	return singleCell(text)
}

func (c Coercer) parseJSON(text string, originSQL string) (Table, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Table{}, fmt.Errorf("empty text")
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return Table{}, fmt.Errorf("decode json: %w", err)
	}
	raw := Detect(decoded)
	if raw.Kind == RawText {
		// A bare JSON string decodes back to text; treat it as a scalar so the
		// parser chain terminates.
		return singleCell(raw.Text), nil
	}
	return c.Coerce(raw, originSQL), nil
}

func (c Coercer) parseDelimited(text string) (Table, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Table{}, fmt.Errorf("empty text")
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return Table{}, fmt.Errorf("not delimited: single line")
	}
	for _, delimiter := range []rune{',', '\t'} {
		reader := csv.NewReader(strings.NewReader(trimmed))
		reader.Comma = delimiter
		reader.TrimLeadingSpace = true
		records, err := reader.ReadAll()
		if err != nil || len(records) < 2 || len(records[0]) < 2 {
			continue
		}
		return delimitedTable(records), nil
	}
	// Whitespace-aligned output: split every line on runs of spaces.
	fields := make([][]string, 0, len(lines))
	width := 0
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		if width == 0 {
			width = len(parts)
		}
		if len(parts) != width {
			return Table{}, fmt.Errorf("not delimited: ragged whitespace rows")
		}
		fields = append(fields, parts)
	}
	if len(fields) < 2 || width < 2 {
		return Table{}, fmt.Errorf("not delimited")
	}
	return delimitedTable(fields), nil
}

func delimitedTable(records [][]string) Table {
	header := records[0]
	rows := make([][]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]any, len(header))
		for i := range header {
			if i < len(record) {
				row[i] = convertCell(record[i])
			}
		}
		rows = append(rows, row)
	}
	return NewTable(header, rows)
}

func convertCell(cell string) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	if number, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return number
	}
	return trimmed
}

func singleCell(value any) Table {
	return Table{Columns: []Column{{Name: "result", Values: []any{stringify(value)}}}}
}

func stringify(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case string, bool, int, int64, float64:
		return typed
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func (c Coercer) log(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Debug(msg, args...)
	}
}
