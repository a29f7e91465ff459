package tabular

import "fmt"

// RawKind tags the shapes of query output the coercer accepts. Dispatch happens
// on the tag, never on repeated type switching downstream.
type RawKind int

const (
	RawEmpty RawKind = iota
	RawTable
	RawRecords
	RawTuples
	RawText
	RawScalar
)

func (k RawKind) String() string {
	switch k {
	case RawEmpty:
		return "empty"
	case RawTable:
		return "table"
	case RawRecords:
		return "records"
	case RawTuples:
		return "tuples"
	case RawText:
		return "text"
	case RawScalar:
		return "scalar"
	default:
		return fmt.Sprintf("raw(%d)", int(k))
	}
}

// Raw is the tagged input variant for Coerce. Exactly one payload field is
// meaningful, selected by Kind.
type Raw struct {
	Kind    RawKind
	Table   Table
	Records []map[string]any
	Tuples  [][]any
	Text    string
	Scalar  any
}

func RawFromTable(t Table) Raw           { return Raw{Kind: RawTable, Table: t} }
func RawFromRecords(r []map[string]any) Raw { return Raw{Kind: RawRecords, Records: r} }
func RawFromTuples(rows [][]any) Raw     { return Raw{Kind: RawTuples, Tuples: rows} }
func RawFromText(s string) Raw           { return Raw{Kind: RawText, Text: s} }
func RawFromScalar(v any) Raw            { return Raw{Kind: RawScalar, Scalar: v} }
func RawNone() Raw                       { return Raw{Kind: RawEmpty} }

// Detect converts an arbitrary decoded value into a tagged Raw. This is the
// single place that inspects dynamic shapes.
func Detect(value any) Raw {
	switch typed := value.(type) {
	case nil:
		return RawNone()
	case Table:
		return RawFromTable(typed)
	case map[string]any:
		if len(typed) == 0 {
			return RawNone()
		}
		return RawFromRecords([]map[string]any{typed})
	case []map[string]any:
		if len(typed) == 0 {
			return RawNone()
		}
		return RawFromRecords(typed)
	case [][]any:
		if len(typed) == 0 {
			return RawNone()
		}
		return RawFromTuples(typed)
	case string:
		if typed == "" {
			return RawNone()
		}
		return RawFromText(typed)
	case []any:
		return detectList(typed)
	default:
		return RawFromScalar(typed)
	}
}

func detectList(items []any) Raw {
	if len(items) == 0 {
		return RawNone()
	}
	records := make([]map[string]any, 0, len(items))
	tuples := make([][]any, 0, len(items))
	allRecords := true
	allTuples := true
	for _, item := range items {
		switch element := item.(type) {
		case map[string]any:
			records = append(records, element)
			allTuples = false
		case []any:
			tuples = append(tuples, element)
			allRecords = false
		default:
			allRecords = false
			allTuples = false
		}
	}
	switch {
	case allRecords:
		return RawFromRecords(records)
	case allTuples:
		return RawFromTuples(tuples)
	default:
		// Mixed list: treat each element as one cell of a single column.
		rows := make([][]any, 0, len(items))
		for _, item := range items {
			rows = append(rows, []any{item})
		}
		return RawFromTuples(rows)
	}
}
