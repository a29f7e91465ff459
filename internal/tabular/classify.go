package tabular

import (
	"strconv"
	"strings"
	"time"
)

type ColumnKind int

const (
	KindUnknown ColumnKind = iota
	KindNumeric
	KindCategorical
	KindTemporal
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindTemporal:
		return "temporal"
	default:
		return "unknown"
	}
}

// Profile is the per-column classification. Recomputed fresh per request,
// never mutated afterwards.
type Profile struct {
	Name        string
	Kind        ColumnKind
	Cardinality int
}

var temporalNameHints = []string{
	"date", "time", "timestamp", "day", "month", "year", "week",
	"created", "updated", "_at",
}

var temporalLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"2006-01",
}

// Classify buckets every column into exactly one kind. It coerces a working
// copy of the values (numeric-looking strings to floats, date-looking strings
// to times) before testing; the caller's table is untouched.
func Classify(t Table) []Profile {
	profiles := make([]Profile, 0, len(t.Columns))
	for _, column := range t.Columns {
		values := coerceValues(column.Values)
		profiles = append(profiles, Profile{
			Name:        column.Name,
			Kind:        classifyColumn(column.Name, values),
			Cardinality: cardinality(values),
		})
	}
	return profiles
}

func classifyColumn(name string, values []any) ColumnKind {
	nonNull := 0
	numeric := 0
	temporal := 0
	for _, value := range values {
		if value == nil {
			continue
		}
		nonNull++
		if isNumericValue(value) {
			numeric++
		}
		if isTemporalValue(value) {
			temporal++
		}
	}
	if nonNull == 0 {
		if hasTemporalNameHint(name) {
			return KindTemporal
		}
		return KindUnknown
	}

	allNumeric := numeric == nonNull
	allTemporal := temporal == nonNull

	// A numeric column whose name says it is a point in time stays temporal.
	if hasTemporalNameHint(name) && (allTemporal || allNumeric) {
		return KindTemporal
	}
	if allNumeric {
		return KindNumeric
	}
	if allTemporal {
		return KindTemporal
	}
	return KindCategorical
}

func hasTemporalNameHint(name string) bool {
	lowered := strings.ToLower(name)
	for _, hint := range temporalNameHints {
		if strings.Contains(lowered, hint) {
			return true
		}
	}
	return false
}

func coerceValues(values []any) []any {
	coerced := make([]any, len(values))
	for i, value := range values {
		coerced[i] = coerceValue(value)
	}
	return coerced
}

func coerceValue(value any) any {
	text, ok := value.(string)
	if !ok {
		return value
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if number, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return number
	}
	if parsed, ok := parseTemporal(trimmed); ok {
		return parsed
	}
	return text
}

// ParseTemporal reports whether text matches any date layout Classify
// accepts, returning the parsed time when it does.
func ParseTemporal(text string) (time.Time, bool) {
	return parseTemporal(strings.TrimSpace(text))
}

func parseTemporal(text string) (time.Time, bool) {
	for _, layout := range temporalLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func isNumericValue(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func isTemporalValue(value any) bool {
	_, ok := value.(time.Time)
	return ok
}

func cardinality(values []any) int {
	seen := map[string]struct{}{}
	for _, value := range values {
		if value == nil {
			continue
		}
		seen[valueKey(value)] = struct{}{}
	}
	return len(seen)
}

func valueKey(value any) string {
	switch typed := value.(type) {
	case string:
		return "s:" + typed
	case time.Time:
		return "t:" + typed.Format(time.RFC3339Nano)
	default:
		return "v:" + strconv.FormatFloat(toFloat(value), 'g', -1, 64)
	}
}

func toFloat(value any) float64 {
	switch typed := value.(type) {
	case int:
		return float64(typed)
	case int8:
		return float64(typed)
	case int16:
		return float64(typed)
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case uint:
		return float64(typed)
	case uint8:
		return float64(typed)
	case uint16:
		return float64(typed)
	case uint32:
		return float64(typed)
	case uint64:
		return float64(typed)
	case float32:
		return float64(typed)
	case float64:
		return typed
	case bool:
		if typed {
			return 1
		}
		return 0
	default:
		return 0
	}
}
