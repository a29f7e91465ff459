package tabular

import (
	"testing"
	"time"
)

func TestClassifyKindsFormPartition(t *testing.T) {
	table := Table{Columns: []Column{
		{Name: "region", Values: []any{"north", "south", "north"}},
		{Name: "amount", Values: []any{"10", "20.5", "30"}},
		{Name: "sold_at", Values: []any{"2024-01-02", "2024-02-03", "2024-03-04"}},
		{Name: "mystery", Values: []any{nil, nil, nil}},
	}}

	profiles := Classify(table)
	if len(profiles) != 4 {
		t.Fatalf("profiles = %d, want 4", len(profiles))
	}
	want := map[string]ColumnKind{
		"region":  KindCategorical,
		"amount":  KindNumeric,
		"sold_at": KindTemporal,
		"mystery": KindUnknown,
	}
	for _, profile := range profiles {
		if profile.Kind != want[profile.Name] {
			t.Fatalf("%s classified as %v, want %v", profile.Name, profile.Kind, want[profile.Name])
		}
	}
}

func TestClassifyTemporalNameHintBeatsNumeric(t *testing.T) {
	table := Table{Columns: []Column{
		{Name: "created_at", Values: []any{int64(1714000000), int64(1714090000)}},
	}}
	profiles := Classify(table)
	if profiles[0].Kind != KindTemporal {
		t.Fatalf("created_at classified as %v, want temporal", profiles[0].Kind)
	}
}

func TestClassifyNumericWinsWithoutNameHint(t *testing.T) {
	table := Table{Columns: []Column{
		{Name: "score", Values: []any{1.5, 2.5}},
	}}
	profiles := Classify(table)
	if profiles[0].Kind != KindNumeric {
		t.Fatalf("score classified as %v, want numeric", profiles[0].Kind)
	}
}

func TestClassifyDoesNotMutateCaller(t *testing.T) {
	table := Table{Columns: []Column{
		{Name: "amount", Values: []any{"10", "20"}},
	}}
	Classify(table)
	if table.Columns[0].Values[0] != "10" {
		t.Fatalf("caller table mutated: %v", table.Columns[0].Values[0])
	}
}

func TestClassifyMixedValuesFallBackToCategorical(t *testing.T) {
	table := Table{Columns: []Column{
		{Name: "code", Values: []any{"12", "A7", "9"}},
	}}
	profiles := Classify(table)
	if profiles[0].Kind != KindCategorical {
		t.Fatalf("code classified as %v, want categorical", profiles[0].Kind)
	}
}

func TestClassifyCardinality(t *testing.T) {
	table := Table{Columns: []Column{
		{Name: "region", Values: []any{"north", "south", "north", nil}},
	}}
	profiles := Classify(table)
	if profiles[0].Cardinality != 2 {
		t.Fatalf("cardinality = %d, want 2", profiles[0].Cardinality)
	}
}

func TestClassifyParsedTimesAreTemporal(t *testing.T) {
	table := Table{Columns: []Column{
		{Name: "when", Values: []any{time.Now(), time.Now().Add(time.Hour)}},
	}}
	profiles := Classify(table)
	if profiles[0].Kind != KindTemporal {
		t.Fatalf("when classified as %v, want temporal", profiles[0].Kind)
	}
}
