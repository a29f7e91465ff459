package pipeline

import "testing"

func TestRepairSQL(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{
			name:    "strips backticks",
			in:      "SELECT `region` FROM sales",
			want:    "SELECT region FROM sales",
			changed: true,
		},
		{
			name:    "quotes bareword after where",
			in:      "SELECT * FROM sales WHERE region = north",
			want:    "SELECT * FROM sales WHERE region = 'north'",
			changed: true,
		},
		{
			name:    "quotes bareword after and",
			in:      "SELECT * FROM sales WHERE amount > 5 AND product = widget",
			want:    "SELECT * FROM sales WHERE amount > 5 AND product = 'widget'",
			changed: true,
		},
		{
			name:    "leaves numbers alone",
			in:      "SELECT * FROM sales WHERE amount > 100",
			want:    "SELECT * FROM sales WHERE amount > 100",
			changed: false,
		},
		{
			name:    "leaves booleans and null alone",
			in:      "SELECT * FROM sales WHERE active = true OR deleted = NULL",
			want:    "SELECT * FROM sales WHERE active = true OR deleted = NULL",
			changed: false,
		},
		{
			name:    "leaves quoted literals alone",
			in:      "SELECT * FROM sales WHERE region = 'north'",
			want:    "SELECT * FROM sales WHERE region = 'north'",
			changed: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := RepairSQL(tc.in)
			if got != tc.want {
				t.Fatalf("RepairSQL(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if changed != tc.changed {
				t.Fatalf("changed = %v, want %v", changed, tc.changed)
			}
		})
	}
}

func TestStripMarkdownFences(t *testing.T) {
	if got := stripMarkdownFences("```sql\nSELECT 1\n```"); got != "SELECT 1" {
		t.Fatalf("stripMarkdownFences() = %q", got)
	}
	if got := stripMarkdownFences("SELECT 1"); got != "SELECT 1" {
		t.Fatalf("stripMarkdownFences() = %q", got)
	}
}
