package chart

import "testing"

func TestKindFromQuestion(t *testing.T) {
	cases := []struct {
		question string
		want     Kind
		found    bool
	}{
		{"show me a pie chart of revenue by region", KindPie, true},
		{"Plot a Scatter Plot of price vs size", KindScatter, true},
		{"what is the sales trend this year", KindLine, true},
		{"give me a histogram of order values", KindHistogram, true},
		{"how many orders per region", "", false},
	}
	for _, tc := range cases {
		kind, found := KindFromQuestion(tc.question)
		if found != tc.found || kind != tc.want {
			t.Errorf("KindFromQuestion(%q) = (%q, %v), want (%q, %v)",
				tc.question, kind, found, tc.want, tc.found)
		}
	}
}

func TestParseKind(t *testing.T) {
	if kind, ok := ParseKind("  Bar "); !ok || kind != KindBar {
		t.Fatalf("ParseKind(Bar) = (%q, %v)", kind, ok)
	}
	if _, ok := ParseKind("sparkline"); ok {
		t.Fatal("expected unknown kind to be rejected")
	}
	if _, ok := ParseKind("error"); ok {
		t.Fatal("error is not a requestable kind")
	}
}
