package chart

import "strings"

// Kind enumerates the chart shapes the renderer knows how to draw.
type Kind string

const (
	KindBar       Kind = "bar"
	KindLine      Kind = "line"
	KindScatter   Kind = "scatter"
	KindPie       Kind = "pie"
	KindHistogram Kind = "histogram"
	KindBox       Kind = "box"
	KindViolin    Kind = "violin"
	KindArea      Kind = "area"
	KindError     Kind = "error"
)

// Channel is a visual role a column can be bound to.
type Channel string

const (
	ChannelX      Channel = "x"
	ChannelY      Channel = "y"
	ChannelColor  Channel = "color"
	ChannelSize   Channel = "size"
	ChannelNames  Channel = "names"
	ChannelValues Channel = "values"
)

// requestPhrases maps question keywords to an explicitly requested kind.
// Longer phrases are listed first so "scatter plot" wins over "plot".
var requestPhrases = []struct {
	phrase string
	kind   Kind
}{
	{"pie chart", KindPie},
	{"bar chart", KindBar},
	{"bar graph", KindBar},
	{"line chart", KindLine},
	{"line graph", KindLine},
	{"scatter plot", KindScatter},
	{"scatterplot", KindScatter},
	{"area chart", KindArea},
	{"histogram", KindHistogram},
	{"box plot", KindBox},
	{"violin", KindViolin},
	{"trend", KindLine},
}

// KindFromQuestion detects an explicitly requested chart kind in free text.
func KindFromQuestion(question string) (Kind, bool) {
	lowered := strings.ToLower(question)
	for _, entry := range requestPhrases {
		if strings.Contains(lowered, entry.phrase) {
			return entry.kind, true
		}
	}
	return "", false
}

// ParseKind normalizes a user-supplied kind name ("Bar", "pie", ...).
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindBar:
		return KindBar, true
	case KindLine:
		return KindLine, true
	case KindScatter:
		return KindScatter, true
	case KindPie:
		return KindPie, true
	case KindHistogram:
		return KindHistogram, true
	case KindBox:
		return KindBox, true
	case KindViolin:
		return KindViolin, true
	case KindArea:
		return KindArea, true
	default:
		return "", false
	}
}
