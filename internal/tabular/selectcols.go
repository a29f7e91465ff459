package tabular

import (
	"strings"
)

// SelectColumnNames recovers output column names from the SELECT clause of the
// SQL that produced a positional row set. It is a best-effort scanner, not a
// parser: it handles AS aliases, table.column references and nested function
// calls, and returns nil whenever the clause cannot be read confidently.
func SelectColumnNames(sqlText string) []string {
	clause, ok := selectClause(sqlText)
	if !ok {
		return nil
	}
	parts := splitTopLevel(clause, ',')
	if len(parts) == 0 {
		return nil
	}
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := columnLabel(strings.TrimSpace(part))
		if name == "" || name == "*" {
			return nil
		}
		names = append(names, name)
	}
	return names
}

func selectClause(sqlText string) (string, bool) {
	trimmed := strings.TrimSpace(sqlText)
	lower := asciiLower(trimmed)
	if !strings.HasPrefix(lower, "select") {
		return "", false
	}
	body := trimmed[len("select"):]
	lowerBody := lower[len("select"):]
	if rest, found := strings.CutPrefix(strings.TrimLeft(lowerBody, " \t\n"), "distinct "); found {
		cut := len(lowerBody) - len(rest)
		body = body[cut:]
		lowerBody = lowerBody[cut:]
	}

	depth := 0
	for i := 0; i < len(lowerBody); i++ {
		switch lowerBody[i] {
		case '(':
			depth++
		case ')':
			depth--
		case 'f':
			if depth == 0 && strings.HasPrefix(lowerBody[i:], "from") && boundaryBefore(lowerBody, i) && boundaryAfter(lowerBody, i+4) {
				return strings.TrimSpace(body[:i]), true
			}
		}
	}
	return "", false
}

// asciiLower keeps byte offsets aligned with the original string, which
// strings.ToLower does not guarantee for non-ASCII input.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || s[i-1] == ' ' || s[i-1] == '\t' || s[i-1] == '\n'
}

func boundaryAfter(s string, i int) bool {
	return i >= len(s) || s[i] == ' ' || s[i] == '\t' || s[i] == '\n'
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func columnLabel(expr string) string {
	if expr == "" {
		return ""
	}
	// Explicit alias wins: `expr AS alias`.
	lower := asciiLower(expr)
	if idx := lastTopLevelAS(lower); idx >= 0 {
		return trimIdentifier(expr[idx+4:])
	}
	// A parenthesized expression without an alias has no recoverable name.
	if strings.ContainsAny(expr, "()") {
		return ""
	}
	// Bare `table.column` keeps the column part.
	if idx := strings.LastIndexByte(expr, '.'); idx >= 0 {
		return trimIdentifier(expr[idx+1:])
	}
	return trimIdentifier(expr)
}

func lastTopLevelAS(lower string) int {
	depth := 0
	last := -1
	for i := 0; i+4 <= len(lower); i++ {
		switch lower[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && lower[i] == ' ' && strings.HasPrefix(lower[i:], " as ") {
			last = i
		}
	}
	return last
}

func trimIdentifier(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`\"'[]")
	if s == "" {
		return ""
	}
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			return ""
		}
	}
	return s
}
