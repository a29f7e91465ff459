package pipeline

import (
	"regexp"
	"strings"
)

// bareComparison matches "WHERE/AND/OR field OP bareword" where the right
// side is an unquoted word. Numeric literals never match because the word
// must start with a letter or underscore.
var bareComparison = regexp.MustCompile(`(?i)\b(where|and|or)(\s+)([A-Za-z_][\w.]*)(\s*)(=|!=|<>|>=|<=|>|<)(\s*)([A-Za-z_]\w*)\b`)

// RepairSQL applies a deterministic cleanup to model-generated SQL: strips
// backticks and single-quotes bare words compared against a field. This is a
// regex-level heuristic, not a parser; it quietly fixes the common cases and
// leaves everything else alone.
func RepairSQL(sqlText string) (string, bool) {
	repaired := strings.ReplaceAll(sqlText, "`", "")
	repaired = bareComparison.ReplaceAllStringFunc(repaired, func(match string) string {
		parts := bareComparison.FindStringSubmatch(match)
		word := parts[7]
		switch strings.ToLower(word) {
		case "true", "false", "null":
			return match
		}
		return parts[1] + parts[2] + parts[3] + parts[4] + parts[5] + parts[6] + "'" + word + "'"
	})
	return repaired, repaired != sqlText
}

// stripMarkdownFences removes a ```sql fenced block the model may wrap its
// answer in.
func stripMarkdownFences(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
