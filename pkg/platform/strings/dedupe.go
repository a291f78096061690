// Package strings holds small string-list helpers shared by configuration
// parsing.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops empty and repeated ones,
// keeping first-seen order. Comparison is case-sensitive, so "TaxId" and
// "taxid" are distinct property names.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// SplitList splits a comma-separated setting into its distinct, non-empty
// items. A blank input yields nil.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	out := DedupeAndTrim(strings.Split(raw, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
