package domain

import "strings"

// NormalizeKey lowercases and trims a category or tag so identity is decided
// once at ingestion and never re-derived ad hoc at query time.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTags normalizes a tag list, dropping empties and duplicates while
// preserving order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = NormalizeKey(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
