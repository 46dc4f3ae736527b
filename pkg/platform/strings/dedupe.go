// Package strings holds the small list helpers query parsing needs.
package strings

import (
	"strings"
)

// SplitList splits a comma separated query value into lowercase, trimmed,
// de-duplicated items. Empty items are dropped and first-seen order is kept,
// so "pending, Pending,,deleting" yields [pending deleting].
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return DedupeLower(strings.Split(raw, ","))
}

// DedupeLower trims and lowercases values, dropping empties and duplicates.
func DedupeLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		item := strings.ToLower(strings.TrimSpace(v))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}
