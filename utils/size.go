package utils

import (
	"strings"
	"unicode"

	"restock-watcher/internal/types"
)

// NormalizeSize canonicalizes a raw size label by removing every whitespace rune.
// No case folding or unit conversion is done, so "us 8.5" and "US 8.5" stay distinct.
func NormalizeSize(raw string) types.SizeKey {
	return types.SizeKey(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw))
}

// NormalizeSizes normalizes labels into an ordered set, dropping empty and repeated keys
func NormalizeSizes(raw []string) []types.SizeKey {
	seen := make(map[types.SizeKey]bool)
	var keys []types.SizeKey

	for _, label := range raw {
		key := NormalizeSize(label)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}

	return keys
}
