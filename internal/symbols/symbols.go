// Package symbols resolves the list of ticker symbols to collect and the
// resource keys to try for each of them.
package symbols

import "strings"

// AliasPrefix marks the alternate resource key some symbols are published under
const AliasPrefix = "_"

// Normalize trims whitespace and upper-cases a symbol
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Variations returns the resource keys to try for a normalized symbol, in order
func Variations(symbol string) []string {
	return []string{symbol, AliasPrefix + symbol}
}

// ParseList splits a comma-joined symbol list. Entries are trimmed and empty
// entries dropped; duplicates are kept.
func ParseList(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// JoinList is the inverse of ParseList
func JoinList(symbols []string) string {
	return strings.Join(symbols, ",")
}
