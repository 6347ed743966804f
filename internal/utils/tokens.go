package utils

import "strings"

// Token estimates use the rough 1 token ~= 4 characters rule; they only drive
// prompt-size warnings and trimming, never billing.

// CountTokens estimates the number of tokens in the given text.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit truncates text to roughly fit within a token limit.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[:charLimit])
}

// FitLines keeps the leading lines whose newline-joined text stays within
// limit tokens. It always keeps at least one line (truncated if necessary)
// when lines is non-empty.
func FitLines(lines []string, limit int) []string {
	if limit <= 0 || len(lines) == 0 {
		return lines
	}
	used := 0
	for i, l := range lines {
		n := CountTokens(l) + 1
		if used+n > limit {
			if i == 0 {
				return []string{TruncateToTokenLimit(l, limit)}
			}
			return lines[:i]
		}
		used += n
	}
	return lines
}

// JoinBullets renders items as "- item" lines.
func JoinBullets(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return "- " + strings.Join(items, "\n- ")
}
