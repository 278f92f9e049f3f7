package reconcile

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonWord  = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
	yearHint = regexp.MustCompile(`\b(20\d{2})\b`)
)

// NormalizeTitle lowercases s, collapses every run of non-word characters to
// one space and trims. Letters are not transliterated, so "Amélie" and
// "amelie" normalize differently.
func NormalizeTitle(s string) string {
	return strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(s), " "))
}

// YearHint returns the first 20xx year in text, or fallback when none.
func YearHint(text string, fallback int) int {
	m := yearHint.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return fallback
	}
	return year
}
