package normalize

import (
	"regexp"
	"strings"
)

// ActorNameSplitter turns an actor field into actor names.
type ActorNameSplitter interface {
	Split(field string) []string
}

// CreditSplitter splits "Name (Character); Name (Character)" fields and
// drops the character part. The character starts at the first " (", so
// roles such as "Miles Morales (voice)" are removed whole.
type CreditSplitter struct{}

// Split implements ActorNameSplitter.
func (CreditSplitter) Split(field string) []string {
	parts := strings.Split(field, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if name, _, found := strings.Cut(part, " ("); found && strings.HasSuffix(part, ")") {
			part = strings.TrimSpace(name)
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

var capitalizedRun = regexp.MustCompile(`[A-Z][a-z]+(?: [A-Z][a-z]+)*`)

// CapitalizedRunSplitter extracts runs of capitalized ASCII words from free
// text such as a listing's cast column. It is lossy: names with particles,
// initials, hyphens or non-ASCII letters are cut or dropped, and character
// names are picked up as if they were actors.
type CapitalizedRunSplitter struct{}

// Split implements ActorNameSplitter.
func (CapitalizedRunSplitter) Split(field string) []string {
	return capitalizedRun.FindAllString(field, -1)
}

// splitList splits on sep, trims tokens, drops empties and removes repeats
// while keeping first-seen order.
func splitList(field, sep string) []string {
	return dedup(strings.Split(field, sep))
}

func dedup(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
