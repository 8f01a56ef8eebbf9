package entity

import (
	"regexp"
	"strings"
)

var greekReplacer = strings.NewReplacer(
	"α", "alpha",
	"β", "beta",
	"γ", "gamma",
	"δ", "delta",
	"ε", "epsilon",
	"μ", "mu",
	"ω", "omega",
)

var (
	squareBracketRe = regexp.MustCompile(`\[[^\[\]]*\]`)
	// Parenthesized qualifiers are noise, but locants and R/S chirality
	// markers are structural and must survive.
	parenNoiseRe = regexp.MustCompile(`\([^()\dRrSs]+\)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	punctRe      = regexp.MustCompile(`\s*[,;:]\s*`)
)

// Normalize canonicalizes compound and enzyme names so dictionary aliases
// and question text meet in the same space: lowercase, greek letters
// spelled out, bracketed qualifiers dropped, hyphens and arrows unified.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = greekReplacer.Replace(s)

	s = squareBracketRe.ReplaceAllString(s, "")
	s = parenNoiseRe.ReplaceAllString(s, "")

	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "→", "to")
	s = strings.ReplaceAll(s, "->", "to")

	s = whitespaceRe.ReplaceAllString(s, " ")
	s = punctRe.ReplaceAllString(s, " ")
	return strings.Trim(s, " ,;:")
}
