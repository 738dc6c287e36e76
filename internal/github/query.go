package github

import (
	"regexp"
	"strings"
)

// MinStarsClause keeps low-popularity repositories out of every search.
const MinStarsClause = "stars:>50"

var unsafeTermChars = regexp.MustCompile(`[^\w\s-]`)

// CleanSearchTerm strips everything but word characters, whitespace and
// hyphens so a term cannot inject search qualifiers.
func CleanSearchTerm(term string) string {
	return unsafeTermChars.ReplaceAllString(term, "")
}

// BuildSearchQuery assembles a repository search query for one term.
// Empty parts are skipped.
func BuildSearchQuery(language, term, example string) string {
	parts := []string{
		"language:" + language,
		CleanSearchTerm(term),
	}
	if example != "" {
		parts = append(parts, example+" in:name,description,readme")
	}
	parts = append(parts, MinStarsClause)

	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
