// Package slug derives URL-safe identifiers for directory profiles.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWord  = regexp.MustCompile(`[^a-z0-9\s-]`)
	collapse = regexp.MustCompile(`[\s-]+`)

	// NFD decomposition + strip combining marks folds "Café" to "Cafe".
	foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Make builds a slug from a firm name and city, e.g.
// ("Acme Lawyers", "Sydney") -> "acme-lawyers-sydney".
func Make(name, city string) string {
	base := name
	if city != "" {
		base = name + " " + city
	}
	return Slugify(base)
}

// Slugify converts arbitrary text to a lowercase hyphenated slug.
func Slugify(text string) string {
	folded, _, err := transform.String(foldDiacritics, text)
	if err == nil {
		text = folded
	}
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, "")
	text = collapse.ReplaceAllString(text, "-")
	return strings.Trim(text, "-")
}

// Registry hands out run-unique slugs, suffixing "-2", "-3", ... on
// collision. Not safe for concurrent use; the pipeline is sequential.
type Registry struct {
	seen map[string]int
}

// NewRegistry creates an empty slug registry.
func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]int)}
}

// Claim reserves a slug for the given base, deduplicating across the run.
func (r *Registry) Claim(base string) string {
	if base == "" {
		base = "profile"
	}

	n := r.seen[base]
	r.seen[base] = n + 1
	if n == 0 {
		return base
	}

	// First collision gets "-2", keeping the original untouched.
	for {
		candidate := fmt.Sprintf("%s-%d", base, n+1)
		if r.seen[candidate] == 0 {
			r.seen[candidate]++
			return candidate
		}
		n++
	}
}
