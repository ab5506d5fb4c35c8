package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// registrableDomain reduces a host to its registrable form: lowercase, no
// port, no www prefix, last two labels only. Multi-label public suffixes
// (co.uk and friends) are not special-cased; the brand lists this is compared
// against use the same two-label convention.
func registrableDomain(host string) string {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.Contains(host, "]") {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "www.")
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// domainLabel returns the first label of a registrable domain ("paypal" for
// "paypal.com")
func domainLabel(domain string) string {
	if i := strings.Index(domain, "."); i > 0 {
		return domain[:i]
	}
	return domain
}

// addressDomain extracts the lowercased domain of an email address, or ""
func addressDomain(address string) string {
	parts := strings.Split(address, "@")
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(parts[1]))
}

// addressLocalPart returns the lowercased part before the @, or "" when the
// address does not have exactly one
func addressLocalPart(address string) string {
	parts := strings.Split(address, "@")
	if len(parts) != 2 || parts[0] == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(parts[0]))
}

// levenshtein computes the edit distance between two strings. The reference
// lists this runs against are short, so the full matrix is fine.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// confusables maps characters commonly used to visually imitate Latin
// letters. Cyrillic and Greek entries cover homograph attacks, digits and
// symbols cover classic leetspeak substitutions (paypa1, g00gle).
var confusables = map[rune]rune{
	'0': 'o', '1': 'l', '3': 'e', '4': 'a', '5': 's', '7': 't',
	'@': 'a', '$': 's', '!': 'i',
	// Cyrillic
	'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'х': 'x',
	'у': 'y', 'і': 'i', 'ј': 'j', 'ѕ': 's', 'һ': 'h',
	// Greek
	'ο': 'o', 'α': 'a', 'ν': 'v', 'ρ': 'p', 'τ': 't', 'υ': 'u',
}

// foldConfusables normalizes a domain so lookalike spellings collapse onto
// the genuine one: NFKC normalization first, then confusable substitution,
// then the rn->m digraph trick.
func foldConfusables(s string) string {
	s = norm.NFKC.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if folded, ok := confusables[r]; ok {
			b.WriteRune(folded)
		} else {
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(b.String(), "rn", "m")
}

// mixesScripts reports whether a hostname mixes Latin letters with Cyrillic
// or Greek ones, the signature of a homograph attack
func mixesScripts(s string) bool {
	var latin, other bool
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Latin, r):
			latin = true
		case unicode.Is(unicode.Cyrillic, r), unicode.Is(unicode.Greek, r):
			other = true
		}
	}
	return latin && other
}
