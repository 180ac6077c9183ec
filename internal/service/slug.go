package service

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Slugify derives a URL-safe slug from a title or name: lower-cased, with
// runs of characters outside [a-z0-9] collapsed to single hyphens and no
// leading or trailing hyphen. Only ASCII digits count as alphanumeric;
// non-ASCII digits are separators like any other rune. The result may be
// empty if the input contains no alphanumeric characters.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// LookupCandidates expands a slug taken from a URL into the ordered,
// deduplicated list of strings to try against the store: the decoded,
// NFC-normalized form first, then its lower-casing. Slugs arrive from
// external links with inconsistent encoding and case; trying the normalized
// form first preserves exact-case matches. If the input has malformed
// percent-encoding, the raw input is the sole candidate.
func LookupCandidates(raw string) []string {
	decoded, err := url.QueryUnescape(strings.ReplaceAll(raw, "+", " "))
	if err != nil {
		return []string{raw}
	}
	normalized := norm.NFC.String(decoded)
	lower := strings.ToLower(normalized)
	if lower == normalized {
		return []string{normalized}
	}
	return []string{normalized, lower}
}

// ScrubSearchTerm prepares a free-text search term for substring matching:
// commas become spaces and percent signs are stripped so neither interferes
// with the underlying LIKE pattern syntax.
func ScrubSearchTerm(term string) string {
	term = strings.TrimSpace(term)
	term = strings.ReplaceAll(term, ",", " ")
	term = strings.ReplaceAll(term, "%", "")
	return strings.TrimSpace(term)
}
