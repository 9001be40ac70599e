// Package dedup collapses records that describe the same publication across
// providers using exact identifier keys and a normalized title key.
package dedup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/helixir/literature-search-service/internal/domain"
)

// DefaultTitleKeyLength is the number of normalized title runes used as the
// fuzzy title key.
const DefaultTitleKeyLength = 50

// Key prefixes.
const (
	doiPrefix   = "doi:"
	pmidPrefix  = "pmid:"
	titlePrefix = "title:"
)

// NormalizeTitle normalizes a title for comparison:
//   - Converts to lowercase
//   - Removes all characters that are not letters, digits or whitespace
//   - Collapses runs of whitespace to a single space
//   - Trims leading and trailing whitespace
//   - Keeps the first maxRunes runes; maxRunes <= 0 keeps the whole title
func NormalizeTitle(title string, maxRunes int) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(title))
	prevSpace := false

	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
				prevSpace = true
			}
		}
		// Punctuation and symbols are dropped.
	}

	result := strings.TrimRight(sb.String(), " ")
	if maxRunes > 0 && utf8.RuneCountInString(result) > maxRunes {
		result = string([]rune(result)[:maxRunes])
	}
	return result
}

// NormalizeDOI lowercases and trims a DOI. DOIs are case-insensitive.
func NormalizeDOI(doi string) string {
	return strings.ToLower(strings.TrimSpace(doi))
}

// Keys returns the duplicate detection keys of a record: its DOI, its PMID,
// and its normalized title prefix, each only when non-empty.
func Keys(s *domain.UnifiedSource, titleKeyLength int) []string {
	keys := make([]string, 0, 3)
	if doi := NormalizeDOI(s.DOI); doi != "" {
		keys = append(keys, doiPrefix+doi)
	}
	if pmid := strings.TrimSpace(s.PMID); pmid != "" {
		keys = append(keys, pmidPrefix+pmid)
	}
	if title := NormalizeTitle(s.Title, titleKeyLength); title != "" {
		keys = append(keys, titlePrefix+title)
	}
	return keys
}
