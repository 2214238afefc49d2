package search

import (
	"regexp"
	"strings"
)

var (
	bracketedYearPattern = regexp.MustCompile(`[(\[]\d{4}[)\]]`)
	nonAlnumSpacePattern = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	nonAlnumPattern      = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// ConservativeClean strips unambiguous release metadata from a query while
// preserving punctuation that may be load-bearing in a title (hyphens, colons,
// ampersands). Only bracketed four-digit years such as "(1999)" or "[2022]"
// are removed. Index sites tend to match on exact substrings, so this is the
// first search pass.
func ConservativeClean(query string) string {
	cleaned := bracketedYearPattern.ReplaceAllString(query, "")
	return collapseWhitespace(cleaned)
}

// AggressiveClean blanks every character outside [A-Za-z0-9 ]. It is the
// fallback pass for titles whose punctuation the source mangles; the engine
// skips it when it degenerates to the conservative form.
func AggressiveClean(query string) string {
	cleaned := nonAlnumSpacePattern.ReplaceAllString(query, " ")
	return collapseWhitespace(cleaned)
}

// KeywordSet is a multiset of lowercase alphanumeric tokens. Only counts
// matter; order does not.
type KeywordSet map[string]int

// ExtractKeywords tokenizes text into a KeywordSet. Tokens of length one are
// dropped: single letters and digits are too weak to discriminate titles and
// would inflate false-positive scores.
func ExtractKeywords(text string) KeywordSet {
	cleaned := nonAlnumPattern.ReplaceAllString(text, " ")
	keywords := make(KeywordSet)
	for _, word := range strings.Fields(strings.ToLower(cleaned)) {
		if len(word) <= 1 {
			continue
		}
		keywords[word]++
	}
	return keywords
}

func collapseWhitespace(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
