package domain

import (
	"strings"
	"unicode"
)

// stopwords excluded from query keyword extraction. The corpus is mixed
// English/Korean, so both function words and common particles are listed.
var stopwords = map[string]struct{}{
	"an": {}, "as": {}, "at": {}, "be": {}, "by": {}, "do": {},
	"if": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "so": {}, "to": {}, "up": {}, "we": {},
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "has": {}, "was": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "with": {}, "how": {},
	"this": {}, "that": {}, "from": {}, "have": {}, "will": {}, "about": {},
	"은": {}, "는": {}, "이": {}, "가": {}, "을": {}, "를": {},
	"의": {}, "에": {}, "에서": {}, "으로": {}, "하고": {}, "그리고": {},
	"어떻게": {}, "무엇": {}, "있는": {}, "대한": {},
}

// Tokenize lowercases and splits on any rune that is not a letter or digit.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}
	lowered := strings.ToLower(s)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// QueryKeywords extracts the evaluation keywords of a query: tokens of at
// least two runes that are not stopwords, deduplicated in order.
func QueryKeywords(query string) []string {
	tokens := Tokenize(query)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len([]rune(token)) < 2 {
			continue
		}
		if _, ok := stopwords[token]; ok {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

// TokenSet returns the deduplicated token set of a string.
func TokenSet(s string) map[string]struct{} {
	tokens := Tokenize(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}
