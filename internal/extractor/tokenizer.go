package extractor

import (
	"strings"
	"unicode"
)

// minTermLength drops tokens too short to be meaningful search terms
const minTermLength = 3

// stopWords are terms that appear everywhere in source code and carry no
// meaning for search: English filler plus common language keywords
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "this": {}, "that": {},
	"are": {}, "was": {}, "were": {}, "not": {}, "but": {}, "all": {},
	"import": {}, "from": {}, "return": {}, "else": {}, "elif": {},
	"class": {}, "def": {}, "function": {}, "func": {}, "const": {},
	"let": {}, "var": {}, "true": {}, "false": {}, "none": {}, "null": {},
	"nil": {}, "self": {}, "type": {}, "pass": {}, "print": {},
	"package": {}, "interface": {}, "struct": {}, "range": {}, "defer": {},
	"chan": {}, "select": {}, "switch": {}, "case": {}, "default": {},
	"break": {}, "continue": {}, "while": {}, "new": {}, "delete": {},
	"public": {}, "private": {}, "static": {}, "void": {},
}

// Tokenize normalizes text into the term sequence shared by indexing and
// querying: identifiers are split on case transitions and separators,
// lowercased, and filtered against the stopword set and minimum length.
// Duplicates are preserved; callers needing frequencies use TermCounts.
func Tokenize(text string) []string {
	var terms []string
	var word []rune

	flush := func() {
		if len(word) == 0 {
			return
		}
		for _, part := range splitIdentifier(string(word)) {
			if keepTerm(part) {
				terms = append(terms, part)
			}
		}
		word = word[:0]
	}

	for _, r := range text {
		if unicode.IsLetter(r) {
			word = append(word, r)
		} else {
			flush()
		}
	}
	flush()

	return terms
}

// TermCounts returns the term-frequency map for the text
func TermCounts(text string) map[string]int {
	terms := Tokenize(text)
	if len(terms) == 0 {
		return nil
	}
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}

// splitIdentifier breaks a single word on lower-to-upper case transitions
// and returns the lowercased parts: "getUserById" yields
// ["get", "user", "by", "id"]. Underscores never reach here; they are
// separators in Tokenize.
func splitIdentifier(word string) []string {
	var parts []string
	runes := []rune(word)
	start := 0

	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			parts = append(parts, strings.ToLower(string(runes[start:i])))
			start = i
			continue
		}
		// ALLCapsWord boundary: "HTTPServer" splits before "Server"
		if i+1 < len(runes) && unicode.IsUpper(runes[i]) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1]) {
			parts = append(parts, strings.ToLower(string(runes[start:i])))
			start = i
		}
	}
	parts = append(parts, strings.ToLower(string(runes[start:])))
	return parts
}

func keepTerm(term string) bool {
	if len(term) < minTermLength {
		return false
	}
	_, stop := stopWords[term]
	return !stop
}
