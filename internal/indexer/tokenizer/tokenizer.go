// Package tokenizer splits extracted page text into normalised terms. A term
// is a maximal run of alphabetic runes, lower-cased without regard to locale.
// There is no stemming, stop-word removal or length filter.
package tokenizer

import (
	"iter"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Terms returns a lazy sequence over the normalised terms of text, in the
// order they occur.
func Terms(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		// Caser keeps state between calls and is not safe for concurrent use.
		lower := cases.Lower(language.Und)
		start := -1
		for i, r := range text {
			if IsAlphabetic(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(lower.String(text[start:i])) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			yield(lower.String(text[start:]))
		}
	}
}

// Tokenize collects Terms(text) into a slice.
func Tokenize(text string) []string {
	terms := make([]string, 0, len(text)/6)
	for term := range Terms(text) {
		terms = append(terms, term)
	}
	return terms
}

// Count folds the terms of one page into a term -> occurrences map.
func Count(text string) map[string]int {
	counts := make(map[string]int)
	for term := range Terms(text) {
		counts[term]++
	}
	return counts
}

// Normalize lower-cases a query word the same way page terms are lower-cased.
// It does not split; callers send the word as typed.
func Normalize(word string) string {
	return cases.Lower(language.Und).String(word)
}

// IsAlphabetic reports whether r belongs to a term: letters, letter numbers
// (Nl) and other alphabetic marks.
func IsAlphabetic(r rune) bool {
	return unicode.IsLetter(r) || unicode.In(r, unicode.Nl, unicode.Other_Alphabetic)
}
