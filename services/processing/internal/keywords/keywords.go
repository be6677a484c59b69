// Package keywords extracts the bag of significant words used to compare job
// descriptions.
package keywords

import (
	"strings"
	"unicode"
)

// minLength is the shortest token kept; shorter tokens are mostly stop words.
const minLength = 4

type Set map[string]struct{}

func (s Set) Has(word string) bool {
	_, ok := s[word]
	return ok
}

// Extract lowercases text, drops every character outside [a-z0-9] except
// whitespace, splits on whitespace and keeps tokens longer than three
// characters.
func Extract(text string) Set {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	set := Set{}
	for _, token := range strings.Fields(b.String()) {
		if len(token) >= minLength {
			set[token] = struct{}{}
		}
	}
	return set
}

// Union extracts every text and merges the results.
func Union(texts ...string) Set {
	union := Set{}
	for _, text := range texts {
		for word := range Extract(text) {
			union[word] = struct{}{}
		}
	}
	return union
}
