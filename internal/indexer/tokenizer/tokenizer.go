// Package tokenizer turns document leaves and queries into index terms.
// Text is lower-cased and split on Unicode whitespace; punctuation is kept
// so that partial and typo matching see the text as written.
package tokenizer

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
)

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize lower-cases text and splits it on whitespace.
func Tokenize(text string) []Token {
	words := strings.Fields(strings.ToLower(text))
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{Term: word, Position: pos})
	}
	return tokens
}

// Terms returns the distinct terms of every leaf in doc, in walk order.
func Terms(doc document.Document) []string {
	seen := make(map[string]struct{})
	var terms []string
	for field := range doc.Fields() {
		for _, tok := range Tokenize(field.Value) {
			if _, dup := seen[tok.Term]; dup {
				continue
			}
			seen[tok.Term] = struct{}{}
			terms = append(terms, tok.Term)
		}
	}
	return terms
}

// QueryTerms returns the distinct terms of a free-text query in order of
// first appearance.
func QueryTerms(query string) []string {
	tokens := Tokenize(query)
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok.Term]; dup {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}
