package search

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// stopwords are dropped from both documents and queries. The assistant is
// bilingual (Italian/English), so both lists are needed; neither language
// is stemmed.
var stopwords = map[string]bool{
	// Italian
	"il": true, "lo": true, "la": true, "le": true, "gli": true, "un": true,
	"una": true, "uno": true, "di": true, "da": true, "in": true, "su": true,
	"per": true, "con": true, "che": true, "chi": true, "cui": true,
	"come": true, "dove": true, "si": true, "no": true, "non": true,
	"e": true, "ed": true, "o": true, "ma": true, "se": true, "al": true,
	"del": true, "dei": true, "nel": true, "sul": true, "mi": true,
	"ti": true, "ci": true, "fa": true, "ho": true, "hai": true, "ha": true,
	// English
	"the": true, "a": true, "an": true, "of": true, "to": true, "is": true,
	"it": true, "and": true, "or": true, "on": true, "at": true, "by": true,
	"for": true, "with": true, "do": true, "does": true, "how": true,
	"what": true, "i": true, "you": true, "my": true, "me": true,
}

// Normalize lowercases text and replaces every non-letter, non-digit rune
// with a space, collapsing runs of whitespace. It is the shared
// normalization for tokenization, hashing and the confidence scorer.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits text into search terms: case-folded, punctuation
// stripped, whitespace split, stopwords removed. No stemming.
func Tokenize(text string) []string {
	fields := strings.Fields(Normalize(text))

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}

	return tokens
}

// NormalizedHash returns the SHA256 hex digest of the normalized text.
// Two texts that differ only in case, punctuation or spacing hash equal,
// which is what the hybrid exact-repeat boost keys on.
func NormalizedHash(text string) string {
	hash := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(hash[:])
}
