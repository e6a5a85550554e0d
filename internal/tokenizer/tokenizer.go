// Package tokenizer normalizes raw memory text into index terms. It
// lower-cases input, treats every non-word character as a separator, and
// discards terms too short to be useful search keys.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTokenLen is the shortest term worth indexing. One and two character
// tokens are almost always noise ("a", "of", "db" vs "the").
const minTokenLen = 3

// Tokenize breaks text into lowercased word tokens. The function is pure and
// idempotent: applying it to the space-joined output yields the same tokens.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	words := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		// Length in runes, not bytes, so multi-byte letters count once.
		if utf8.RuneCountInString(word) < minTokenLen {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}
