package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_Basic(t *testing.T) {
	tokens := Tokenize("The quick brown fox jumps over the lazy dog")
	assert.Equal(t, []string{"the", "quick", "brown", "fox", "jumps", "over", "the", "lazy", "dog"}, tokens)
}

func TestTokenize_DropsShortTokens(t *testing.T) {
	tokens := Tokenize("go is a DB of io")
	assert.Empty(t, tokens)

	tokens = Tokenize("an ant ate it")
	assert.Equal(t, []string{"ant", "ate"}, tokens)
}

func TestTokenize_MultiByteRunes(t *testing.T) {
	// Length is measured in runes: "éé" is two characters even though it is
	// four bytes, while "héé" passes the filter.
	assert.Empty(t, Tokenize("éé"))
	assert.Equal(t, []string{"héé"}, Tokenize("héé"))
	assert.Equal(t, []string{"café", "münchen"}, Tokenize("café münchen"))
}

func TestTokenize_NonWordSeparators(t *testing.T) {
	tokens := Tokenize("hello,world!foo-bar_baz (qux)")
	// Underscore is a word character, punctuation is not.
	assert.Equal(t, []string{"hello", "world", "foo", "bar_baz", "qux"}, tokens)
}

func TestTokenize_Lowercases(t *testing.T) {
	assert.Equal(t, []string{"mixed", "case", "text"}, Tokenize("MiXeD CaSe TEXT"))
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   \t\n  "))
	assert.Empty(t, Tokenize("!!! ??? ..."))
}

func TestTokenize_Idempotent(t *testing.T) {
	inputs := []string{
		"The quick brown fox jumps over the lazy dog",
		"cats are great pets",
		"numbers 12345 and words_with_underscores",
		"punctuation; everywhere! (really)",
	}
	for _, input := range inputs {
		once := Tokenize(input)
		twice := Tokenize(strings.Join(once, " "))
		assert.Equal(t, once, twice, "tokenize must be idempotent for %q", input)
	}
}

func TestTokenize_Deterministic(t *testing.T) {
	input := "determinism matters for cache keys"
	first := Tokenize(input)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Tokenize(input))
	}
}
