package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeRemovesSQLAndCypherLines(t *testing.T) {
	text := "This paragraph explains the concept.\nMATCH (n:Concept) RETURN n\nThe explanation continues here."
	got := StripCode(text)
	assert.NotContains(t, got, "MATCH")
	assert.Contains(t, got, "This paragraph explains the concept.")
	assert.Contains(t, got, "The explanation continues here.")
}

func TestStripCodeRemovesPropertySyntax(t *testing.T) {
	text := "Prose line.\n{name: 'CAUSES'}\nMore prose."
	got := StripCode(text)
	assert.NotContains(t, got, "{name:")
}

func TestStripCodeRemovesTrailingSemicolons(t *testing.T) {
	text := "Prose line.\nINSERT INTO foo VALUES (1);\nMore prose."
	got := StripCode(text)
	assert.NotContains(t, got, "INSERT INTO")
}

func TestStripCodeRemovesArrowSyntax(t *testing.T) {
	text := "Prose line.\nfunc(x) -> y\nMore prose."
	got := StripCode(text)
	assert.NotContains(t, got, "->")
}

func TestStripCodeKeepsOrdinaryProse(t *testing.T) {
	text := "This is a normal sentence describing an idea.\nHere is another sentence with more detail."
	got := StripCode(text)
	assert.Equal(t, text, got)
}

func TestTooManySpecialCharsPerWordFlagsDenseSymbolLines(t *testing.T) {
	assert.True(t, tooManySpecialCharsPerWord(`a{}[]();:,.<>/\|&^%$#@!`))
	assert.False(t, tooManySpecialCharsPerWord("a normal sentence with punctuation, like this."))
}

func TestTooManySpecialCharsPerWordIgnoresEmptyLine(t *testing.T) {
	assert.False(t, tooManySpecialCharsPerWord(""))
}
