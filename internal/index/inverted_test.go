package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recallkit/internal/tokenizer"
	"github.com/recallkit/recallkit/pkg/types"
)

func TestInverted_IndexAndLookup(t *testing.T) {
	idx := NewInverted()
	tokens := tokenizer.Tokenize("the quick brown fox jumps over the lazy dog")
	idx.Index("m1", tokens, types.FieldContent)

	postings := idx.Lookup("fox")
	require.Len(t, postings, 1)
	assert.Equal(t, "m1", postings[0].MemoryID)
	assert.Equal(t, uint32(1), postings[0].Frequency)

	// "the" appears twice in the content.
	postings = idx.Lookup("the")
	require.Len(t, postings, 1)
	assert.Equal(t, uint32(2), postings[0].Frequency)
}

func TestInverted_LookupOrdering(t *testing.T) {
	idx := NewInverted()
	idx.Index("m1", []string{"cache", "cache", "cache"}, types.FieldContent)
	idx.Index("m2", []string{"cache"}, types.FieldContent)
	idx.Index("m3", []string{"cache", "cache", "cache"}, types.FieldContent)

	postings := idx.Lookup("cache")
	require.Len(t, postings, 3)
	// Frequency descending, ties broken by memory id ascending.
	assert.Equal(t, "m1", postings[0].MemoryID)
	assert.Equal(t, "m3", postings[1].MemoryID)
	assert.Equal(t, "m2", postings[2].MemoryID)
}

func TestInverted_ReindexReplacesFrequency(t *testing.T) {
	idx := NewInverted()
	idx.Index("m1", []string{"fox", "fox", "fox"}, types.FieldContent)
	idx.Index("m1", []string{"fox"}, types.FieldContent)

	postings := idx.Lookup("fox")
	require.Len(t, postings, 1)
	assert.Equal(t, uint32(1), postings[0].Frequency)
}

func TestInverted_FieldFilteredLookup(t *testing.T) {
	idx := NewInverted()
	idx.Index("m1", []string{"golang"}, types.FieldContent)
	idx.Index("m1", []string{"golang", "golang"}, types.FieldTags)

	all := idx.Lookup("golang")
	require.Len(t, all, 1)
	assert.Equal(t, uint32(3), all[0].Frequency)

	tagsOnly := idx.Lookup("golang", types.FieldTags)
	require.Len(t, tagsOnly, 1)
	assert.Equal(t, uint32(2), tagsOnly[0].Frequency)

	metaOnly := idx.Lookup("golang", types.FieldMetadata)
	assert.Empty(t, metaOnly)
}

func TestInverted_Remove(t *testing.T) {
	idx := NewInverted()
	idx.Index("m1", []string{"fox", "dog"}, types.FieldContent)
	idx.Index("m2", []string{"fox"}, types.FieldContent)

	idx.Remove("m1")

	postings := idx.Lookup("fox")
	require.Len(t, postings, 1)
	assert.Equal(t, "m2", postings[0].MemoryID)
	assert.Empty(t, idx.Lookup("dog"))
	assert.Equal(t, 1, idx.DocumentCount())
}

func TestInverted_DocumentFrequency(t *testing.T) {
	idx := NewInverted()
	idx.Index("m1", []string{"shared", "only1"}, types.FieldContent)
	idx.Index("m2", []string{"shared", "shared"}, types.FieldContent)

	assert.Equal(t, 2, idx.DocumentFrequency("shared"))
	assert.Equal(t, 1, idx.DocumentFrequency("only1"))
	assert.Equal(t, 0, idx.DocumentFrequency("absent"))
	assert.Equal(t, 2, idx.DocumentCount())
}

func TestInverted_PrefixLookup(t *testing.T) {
	idx := NewInverted()
	idx.Index("m1", []string{"search", "searching", "seal"}, types.FieldContent)
	idx.Index("m2", []string{"search", "search", "segment"}, types.FieldContent)

	words := idx.PrefixLookup("sea", 10)
	// "search" has aggregate frequency 3, then lexicographic for the rest.
	require.Equal(t, []string{"search", "seal", "searching"}, words)

	assert.Equal(t, []string{"search"}, idx.PrefixLookup("sea", 1))
	assert.Empty(t, idx.PrefixLookup("zzz", 5))
	assert.Empty(t, idx.PrefixLookup("sea", 0))
}

func TestInverted_PrefixLookupAfterRemove(t *testing.T) {
	idx := NewInverted()
	idx.Index("m1", []string{"alpha"}, types.FieldContent)
	idx.Index("m2", []string{"alphabet"}, types.FieldContent)
	idx.Remove("m1")

	assert.Equal(t, []string{"alphabet"}, idx.PrefixLookup("alp", 10))
}

func TestInverted_FieldPostings(t *testing.T) {
	idx := NewInverted()
	idx.Index("m1", []string{"fox", "fox"}, types.FieldContent)
	idx.Index("m1", []string{"fox"}, types.FieldTags)

	postings := idx.FieldPostings("m1")
	require.Len(t, postings, 2)
	assert.Equal(t, "fox", postings[0].Word)
	assert.Equal(t, types.FieldContent, postings[0].Field)
	assert.Equal(t, uint32(2), postings[0].Frequency)
	assert.Equal(t, types.FieldTags, postings[1].Field)
}

func TestInverted_Reset(t *testing.T) {
	idx := NewInverted()
	idx.Index("m1", []string{"fox"}, types.FieldContent)
	idx.Reset()

	assert.Empty(t, idx.Lookup("fox"))
	assert.Equal(t, 0, idx.DocumentCount())
}
