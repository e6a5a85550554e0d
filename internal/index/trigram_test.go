package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigramsOf(t *testing.T) {
	assert.Equal(t, []string{" fo", "fox", "ox "}, TrigramsOf("fox"))
	// Space padding keeps one- and two-letter words representable.
	assert.Equal(t, []string{" a "}, TrigramsOf("a"))
	assert.Equal(t, []string{" ab", "ab "}, TrigramsOf("ab"))
	assert.Empty(t, TrigramsOf(""))
}

func TestTrigram_IndexAndCandidates(t *testing.T) {
	idx := NewTrigram()
	idx.Index("m1", []string{"fox", "dog"})
	idx.Index("m2", []string{"fox"})

	candidates := idx.CandidatesFor("fox")
	require.Len(t, candidates, 2)
	assert.Equal(t, Candidate{MemoryID: "m1", Word: "fox"}, candidates[0])
	assert.Equal(t, Candidate{MemoryID: "m2", Word: "fox"}, candidates[1])

	assert.Empty(t, idx.CandidatesFor("zzz"))
}

func TestTrigram_Remove(t *testing.T) {
	idx := NewTrigram()
	idx.Index("m1", []string{"fox"})
	idx.Index("m2", []string{"fox"})

	idx.Remove("m1")

	candidates := idx.CandidatesFor("fox")
	require.Len(t, candidates, 1)
	assert.Equal(t, "m2", candidates[0].MemoryID)

	idx.Remove("m2")
	assert.Empty(t, idx.CandidatesFor("fox"))
}

func TestTrigram_Postings(t *testing.T) {
	idx := NewTrigram()
	idx.Index("m1", []string{"fox"})

	postings := idx.Postings("m1")
	require.Len(t, postings, 3)
	for i, p := range postings {
		assert.Equal(t, "m1", p.MemoryID)
		assert.Equal(t, "fox", p.Word)
		assert.Equal(t, uint32(i), p.Position)
	}
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 3, EditDistance("kitten", "sitting"))
	assert.Equal(t, 0, EditDistance("same", "same"))
	assert.Equal(t, 4, EditDistance("", "four"))
	// Substitute x->k, then insert s.
	assert.Equal(t, 2, EditDistance("fox", "foks"))
	assert.Equal(t, EditDistance("fox", "foks"), EditDistance("foks", "fox"))
}

func TestSimilarity_Identity(t *testing.T) {
	for _, word := range []string{"a", "ab", "fox", "levenshtein"} {
		assert.Equal(t, 1.0, Similarity(word, word), "identical strings share all trigrams: %q", word)
	}
}

func TestSimilarity_Disjoint(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", "fox"))
	assert.Equal(t, 0.0, Similarity("fox", ""))
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
}

func TestSimilarity_OverlapCoefficient(t *testing.T) {
	// "fox" holds {" fo","fox","ox "}, "foks" holds {" fo","fok","oks","ks "}.
	// One shared trigram over the smaller set of three.
	assert.InDelta(t, 1.0/3.0, Similarity("fox", "foks"), 1e-9)
	assert.InDelta(t, Similarity("fox", "foks"), Similarity("foks", "fox"), 1e-9)
}

func TestSimilarity_FuzzyThreshold(t *testing.T) {
	// A one-character misspelling of a short word must clear the 0.3
	// fuzzy-match threshold.
	assert.Greater(t, Similarity("fox", "foks"), 0.3)
	// An unrelated word must not.
	assert.Less(t, Similarity("fox", "database"), 0.3)
}
