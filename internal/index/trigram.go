package index

import (
	"sort"
	"sync"
)

// Candidate is a fuzzy-match candidate: a word sharing at least one trigram
// with the query, and the memory that contains it.
type Candidate struct {
	MemoryID string
	Word     string
}

// TrigramPosting is the persisted form of one trigram occurrence.
type TrigramPosting struct {
	Trigram  string
	MemoryID string
	Word     string
	Position uint32
}

// Trigram indexes words by their character trigrams for approximate lookup.
// Trigrams are generated from the space-padded form (" word ") so edge
// trigrams of short words stay distinguishable from interior ones.
type Trigram struct {
	mu       sync.RWMutex
	postings map[string][]TrigramPosting
	docGrams map[string]map[string]struct{} // memory -> trigrams it appears under
}

// NewTrigram creates an empty trigram index.
func NewTrigram() *Trigram {
	return &Trigram{
		postings: make(map[string][]TrigramPosting),
		docGrams: make(map[string]map[string]struct{}),
	}
}

// TrigramsOf returns the trigrams of the space-padded form of word, in
// order. An empty word yields no trigrams.
func TrigramsOf(word string) []string {
	if word == "" {
		return nil
	}
	padded := " " + word + " "
	grams := make([]string, 0, len(padded)-2)
	for i := 0; i+3 <= len(padded); i++ {
		grams = append(grams, padded[i:i+3])
	}
	return grams
}

// Index records every trigram of every word for a memory.
func (t *Trigram) Index(memoryID string, words []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	grams, ok := t.docGrams[memoryID]
	if !ok {
		grams = make(map[string]struct{})
		t.docGrams[memoryID] = grams
	}
	for _, word := range words {
		for pos, gram := range TrigramsOf(word) {
			t.postings[gram] = append(t.postings[gram], TrigramPosting{
				Trigram:  gram,
				MemoryID: memoryID,
				Word:     word,
				Position: uint32(pos),
			})
			grams[gram] = struct{}{}
		}
	}
}

// Load installs one persisted posting directly. Used to warm the index from
// storage at startup.
func (t *Trigram) Load(p TrigramPosting) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.postings[p.Trigram] = append(t.postings[p.Trigram], p)
	grams, ok := t.docGrams[p.MemoryID]
	if !ok {
		grams = make(map[string]struct{})
		t.docGrams[p.MemoryID] = grams
	}
	grams[p.Trigram] = struct{}{}
}

// Remove deletes every trigram posting of a memory.
func (t *Trigram) Remove(memoryID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for gram := range t.docGrams[memoryID] {
		kept := t.postings[gram][:0]
		for _, p := range t.postings[gram] {
			if p.MemoryID != memoryID {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(t.postings, gram)
		} else {
			t.postings[gram] = kept
		}
	}
	delete(t.docGrams, memoryID)
}

// CandidatesFor returns the distinct (memory, word) pairs indexed under a
// trigram, ordered by memory id then word for determinism.
func (t *Trigram) CandidatesFor(trigram string) []Candidate {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[Candidate]struct{})
	for _, p := range t.postings[trigram] {
		seen[Candidate{MemoryID: p.MemoryID, Word: p.Word}] = struct{}{}
	}
	result := make([]Candidate, 0, len(seen))
	for c := range seen {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MemoryID != result[j].MemoryID {
			return result[i].MemoryID < result[j].MemoryID
		}
		return result[i].Word < result[j].Word
	})
	return result
}

// Postings returns the persisted form of every trigram posting held for a
// memory. Used to mirror index state into storage.
func (t *Trigram) Postings(memoryID string) []TrigramPosting {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []TrigramPosting
	for gram := range t.docGrams[memoryID] {
		for _, p := range t.postings[gram] {
			if p.MemoryID == memoryID {
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Word != out[j].Word {
			return out[i].Word < out[j].Word
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Trigram < out[j].Trigram
	})
	return out
}

// Reset drops all trigram state.
func (t *Trigram) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.postings = make(map[string][]TrigramPosting)
	t.docGrams = make(map[string]map[string]struct{})
}

// EditDistance computes the Levenshtein distance between a and b with the
// full dynamic-programming matrix.
func EditDistance(a, b string) int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 0; i <= m; i++ {
		for j := 0; j <= n; j++ {
			switch {
			case i == 0:
				dp[i][j] = j
			case j == 0:
				dp[i][j] = i
			case a[i-1] == b[j-1]:
				dp[i][j] = dp[i-1][j-1]
			default:
				dp[i][j] = 1 + min3(dp[i-1][j], dp[i][j-1], dp[i-1][j-1])
			}
		}
	}
	return dp[m][n]
}

// Similarity is the overlap coefficient of the two strings' trigram sets:
// the intersection size divided by the smaller set's size. It is 1 for
// identical strings, 0 when the sets are disjoint or either string produces
// no trigrams. The overlap coefficient is used instead of plain Jaccard
// because short words carry very few trigrams: a single-character edit on a
// four-letter word already drops Jaccard below any usable threshold, while
// the overlap coefficient stays proportional to how much of the shorter
// word survives.
func Similarity(a, b string) float64 {
	setA := trigramSet(a)
	setB := trigramSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for gram := range setA {
		if _, ok := setB[gram]; ok {
			intersection++
		}
	}
	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	return float64(intersection) / float64(smaller)
}

func trigramSet(word string) map[string]struct{} {
	grams := TrigramsOf(word)
	set := make(map[string]struct{}, len(grams))
	for _, g := range grams {
		set[g] = struct{}{}
	}
	return set
}

func min3(a, b, c int) int {
	if a < b && a < c {
		return a
	}
	if b < c {
		return b
	}
	return c
}
