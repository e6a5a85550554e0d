package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/recallkit/recallkit/pkg/types"
)

// Posting is one inverted-index hit: a memory and the term frequency
// aggregated over the fields requested at lookup time.
type Posting struct {
	MemoryID  string
	Frequency uint32
}

// FieldPosting is the persisted form of a posting, unique per
// (word, memory, field).
type FieldPosting struct {
	Word      string
	MemoryID  string
	Field     types.FieldType
	Frequency uint32
}

// Inverted maps words to per-memory, per-field term frequencies. A separate
// aggregate-frequency table and an arena trie back prefix lookups.
type Inverted struct {
	mu       sync.RWMutex
	postings map[string]map[string]map[types.FieldType]uint32 // word -> memory -> field -> freq
	docWords map[string]map[string]struct{}                   // memory -> words it contributes
	docs     map[string]struct{}
	aggFreq  map[string]uint64
	trie     *wordTrie
}

// NewInverted creates an empty inverted index.
func NewInverted() *Inverted {
	return &Inverted{
		postings: make(map[string]map[string]map[types.FieldType]uint32),
		docWords: make(map[string]map[string]struct{}),
		docs:     make(map[string]struct{}),
		aggFreq:  make(map[string]uint64),
		trie:     newWordTrie(),
	}
}

// Index records the term frequencies of tokens for one field of a memory.
// Any existing posting for (word, memory, field) is deleted before the new
// one is inserted, so the stored frequency is always the token count of the
// field at last index time.
func (idx *Inverted) Index(memoryID string, tokens []string, field types.FieldType) {
	freqs := make(map[string]uint32, len(tokens))
	for _, tok := range tokens {
		freqs[tok]++
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for word, freq := range freqs {
		byMemory, ok := idx.postings[word]
		if !ok {
			byMemory = make(map[string]map[types.FieldType]uint32)
			idx.postings[word] = byMemory
			idx.trie.insert(word)
		}
		byField, ok := byMemory[memoryID]
		if !ok {
			byField = make(map[types.FieldType]uint32)
			byMemory[memoryID] = byField
		}
		// Delete-then-insert keeps the frequency authoritative on reindex.
		if old, exists := byField[field]; exists {
			idx.aggFreq[word] -= uint64(old)
			delete(byField, field)
		}
		byField[field] = freq
		idx.aggFreq[word] += uint64(freq)

		words, ok := idx.docWords[memoryID]
		if !ok {
			words = make(map[string]struct{})
			idx.docWords[memoryID] = words
		}
		words[word] = struct{}{}
	}
	idx.docs[memoryID] = struct{}{}
}

// Load installs one persisted posting directly, bypassing tokenization.
// Used to warm the index from storage at startup.
func (idx *Inverted) Load(p FieldPosting) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	byMemory, ok := idx.postings[p.Word]
	if !ok {
		byMemory = make(map[string]map[types.FieldType]uint32)
		idx.postings[p.Word] = byMemory
		idx.trie.insert(p.Word)
	}
	byField, ok := byMemory[p.MemoryID]
	if !ok {
		byField = make(map[types.FieldType]uint32)
		byMemory[p.MemoryID] = byField
	}
	if old, exists := byField[p.Field]; exists {
		idx.aggFreq[p.Word] -= uint64(old)
	}
	byField[p.Field] = p.Frequency
	idx.aggFreq[p.Word] += uint64(p.Frequency)

	words, ok := idx.docWords[p.MemoryID]
	if !ok {
		words = make(map[string]struct{})
		idx.docWords[p.MemoryID] = words
	}
	words[p.Word] = struct{}{}
	idx.docs[p.MemoryID] = struct{}{}
}

// Remove deletes every posting of a memory across all fields.
func (idx *Inverted) Remove(memoryID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for word := range idx.docWords[memoryID] {
		byMemory, ok := idx.postings[word]
		if !ok {
			continue
		}
		for _, freq := range byMemory[memoryID] {
			idx.aggFreq[word] -= uint64(freq)
		}
		delete(byMemory, memoryID)
		if len(byMemory) == 0 {
			delete(idx.postings, word)
			delete(idx.aggFreq, word)
			idx.trie.remove(word)
		}
	}
	delete(idx.docWords, memoryID)
	delete(idx.docs, memoryID)
}

// Lookup returns the memories containing word, with frequency summed over
// the requested fields (all fields when none are given). Results are ordered
// by frequency descending, ties by memory id ascending.
func (idx *Inverted) Lookup(word string, fields ...types.FieldType) []Posting {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	byMemory, ok := idx.postings[word]
	if !ok {
		return nil
	}
	result := make([]Posting, 0, len(byMemory))
	for memoryID, byField := range byMemory {
		var freq uint32
		if len(fields) == 0 {
			for _, f := range byField {
				freq += f
			}
		} else {
			for _, field := range fields {
				freq += byField[field]
			}
		}
		if freq == 0 {
			continue
		}
		result = append(result, Posting{MemoryID: memoryID, Frequency: freq})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Frequency != result[j].Frequency {
			return result[i].Frequency > result[j].Frequency
		}
		return result[i].MemoryID < result[j].MemoryID
	})
	return result
}

// PrefixLookup returns up to limit distinct indexed words starting with
// prefix, ordered by aggregate frequency descending then lexicographically.
func (idx *Inverted) PrefixLookup(prefix string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	prefix = strings.ToLower(prefix)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	words := idx.trie.wordsWithPrefix(prefix)
	sort.Slice(words, func(i, j int) bool {
		fi, fj := idx.aggFreq[words[i]], idx.aggFreq[words[j]]
		if fi != fj {
			return fi > fj
		}
		return words[i] < words[j]
	})
	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

// DocumentFrequency returns the number of distinct memories containing word
// in any field. Feeds the vector store's idf computation.
func (idx *Inverted) DocumentFrequency(word string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.postings[word])
}

// DocumentCount returns the number of distinct memories indexed.
func (idx *Inverted) DocumentCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// FieldPostings returns the persisted form of every posting currently held
// for a memory. Used to mirror index state into storage.
func (idx *Inverted) FieldPostings(memoryID string) []FieldPosting {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []FieldPosting
	for word := range idx.docWords[memoryID] {
		for field, freq := range idx.postings[word][memoryID] {
			out = append(out, FieldPosting{Word: word, MemoryID: memoryID, Field: field, Frequency: freq})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Word != out[j].Word {
			return out[i].Word < out[j].Word
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Reset drops all index state. Callers serialize against writers.
func (idx *Inverted) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.postings = make(map[string]map[string]map[types.FieldType]uint32)
	idx.docWords = make(map[string]map[string]struct{})
	idx.docs = make(map[string]struct{})
	idx.aggFreq = make(map[string]uint64)
	idx.trie = newWordTrie()
}
