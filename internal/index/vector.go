package index

import (
	"math"
	"sort"
	"sync"
)

// DocFreqSource supplies document-frequency counts for idf computation. The
// inverted index implements it.
type DocFreqSource interface {
	DocumentFrequency(word string) int
	DocumentCount() int
}

// Vector is a sparse TF-IDF vector with its precomputed L2 norm.
type Vector struct {
	Terms map[string]float64
	Norm  float64
}

// VectorStore keeps exactly one TF-IDF vector per live memory. idf is taken
// from the document-frequency table at the moment a memory is (re)indexed
// and is not recomputed retroactively as the corpus grows; a full rebuild is
// the mitigation for the resulting drift.
type VectorStore struct {
	mu      sync.RWMutex
	vectors map[string]*Vector
	df      DocFreqSource
}

// NewVectorStore creates an empty vector store drawing idf from df.
func NewVectorStore(df DocFreqSource) *VectorStore {
	return &VectorStore{
		vectors: make(map[string]*Vector),
		df:      df,
	}
}

// Upsert computes and stores the TF-IDF vector of tokens, replacing any
// prior vector for the memory.
func (vs *VectorStore) Upsert(memoryID string, tokens []string) {
	vec := vs.Compute(tokens)
	vs.mu.Lock()
	vs.vectors[memoryID] = vec
	vs.mu.Unlock()
}

// Compute builds a TF-IDF vector from tokens without storing it. Query
// vectors use this so they share the stored vectors' idf source.
func (vs *VectorStore) Compute(tokens []string) *Vector {
	vec := &Vector{Terms: make(map[string]float64)}
	if len(tokens) == 0 {
		return vec
	}
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	total := vs.df.DocumentCount()
	if total < 1 {
		total = 1
	}
	var sumSquares float64
	for term, count := range counts {
		tf := float64(count) / float64(len(tokens))
		df := vs.df.DocumentFrequency(term)
		if df < 1 {
			df = 1
		}
		// Smoothed idf: a term present in every document keeps a small
		// weight instead of vanishing, which matters in tiny corpora.
		idf := 1 + math.Log(float64(total)/float64(df))
		weight := tf * idf
		vec.Terms[term] = weight
		sumSquares += weight * weight
	}
	vec.Norm = math.Sqrt(sumSquares)
	return vec
}

// Put stores a precomputed vector, replacing any prior one. Used when warm
// loading persisted index state.
func (vs *VectorStore) Put(memoryID string, vec *Vector) {
	vs.mu.Lock()
	vs.vectors[memoryID] = vec
	vs.mu.Unlock()
}

// Remove drops the memory's vector.
func (vs *VectorStore) Remove(memoryID string) {
	vs.mu.Lock()
	delete(vs.vectors, memoryID)
	vs.mu.Unlock()
}

// Get returns the stored vector for a memory, or nil.
func (vs *VectorStore) Get(memoryID string) *Vector {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.vectors[memoryID]
}

// Scan visits every stored vector in memory-id order until fn returns false.
func (vs *VectorStore) Scan(fn func(memoryID string, vec *Vector) bool) {
	vs.mu.RLock()
	ids := make([]string, 0, len(vs.vectors))
	for id := range vs.vectors {
		ids = append(ids, id)
	}
	vs.mu.RUnlock()
	sort.Strings(ids)
	for _, id := range ids {
		vec := vs.Get(id)
		if vec == nil {
			continue
		}
		if !fn(id, vec) {
			return
		}
	}
}

// Len returns the number of stored vectors.
func (vs *VectorStore) Len() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return len(vs.vectors)
}

// Reset drops all vectors.
func (vs *VectorStore) Reset() {
	vs.mu.Lock()
	vs.vectors = make(map[string]*Vector)
	vs.mu.Unlock()
}

// CosineSimilarity is the normalized dot product of two vectors, 0 when
// either norm is 0.
func CosineSimilarity(a, b *Vector) float64 {
	if a == nil || b == nil || a.Norm == 0 || b.Norm == 0 {
		return 0
	}
	// Iterate the smaller term map.
	small, large := a, b
	if len(b.Terms) < len(a.Terms) {
		small, large = b, a
	}
	var dot float64
	for term, w := range small.Terms {
		if other, ok := large.Terms[term]; ok {
			dot += w * other
		}
	}
	return dot / (a.Norm * b.Norm)
}
