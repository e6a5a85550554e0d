package searcher

import (
	"context"
	"math"
	"sort"

	"github.com/recallkit/recallkit/internal/index"
	"github.com/recallkit/recallkit/internal/tokenizer"
	"github.com/recallkit/recallkit/pkg/types"
)

const (
	// fuzzySimilarityThreshold drops fuzzy candidates with low trigram overlap
	fuzzySimilarityThreshold = 0.3
	// semanticScoreThreshold drops near-orthogonal cosine matches
	semanticScoreThreshold = 0.1
)

// scoredHit is one executor hit before full records are fetched
type scoredHit struct {
	memoryID string
	score    float64
}

// boost is the shared relevance multiplier: importance scaled by a
// logarithmic access-count factor.
func boost(importance float64, accessCount uint64) float64 {
	return importance * (1 + math.Log(float64(accessCount)+1))
}

// sortHits orders hits by score descending, ties by memory id ascending for
// determinism.
func sortHits(hits []scoredHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].memoryID < hits[j].memoryID
	})
}

func hitsFromScores(scores map[string]float64) []scoredHit {
	hits := make([]scoredHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, scoredHit{memoryID: id, score: score})
	}
	sortHits(hits)
	return hits
}

// executeExact scores memories by summed term frequency of the query tokens,
// weighted by importance and access count. Callers hold the read lock.
func (s *Searcher) executeExact(ctx context.Context, query string, opts Options) ([]scoredHit, error) {
	scores := make(map[string]float64)
	for _, token := range tokenizer.Tokenize(query) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, posting := range s.inverted.Lookup(token, opts.Fields...) {
			st, ok := s.statForScoring(posting.MemoryID, opts.MinImportance)
			if !ok {
				continue
			}
			scores[posting.MemoryID] += float64(posting.Frequency) * boost(st.importance, st.accessCount)
		}
	}
	return hitsFromScores(scores), nil
}

// executeFuzzy scores memories by trigram-similar words. For each query
// token, candidates sharing any trigram are kept when their trigram overlap
// similarity clears the threshold, and contributions accumulate additively
// per memory across all query tokens.
func (s *Searcher) executeFuzzy(ctx context.Context, query string, opts Options) ([]scoredHit, error) {
	scores := make(map[string]float64)
	for _, token := range tokenizer.Tokenize(query) {
		type pair struct{ memoryID, word string }
		seen := make(map[pair]struct{})
		for _, gram := range index.TrigramsOf(token) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for _, cand := range s.trigrams.CandidatesFor(gram) {
				p := pair{cand.MemoryID, cand.Word}
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}

				if !s.candidateInFields(cand, opts.Fields) {
					continue
				}
				sim := index.Similarity(token, cand.Word)
				if sim <= fuzzySimilarityThreshold {
					continue
				}
				st, ok := s.statForScoring(cand.MemoryID, opts.MinImportance)
				if !ok {
					continue
				}
				scores[cand.MemoryID] += sim * boost(st.importance, st.accessCount)
			}
		}
	}
	return hitsFromScores(scores), nil
}

// candidateInFields reports whether a fuzzy candidate's word occurs in one of
// the requested fields of its memory. With no field restriction every
// candidate passes.
func (s *Searcher) candidateInFields(cand index.Candidate, fields []types.FieldType) bool {
	if len(fields) == 0 {
		return true
	}
	return containsPosting(s.inverted.Lookup(cand.Word, fields...), cand.MemoryID)
}

func containsPosting(postings []index.Posting, memoryID string) bool {
	for _, p := range postings {
		if p.MemoryID == memoryID {
			return true
		}
	}
	return false
}

// executeSemantic scores memories by TF-IDF cosine similarity against the
// query vector, keeping scores above the threshold. The query vector draws
// idf from the same document-frequency table as stored vectors.
func (s *Searcher) executeSemantic(ctx context.Context, query string, opts Options) ([]scoredHit, error) {
	queryVec := s.vectors.Compute(tokenizer.Tokenize(query))
	if queryVec.Norm == 0 {
		return nil, nil
	}

	var hits []scoredHit
	var scanErr error
	s.vectors.Scan(func(memoryID string, vec *index.Vector) bool {
		if err := ctx.Err(); err != nil {
			scanErr = err
			return false
		}
		st, ok := s.statForScoring(memoryID, opts.MinImportance)
		if !ok {
			return true
		}
		sim := index.CosineSimilarity(queryVec, vec)
		if sim <= semanticScoreThreshold {
			return true
		}
		hits = append(hits, scoredHit{
			memoryID: memoryID,
			score:    sim * boost(st.importance, st.accessCount),
		})
		return true
	})
	if scanErr != nil {
		return nil, scanErr
	}
	sortHits(hits)
	return hits, nil
}
