// Package searcher implements multi-strategy memory search over three
// in-memory indexes: an inverted word index, a trigram fuzzy index and a
// TF-IDF vector store.
//
// The searcher provides four search strategies:
//   - Exact: term-frequency scoring from the inverted index
//   - Fuzzy: trigram-similarity matching, tolerant of misspellings
//   - Semantic: TF-IDF cosine similarity against the vector store
//   - Hybrid (default): all three run concurrently, merged with fixed
//     weights (exact 0.4, fuzzy 0.3, semantic 0.3)
//
// # Basic Usage
//
//	s, _ := searcher.NewSearcher(store, metrics, log, searcher.Config{})
//	_ = s.WarmLoad(ctx)
//
//	result, err := s.Search(ctx, "quick brown fox", searcher.Options{
//	    Strategy: types.StrategyHybrid,
//	    Limit:    10,
//	})
//
//	for _, hit := range result.Memories {
//	    fmt.Printf("%s (score: %.2f)\n", hit.Memory.ID, hit.Score)
//	}
//
// Results are memoized in a bounded TTL cache keyed by the normalized query
// and options. Writes invalidate affected entries by substring match on the
// changed memory's words.
//
// Index mutation (OnMemoryIndexed, OnMemoryRemoved, RebuildIndexes) is
// serialized against queries with a single RWMutex. Executor failures
// degrade to a substring scan over raw content rather than erroring out.
package searcher
