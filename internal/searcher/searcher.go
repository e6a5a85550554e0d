package searcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/recallkit/recallkit/internal/index"
	"github.com/recallkit/recallkit/internal/metrics"
	"github.com/recallkit/recallkit/internal/store"
	"github.com/recallkit/recallkit/internal/tokenizer"
	"github.com/recallkit/recallkit/pkg/types"
)

const (
	// DefaultTimeout bounds a single search; fuzzy and semantic scans are
	// O(corpus) in the worst case
	DefaultTimeout = 5 * time.Second
	// DefaultLimit is the page size when the caller passes none
	DefaultLimit = 10
	// MaxLimit caps the page size
	MaxLimit = 100

	rebuildWorkers = 4
)

// Options controls one search execution
type Options struct {
	Strategy      types.SearchStrategy
	Limit         int
	MinImportance float64
	Fields        []types.FieldType
	Timeout       time.Duration
}

// Config holds searcher construction parameters
type Config struct {
	CacheCapacity     int
	CacheTTL          time.Duration
	Timeout           time.Duration
	DefaultLimit      int
	AutoCompleteLimit int
}

// docStat caches the scoring inputs of one memory so executors don't hit
// storage per candidate
type docStat struct {
	importance  float64
	accessCount uint64
}

// Searcher is the search facade: it owns the three indexes, the vector
// store, the result cache and the per-memory scoring stats, and serializes
// index mutation against queries with one RWMutex.
type Searcher struct {
	store   store.Storage
	cache   *ResultCache
	metrics *metrics.Metrics
	log     zerolog.Logger
	cfg     Config

	mu       sync.RWMutex
	inverted *index.Inverted
	trigrams *index.Trigram
	vectors  *index.VectorStore
	stats    map[string]docStat
}

// NewSearcher creates a searcher with empty indexes. Call WarmLoad to
// restore persisted index state.
func NewSearcher(st store.Storage, m *metrics.Metrics, log zerolog.Logger, cfg Config) (*Searcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.AutoCompleteLimit <= 0 {
		cfg.AutoCompleteLimit = DefaultLimit
	}

	s := &Searcher{
		store:   st,
		metrics: m,
		log:     log,
		cfg:     cfg,
		stats:   make(map[string]docStat),
	}
	cache, err := NewResultCache(cfg.CacheCapacity, cfg.CacheTTL, func() {
		m.CacheEvictionsTotal.Inc()
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	s.inverted = index.NewInverted()
	s.trigrams = index.NewTrigram()
	s.vectors = index.NewVectorStore(s.inverted)
	return s, nil
}

// WarmLoad restores index state from the persisted mirror. Memories whose
// mirror rows are missing stay unindexed until the next write or rebuild.
func (s *Searcher) WarmLoad(ctx context.Context) error {
	words, err := s.store.LoadWordPostings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load word postings: %w", err)
	}
	grams, err := s.store.LoadTrigramPostings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load trigram postings: %w", err)
	}
	vectors, err := s.store.LoadVectors(ctx)
	if err != nil {
		return fmt.Errorf("failed to load vectors: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range words {
		s.inverted.Load(index.FieldPosting{
			Word: p.Word, MemoryID: p.MemoryID, Field: p.Field, Frequency: p.Frequency,
		})
	}
	for _, p := range grams {
		s.trigrams.Load(index.TrigramPosting{
			Trigram: p.Trigram, MemoryID: p.MemoryID, Word: p.Word, Position: p.Position,
		})
	}
	for _, rec := range vectors {
		s.vectors.Put(rec.MemoryID, &index.Vector{Terms: rec.Terms, Norm: rec.Norm})
	}

	if err := s.loadStatsLocked(ctx); err != nil {
		return err
	}

	s.log.Info().
		Int("memories", len(s.stats)).
		Int("words", len(words)).
		Int("vectors", len(vectors)).
		Msg("index state warm-loaded")
	return nil
}

// loadStatsLocked pages through all memories to fill the scoring stats table
func (s *Searcher) loadStatsLocked(ctx context.Context) error {
	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		memories, err := s.store.ListMemories(ctx, pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list memories: %w", err)
		}
		for _, m := range memories {
			s.stats[m.ID] = docStat{importance: m.Importance, accessCount: m.AccessCount}
		}
		if len(memories) < pageSize {
			return nil
		}
	}
}

// statForScoring returns the scoring stat of a memory if it passes the
// importance filter. Callers hold at least the read lock.
func (s *Searcher) statForScoring(memoryID string, minImportance float64) (docStat, bool) {
	st, ok := s.stats[memoryID]
	if !ok || st.importance < minImportance {
		return docStat{}, false
	}
	return st, true
}

// validateOptions ensures the query and options are usable, filling defaults
func (s *Searcher) validateOptions(query string, opts *Options) error {
	if strings.TrimSpace(query) == "" {
		return types.ErrEmptyQuery
	}
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.DefaultLimit
	}
	if opts.Limit > MaxLimit {
		opts.Limit = MaxLimit
	}
	if opts.Strategy == "" {
		opts.Strategy = types.StrategyHybrid
	}
	if opts.Timeout <= 0 {
		opts.Timeout = s.cfg.Timeout
	}
	switch opts.Strategy {
	case types.StrategyExact, types.StrategyFuzzy, types.StrategySemantic, types.StrategyHybrid:
		return nil
	default:
		return fmt.Errorf("unsupported search strategy: %s", opts.Strategy)
	}
}

// Search runs a query with the selected strategy, fronted by the result
// cache. Executor failures fall back to a substring scan over raw content; a
// query only errors out when the fallback fails too.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) (*types.SearchResult, error) {
	startTime := time.Now()
	if err := s.validateOptions(query, &opts); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	key := Key(opts.Strategy, query, opts)
	result, cacheHit, err := s.cache.GetOrCompute(key, func() (*types.SearchResult, error) {
		return s.executeSearch(ctx, query, opts)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Str("strategy", string(opts.Strategy)).
			Msg("search failed, falling back to substring scan")
		result, err = s.fallbackSearch(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("search service failure: %w", err)
		}
		s.metrics.SearchFallbacksTotal.Inc()
	}

	elapsed := time.Since(startTime)
	if cacheHit {
		s.metrics.CacheHitsTotal.Inc()
		// Return the cached value unmodified; only the envelope fields
		// describing this call change.
		copied := *result
		copied.CacheHit = true
		copied.QueryTimeMs = elapsed.Milliseconds()
		result = &copied
	} else {
		s.metrics.CacheMissesTotal.Inc()
		result.QueryTimeMs = elapsed.Milliseconds()
	}

	s.metrics.SearchesTotal.WithLabelValues(string(opts.Strategy)).Inc()
	s.metrics.SearchLatency.WithLabelValues(string(opts.Strategy)).Observe(elapsed.Seconds())
	s.metrics.SearchResultsCount.Observe(float64(len(result.Memories)))
	s.recordQuery(query, opts.Strategy, len(result.Memories), elapsed, cacheHit)

	return result, nil
}

// executeSearch runs the strategy executors and materializes full records
func (s *Searcher) executeSearch(ctx context.Context, query string, opts Options) (*types.SearchResult, error) {
	ranked, err := s.rankHits(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	memories, err := s.materialize(ctx, ranked, opts.Limit)
	if err != nil {
		return nil, err
	}
	return &types.SearchResult{
		Memories:   memories,
		TotalCount: len(ranked),
	}, nil
}

// strategyOutcome carries one executor's result across the join channel
type strategyOutcome struct {
	strategy types.SearchStrategy
	hits     []scoredHit
	err      error
}

// rankHits executes the requested strategy (or all three for hybrid) and
// returns the merged ranking. Every executor run holds the read lock for its
// own duration, so index mutation stays serialized against queries even when
// a cancelled hybrid search returns before its strategy goroutines finish.
func (s *Searcher) rankHits(ctx context.Context, query string, opts Options) ([]rankedHit, error) {
	if opts.Strategy != types.StrategyHybrid {
		s.mu.RLock()
		hits, err := s.runStrategy(ctx, opts.Strategy, query, opts)
		s.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		return singleStrategyRanked(hits, opts.Strategy), nil
	}

	// Hybrid runs all three executors concurrently. They are read-only and
	// independent; a failure in one branch is treated as an empty result.
	// The channel is buffered to the strategy count so the sends never
	// block: a goroutine outliving an early cancellation return still
	// completes and releases its read lock.
	outcomes := make(chan strategyOutcome, 3)
	strategies := []types.SearchStrategy{types.StrategyExact, types.StrategyFuzzy, types.StrategySemantic}
	for _, strategy := range strategies {
		go func(strategy types.SearchStrategy) {
			s.mu.RLock()
			hits, err := s.runStrategy(ctx, strategy, query, opts)
			s.mu.RUnlock()
			outcomes <- strategyOutcome{strategy: strategy, hits: hits, err: err}
		}(strategy)
	}

	byStrategy := make(map[types.SearchStrategy][]scoredHit, 3)
	failures := 0
	for range strategies {
		select {
		case out := <-outcomes:
			if out.err != nil {
				failures++
				s.log.Warn().Err(out.err).Str("strategy", string(out.strategy)).
					Msg("strategy executor failed, contributing empty result")
				continue
			}
			byStrategy[out.strategy] = out.hits
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failures == len(strategies) {
		return nil, fmt.Errorf("all strategy executors failed")
	}

	return combineHybrid(
		byStrategy[types.StrategyExact],
		byStrategy[types.StrategyFuzzy],
		byStrategy[types.StrategySemantic],
	), nil
}

func (s *Searcher) runStrategy(ctx context.Context, strategy types.SearchStrategy, query string, opts Options) ([]scoredHit, error) {
	switch strategy {
	case types.StrategyExact:
		return s.executeExact(ctx, query, opts)
	case types.StrategyFuzzy:
		return s.executeFuzzy(ctx, query, opts)
	case types.StrategySemantic:
		return s.executeSemantic(ctx, query, opts)
	default:
		return nil, fmt.Errorf("unsupported search strategy: %s", strategy)
	}
}

// materialize fetches full records for the top ranked ids, preserving rank
// order and skipping ids the store no longer has.
func (s *Searcher) materialize(ctx context.Context, ranked []rankedHit, limit int) ([]types.ScoredMemory, error) {
	if limit > len(ranked) {
		limit = len(ranked)
	}
	page := ranked[:limit]

	ids := make([]string, len(page))
	for i, h := range page {
		ids[i] = h.memoryID
	}
	records, err := s.store.GetMemoriesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch memories: %w", err)
	}
	byID := make(map[string]*types.Memory, len(records))
	for _, m := range records {
		byID[m.ID] = m
	}

	results := make([]types.ScoredMemory, 0, len(page))
	for _, h := range page {
		m, ok := byID[h.memoryID]
		if !ok {
			continue
		}
		results = append(results, types.ScoredMemory{
			Memory:  m,
			Score:   h.score,
			Sources: h.sources,
		})
	}
	s.touchAccess(ctx, results)
	return results, nil
}

// touchAccess bumps the access count of returned memories, best effort
func (s *Searcher) touchAccess(ctx context.Context, results []types.ScoredMemory) {
	for _, r := range results {
		if err := s.store.TouchAccess(ctx, r.Memory.ID); err != nil {
			s.log.Debug().Err(err).Str("memory_id", r.Memory.ID).Msg("failed to bump access count")
			continue
		}
		r.Memory.AccessCount++
	}
	s.mu.Lock()
	for _, r := range results {
		if st, ok := s.stats[r.Memory.ID]; ok {
			st.accessCount = r.Memory.AccessCount
			s.stats[r.Memory.ID] = st
		}
	}
	s.mu.Unlock()
}

// fallbackSearch is the naive substring scan used when the index path fails
func (s *Searcher) fallbackSearch(ctx context.Context, query string, opts Options) (*types.SearchResult, error) {
	memories, err := s.store.ScanContent(ctx, strings.TrimSpace(query), opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("substring fallback failed: %w", err)
	}
	results := make([]types.ScoredMemory, 0, len(memories))
	for _, m := range memories {
		if m.Importance < opts.MinImportance {
			continue
		}
		results = append(results, types.ScoredMemory{Memory: m, Score: m.Importance})
	}
	return &types.SearchResult{
		Memories:   results,
		TotalCount: len(results),
		Fallback:   true,
	}, nil
}

// recordQuery appends the search to the query log, best effort
func (s *Searcher) recordQuery(query string, strategy types.SearchStrategy, resultCount int, elapsed time.Duration, cacheHit bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.store.RecordSearchQuery(ctx, &store.SearchQuery{
		QueryText:   query,
		Strategy:    string(strategy),
		ResultCount: resultCount,
		DurationMs:  elapsed.Milliseconds(),
		CacheHit:    cacheHit,
	})
	if err != nil {
		s.log.Debug().Err(err).Msg("failed to record search query")
	}
}

// AutoComplete returns indexed words starting with prefix, most frequent
// first.
func (s *Searcher) AutoComplete(prefix string, limit int) []string {
	if strings.TrimSpace(prefix) == "" {
		return nil
	}
	if limit <= 0 {
		limit = s.cfg.AutoCompleteLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inverted.PrefixLookup(prefix, limit)
}

// MultiFieldSearch runs the query once per requested field and sums the
// field-weighted scores. Fields default to all indexable fields.
func (s *Searcher) MultiFieldSearch(ctx context.Context, query string, fields []types.FieldType, opts Options) (*types.SearchResult, error) {
	startTime := time.Now()
	if len(fields) == 0 {
		fields = types.AllFields
	}
	opts.Fields = fields
	if err := s.validateOptions(query, &opts); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	key := "multi|" + Key(opts.Strategy, query, opts)
	result, cacheHit, err := s.cache.GetOrCompute(key, func() (*types.SearchResult, error) {
		return s.executeMultiField(ctx, query, fields, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("multi-field search failed: %w", err)
	}

	elapsed := time.Since(startTime)
	if cacheHit {
		s.metrics.CacheHitsTotal.Inc()
		copied := *result
		copied.CacheHit = true
		copied.QueryTimeMs = elapsed.Milliseconds()
		result = &copied
	} else {
		s.metrics.CacheMissesTotal.Inc()
		result.QueryTimeMs = elapsed.Milliseconds()
	}
	s.metrics.SearchesTotal.WithLabelValues(string(opts.Strategy)).Inc()
	s.metrics.SearchLatency.WithLabelValues(string(opts.Strategy)).Observe(elapsed.Seconds())
	return result, nil
}

func (s *Searcher) executeMultiField(ctx context.Context, query string, fields []types.FieldType, opts Options) (*types.SearchResult, error) {
	type contribution struct {
		score   float64
		sources map[types.SearchStrategy]struct{}
	}
	merged := make(map[string]*contribution)

	for _, field := range fields {
		fieldOpts := opts
		fieldOpts.Fields = []types.FieldType{field}
		ranked, err := s.rankHits(ctx, query, fieldOpts)
		if err != nil {
			return nil, err
		}
		weight := types.FieldWeight(field)
		for _, h := range ranked {
			c, ok := merged[h.memoryID]
			if !ok {
				c = &contribution{sources: make(map[types.SearchStrategy]struct{})}
				merged[h.memoryID] = c
			}
			c.score += weight * h.score
			for _, src := range h.sources {
				c.sources[src] = struct{}{}
			}
		}
	}

	ranked := make([]rankedHit, 0, len(merged))
	for id, c := range merged {
		sources := make([]types.SearchStrategy, 0, len(c.sources))
		for src := range c.sources {
			sources = append(sources, src)
		}
		sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
		ranked = append(ranked, rankedHit{memoryID: id, score: c.score, sources: sources})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].memoryID < ranked[j].memoryID
	})

	memories, err := s.materialize(ctx, ranked, opts.Limit)
	if err != nil {
		return nil, err
	}
	return &types.SearchResult{Memories: memories, TotalCount: len(ranked)}, nil
}

// SearchByDateRange delegates to the store's own range query; the indexes
// are not involved.
func (s *Searcher) SearchByDateRange(ctx context.Context, from, to time.Time, opts Options) (*types.SearchResult, error) {
	startTime := time.Now()
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.DefaultLimit
	}
	if opts.Limit > MaxLimit {
		opts.Limit = MaxLimit
	}

	memories, err := s.store.SearchByDateRange(ctx, from, to, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("date range search failed: %w", err)
	}
	results := make([]types.ScoredMemory, 0, len(memories))
	for _, m := range memories {
		if m.Importance < opts.MinImportance {
			continue
		}
		results = append(results, types.ScoredMemory{Memory: m, Score: m.Importance})
	}
	return &types.SearchResult{
		Memories:    results,
		TotalCount:  len(results),
		QueryTimeMs: time.Since(startTime).Milliseconds(),
	}, nil
}

// OnMemoryIndexed rebuilds all index state for a memory after it is created
// or updated. The returned *types.IndexError reports persistence-mirror
// failures; callers log it and continue, since the memory itself is already
// stored.
func (s *Searcher) OnMemoryIndexed(ctx context.Context, memory *types.Memory) error {
	s.mu.Lock()

	// Stale words from the previous content version feed cache invalidation.
	staleWords := s.indexedWordsLocked(memory.ID)

	s.inverted.Remove(memory.ID)
	s.trigrams.Remove(memory.ID)

	var allTokens []string
	for _, field := range types.AllFields {
		tokens := tokenizer.Tokenize(memory.FieldValue(field))
		if len(tokens) == 0 {
			continue
		}
		s.inverted.Index(memory.ID, tokens, field)
		allTokens = append(allTokens, tokens...)
	}
	s.trigrams.Index(memory.ID, allTokens)
	s.vectors.Upsert(memory.ID, allTokens)
	s.stats[memory.ID] = docStat{importance: memory.Importance, accessCount: memory.AccessCount}

	wordPostings := s.inverted.FieldPostings(memory.ID)
	trigramPostings := s.trigrams.Postings(memory.ID)
	vector := s.vectors.Get(memory.ID)
	s.mu.Unlock()

	s.metrics.MemoriesIndexedTotal.Inc()
	s.invalidateFor(memory.ID, append(staleWords, allTokens...))

	if err := s.persistIndexState(ctx, memory.ID, wordPostings, trigramPostings, vector); err != nil {
		s.metrics.IndexErrorsTotal.WithLabelValues(string(types.StorageWriteFailure)).Inc()
		return types.NewIndexError(types.StorageWriteFailure, memory.ID, err)
	}
	return nil
}

// OnMemoryRemoved drops a memory from every index.
func (s *Searcher) OnMemoryRemoved(ctx context.Context, memoryID string) error {
	s.mu.Lock()
	staleWords := s.indexedWordsLocked(memoryID)
	s.inverted.Remove(memoryID)
	s.trigrams.Remove(memoryID)
	s.vectors.Remove(memoryID)
	delete(s.stats, memoryID)
	s.mu.Unlock()

	s.metrics.MemoriesRemovedTotal.Inc()
	s.invalidateFor(memoryID, staleWords)

	if err := s.store.DeleteIndexState(ctx, memoryID); err != nil {
		s.metrics.IndexErrorsTotal.WithLabelValues(string(types.StorageWriteFailure)).Inc()
		return types.NewIndexError(types.StorageWriteFailure, memoryID, err)
	}
	return nil
}

// indexedWordsLocked returns the distinct words currently indexed for a
// memory. Callers hold the write lock.
func (s *Searcher) indexedWordsLocked(memoryID string) []string {
	postings := s.inverted.FieldPostings(memoryID)
	seen := make(map[string]struct{}, len(postings))
	words := make([]string, 0, len(postings))
	for _, p := range postings {
		if _, dup := seen[p.Word]; dup {
			continue
		}
		seen[p.Word] = struct{}{}
		words = append(words, p.Word)
	}
	return words
}

// invalidateFor drops cached results whose key mentions the memory's words.
// Keys embed the normalized query text, so any cached query that could have
// matched on one of these words is removed.
func (s *Searcher) invalidateFor(memoryID string, words []string) {
	seen := make(map[string]struct{}, len(words)+1)
	patterns := make([]string, 0, len(words)+1)
	for _, w := range append(words, memoryID) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		patterns = append(patterns, w)
	}
	if removed := s.cache.Invalidate(patterns); removed > 0 {
		s.log.Debug().Int("removed", removed).Str("memory_id", memoryID).Msg("cache entries invalidated")
	}
}

// persistIndexState mirrors one memory's index state into storage
func (s *Searcher) persistIndexState(ctx context.Context, memoryID string, words []index.FieldPosting, grams []index.TrigramPosting, vector *index.Vector) error {
	wordRows := make([]store.WordPosting, len(words))
	for i, p := range words {
		wordRows[i] = store.WordPosting{MemoryID: p.MemoryID, Word: p.Word, Field: p.Field, Frequency: p.Frequency}
	}
	if err := s.store.ReplaceWordPostings(ctx, memoryID, wordRows); err != nil {
		return err
	}

	gramRows := make([]store.TrigramPosting, len(grams))
	for i, p := range grams {
		gramRows[i] = store.TrigramPosting{MemoryID: p.MemoryID, Trigram: p.Trigram, Word: p.Word, Position: p.Position}
	}
	if err := s.store.ReplaceTrigramPostings(ctx, memoryID, gramRows); err != nil {
		return err
	}

	if vector != nil {
		return s.store.UpsertVector(ctx, &store.VectorRecord{
			MemoryID: memoryID,
			Terms:    vector.Terms,
			Norm:     vector.Norm,
		})
	}
	return nil
}

// RebuildIndexes clears all index state and repopulates it from the full
// memory set. It holds the write lock for the duration, so no query or
// write observes a half-built index. Postings are built in a first pass and
// vectors in a second, so every rebuilt vector sees the full corpus's
// document frequencies; the rebuild is the mitigation for incremental idf
// drift. Per-memory failures are counted, not fatal.
func (s *Searcher) RebuildIndexes(ctx context.Context) (*types.RebuildResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inverted.Reset()
	s.trigrams.Reset()
	s.vectors.Reset()
	s.stats = make(map[string]docStat)

	// Pass 1: postings and scoring stats.
	docTokens := make(map[string][]string)
	var order []string
	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		memories, err := s.store.ListMemories(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list memories for rebuild: %w", err)
		}
		for _, memory := range memories {
			var allTokens []string
			for _, field := range types.AllFields {
				tokens := tokenizer.Tokenize(memory.FieldValue(field))
				if len(tokens) == 0 {
					continue
				}
				s.inverted.Index(memory.ID, tokens, field)
				allTokens = append(allTokens, tokens...)
			}
			s.trigrams.Index(memory.ID, allTokens)
			s.stats[memory.ID] = docStat{importance: memory.Importance, accessCount: memory.AccessCount}
			docTokens[memory.ID] = allTokens
			order = append(order, memory.ID)
		}
		if len(memories) < pageSize {
			break
		}
	}

	// Pass 2: vectors against the complete document-frequency table, and
	// the persisted mirror.
	var result types.RebuildResult
	var resultMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildWorkers)
	for _, memoryID := range order {
		memoryID := memoryID
		g.Go(func() error {
			s.vectors.Upsert(memoryID, docTokens[memoryID])
			err := s.persistIndexState(gctx, memoryID,
				s.inverted.FieldPostings(memoryID),
				s.trigrams.Postings(memoryID),
				s.vectors.Get(memoryID))
			resultMu.Lock()
			if err != nil {
				result.Errors++
			} else {
				result.Rebuilt++
			}
			resultMu.Unlock()
			if err != nil {
				s.log.Warn().Err(err).Str("memory_id", memoryID).Msg("rebuild failed for memory")
			}
			// Per-memory failures are accumulated, never fatal.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.cache.Purge()
	status := "ok"
	if result.Errors > 0 {
		status = "partial"
	}
	s.metrics.RebuildsTotal.WithLabelValues(status).Inc()
	s.log.Info().Uint32("rebuilt", result.Rebuilt).Uint32("errors", result.Errors).Msg("index rebuild finished")
	return &result, nil
}

// Stats reports current index sizes for status reporting
type Stats struct {
	IndexedMemories int
	Vectors         int
	CacheEntries    int
}

// IndexStats returns current index sizes.
func (s *Searcher) IndexStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		IndexedMemories: s.inverted.DocumentCount(),
		Vectors:         s.vectors.Len(),
		CacheEntries:    s.cache.Len(),
	}
}
