package searcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recallkit/internal/metrics"
	"github.com/recallkit/recallkit/internal/store"
	"github.com/recallkit/recallkit/pkg/types"
)

func newTestSearcher(t *testing.T) (*Searcher, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	s, err := NewSearcher(st, metrics.New(), zerolog.Nop(), Config{})
	require.NoError(t, err)
	return s, st
}

func addMemory(t *testing.T, s *Searcher, st store.Storage, content string, tags []string, importance float64) *types.Memory {
	t.Helper()
	m := &types.Memory{
		ID:         uuid.NewString(),
		Content:    content,
		Tags:       tags,
		Importance: importance,
	}
	require.NoError(t, st.CreateMemory(context.Background(), m))
	require.NoError(t, s.OnMemoryIndexed(context.Background(), m))
	return m
}

func resultIDs(result *types.SearchResult) []string {
	ids := make([]string, 0, len(result.Memories))
	for _, sm := range result.Memories {
		ids = append(ids, sm.Memory.ID)
	}
	return ids
}

func TestSearch_ExactMatch(t *testing.T) {
	s, st := newTestSearcher(t)
	m1 := addMemory(t, s, st, "The quick brown fox jumps over the lazy dog", nil, 0.5)

	result, err := s.Search(context.Background(), "fox", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, m1.ID, result.Memories[0].Memory.ID)
	assert.False(t, result.Fallback)
	assert.Equal(t, []types.SearchStrategy{types.StrategyExact}, result.Memories[0].Sources)
}

func TestSearch_FuzzyMisspelling(t *testing.T) {
	s, st := newTestSearcher(t)
	m1 := addMemory(t, s, st, "The quick brown fox jumps over the lazy dog", nil, 0.5)

	// "foks" shares trigrams with "fox" above the 0.3 threshold.
	result, err := s.Search(context.Background(), "foks", Options{Strategy: types.StrategyFuzzy})
	require.NoError(t, err)
	require.NotEmpty(t, result.Memories)
	assert.Equal(t, m1.ID, result.Memories[0].Memory.ID)
}

func TestSearch_SemanticSymmetry(t *testing.T) {
	s, st := newTestSearcher(t)
	m1 := addMemory(t, s, st, "cats are great pets", nil, 0.5)
	m2 := addMemory(t, s, st, "dogs are great pets", nil, 0.5)
	// Re-index m1 so both vectors see the same corpus statistics.
	require.NoError(t, s.OnMemoryIndexed(context.Background(), m1))

	result, err := s.Search(context.Background(), "great pets", Options{Strategy: types.StrategySemantic})
	require.NoError(t, err)
	require.Len(t, result.Memories, 2)
	assert.ElementsMatch(t, []string{m1.ID, m2.ID}, resultIDs(result))
	assert.InDelta(t, result.Memories[0].Score, result.Memories[1].Score, 1e-9,
		"symmetric term overlap yields near-equal scores")
}

func TestSearch_UpdateRemovesStaleWord(t *testing.T) {
	s, st := newTestSearcher(t)
	m1 := addMemory(t, s, st, "The quick brown fox", nil, 0.5)

	m1.Content = "The quick brown squirrel"
	require.NoError(t, st.UpdateMemory(context.Background(), m1))
	require.NoError(t, s.OnMemoryIndexed(context.Background(), m1))

	result, err := s.Search(context.Background(), "fox", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	assert.Empty(t, result.Memories)

	result, err = s.Search(context.Background(), "squirrel", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, m1.ID, result.Memories[0].Memory.ID)
}

func TestSearch_RemovedMemoryMatchesNoStrategy(t *testing.T) {
	s, st := newTestSearcher(t)
	m1 := addMemory(t, s, st, "The quick brown fox", nil, 0.5)

	require.NoError(t, s.OnMemoryRemoved(context.Background(), m1.ID))
	require.NoError(t, st.DeleteMemory(context.Background(), m1.ID))

	for _, strategy := range []types.SearchStrategy{
		types.StrategyExact, types.StrategyFuzzy, types.StrategySemantic, types.StrategyHybrid,
	} {
		result, err := s.Search(context.Background(), "fox", Options{Strategy: strategy})
		require.NoError(t, err)
		assert.Empty(t, result.Memories, "strategy %s", strategy)
	}
}

func TestSearch_HybridMergesSources(t *testing.T) {
	s, st := newTestSearcher(t)
	m1 := addMemory(t, s, st, "The quick brown fox jumps over the lazy dog", nil, 0.5)

	result, err := s.Search(context.Background(), "fox", Options{Strategy: types.StrategyHybrid})
	require.NoError(t, err)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, m1.ID, result.Memories[0].Memory.ID)
	// Exact and fuzzy both match the literal word; semantic matches via the
	// query vector.
	assert.Contains(t, result.Memories[0].Sources, types.StrategyExact)
	assert.Contains(t, result.Memories[0].Sources, types.StrategyFuzzy)
}

func TestSearch_DefaultStrategyIsHybrid(t *testing.T) {
	s, st := newTestSearcher(t)
	addMemory(t, s, st, "golang generics tutorial", nil, 0.5)

	result, err := s.Search(context.Background(), "golang", Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Memories)
}

func TestSearch_EmptyQuery(t *testing.T) {
	s, _ := newTestSearcher(t)
	_, err := s.Search(context.Background(), "   ", Options{})
	assert.ErrorIs(t, err, types.ErrEmptyQuery)
}

func TestSearch_MinImportanceFilter(t *testing.T) {
	s, st := newTestSearcher(t)
	addMemory(t, s, st, "fox one", nil, 0.2)
	important := addMemory(t, s, st, "fox two", nil, 0.9)

	result, err := s.Search(context.Background(), "fox", Options{
		Strategy:      types.StrategyExact,
		MinImportance: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, important.ID, result.Memories[0].Memory.ID)
}

func TestSearch_CacheHit(t *testing.T) {
	s, st := newTestSearcher(t)
	addMemory(t, s, st, "cached content here", nil, 0.5)

	first, err := s.Search(context.Background(), "cached", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.Search(context.Background(), "cached", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, resultIDs(first), resultIDs(second))
}

func TestSearch_WriteInvalidatesCache(t *testing.T) {
	s, st := newTestSearcher(t)
	addMemory(t, s, st, "original fox note", nil, 0.5)

	_, err := s.Search(context.Background(), "fox", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)

	// A new memory containing "fox" invalidates cached "fox" queries.
	addMemory(t, s, st, "another fox sighting", nil, 0.5)

	result, err := s.Search(context.Background(), "fox", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	assert.False(t, result.CacheHit)
	assert.Len(t, result.Memories, 2)
}

func TestSearch_FallbackOnExecutorFailure(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	broken := &brokenFetchStore{Storage: st}

	s, err := NewSearcher(broken, metrics.New(), zerolog.Nop(), Config{})
	require.NoError(t, err)

	m := &types.Memory{ID: uuid.NewString(), Content: "fallback fox note", Importance: 0.5}
	require.NoError(t, st.CreateMemory(context.Background(), m))
	require.NoError(t, s.OnMemoryIndexed(context.Background(), m))

	result, err := s.Search(context.Background(), "fox", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, m.ID, result.Memories[0].Memory.ID)
}

// brokenFetchStore fails record materialization so the indexed search path
// errors and the facade must fall back to the substring scan.
type brokenFetchStore struct {
	store.Storage
}

func (b *brokenFetchStore) GetMemoriesByIDs(ctx context.Context, ids []string) ([]*types.Memory, error) {
	return nil, errors.New("record fetch unavailable")
}

func TestAutoComplete(t *testing.T) {
	s, st := newTestSearcher(t)
	addMemory(t, s, st, "searching searches search", nil, 0.5)
	addMemory(t, s, st, "search engine basics", nil, 0.5)

	words := s.AutoComplete("sear", 10)
	require.NotEmpty(t, words)
	assert.Equal(t, "search", words[0], "highest aggregate frequency first")

	assert.Empty(t, s.AutoComplete("  ", 10))
	assert.Empty(t, s.AutoComplete("zzz", 10))
}

func TestMultiFieldSearch_FieldWeights(t *testing.T) {
	s, st := newTestSearcher(t)
	inContent := addMemory(t, s, st, "kubernetes deployment guide", nil, 0.5)
	inTags := addMemory(t, s, st, "notes about container orchestration", []string{"kubernetes"}, 0.5)

	result, err := s.MultiFieldSearch(context.Background(), "kubernetes", nil, Options{
		Strategy: types.StrategyExact,
	})
	require.NoError(t, err)
	require.Len(t, result.Memories, 2)
	// content weight 1.0 outranks tags weight 0.8 at equal importance.
	assert.Equal(t, inContent.ID, result.Memories[0].Memory.ID)
	assert.Equal(t, inTags.ID, result.Memories[1].Memory.ID)
	assert.Greater(t, result.Memories[0].Score, result.Memories[1].Score)
}

func TestSearchByDateRange(t *testing.T) {
	s, st := newTestSearcher(t)
	recent := addMemory(t, s, st, "recent entry", nil, 0.5)

	old := &types.Memory{
		ID:         uuid.NewString(),
		Content:    "old entry",
		Importance: 0.5,
		CreatedAt:  time.Now().UTC().Add(-72 * time.Hour),
	}
	require.NoError(t, st.CreateMemory(context.Background(), old))
	require.NoError(t, s.OnMemoryIndexed(context.Background(), old))

	result, err := s.SearchByDateRange(context.Background(),
		time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour), Options{})
	require.NoError(t, err)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, recent.ID, result.Memories[0].Memory.ID)
}

func TestRebuildIndexes(t *testing.T) {
	s, st := newTestSearcher(t)

	// Memories created behind the searcher's back are invisible until a
	// rebuild.
	for _, content := range []string{"first rebuild note", "second rebuild note"} {
		m := &types.Memory{ID: uuid.NewString(), Content: content, Importance: 0.5}
		require.NoError(t, st.CreateMemory(context.Background(), m))
	}

	result, err := s.Search(context.Background(), "rebuild", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	assert.Empty(t, result.Memories)

	rebuild, err := s.RebuildIndexes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rebuild.Rebuilt)
	assert.Equal(t, uint32(0), rebuild.Errors)

	result, err = s.Search(context.Background(), "rebuild", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	assert.Len(t, result.Memories, 2)
}

func TestWarmLoadRestoresIndexState(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	first, err := NewSearcher(st, metrics.New(), zerolog.Nop(), Config{})
	require.NoError(t, err)
	m := &types.Memory{ID: uuid.NewString(), Content: "persisted warm fox", Importance: 0.5}
	require.NoError(t, st.CreateMemory(context.Background(), m))
	require.NoError(t, first.OnMemoryIndexed(context.Background(), m))

	// A fresh searcher over the same store restores the mirror.
	second, err := NewSearcher(st, metrics.New(), zerolog.Nop(), Config{})
	require.NoError(t, err)
	require.NoError(t, second.WarmLoad(context.Background()))

	result, err := second.Search(context.Background(), "fox", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, m.ID, result.Memories[0].Memory.ID)

	fuzzy, err := second.Search(context.Background(), "foks", Options{Strategy: types.StrategyFuzzy})
	require.NoError(t, err)
	assert.Len(t, fuzzy.Memories, 1)
}

func TestSearch_ConcurrentQueriesAndWrites(t *testing.T) {
	s, st := newTestSearcher(t)
	for i := 0; i < 5; i++ {
		addMemory(t, s, st, fmt.Sprintf("concurrent fox note %d", i), nil, 0.5)
	}

	// Hybrid queries, including ones cancelled mid-flight, run against
	// simultaneous index writes. Leftover strategy goroutines must stay
	// serialized against the writers.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opts := Options{Strategy: types.StrategyHybrid}
			if i%2 == 0 {
				opts.Timeout = time.Nanosecond
			}
			// Cancelled searches may error after the fallback; only
			// panics and races are failures here.
			_, _ = s.Search(context.Background(), "fox", opts)
		}(i)
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := &types.Memory{
				ID:         uuid.NewString(),
				Content:    fmt.Sprintf("racing fox update %d", i),
				Importance: 0.5,
			}
			assert.NoError(t, st.CreateMemory(context.Background(), m))
			assert.NoError(t, s.OnMemoryIndexed(context.Background(), m))
			assert.NoError(t, s.OnMemoryRemoved(context.Background(), m.ID))
		}(i)
	}
	wg.Wait()

	result, err := s.Search(context.Background(), "fox", Options{Strategy: types.StrategyExact})
	require.NoError(t, err)
	assert.Len(t, result.Memories, 5)
}

func TestIndexStats(t *testing.T) {
	s, st := newTestSearcher(t)
	addMemory(t, s, st, "stats entry", nil, 0.5)

	stats := s.IndexStats()
	assert.Equal(t, 1, stats.IndexedMemories)
	assert.Equal(t, 1, stats.Vectors)
}
