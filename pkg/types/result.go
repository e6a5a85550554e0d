package types

// SearchStrategy selects how a search is executed.
type SearchStrategy string

const (
	StrategyExact    SearchStrategy = "exact"
	StrategyFuzzy    SearchStrategy = "fuzzy"
	StrategySemantic SearchStrategy = "semantic"
	StrategyHybrid   SearchStrategy = "hybrid"
)

// ScoredMemory is one ranked hit: a memory with its relevance score and the
// strategies that contributed to it.
type ScoredMemory struct {
	Memory  *Memory
	Score   float64
	Sources []SearchStrategy
}

// SearchResult is the response of the search facade.
type SearchResult struct {
	Memories    []ScoredMemory
	TotalCount  int
	QueryTimeMs int64
	CacheHit    bool
	Fallback    bool
}

// RebuildResult reports the outcome of a full index rebuild.
type RebuildResult struct {
	Rebuilt uint32
	Errors  uint32
}
