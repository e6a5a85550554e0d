package searcher

import (
	"sort"

	"github.com/recallkit/recallkit/pkg/types"
)

// Hybrid merge weights. Exact matches carry the most signal.
const (
	weightExact    = 0.4
	weightFuzzy    = 0.3
	weightSemantic = 0.3
)

// rankedHit is one hybrid result with the strategies that contributed to it
type rankedHit struct {
	memoryID string
	score    float64
	sources  []types.SearchStrategy
}

// combineHybrid merges per-strategy hit lists into one ranking with a
// weighted additive score. A memory absent from a strategy's list
// contributes 0 for that strategy. Output is ordered by final score
// descending, ties by memory id ascending.
func combineHybrid(exact, fuzzy, semantic []scoredHit) []rankedHit {
	type contribution struct {
		score   float64
		sources []types.SearchStrategy
	}
	merged := make(map[string]*contribution)

	add := func(hits []scoredHit, weight float64, source types.SearchStrategy) {
		for _, h := range hits {
			c, ok := merged[h.memoryID]
			if !ok {
				c = &contribution{}
				merged[h.memoryID] = c
			}
			c.score += weight * h.score
			c.sources = append(c.sources, source)
		}
	}
	add(exact, weightExact, types.StrategyExact)
	add(fuzzy, weightFuzzy, types.StrategyFuzzy)
	add(semantic, weightSemantic, types.StrategySemantic)

	ranked := make([]rankedHit, 0, len(merged))
	for id, c := range merged {
		ranked = append(ranked, rankedHit{memoryID: id, score: c.score, sources: c.sources})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].memoryID < ranked[j].memoryID
	})
	return ranked
}

// singleStrategyRanked adapts one executor's hits to the ranked form.
func singleStrategyRanked(hits []scoredHit, source types.SearchStrategy) []rankedHit {
	ranked := make([]rankedHit, 0, len(hits))
	for _, h := range hits {
		ranked = append(ranked, rankedHit{
			memoryID: h.memoryID,
			score:    h.score,
			sources:  []types.SearchStrategy{source},
		})
	}
	return ranked
}
