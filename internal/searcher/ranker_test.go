package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recallkit/pkg/types"
)

func TestCombineHybrid_WeightedSum(t *testing.T) {
	exact := []scoredHit{{memoryID: "m1", score: 2.0}}
	fuzzy := []scoredHit{{memoryID: "m1", score: 1.0}, {memoryID: "m2", score: 3.0}}
	semantic := []scoredHit{{memoryID: "m2", score: 0.5}}

	ranked := combineHybrid(exact, fuzzy, semantic)
	require.Len(t, ranked, 2)

	byID := map[string]rankedHit{}
	for _, h := range ranked {
		byID[h.memoryID] = h
	}
	// A memory absent from a strategy contributes 0 for it.
	assert.InDelta(t, 0.4*2.0+0.3*1.0, byID["m1"].score, 1e-9)
	assert.InDelta(t, 0.3*3.0+0.3*0.5, byID["m2"].score, 1e-9)

	assert.ElementsMatch(t, []types.SearchStrategy{types.StrategyExact, types.StrategyFuzzy}, byID["m1"].sources)
	assert.ElementsMatch(t, []types.SearchStrategy{types.StrategyFuzzy, types.StrategySemantic}, byID["m2"].sources)
}

func TestCombineHybrid_Ordering(t *testing.T) {
	exact := []scoredHit{
		{memoryID: "m2", score: 1.0},
		{memoryID: "m1", score: 1.0},
		{memoryID: "m3", score: 5.0},
	}
	ranked := combineHybrid(exact, nil, nil)
	require.Len(t, ranked, 3)
	assert.Equal(t, "m3", ranked[0].memoryID)
	// Equal scores tie-break by memory id ascending.
	assert.Equal(t, "m1", ranked[1].memoryID)
	assert.Equal(t, "m2", ranked[2].memoryID)
}

func TestCombineHybrid_Empty(t *testing.T) {
	assert.Empty(t, combineHybrid(nil, nil, nil))
}

func TestSingleStrategyRanked(t *testing.T) {
	hits := []scoredHit{{memoryID: "m1", score: 1.5}}
	ranked := singleStrategyRanked(hits, types.StrategySemantic)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1.5, ranked[0].score)
	assert.Equal(t, []types.SearchStrategy{types.StrategySemantic}, ranked[0].sources)
}
