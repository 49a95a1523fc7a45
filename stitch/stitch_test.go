package stitch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeOffsets_prefixSumsByROIID(t *testing.T) {
	regions := []Region{
		{ROIID: 2, MaxID: 9},
		{ROIID: 0, MaxID: 4},
		{ROIID: 1, MaxID: 2},
	}
	offsets := ComputeOffsets(regions)
	require.Equal(t, uint64(0), offsets[0])
	require.Equal(t, uint64(5), offsets[1])  // region 0 contributes MaxID+1 = 5
	require.Equal(t, uint64(8), offsets[2])  // + region 1's MaxID+1 = 3
}

// TestGlobalMerge_representativeIsSmallest is property P6: final
// labels equal union-find with representative = numerically smallest
// label in each component.
func TestGlobalMerge_representativeIsSmallest(t *testing.T) {
	edges := []Edge{
		NewEdge(10, 20),
		NewEdge(20, 30),
		NewEdge(99, 50),
	}
	remap := GlobalMerge(edges)
	require.Equal(t, uint64(10), remap[10])
	require.Equal(t, uint64(10), remap[20])
	require.Equal(t, uint64(10), remap[30])
	require.Equal(t, uint64(50), remap[99])
	require.Equal(t, uint64(50), remap[50])
}

// TestCandidateMerges_mediumMode is scenario S4: two labels whose
// borders overlap, one pair mutual best, one not, under medium mode.
func TestCandidateMerges_mediumMode(t *testing.T) {
	counts := map[[2]uint64]int{
		{10, 20}: 100, // mutual best: 10<->20
		{11, 30}: 80,  // 11's best is 30, but 30's best is 12
		{12, 30}: 90,
	}
	edges := CandidateMerges(counts, 0, 0, ModeMedium)

	require.Contains(t, edges, NewEdge(10, 20))
	require.NotContains(t, edges, NewEdge(11, 30))
	require.Contains(t, edges, NewEdge(12, 30))
}

func TestCandidateMerges_none_producesNothing(t *testing.T) {
	counts := map[[2]uint64]int{{1, 2}: 10000}
	edges := CandidateMerges(counts, 0, 0, ModeNone)
	require.Empty(t, edges)
}

func TestCandidateMerges_conservativeRejectsLowRatio(t *testing.T) {
	counts := map[[2]uint64]int{
		{1, 2}: 60,
		{1, 3}: 60,
	}
	edges := CandidateMerges(counts, 0, 0, ModeConservative)
	require.Empty(t, edges)
}

func TestCandidateMerges_belowMinVotesRejected(t *testing.T) {
	counts := map[[2]uint64]int{{1, 2}: 10}
	edges := CandidateMerges(counts, 0, 0, ModeAggressive)
	require.Empty(t, edges)
}

func TestCandidateMerges_appliesOffsets(t *testing.T) {
	counts := map[[2]uint64]int{{1, 1}: 200}
	edges := CandidateMerges(counts, 1000, 2000, ModeMedium)
	require.Contains(t, edges, NewEdge(1001, 2001))
}
