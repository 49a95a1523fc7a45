package stitch

import "github.com/aplbrain/flyemflows/internal/errs"

// Mode selects how strictly a candidate merge must agree before it is
// accepted (spec.md §4.S step 6).
type Mode int

const (
	// ModeNone skips reconciliation entirely; no merges are ever
	// produced.
	ModeNone Mode = iota
	// ModeConservative requires best/total >= 0.90.
	ModeConservative
	// ModeMedium requires mutual best match on both sides, no ratio
	// threshold.
	ModeMedium
	// ModeAggressive accepts best/total > 0.90 and best > 1000, even
	// without mutuality.
	ModeAggressive
)

// minVotes is the hard floor on co-occurrence votes before a candidate
// edge is even considered (spec.md §4.S step 5, "default 50 voxels").
const minVotes = 50

// PairGroups validates that every boundary group has exactly two
// members, the two sides of one neighbor pair (spec.md §4.S step 3),
// and orders them [Lo-side, Hi-side] by ROIID so offset assignment is
// unambiguous.
func PairGroups(groups map[PairKey][]BoundarySlab) (map[PairKey][2]BoundarySlab, error) {
	out := make(map[PairKey][2]BoundarySlab, len(groups))
	for k, slabs := range groups {
		if len(slabs) != 2 {
			return nil, errs.Newf(errs.BoundaryPairingMismatch, "neighbor pair %v has %d boundary slabs, want 2", k, len(slabs))
		}
		a, b := slabs[0], slabs[1]
		if a.ROIID > b.ROIID {
			a, b = b, a
		}
		out[k] = [2]BoundarySlab{a, b}
	}
	return out, nil
}

// bestMatch tracks one label's highest-voted counterpart.
type bestMatch struct {
	label uint64
	count int
	total int
}

// CandidateMerges applies a neighbor pair's co-occurrence votes
// against mode's acceptance rule, returning zero or one candidate edge
// per label that clears the bar (spec.md §4.S steps 5-6). offsetLo,
// offsetHi are the global label offsets for the Lo/Hi sides of pair.
func CandidateMerges(counts map[[2]uint64]int, offsetLo, offsetHi uint64, mode Mode) []Edge {
	if mode == ModeNone || len(counts) == 0 {
		return nil
	}

	totalForLo := make(map[uint64]int)
	for k, c := range counts {
		totalForLo[k[0]] += c
	}
	bestForLo := bestPerKey(counts, 0, totalForLo)

	totalForHi := make(map[uint64]int)
	for k, c := range counts {
		totalForHi[k[1]] += c
	}
	bestForHi := bestPerKey(counts, 1, totalForHi)

	var edges []Edge
	for lo, best := range bestForLo {
		if best.count < minVotes {
			continue
		}
		switch mode {
		case ModeConservative:
			if float64(best.count)/float64(best.total) < 0.90 {
				continue
			}
		case ModeMedium:
			counterpart, ok := bestForHi[best.label]
			if !ok || counterpart.label != lo {
				continue
			}
		case ModeAggressive:
			ratio := float64(best.count) / float64(best.total)
			if !(ratio > 0.90 && best.count > 1000) {
				continue
			}
		}
		edges = append(edges, NewEdge(lo+offsetLo, best.label+offsetHi))
	}
	return edges
}

// bestPerKey finds, for each distinct value of counts' `side` index,
// the highest-voted counterpart on the other side, ties broken toward
// the numerically smaller counterpart label (spec.md §4.S, "ties are
// broken by numerically-smaller label").
func bestPerKey(counts map[[2]uint64]int, side int, totals map[uint64]int) map[uint64]bestMatch {
	out := make(map[uint64]bestMatch)
	for k, c := range counts {
		key := k[side]
		other := k[1-side]
		cur, ok := out[key]
		if !ok || c > cur.count || (c == cur.count && other < cur.label) {
			out[key] = bestMatch{label: other, count: c, total: totals[key]}
		}
	}
	return out
}
