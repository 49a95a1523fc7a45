// Package stitch implements the boundary label reconciliation engine:
// given a BrickWall where each brick carries its own locally-unique
// segmentation, produce a single global label remap that makes
// segments crossing subvolume borders agree (spec.md §4.S).
package stitch

import (
	"sort"

	"github.com/aplbrain/flyemflows/geom"
)

// Region is a SubvolumeRegion: one independently-segmented subvolume's
// identity, extent, and the neighbors its border overlaps. Invariant:
// ROIID is unique within a job.
type Region struct {
	ROIID     uint32
	Box       geom.Box
	Border    uint32
	MaxID     uint64
	Neighbors map[uint32]geom.Box
}

// Edge is a candidate or final merge between two globally-offset
// labels, always stored with A <= B so equality/grouping is order
// independent.
type Edge struct {
	A, B uint64
}

// NewEdge builds an Edge with its operands in canonical (A <= B) order.
func NewEdge(x, y uint64) Edge {
	if x <= y {
		return Edge{A: x, B: y}
	}
	return Edge{A: y, B: x}
}

// ComputeOffsets assigns each region a prefix offset so its local
// labels become globally unique: region i's offset is the sum of
// (MaxID+1) over every region before it in ROIID order (spec.md §4.S
// step 1, "global offsetting"). The ordering is by ROIID, not
// insertion order, so the result is reproducible regardless of how
// regions were collected.
func ComputeOffsets(regions []Region) map[uint32]uint64 {
	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ROIID < sorted[j].ROIID })

	offsets := make(map[uint32]uint64, len(regions))
	var running uint64
	for _, r := range sorted {
		offsets[r.ROIID] = running
		running += r.MaxID + 1
	}
	return offsets
}

// unionFind is a path-compressing, union-by-smaller-root disjoint-set
// over a sparse uint64 key space (labels seen in candidate edges only,
// not the full label range).
type unionFind struct {
	parent map[uint64]uint64
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[uint64]uint64)}
}

func (u *unionFind) find(x uint64) uint64 {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		return x
	}
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

// union attaches the larger root to the smaller, so a component's
// representative is always its numerically smallest member.
func (u *unionFind) union(a, b uint64) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}

// GlobalMerge computes connected components over candidate edges,
// returning a domain→representative map covering every label
// mentioned in edges. Each component's representative is its
// numerically smallest label (spec.md §8 P6).
func GlobalMerge(edges []Edge) map[uint64]uint64 {
	uf := newUnionFind()
	for _, e := range edges {
		uf.union(e.A, e.B)
	}
	out := make(map[uint64]uint64, len(uf.parent))
	for k := range uf.parent {
		out[k] = uf.find(k)
	}
	return out
}
