package stitch

import (
	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// PairKey identifies a neighbor pair by its sorted ROIIDs (spec.md
// §4.S step 2, "key by the sorted tuple (min(roi_id), max(roi_id))").
type PairKey struct {
	Lo, Hi uint32
}

func pairKeyOf(a, b uint32) PairKey {
	if a <= b {
		return PairKey{Lo: a, Hi: b}
	}
	return PairKey{Lo: b, Hi: a}
}

// BoundarySlab is one side's contribution to a neighbor pair's
// overlap: the voxel data lying in the shared border region, plus
// enough bookkeeping to apply the global offset and reconcile against
// the other side.
type BoundarySlab struct {
	ROIID         uint32
	NeighborROIID uint32
	Box           geom.Box // global overlap box, identical on both sides
	Volume        *brick.Buffer
}

// ExtractBoundary emits one BoundarySlab per neighbor the region
// overlaps, each the sub-volume of vol lying in the intersection of
// region's box and that neighbor's box (spec.md §4.S step 2).
func ExtractBoundary(region Region, vol *brick.Buffer, brickBox geom.Box) []BoundarySlab {
	out := make([]BoundarySlab, 0, len(region.Neighbors))
	for neighborID, neighborBox := range region.Neighbors {
		overlap := geom.Intersection(region.Box, neighborBox)
		if overlap.IsEmpty() {
			continue
		}
		rel := overlap.Start.Sub(brickBox.Start)
		sub := vol.SubBuffer(rel, overlap.Shape())
		out = append(out, BoundarySlab{ROIID: region.ROIID, NeighborROIID: neighborID, Box: overlap, Volume: sub})
	}
	return out
}

// GroupBoundaries shuffles slabs by the neighbor pair they belong to
// (spec.md §4.S step 3, "shuffle+group").
func GroupBoundaries(slabs []BoundarySlab) map[PairKey][]BoundarySlab {
	groups := make(map[PairKey][]BoundarySlab)
	for _, s := range slabs {
		k := pairKeyOf(s.ROIID, s.NeighborROIID)
		groups[k] = append(groups[k], s)
	}
	return groups
}

// CoOccurrenceCounts computes, for the single-voxel interface plane
// between a matched pair of boundary slabs, the per-label-pair vote
// counts count[(labelInLo, labelInHi)] (spec.md §4.S step 4). pair
// must have exactly two elements, one per side, both Uint64 volumes.
func CoOccurrenceCounts(pair [2]BoundarySlab) (map[[2]uint64]int, error) {
	if pair[0].Volume.DType != brick.Uint64 || pair[1].Volume.DType != brick.Uint64 {
		return nil, errs.New(errs.Validation, "boundary reconciliation requires label (Uint64) volumes")
	}
	if pair[0].Box != pair[1].Box {
		return nil, errs.Newf(errs.Geometry, "boundary slab box mismatch: %v vs %v", pair[0].Box, pair[1].Box)
	}

	axis, mid := thinnestAxisMidpoint(pair[0].Box)

	counts := make(map[[2]uint64]int)
	shape := pair[0].Box.Shape()
	for z := int64(0); z < shape[0]; z++ {
		for y := int64(0); y < shape[1]; y++ {
			for x := int64(0); x < shape[2]; x++ {
				coord := [3]int64{z, y, x}
				if coord[axis] != mid {
					continue
				}
				a := pair[0].Volume.GetUint64(z, y, x)
				b := pair[1].Volume.GetUint64(z, y, x)
				counts[[2]uint64{a, b}]++
			}
		}
	}
	return counts, nil
}

// thinnestAxisMidpoint picks the axis along which box is thinnest (the
// shared face's normal) and the midpoint index along it (the lower of
// the two middle indices for an even thickness), the single
// interface-plane slice (spec.md §4.S step 4, "1-voxel-thick interface
// plane").
func thinnestAxisMidpoint(box geom.Box) (axis int, mid int64) {
	shape := box.Shape()
	axis = 0
	for i := 1; i < 3; i++ {
		if shape[i] < shape[axis] {
			axis = i
		}
	}
	mid = (shape[axis] - 1) / 2
	return axis, mid
}
