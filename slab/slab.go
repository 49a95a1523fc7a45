// Package slab implements the slab iterator: decomposing a bounding
// box into axis-aligned slabs processed strictly sequentially, with
// (scale, slab_index) checkpoint-based resumability (spec.md §4.R).
package slab

import "github.com/aplbrain/flyemflows/geom"

// Slab is one axis-aligned band of the bounding box, carrying its
// position in the strict processing order.
type Slab struct {
	Index int
	Box   geom.Box
}

// Decompose partitions boundingBox into contiguous slabs of slabDepth
// voxels along axis, in processing order (spec.md §4.R). Callers are
// responsible for ensuring slabDepth is a multiple of the output brick
// width along axis (spec.md §6 config constraint).
func Decompose(boundingBox geom.Box, slabDepth int64, axis geom.Axis) []Slab {
	boxes := geom.SlabsFromBox(boundingBox, slabDepth, axis)
	out := make([]Slab, len(boxes))
	for i, b := range boxes {
		out[i] = Slab{Index: i, Box: b}
	}
	return out
}

// Checkpoint records the last (scale, slab_index) pair a run completed
// (spec.md §4.R, "Resumability").
type Checkpoint struct {
	Scale     uint8
	SlabIndex int
}

// Skip reports whether (slabIndex, scale) was already completed by a
// prior run recorded in c: slabs with index < checkpoint are skipped
// entirely, and within the checkpoint's own slab, scales already
// reached are not recomputed.
func (c Checkpoint) Skip(slabIndex int, scale uint8) bool {
	if slabIndex < c.SlabIndex {
		return true
	}
	if slabIndex == c.SlabIndex && scale <= c.Scale {
		return true
	}
	return false
}
