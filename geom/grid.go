package geom

// Grid defines a tiling of 3-space: block origins sit at
// Offset + k*BlockShape for any integer vector k.
type Grid struct {
	BlockShape Vec3u32
	Offset     Vec3
}

// ModulusOffset returns Offset mod BlockShape, the value that makes two
// grids with equal BlockShape comparable for equivalence.
func (g Grid) ModulusOffset() Vec3 {
	mod := g.Offset.DivFloor(g.BlockShape)
	aligned := Vec3{
		mod[0] * int64(g.BlockShape[0]),
		mod[1] * int64(g.BlockShape[1]),
		mod[2] * int64(g.BlockShape[2]),
	}
	return g.Offset.Sub(aligned)
}

// Equivalent reports whether g and o tile identical space: equal block
// shape and equal modulus offset.
func (g Grid) Equivalent(o Grid) bool {
	return g.BlockShape == o.BlockShape && g.ModulusOffset() == o.ModulusOffset()
}

// blockIndex returns the integer block-index vector k such that the
// block's origin is Offset + k*BlockShape and covers coord.
func (g Grid) blockIndex(coord Vec3) Vec3 {
	return coord.Sub(g.Offset).DivFloor(g.BlockShape)
}

// BlockOrigin returns the grid-aligned origin of the block identified by
// index k.
func (g Grid) BlockOrigin(k Vec3) Vec3 {
	shape := g.BlockShape.ToVec3()
	return g.Offset.Add(Vec3{k[0] * shape[0], k[1] * shape[1], k[2] * shape[2]})
}

// BlockBox returns the full block-sized box for block-index k (logical
// box), independent of any bounding box.
func (g Grid) BlockBox(k Vec3) Box {
	origin := g.BlockOrigin(k)
	return Box{Start: origin, Stop: origin.Add(g.BlockShape.ToVec3())}
}

// LogicalBoxFor returns the grid-aligned block box that contains coord.
func (g Grid) LogicalBoxFor(coord Vec3) Box {
	return g.BlockBox(g.blockIndex(coord))
}

// BoxesFromGrid enumerates every grid block whose box intersects
// boundingBox, in lexicographic (z, y, x) block-index order. Returned
// boxes are full block-sized and may extend past boundingBox.
func BoxesFromGrid(boundingBox Box, g Grid) []Box {
	if boundingBox.IsEmpty() {
		return nil
	}
	minK := g.blockIndex(boundingBox.Start)
	// The last covered coordinate is Stop-1; its block index is the
	// upper bound (inclusive).
	maxK := g.blockIndex(boundingBox.Stop.Sub(Vec3{1, 1, 1}))

	var out []Box
	for z := minK[0]; z <= maxK[0]; z++ {
		for y := minK[1]; y <= maxK[1]; y++ {
			for x := minK[2]; x <= maxK[2]; x++ {
				out = append(out, g.BlockBox(Vec3{z, y, x}))
			}
		}
	}
	return out
}

// ClippedBoxesFromGrid is BoxesFromGrid intersected with boundingBox —
// the tiling asserted by property P1: pairwise disjoint, union equal to
// boundingBox.
func ClippedBoxesFromGrid(boundingBox Box, g Grid) []Box {
	blocks := BoxesFromGrid(boundingBox, g)
	out := make([]Box, 0, len(blocks))
	for _, blk := range blocks {
		clipped := Intersection(blk, boundingBox)
		if !clipped.IsEmpty() {
			out = append(out, clipped)
		}
	}
	return out
}

// Axis selects one of the three ZYX axes for slab decomposition.
type Axis int

const (
	AxisZ Axis = iota
	AxisY
	AxisX
)

// SlabsFromBox partitions box into contiguous slabs of slabDepth along
// axis. Callers are responsible for ensuring slabDepth is a multiple of
// the output brick width along axis (enforced at config-validation time,
// spec.md §6); this function only does the arithmetic split.
func SlabsFromBox(box Box, slabDepth int64, axis Axis) []Box {
	if box.IsEmpty() || slabDepth <= 0 {
		return nil
	}
	i := int(axis)

	start := box.Start[i]
	stop := box.Stop[i]

	var out []Box
	for cur := start; cur < stop; cur += slabDepth {
		slabStop := cur + slabDepth
		if slabStop > stop {
			slabStop = stop
		}
		s := box
		s.Start[i] = cur
		s.Stop[i] = slabStop
		out = append(out, s)
	}
	return out
}
