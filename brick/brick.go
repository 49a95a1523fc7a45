// Package brick implements the Brick and BrickWall data model: a unit of
// volume pinned to one grid block, and the lazily-materialized
// collection of bricks covering a bounding box.
package brick

import (
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// Brick is a logical box + physical box + volume buffer. Invariants
// (spec.md data model, "Brick"):
//   - LogicalBox.Shape() == grid.BlockShape
//   - LogicalBox.Start is a grid-aligned block origin
//   - PhysicalBox ⊆ LogicalBox
//   - Volume.Shape == PhysicalBox.Shape()
//
// A Brick exclusively owns its Volume buffer; it is read-only after
// construction except for in-place label remap (labelmap package).
type Brick struct {
	LogicalBox  geom.Box
	PhysicalBox geom.Box
	Volume      *Buffer
}

// New constructs a Brick and validates its invariants against grid.
func New(logicalBox, physicalBox geom.Box, volume *Buffer, grid geom.Grid) (*Brick, error) {
	b := &Brick{LogicalBox: logicalBox, PhysicalBox: physicalBox, Volume: volume}
	if err := b.checkInvariants(grid); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Brick) checkInvariants(grid geom.Grid) error {
	if b.LogicalBox.Shape() != grid.BlockShape.ToVec3() {
		return errs.Newf(errs.Geometry, "logical box shape %v does not match grid block shape %v", b.LogicalBox.Shape(), grid.BlockShape)
	}
	if grid.LogicalBoxFor(b.LogicalBox.Start) != b.LogicalBox {
		return errs.Newf(errs.Geometry, "logical box start %v is not grid-aligned", b.LogicalBox.Start)
	}
	if !b.PhysicalBox.IsEmpty() && !b.LogicalBox.Contains(b.PhysicalBox) {
		return errs.Newf(errs.Geometry, "physical box %v not contained in logical box %v", b.PhysicalBox, b.LogicalBox)
	}
	if b.Volume != nil && !b.PhysicalBox.IsEmpty() && b.Volume.Shape != b.PhysicalBox.Shape() {
		return errs.Newf(errs.Geometry, "volume shape %v does not match physical box shape %v", b.Volume.Shape, b.PhysicalBox.Shape())
	}
	return nil
}

// Copy deep-copies the brick, including its volume buffer, preserving
// exclusive ownership.
func (b *Brick) Copy() *Brick {
	var vol *Buffer
	if b.Volume != nil {
		vol = b.Volume.Copy()
	}
	return &Brick{LogicalBox: b.LogicalBox, PhysicalBox: b.PhysicalBox, Volume: vol}
}

// IsEmpty reports whether the brick carries no voxel data (an empty
// physical box), the Skippable case the Split stage drops silently.
func (b *Brick) IsEmpty() bool {
	return b.PhysicalBox.IsEmpty() || b.Volume == nil
}
