// Package mask implements ROI masking: zeroing voxels outside a
// geometric region of interest, the "mask" operation named in spec.md
// §1's purpose statement and exercised by scenario S3 (sphere ROI).
package mask

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
)

// DefaultSphereRadius returns half the smallest dimension of
// boundingBox, the default radius scenario S3 specifies.
func DefaultSphereRadius(boundingBox geom.Box) float64 {
	shape := boundingBox.Shape()
	smallest := shape[0]
	for _, s := range shape[1:] {
		if s < smallest {
			smallest = s
		}
	}
	return float64(smallest) / 2
}

// ApplySphere zeroes every voxel of b lying farther than radius from
// center (in global voxel coordinates), leaving voxels inside the
// sphere unchanged (spec.md §8 S3). b is left untouched; the masked
// result is returned as a copy.
func ApplySphere(b *brick.Brick, center geom.Vec3, radius float64) *brick.Brick {
	nb := b.Copy()
	c := mgl64.Vec3{float64(center[0]), float64(center[1]), float64(center[2])}

	shape := nb.Volume.Shape
	for z := int64(0); z < shape[0]; z++ {
		for y := int64(0); y < shape[1]; y++ {
			for x := int64(0); x < shape[2]; x++ {
				global := b.PhysicalBox.Start.Add(geom.Vec3{z, y, x})
				p := mgl64.Vec3{float64(global[0]), float64(global[1]), float64(global[2])}
				if p.Sub(c).Len() > radius {
					zeroVoxel(nb.Volume, z, y, x)
				}
			}
		}
	}
	return nb
}

func zeroVoxel(buf *brick.Buffer, z, y, x int64) {
	switch buf.DType {
	case brick.Uint8:
		buf.SetUint8(z, y, x, 0)
	case brick.Uint64:
		buf.SetUint64(z, y, x, 0)
	}
}

// IsFullyMasked reports whether b's physical box lies entirely outside
// the sphere — the Skippable case the pipeline drops rather than
// writes (spec.md §7, "Skippable — empty brick, fully-masked region").
func IsFullyMasked(b *brick.Brick, center geom.Vec3, radius float64) bool {
	c := mgl64.Vec3{float64(center[0]), float64(center[1]), float64(center[2])}
	closest := closestPointOnBox(b.PhysicalBox, center)
	p := mgl64.Vec3{float64(closest[0]), float64(closest[1]), float64(closest[2])}
	return p.Sub(c).Len() > radius
}

// closestPointOnBox clamps center to box, the nearest point inside the
// box to the sphere's center — if even that point is outside the
// sphere, nothing in the box can be inside it.
func closestPointOnBox(box geom.Box, center geom.Vec3) geom.Vec3 {
	var out geom.Vec3
	for i := 0; i < 3; i++ {
		v := center[i]
		if v < box.Start[i] {
			v = box.Start[i]
		} else if v > box.Stop[i]-1 {
			v = box.Stop[i] - 1
		}
		out[i] = v
	}
	return out
}
