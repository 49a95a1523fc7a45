package stitch

import "github.com/aplbrain/flyemflows/brick"

// ApplyOffset adds offset to every label voxel in buf in place,
// turning a subvolume's locally-unique labels into globally-unique
// ones (spec.md §4.S step 1).
func ApplyOffset(buf *brick.Buffer, offset uint64) {
	shape := buf.Shape
	for z := int64(0); z < shape[0]; z++ {
		for y := int64(0); y < shape[1]; y++ {
			for x := int64(0); x < shape[2]; x++ {
				buf.SetUint64(z, y, x, buf.GetUint64(z, y, x)+offset)
			}
		}
	}
}

// Apply relabels b with result's offset for region then result's
// global merge mapper, implementing spec.md §4.S step 8 ("apply the
// remap per brick with §4.M") end to end for one subvolume's brick.
// allow_unmapped is always true here: most globally-offset labels
// never appear in a candidate merge edge and must pass through
// unchanged.
func (r *Result) Apply(b *brick.Brick, roiID uint32) (*brick.Brick, error) {
	nb := b.Copy()
	ApplyOffset(nb.Volume, r.Offsets[roiID])
	if err := r.Mapper.Apply(nb.Volume, true); err != nil {
		return nil, err
	}
	return nb, nil
}
