package downsample

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// UpsampleStrategy selects how source voxels expand into a
// factor-sized output block.
type UpsampleStrategy int

const (
	// UpsampleNearest replicates each source voxel into the whole
	// output block, the only strategy valid for label volumes: it
	// never invents an intermediate label value.
	UpsampleNearest UpsampleStrategy = iota
	// UpsampleZoom resamples XY through a bilinear filter per Z-slice,
	// replicating across Z; Uint8 grayscale volumes only.
	UpsampleZoom
)

// Upsample enlarges buf by factor, an integer per-axis multiplier
// (spec.md §4.D, the inverse of Downsample).
func Upsample(buf *brick.Buffer, factor geom.Vec3u32, strategy UpsampleStrategy) (*brick.Buffer, error) {
	outShape := geom.Vec3{
		buf.Shape[0] * int64(factor[0]),
		buf.Shape[1] * int64(factor[1]),
		buf.Shape[2] * int64(factor[2]),
	}
	switch strategy {
	case UpsampleNearest:
		return nearestUp(buf, factor, outShape), nil
	case UpsampleZoom:
		return zoomUp(buf, factor, outShape)
	default:
		return nil, errs.Newf(errs.Validation, "unknown upsample strategy %d", strategy)
	}
}

func nearestUp(buf *brick.Buffer, factor geom.Vec3u32, outShape geom.Vec3) *brick.Buffer {
	out := brick.NewBuffer(outShape, buf.DType)
	for z := int64(0); z < buf.Shape[0]; z++ {
		for y := int64(0); y < buf.Shape[1]; y++ {
			for x := int64(0); x < buf.Shape[2]; x++ {
				for dz := uint32(0); dz < factor[0]; dz++ {
					for dy := uint32(0); dy < factor[1]; dy++ {
						for dx := uint32(0); dx < factor[2]; dx++ {
							oz := z*int64(factor[0]) + int64(dz)
							oy := y*int64(factor[1]) + int64(dy)
							ox := x*int64(factor[2]) + int64(dx)
							copyVoxel(buf, z, y, x, out, oz, oy, ox)
						}
					}
				}
			}
		}
	}
	return out
}

func zoomUp(buf *brick.Buffer, factor geom.Vec3u32, outShape geom.Vec3) (*brick.Buffer, error) {
	if buf.DType != brick.Uint8 {
		return nil, errs.Newf(errs.Validation, "zoom upsample requires a grayscale (Uint8) volume, got %v", buf.DType)
	}
	out := brick.NewBuffer(outShape, brick.Uint8)
	inY, inX := int(buf.Shape[1]), int(buf.Shape[2])
	outY, outX := int(outShape[1]), int(outShape[2])

	for z := int64(0); z < buf.Shape[0]; z++ {
		src := image.NewGray(image.Rect(0, 0, inX, inY))
		for y := 0; y < inY; y++ {
			for x := 0; x < inX; x++ {
				src.SetGray(x, y, color.Gray{Y: buf.GetUint8(z, int64(y), int64(x))})
			}
		}

		scaled := image.NewGray(image.Rect(0, 0, outX, outY))
		xdraw.BiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Over, nil)

		for dz := uint32(0); dz < factor[0]; dz++ {
			oz := z*int64(factor[0]) + int64(dz)
			for y := 0; y < outY; y++ {
				for x := 0; x < outX; x++ {
					out.SetUint8(oz, int64(y), int64(x), scaled.GrayAt(x, y).Y)
				}
			}
		}
	}
	return out, nil
}
