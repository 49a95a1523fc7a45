// Package downsample implements the resolution-pyramid engine:
// shrinking (downsample) and enlarging (upsample) bricks by an integer
// per-axis factor, with label-aware and grayscale-aware strategies
// (spec.md §4.D).
package downsample

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// Strategy selects how a block of source voxels reduces to one output
// voxel during downsampling.
type Strategy int

const (
	// StrategySubsample keeps one corner voxel per block, the cheapest
	// and least accurate reduction.
	StrategySubsample Strategy = iota
	// StrategyMode takes the majority label per block, Uint64 volumes
	// only, ties broken toward the smallest label (spec.md §8 P5).
	StrategyMode
	// StrategyZoom averages Z-groups then resamples XY through an
	// image filter, Uint8 grayscale volumes only.
	StrategyZoom
)

// Downsample reduces buf by factor, an integer per-axis divisor.
// Returns UnalignedDownsample if factor does not evenly divide buf's
// shape (spec.md §4.D invariant).
func Downsample(buf *brick.Buffer, factor geom.Vec3u32, strategy Strategy) (*brick.Buffer, error) {
	if err := checkAligned(buf.Shape, factor); err != nil {
		return nil, err
	}
	outShape := geom.Vec3{
		buf.Shape[0] / int64(factor[0]),
		buf.Shape[1] / int64(factor[1]),
		buf.Shape[2] / int64(factor[2]),
	}

	switch strategy {
	case StrategySubsample:
		return subsample(buf, factor, outShape), nil
	case StrategyMode:
		return mode(buf, factor, outShape)
	case StrategyZoom:
		return zoomDown(buf, factor, outShape)
	default:
		return nil, errs.Newf(errs.Validation, "unknown downsample strategy %d", strategy)
	}
}

func checkAligned(shape geom.Vec3, factor geom.Vec3u32) error {
	for i := 0; i < 3; i++ {
		if factor[i] == 0 || shape[i]%int64(factor[i]) != 0 {
			return errs.Newf(errs.UnalignedDownsample, "shape %v not evenly divisible by factor %v on axis %d", shape, factor, i)
		}
	}
	return nil
}

// subsample keeps the (0,0,0) corner voxel of each factor-sized block.
func subsample(buf *brick.Buffer, factor geom.Vec3u32, outShape geom.Vec3) *brick.Buffer {
	out := brick.NewBuffer(outShape, buf.DType)
	for z := int64(0); z < outShape[0]; z++ {
		for y := int64(0); y < outShape[1]; y++ {
			for x := int64(0); x < outShape[2]; x++ {
				iz, iy, ix := z*int64(factor[0]), y*int64(factor[1]), x*int64(factor[2])
				copyVoxel(buf, iz, iy, ix, out, z, y, x)
			}
		}
	}
	return out
}

func copyVoxel(src *brick.Buffer, sz, sy, sx int64, dst *brick.Buffer, dz, dy, dx int64) {
	switch src.DType {
	case brick.Uint8:
		dst.SetUint8(dz, dy, dx, src.GetUint8(sz, sy, sx))
	case brick.Uint64:
		dst.SetUint64(dz, dy, dx, src.GetUint64(sz, sy, sx))
	}
}

// mode takes, per output voxel, the most frequent label across its
// source block, ties broken toward the smallest label value
// (spec.md §8 P5: {3:4, 7:4} resolves to 3).
func mode(buf *brick.Buffer, factor geom.Vec3u32, outShape geom.Vec3) (*brick.Buffer, error) {
	if buf.DType != brick.Uint64 {
		return nil, errs.Newf(errs.Validation, "mode downsample requires a label (Uint64) volume, got %v", buf.DType)
	}
	out := brick.NewBuffer(outShape, brick.Uint64)
	counts := make(map[uint64]int)
	for z := int64(0); z < outShape[0]; z++ {
		for y := int64(0); y < outShape[1]; y++ {
			for x := int64(0); x < outShape[2]; x++ {
				for k := range counts {
					delete(counts, k)
				}
				for dz := uint32(0); dz < factor[0]; dz++ {
					for dy := uint32(0); dy < factor[1]; dy++ {
						for dx := uint32(0); dx < factor[2]; dx++ {
							v := buf.GetUint64(z*int64(factor[0])+int64(dz), y*int64(factor[1])+int64(dy), x*int64(factor[2])+int64(dx))
							counts[v]++
						}
					}
				}
				out.SetUint64(z, y, x, majorityLabel(counts))
			}
		}
	}
	return out, nil
}

func majorityLabel(counts map[uint64]int) uint64 {
	var best uint64
	bestCount := -1
	for label, c := range counts {
		if c > bestCount || (c == bestCount && label < best) {
			best = label
			bestCount = c
		}
	}
	return best
}

// zoomDown averages each output Z-slice's source Z-group into a
// grayscale image, then resamples it in XY through a Catmull-Rom
// filter (golang.org/x/image/draw), the "grayscale zoom" strategy.
func zoomDown(buf *brick.Buffer, factor geom.Vec3u32, outShape geom.Vec3) (*brick.Buffer, error) {
	if buf.DType != brick.Uint8 {
		return nil, errs.Newf(errs.Validation, "zoom downsample requires a grayscale (Uint8) volume, got %v", buf.DType)
	}
	out := brick.NewBuffer(outShape, brick.Uint8)
	inY, inX := int(buf.Shape[1]), int(buf.Shape[2])
	outY, outX := int(outShape[1]), int(outShape[2])

	for oz := int64(0); oz < outShape[0]; oz++ {
		avg := image.NewGray(image.Rect(0, 0, inX, inY))
		for y := 0; y < inY; y++ {
			for x := 0; x < inX; x++ {
				var sum int
				for dz := uint32(0); dz < factor[0]; dz++ {
					iz := oz*int64(factor[0]) + int64(dz)
					sum += int(buf.GetUint8(iz, int64(y), int64(x)))
				}
				avg.SetGray(x, y, color.Gray{Y: uint8(sum / int(factor[0]))})
			}
		}

		scaled := image.NewGray(image.Rect(0, 0, outX, outY))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), avg, avg.Bounds(), xdraw.Over, nil)

		for y := 0; y < outY; y++ {
			for x := 0; x < outX; x++ {
				out.SetUint8(oz, int64(y), int64(x), scaled.GrayAt(x, y).Y)
			}
		}
	}
	return out, nil
}
