package brick

import (
	"encoding/binary"

	"github.com/aplbrain/flyemflows/geom"
)

// DType identifies the element type stored in a Buffer. Grayscale
// volumes are Uint8; segmentation volumes are Uint64 label IDs.
// Intermediate floating-point resampling uses Float32.
type DType int

const (
	Uint8 DType = iota
	Uint64
	Float32
)

// BytesPerVoxel mirrors DVID's Data.BytesPerVoxel field: the element
// width in bytes, used throughout the buffer arithmetic below.
func (d DType) BytesPerVoxel() int {
	switch d {
	case Uint8:
		return 1
	case Uint64:
		return 8
	case Float32:
		return 4
	default:
		return 0
	}
}

// Buffer is a dense ZYX-ordered voxel volume, flat-packed the way DVID's
// voxel data types store subvolumes. A Brick exclusively owns its Buffer.
type Buffer struct {
	Shape geom.Vec3 // voxel extent, matches a Box's Shape()
	DType DType
	Data  []byte // len == Shape[0]*Shape[1]*Shape[2]*DType.BytesPerVoxel()
}

// NewBuffer allocates a zero-filled buffer of the given shape and dtype.
func NewBuffer(shape geom.Vec3, dtype DType) *Buffer {
	n := shape[0] * shape[1] * shape[2] * int64(dtype.BytesPerVoxel())
	return &Buffer{Shape: shape, DType: dtype, Data: make([]byte, n)}
}

// voxelOffset returns the byte offset of voxel (z,y,x) within Data.
func (b *Buffer) voxelOffset(z, y, x int64) int64 {
	bpv := int64(b.DType.BytesPerVoxel())
	return ((z*b.Shape[1]+y)*b.Shape[2] + x) * bpv
}

// GetUint8 reads a grayscale voxel.
func (b *Buffer) GetUint8(z, y, x int64) uint8 {
	return b.Data[b.voxelOffset(z, y, x)]
}

// SetUint8 writes a grayscale voxel.
func (b *Buffer) SetUint8(z, y, x int64, v uint8) {
	b.Data[b.voxelOffset(z, y, x)] = v
}

// GetUint64 reads a label voxel.
func (b *Buffer) GetUint64(z, y, x int64) uint64 {
	off := b.voxelOffset(z, y, x)
	return binary.LittleEndian.Uint64(b.Data[off : off+8])
}

// SetUint64 writes a label voxel.
func (b *Buffer) SetUint64(z, y, x int64, v uint64) {
	off := b.voxelOffset(z, y, x)
	binary.LittleEndian.PutUint64(b.Data[off:off+8], v)
}

// Copy returns a deep copy, preserving the Brick buffer-ownership
// invariant across splits/assembles.
func (b *Buffer) Copy() *Buffer {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return &Buffer{Shape: b.Shape, DType: b.DType, Data: data}
}

// BlitFrom copies src into this buffer at relative voxel offset dst,
// covering src's full shape. Caller guarantees src fits within bounds.
func (b *Buffer) BlitFrom(src *Buffer, dst geom.Vec3) {
	bpv := int64(b.DType.BytesPerVoxel())
	rowBytes := src.Shape[2] * bpv
	for z := int64(0); z < src.Shape[0]; z++ {
		for y := int64(0); y < src.Shape[1]; y++ {
			srcOff := src.voxelOffset(z, y, 0)
			dstOff := b.voxelOffset(z+dst[0], y+dst[1], dst[2])
			copy(b.Data[dstOff:dstOff+rowBytes], src.Data[srcOff:srcOff+rowBytes])
		}
	}
}

// SubBuffer extracts the region [relStart, relStart+shape) relative to
// this buffer's own origin, as a new owned Buffer — the copy the Split
// stage of the partition engine makes for each fragment.
func (b *Buffer) SubBuffer(relStart, shape geom.Vec3) *Buffer {
	out := NewBuffer(shape, b.DType)
	bpv := int64(b.DType.BytesPerVoxel())
	rowBytes := shape[2] * bpv
	for z := int64(0); z < shape[0]; z++ {
		for y := int64(0); y < shape[1]; y++ {
			srcOff := b.voxelOffset(z+relStart[0], y+relStart[1], relStart[2])
			dstOff := out.voxelOffset(z, y, 0)
			copy(out.Data[dstOff:dstOff+rowBytes], b.Data[srcOff:srcOff+rowBytes])
		}
	}
	return out
}
