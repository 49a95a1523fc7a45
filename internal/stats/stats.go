// Package stats emits block-statistics side-files: a histogram of
// labels per block, fixed 64-bit layout, spec.md §6 "persisted state".
// Downstream tools consume these to update per-label spatial indices.
package stats

import (
	"encoding/binary"
	"io"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
)

// Record is one row of the side-file: a label's voxel count within a
// single block, identified by the block's ZYX grid index.
type Record struct {
	BlockZ, BlockY, BlockX int64
	Label                  uint64
	Count                  uint64
}

const recordBytes = 5 * 8

// ToBytes encodes r into the fixed 64-bit layout
// (block_z, block_y, block_x, label, count), little-endian.
func (r Record) ToBytes() []byte {
	buf := make([]byte, recordBytes)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.BlockZ))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.BlockY))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(r.BlockX))
	binary.LittleEndian.PutUint64(buf[24:32], r.Label)
	binary.LittleEndian.PutUint64(buf[32:40], r.Count)
	return buf
}

// RecordFromBytes decodes one row previously written by ToBytes.
func RecordFromBytes(buf []byte) Record {
	return Record{
		BlockZ: int64(binary.LittleEndian.Uint64(buf[0:8])),
		BlockY: int64(binary.LittleEndian.Uint64(buf[8:16])),
		BlockX: int64(binary.LittleEndian.Uint64(buf[16:24])),
		Label:  binary.LittleEndian.Uint64(buf[24:32]),
		Count:  binary.LittleEndian.Uint64(buf[32:40]),
	}
}

// Histogram counts label occurrences within a single block's volume.
// The volume must be brick.Uint64 (a segmentation volume); the block
// index is the logical box's grid coordinate expressed in blocks, not
// voxels, matching the (block_z, block_y, block_x) side-file columns.
func Histogram(blockIndex geom.Vec3, vol *brick.Buffer) ([]Record, error) {
	counts := make(map[uint64]uint64)
	shape := vol.Shape
	for z := int64(0); z < shape[0]; z++ {
		for y := int64(0); y < shape[1]; y++ {
			for x := int64(0); x < shape[2]; x++ {
				counts[vol.GetUint64(z, y, x)]++
			}
		}
	}

	records := make([]Record, 0, len(counts))
	for label, count := range counts {
		records = append(records, Record{
			BlockZ: blockIndex[0],
			BlockY: blockIndex[1],
			BlockX: blockIndex[2],
			Label:  label,
			Count:  count,
		})
	}
	return records, nil
}

// Writer appends Records to an underlying side-file stream.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for sequential Record writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write appends one Record in fixed-layout form.
func (sw *Writer) Write(r Record) error {
	_, err := sw.w.Write(r.ToBytes())
	return err
}

// WriteAll appends every Record in records, in order.
func (sw *Writer) WriteAll(records []Record) error {
	for _, r := range records {
		if err := sw.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Reader reads Records back from a side-file stream written by Writer.
type Reader struct {
	r io.Reader
}

// NewReader wraps r for sequential Record reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadAll reads every remaining Record until EOF.
func (sr *Reader) ReadAll() ([]Record, error) {
	var out []Record
	buf := make([]byte, recordBytes)
	for {
		_, err := io.ReadFull(sr.r, buf)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, RecordFromBytes(buf))
	}
}
