package stats

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
)

func TestRecord_roundTripsThroughBytes(t *testing.T) {
	r := Record{BlockZ: 1, BlockY: 2, BlockX: 3, Label: 42, Count: 99}
	got := RecordFromBytes(r.ToBytes())
	require.Equal(t, r, got)
}

func TestHistogram_countsLabelsInBlock(t *testing.T) {
	shape := geom.Vec3{2, 2, 4}
	vol := brick.NewBuffer(shape, brick.Uint64)
	for x := int64(0); x < 4; x++ {
		for y := int64(0); y < 2; y++ {
			for z := int64(0); z < 2; z++ {
				label := uint64(1)
				if x >= 2 {
					label = 2
				}
				vol.SetUint64(z, y, x, label)
			}
		}
	}

	records, err := Histogram(geom.Vec3{0, 0, 0}, vol)
	require.NoError(t, err)
	require.Len(t, records, 2)

	counts := map[uint64]uint64{}
	for _, r := range records {
		counts[r.Label] = r.Count
		require.Equal(t, geom.Vec3{0, 0, 0}, geom.Vec3{r.BlockZ, r.BlockY, r.BlockX})
	}
	require.Equal(t, uint64(8), counts[1])
	require.Equal(t, uint64(8), counts[2])
}

func TestWriterReader_roundTrip(t *testing.T) {
	records := []Record{
		{BlockZ: 0, BlockY: 0, BlockX: 0, Label: 1, Count: 10},
		{BlockZ: 0, BlockY: 0, BlockX: 1, Label: 2, Count: 20},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteAll(records))

	r := NewReader(&buf)
	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Equal(t, records, got)
}
