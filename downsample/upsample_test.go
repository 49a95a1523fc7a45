package downsample

import (
	"testing"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/stretchr/testify/require"
)

func TestNearestUp_replicatesLabels(t *testing.T) {
	buf := brick.NewBuffer(geom.Vec3{2, 2, 2}, brick.Uint64)
	buf.SetUint64(0, 0, 0, 5)
	buf.SetUint64(1, 1, 1, 9)

	out, err := Upsample(buf, geom.Vec3u32{2, 2, 2}, UpsampleNearest)
	require.NoError(t, err)
	require.Equal(t, geom.Vec3{4, 4, 4}, out.Shape)

	for z := int64(0); z < 2; z++ {
		for y := int64(0); y < 2; y++ {
			for x := int64(0); x < 2; x++ {
				require.Equal(t, uint64(5), out.GetUint64(z, y, x))
			}
		}
	}
	for z := int64(2); z < 4; z++ {
		for y := int64(2); y < 4; y++ {
			for x := int64(2); x < 4; x++ {
				require.Equal(t, uint64(9), out.GetUint64(z, y, x))
			}
		}
	}
}

func TestZoomUp_shapeAndRange(t *testing.T) {
	buf := brick.NewBuffer(geom.Vec3{2, 4, 4}, brick.Uint8)
	for z := int64(0); z < 2; z++ {
		for y := int64(0); y < 4; y++ {
			for x := int64(0); x < 4; x++ {
				buf.SetUint8(z, y, x, 100)
			}
		}
	}
	out, err := Upsample(buf, geom.Vec3u32{2, 4, 4}, UpsampleZoom)
	require.NoError(t, err)
	require.Equal(t, geom.Vec3{4, 16, 16}, out.Shape)
	require.InDelta(t, 100, int(out.GetUint8(0, 8, 8)), 2)
}

func TestUpsample_rejectsZoomOnLabelVolume(t *testing.T) {
	buf := brick.NewBuffer(geom.Vec3{2, 2, 2}, brick.Uint64)
	_, err := Upsample(buf, geom.Vec3u32{2, 2, 2}, UpsampleZoom)
	require.Error(t, err)
}
