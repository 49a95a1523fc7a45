package partition

import (
	"context"
	"testing"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/voxelservice"
	"github.com/stretchr/testify/require"
)

func TestFromVolumeService_coversBoundingBox(t *testing.T) {
	box := geom.Box{Start: geom.Vec3{0, 0, 0}, Stop: geom.Vec3{20, 20, 20}}
	full := brick.NewBuffer(box.Shape(), brick.Uint8)
	globalFill(full, box)
	svc := voxelservice.NewMemory(box, geom.Vec3u32{8, 8, 8}, 8, full)

	wall, err := FromVolumeService(context.Background(), svc, 0, box, 1, 1<<30)
	require.NoError(t, err)
	require.NoError(t, wall.PersistAndExecute())

	total := int64(0)
	for _, b := range wall.Bricks() {
		s := b.PhysicalBox.Shape()
		total += s[0] * s[1] * s[2]
	}
	want := box.Shape()
	require.Equal(t, want[0]*want[1]*want[2], total)

	for _, b := range wall.Bricks() {
		require.True(t, box.Contains(b.PhysicalBox))
	}
}

func TestFromVolumeService_partitionCountRespectsHint(t *testing.T) {
	box := geom.Box{Start: geom.Vec3{0, 0, 0}, Stop: geom.Vec3{16, 16, 16}}
	n := targetPartitions(box, 10, 1<<30)
	require.Equal(t, 10, n)

	n2 := targetPartitions(box, 1, 8)
	require.Greater(t, n2, 1)
}
