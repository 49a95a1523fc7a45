package voxelservice

import (
	"context"
	"testing"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTripWriteRead(t *testing.T) {
	svc := testMemoryService()

	patch := brick.NewBuffer(geom.Vec3{2, 2, 2}, brick.Uint8)
	patch.SetUint8(0, 0, 0, 5)

	err := svc.WriteSubvolume(context.Background(), patch, geom.Vec3{1, 1, 1}, 0)
	require.NoError(t, err)

	got, err := svc.GetSubvolume(context.Background(), geom.Box{Start: geom.Vec3{1, 1, 1}, Stop: geom.Vec3{3, 3, 3}}, 0)
	require.NoError(t, err)
	require.Equal(t, uint8(5), got.GetUint8(0, 0, 0))
}

func TestMemory_OutOfBounds(t *testing.T) {
	svc := testMemoryService()
	_, err := svc.GetSubvolume(context.Background(), geom.Box{Start: geom.Vec3{100, 100, 100}, Stop: geom.Vec3{108, 108, 108}}, 0)
	require.Error(t, err)
}

func TestMemory_WriteCreatesNewScale(t *testing.T) {
	svc := testMemoryService()
	patch := brick.NewBuffer(geom.Vec3{4, 4, 4}, brick.Uint8)
	err := svc.WriteSubvolume(context.Background(), patch, geom.Vec3{0, 0, 0}, 1)
	require.NoError(t, err)

	_, ok := svc.AvailableScales()[1]
	require.True(t, ok)
}
