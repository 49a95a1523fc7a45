package brick

import (
	"testing"

	"github.com/aplbrain/flyemflows/geom"
	"github.com/stretchr/testify/require"
)

func testGrid() geom.Grid {
	return geom.Grid{BlockShape: geom.Vec3u32{8, 8, 8}, Offset: geom.Vec3{0, 0, 0}}
}

func TestNew_validBrick(t *testing.T) {
	g := testGrid()
	logical := g.BlockBox(geom.Vec3{0, 0, 0})
	vol := NewBuffer(logical.Shape(), Uint8)

	b, err := New(logical, logical, vol, g)
	require.NoError(t, err)
	require.Equal(t, logical, b.LogicalBox)
}

func TestNew_rejectsMisalignedLogicalBox(t *testing.T) {
	g := testGrid()
	logical := geom.Box{Start: geom.Vec3{1, 0, 0}, Stop: geom.Vec3{9, 8, 8}}
	vol := NewBuffer(logical.Shape(), Uint8)

	_, err := New(logical, logical, vol, g)
	require.Error(t, err)
}

func TestNew_rejectsPhysicalBoxOutsideLogical(t *testing.T) {
	g := testGrid()
	logical := g.BlockBox(geom.Vec3{0, 0, 0})
	physical := geom.Box{Start: geom.Vec3{-1, 0, 0}, Stop: geom.Vec3{8, 8, 8}}
	vol := NewBuffer(physical.Shape(), Uint8)

	_, err := New(logical, physical, vol, g)
	require.Error(t, err)
}

func TestBrick_Copy_isDeep(t *testing.T) {
	g := testGrid()
	logical := g.BlockBox(geom.Vec3{0, 0, 0})
	vol := NewBuffer(logical.Shape(), Uint8)
	vol.SetUint8(0, 0, 0, 42)

	b, err := New(logical, logical, vol, g)
	require.NoError(t, err)

	cp := b.Copy()
	cp.Volume.SetUint8(0, 0, 0, 99)

	require.Equal(t, uint8(42), b.Volume.GetUint8(0, 0, 0))
	require.Equal(t, uint8(99), cp.Volume.GetUint8(0, 0, 0))
}
