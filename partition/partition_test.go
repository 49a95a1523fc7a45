package partition

import (
	"math/rand"
	"testing"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/stretchr/testify/require"
)

func wallOnGrid(t *testing.T, boundingBox geom.Box, g geom.Grid, fill func(*brick.Buffer, geom.Box)) *brick.Wall {
	t.Helper()
	blocks := geom.ClippedBoxesFromGrid(boundingBox, g)
	bricks := make(map[geom.Vec3]*brick.Brick)
	for _, blk := range blocks {
		logical := g.LogicalBoxFor(blk.Start)
		vol := brick.NewBuffer(blk.Shape(), brick.Uint8)
		fill(vol, blk)
		b, err := brick.New(logical, blk, vol, g)
		require.NoError(t, err)
		bricks[logical.Start] = b
	}
	w, err := brick.NewPersisted(boundingBox, g, bricks)
	require.NoError(t, err)
	return w
}

// sampleVoxel reads the global voxel value at p from wall w, returning
// ok=false if no brick covers it.
func sampleVoxel(t *testing.T, w *brick.Wall, p geom.Vec3) (uint8, bool) {
	t.Helper()
	for _, b := range w.Bricks() {
		if within(p, b.PhysicalBox) {
			rel := p.Sub(b.PhysicalBox.Start)
			return b.Volume.GetUint8(rel[0], rel[1], rel[2]), true
		}
	}
	return 0, false
}

func within(p geom.Vec3, b geom.Box) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Start[i] || p[i] >= b.Stop[i] {
			return false
		}
	}
	return true
}

func globalFill(buf *brick.Buffer, blockBox geom.Box) {
	for z := int64(0); z < buf.Shape[0]; z++ {
		for y := int64(0); y < buf.Shape[1]; y++ {
			for x := int64(0); x < buf.Shape[2]; x++ {
				gz, gy, gx := blockBox.Start[0]+z, blockBox.Start[1]+y, blockBox.Start[2]+x
				v := uint8((gz*977 + gy*97 + gx*7) % 251)
				buf.SetUint8(z, y, x, v)
			}
		}
	}
}

func TestRealign_preservesVoxelData(t *testing.T) {
	srcGrid := geom.Grid{BlockShape: geom.Vec3u32{32, 64, 64}, Offset: geom.Vec3{0, 0, 0}}
	boundingBox := geom.Box{Start: geom.Vec3{0, 0, 0}, Stop: geom.Vec3{128, 128, 128}}
	src := wallOnGrid(t, boundingBox, srcGrid, globalFill)

	dstGrid := geom.Grid{BlockShape: geom.Vec3u32{64, 64, 64}, Offset: geom.Vec3{0, 0, 0}}
	dst, err := Realign(src, dstGrid, 4)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		p := geom.Vec3{
			int64(rng.Intn(64)) + 32,
			int64(rng.Intn(64)) + 32,
			int64(rng.Intn(64)) + 32,
		}
		want, ok := sampleVoxel(t, src, p)
		require.True(t, ok)
		got, ok := sampleVoxel(t, dst, p)
		require.True(t, ok, "voxel %v missing from re-gridded wall", p)
		require.Equal(t, want, got, "voxel %v mismatch after realign", p)
	}
}

// TestRealignRoundTrip is P2: realigning to G' and back to G yields a
// wall voxel-identical to the original on the intersection of coverage.
func TestRealignRoundTrip(t *testing.T) {
	srcGrid := geom.Grid{BlockShape: geom.Vec3u32{16, 16, 16}, Offset: geom.Vec3{0, 0, 0}}
	boundingBox := geom.Box{Start: geom.Vec3{0, 0, 0}, Stop: geom.Vec3{48, 48, 48}}
	src := wallOnGrid(t, boundingBox, srcGrid, globalFill)

	otherGrid := geom.Grid{BlockShape: geom.Vec3u32{24, 24, 24}, Offset: geom.Vec3{0, 0, 0}}
	shuffled, err := Realign(src, otherGrid, 4)
	require.NoError(t, err)

	back, err := Realign(shuffled, srcGrid, 4)
	require.NoError(t, err)

	for z := int64(0); z < 48; z += 3 {
		for y := int64(0); y < 48; y += 3 {
			for x := int64(0); x < 48; x += 3 {
				p := geom.Vec3{z, y, x}
				want, ok := sampleVoxel(t, src, p)
				require.True(t, ok)
				got, ok := sampleVoxel(t, back, p)
				require.True(t, ok)
				require.Equal(t, want, got, "voxel %v mismatch on round trip", p)
			}
		}
	}
}

func TestRealign_noDuplicateLogicalBoxes(t *testing.T) {
	srcGrid := geom.Grid{BlockShape: geom.Vec3u32{16, 16, 16}, Offset: geom.Vec3{0, 0, 0}}
	boundingBox := geom.Box{Start: geom.Vec3{0, 0, 0}, Stop: geom.Vec3{64, 32, 32}}
	src := wallOnGrid(t, boundingBox, srcGrid, globalFill)

	dstGrid := geom.Grid{BlockShape: geom.Vec3u32{48, 32, 32}, Offset: geom.Vec3{0, 0, 0}}
	dst, err := Realign(src, dstGrid, 4)
	require.NoError(t, err)

	seen := make(map[geom.Box]bool)
	for _, b := range dst.Bricks() {
		require.False(t, seen[b.LogicalBox], "duplicate logical box %v", b.LogicalBox)
		seen[b.LogicalBox] = true
	}
}

func TestAssembleOne_rejectsMismatchedLogicalBox(t *testing.T) {
	grid := geom.Grid{BlockShape: geom.Vec3u32{8, 8, 8}, Offset: geom.Vec3{0, 0, 0}}
	lb1 := grid.BlockBox(geom.Vec3{0, 0, 0})
	lb2 := grid.BlockBox(geom.Vec3{1, 0, 0})

	frags := []fragment{
		{logicalBox: lb1, physicalBox: lb1, volume: brick.NewBuffer(lb1.Shape(), brick.Uint8)},
		{logicalBox: lb2, physicalBox: lb2, volume: brick.NewBuffer(lb2.Shape(), brick.Uint8)},
	}
	_, err := assembleOne(lb1, frags, grid)
	require.Error(t, err)
}
