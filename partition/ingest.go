package partition

import (
	"context"
	"sort"
	"sync"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/voxelservice"
)

// FromVolumeService splits box by a Grid derived from
// svc.PreferredMessageShape() aligned to svc.BlockWidth(), then fetches
// each grid block's intersection with box from svc (spec.md §4.W,
// "from_volume_service"). Partitioning target: approximately
// ceil(total_voxels / voxelsPerPartition) partitions, at least
// parallelismHint.
func FromVolumeService(ctx context.Context, svc voxelservice.VoxelService, scale uint8, box geom.Box, parallelismHint int, voxelsPerPartition int64) (*brick.Wall, error) {
	grid := gridFromService(svc)
	blocks := geom.ClippedBoxesFromGrid(box, grid)

	parallelism := targetPartitions(box, parallelismHint, voxelsPerPartition)

	keys := make([]geom.Box, len(blocks))
	copy(keys, blocks)
	sort.Slice(keys, func(i, j int) bool { return lessVec3(keys[i].Start, keys[j].Start) })

	var mu sync.Mutex
	out := make(map[geom.Vec3]*brick.Brick, len(keys))

	g := newGroup(parallelism)
	for _, physical := range keys {
		physical := physical
		g.Go(func() error {
			logical := grid.LogicalBoxFor(physical.Start)
			vol, err := svc.GetSubvolume(ctx, physical, scale)
			if err != nil {
				return err
			}
			b, err := brick.New(logical, physical, vol, grid)
			if err != nil {
				return err
			}
			mu.Lock()
			out[logical.Start] = b
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return brick.NewPersisted(box, grid, out)
}

// gridFromService derives a Grid from a service's preferred brick shape
// aligned to its block width, per spec.md §4.W.
func gridFromService(svc voxelservice.VoxelService) geom.Grid {
	shape := svc.PreferredMessageShape()
	width := svc.BlockWidth()
	if width == 0 {
		width = 1
	}
	aligned := geom.Vec3u32{
		roundUpToMultiple(shape[0], width),
		roundUpToMultiple(shape[1], width),
		roundUpToMultiple(shape[2], width),
	}
	return geom.Grid{BlockShape: aligned, Offset: geom.Vec3{0, 0, 0}}
}

func roundUpToMultiple(v, multiple uint32) uint32 {
	if multiple == 0 {
		return v
	}
	if v%multiple == 0 {
		return v
	}
	return (v/multiple + 1) * multiple
}

// targetPartitions estimates a partition count of
// ceil(total_voxels/voxelsPerPartition), floored at parallelismHint.
func targetPartitions(box geom.Box, parallelismHint int, voxelsPerPartition int64) int {
	shape := box.Shape()
	total := shape[0] * shape[1] * shape[2]
	if voxelsPerPartition <= 0 {
		return parallelismHint
	}
	n := int((total + voxelsPerPartition - 1) / voxelsPerPartition)
	if n < parallelismHint {
		return parallelismHint
	}
	return n
}
