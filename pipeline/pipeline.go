package pipeline

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/downsample"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/halo"
	"github.com/aplbrain/flyemflows/internal/config"
	"github.com/aplbrain/flyemflows/internal/logging"
	"github.com/aplbrain/flyemflows/internal/stats"
	"github.com/aplbrain/flyemflows/labelmap"
	"github.com/aplbrain/flyemflows/mask"
	"github.com/aplbrain/flyemflows/partition"
	"github.com/aplbrain/flyemflows/slab"
	"github.com/aplbrain/flyemflows/stitch"
	"github.com/aplbrain/flyemflows/voxelservice"
)

// Pipeline drives one job end to end: slab iteration over the source's
// bounding box, per-scale read/transform/write, in the fixed order
// spec.md §5 guarantees (pad -> remap -> downsample -> write, within
// the constraint that downsampled scales are themselves derived from
// the previous scale's already-padded-and-remapped data).
type Pipeline struct {
	// RunID uniquely identifies this job run; it has no semantic effect
	// on processing and exists purely to tag log lines and checkpoint
	// tokens so operators can tell two concurrent or resumed runs apart
	// (spec.md §4.R resumability is keyed on (scale, slab_index) alone,
	// not on RunID — a fresh RunID on resume is expected and harmless).
	RunID string

	cfg    *config.Config
	logger logging.Logger

	source voxelservice.VoxelService
	sink   voxelservice.Writer

	statsWriter *stats.Writer
	labelMapper *labelmap.Mapper

	maskCenter *geom.Vec3
	maskRadius float64

	parallelismHint    int
	voxelsPerPartition int64
}

// Run iterates every (slab, scale) pair the configuration names, in
// strict slab-then-scale order (spec.md §5), resuming from cfg.Resume
// if set.
func (p *Pipeline) Run(ctx context.Context) error {
	axis := p.cfg.SlabAxis.Geom()
	slabs := slab.Decompose(p.source.BoundingBox(), p.cfg.SlabDepth, axis)

	checkpoint := slab.Checkpoint{}
	if p.cfg.Resume != nil {
		checkpoint = slab.Checkpoint{Scale: p.cfg.Resume.Scale, SlabIndex: p.cfg.Resume.BatchIndex}
	}

	var mu sync.Mutex
	prevBySlab := make(map[int]*brick.Wall)

	runner := &slab.Runner{
		Slabs:      slabs,
		MinScale:   p.cfg.MinPyramidScale,
		MaxScale:   p.cfg.MaxPyramidScale,
		Checkpoint: checkpoint,
		OnCheckpoint: func(c slab.Checkpoint) {
			p.logger.Infof("run %s: checkpoint slab %d scale %d complete", p.RunID, c.SlabIndex, c.Scale)
		},
	}

	return runner.Run(ctx, func(ctx context.Context, s slab.Slab, scale uint8) error {
		mu.Lock()
		prev := prevBySlab[s.Index]
		mu.Unlock()

		wall, err := p.buildWall(ctx, s, scale, prev)
		if err != nil {
			return err
		}

		wall, err = p.applyMask(wall)
		if err != nil {
			return err
		}

		wall, err = p.applyHalo(ctx, wall, scale)
		if err != nil {
			return err
		}

		wall, err = p.applyRemap(wall)
		if err != nil {
			return err
		}

		wall, err = p.applyStitch(wall)
		if err != nil {
			return err
		}

		if err := p.write(ctx, wall, scale); err != nil {
			return err
		}
		if err := p.emitStats(wall); err != nil {
			return err
		}

		mu.Lock()
		prevBySlab[s.Index] = wall
		mu.Unlock()
		return nil
	})
}

// buildWall reads scale's data for slab s, either directly from the
// source (the minimum pyramid scale, or any scale when
// pyramid-source=copy) or by
// downsampling the previous scale's wall (pyramid-source=compute /
// compute-as-labels).
func (p *Pipeline) buildWall(ctx context.Context, s slab.Slab, scale uint8, prev *brick.Wall) (*brick.Wall, error) {
	if scale == p.cfg.MinPyramidScale || p.cfg.PyramidSource == config.PyramidCopy {
		box := scaleBox(s.Box, scale)
		return partition.FromVolumeService(ctx, p.source, scale, box, p.parallelismHint, p.voxelsPerPartition)
	}
	if prev == nil {
		return nil, nil
	}
	return p.downsampleWall(prev)
}

// downsampleWall halves every brick's extent by a factor of 2 per
// axis, the standard pyramid convention voxelservice.Memory's own
// scaledBox helper assumes.
func (p *Pipeline) downsampleWall(w *brick.Wall) (*brick.Wall, error) {
	if err := w.PersistAndExecute(); err != nil {
		return nil, err
	}
	strategy := downsample.StrategyZoom
	if p.cfg.PyramidSource == config.PyramidComputeAsLabel {
		strategy = downsample.StrategyMode
	}
	factor := geom.Vec3u32{2, 2, 2}

	src := w.Bricks()
	newGrid := geom.Grid{BlockShape: halveShape(w.Grid.BlockShape), Offset: halve(w.Grid.Offset)}
	out := make(map[brick.Key]*brick.Brick, len(src))
	for _, b := range src {
		vol, err := downsample.Downsample(b.Volume, factor, strategy)
		if err != nil {
			return nil, err
		}
		logical := geom.Box{Start: halve(b.LogicalBox.Start), Stop: halve(b.LogicalBox.Stop)}
		physical := geom.Box{Start: halve(b.PhysicalBox.Start), Stop: halve(b.PhysicalBox.Stop)}
		nb, err := brick.New(logical, physical, vol, newGrid)
		if err != nil {
			return nil, err
		}
		out[logical.Start] = nb
	}
	newBounding := geom.Box{Start: halve(w.BoundingBox.Start), Stop: halve(w.BoundingBox.Stop)}
	return brick.NewPersisted(newBounding, newGrid, out)
}

// applyMask implements scenario S3: voxels outside the sphere are
// zeroed, bricks entirely outside it are dropped (Skippable, spec.md
// §7).
func (p *Pipeline) applyMask(wall *brick.Wall) (*brick.Wall, error) {
	if wall == nil || p.maskCenter == nil {
		return wall, nil
	}
	center := *p.maskCenter
	radius := p.maskRadius
	return wall.Map(func(b *brick.Brick) (*brick.Brick, error) {
		if mask.IsFullyMasked(b, center, radius) {
			return nil, nil
		}
		return mask.ApplySphere(b, center, radius), nil
	})
}

// applyHalo fills partial edge bricks (spec.md's `fill_missing`, §4.W)
// out to their own logical box before writing, so block-addressed
// backends never receive a write smaller than a full block (spec.md
// §9, "the core aligns all writes to block boundaries"). The padding
// grid is the wall's own grid: a brick is only ever padded up to the
// box it is already pinned to, never re-gridded onto a different one.
func (p *Pipeline) applyHalo(ctx context.Context, wall *brick.Wall, scale uint8) (*brick.Wall, error) {
	if wall == nil {
		return wall, nil
	}
	paddingGrid := wall.Grid
	accessor := func(box geom.Box) (*brick.Buffer, error) {
		return p.source.GetSubvolume(ctx, box, scale)
	}
	return wall.Map(func(b *brick.Brick) (*brick.Brick, error) {
		return halo.Pad(b, paddingGrid, accessor)
	})
}

// applyRemap applies the driver-broadcast label mapper, if one was
// configured (spec.md §4.M).
func (p *Pipeline) applyRemap(wall *brick.Wall) (*brick.Wall, error) {
	if wall == nil || p.labelMapper == nil {
		return wall, nil
	}
	return labelmap.ApplyToWall(wall, p.labelMapper, true)
}

// applyStitch reconciles segmentation boundaries across a slab's
// bricks, treating each brick as an independently-segmented subvolume
// (spec.md §4.S). A no-op when stitching is disabled or the wall holds
// fewer than two bricks (nothing to reconcile).
func (p *Pipeline) applyStitch(wall *brick.Wall) (*brick.Wall, error) {
	mode := stitchMode(p.cfg.StitchAlgorithm)
	if wall == nil || mode == stitch.ModeNone {
		return wall, nil
	}
	bricks := wall.Bricks()
	if len(bricks) < 2 {
		return wall, nil
	}

	keys := make([]geom.Vec3, 0, len(bricks))
	for k := range bricks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessVec3(keys[i], keys[j]) })

	roiID := make(map[geom.Vec3]uint32, len(keys))
	for i, k := range keys {
		roiID[k] = uint32(i)
	}

	blockShape := wall.Grid.BlockShape
	subvolumes := make([]stitch.RegionBrick, 0, len(keys))
	for _, k := range keys {
		b := bricks[k]
		if b.Volume.DType != brick.Uint64 {
			return wall, nil // stitching only applies to label volumes
		}
		neighbors := make(map[uint32]geom.Box)
		for axis := 0; axis < 3; axis++ {
			for _, dir := range [2]int64{-1, 1} {
				delta := geom.Vec3{0, 0, 0}
				delta[axis] = dir * int64(blockShape[axis])
				nk := geom.Vec3{k[0] + delta[0], k[1] + delta[1], k[2] + delta[2]}
				if nb, ok := bricks[nk]; ok {
					neighbors[roiID[nk]] = nb.LogicalBox
				}
			}
		}
		region := stitch.Region{
			ROIID:     roiID[k],
			Box:       b.LogicalBox,
			Border:    1,
			MaxID:     maxLabel(b.Volume),
			Neighbors: neighbors,
		}
		subvolumes = append(subvolumes, stitch.RegionBrick{Region: region, Brick: b})
	}

	result, err := stitch.Reconcile(subvolumes, mode, p.parallelismHint)
	if err != nil {
		return nil, err
	}

	return wall.Map(func(b *brick.Brick) (*brick.Brick, error) {
		return result.Apply(b, roiID[b.LogicalBox.Start])
	})
}

// write persists every brick in wall to the sink in parallel, the
// single-node equivalent of fanning writes out across a partition
// (spec.md §9).
func (p *Pipeline) write(ctx context.Context, wall *brick.Wall, scale uint8) error {
	if wall == nil {
		return nil
	}
	bricks := wall.Bricks()
	g := new(errgroup.Group)
	if p.parallelismHint > 0 {
		g.SetLimit(p.parallelismHint)
	}
	for _, b := range bricks {
		b := b
		g.Go(func() error {
			return p.sink.WriteSubvolume(ctx, b.Volume, b.PhysicalBox.Start, scale)
		})
	}
	return g.Wait()
}

// emitStats writes one block-histogram row per (block, label) pair, if
// a stats.Writer was configured (spec.md §6, "Persisted state").
func (p *Pipeline) emitStats(wall *brick.Wall) error {
	if wall == nil || p.statsWriter == nil {
		return nil
	}
	blockShape := wall.Grid.BlockShape
	for _, b := range wall.Bricks() {
		if b.Volume.DType != brick.Uint64 {
			continue
		}
		blockIndex := geom.Vec3{
			b.LogicalBox.Start[0] / int64(blockShape[0]),
			b.LogicalBox.Start[1] / int64(blockShape[1]),
			b.LogicalBox.Start[2] / int64(blockShape[2]),
		}
		records, err := stats.Histogram(blockIndex, b.Volume)
		if err != nil {
			return err
		}
		if err := p.statsWriter.WriteAll(records); err != nil {
			return err
		}
	}
	return nil
}

func stitchMode(alg config.StitchAlgorithm) stitch.Mode {
	switch alg {
	case config.StitchConservative:
		return stitch.ModeConservative
	case config.StitchMedium:
		return stitch.ModeMedium
	case config.StitchAggressive:
		return stitch.ModeAggressive
	default:
		return stitch.ModeNone
	}
}

func maxLabel(buf *brick.Buffer) uint64 {
	var max uint64
	shape := buf.Shape
	for z := int64(0); z < shape[0]; z++ {
		for y := int64(0); y < shape[1]; y++ {
			for x := int64(0); x < shape[2]; x++ {
				if v := buf.GetUint64(z, y, x); v > max {
					max = v
				}
			}
		}
	}
	return max
}

func halve(v geom.Vec3) geom.Vec3 {
	return geom.Vec3{v[0] / 2, v[1] / 2, v[2] / 2}
}

func halveShape(v geom.Vec3u32) geom.Vec3u32 {
	return geom.Vec3u32{v[0] / 2, v[1] / 2, v[2] / 2}
}

// scaleBox halves box's extent per scale level, matching
// voxelservice.Memory's pyramid convention.
func scaleBox(box geom.Box, scale uint8) geom.Box {
	for i := uint8(0); i < scale; i++ {
		box = geom.Box{Start: halve(box.Start), Stop: halve(box.Stop)}
	}
	return box
}

func lessVec3(a, b geom.Vec3) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}
